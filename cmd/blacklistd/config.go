package main

import (
	"time"

	"github.com/PhilipKram/blacklist-index/pkg/envconfig"
)

// appConfig is the process-level configuration, populated from the
// environment at startup. Coordinator tuning lives in coordinator.Config;
// everything else (transport, auth, notification) is assembled here.
type appConfig struct {
	DatabasePath string

	HTTPPort       string
	HTTPAccessLog  bool
	HTTPProduction bool

	HotDomainSources []string
	HotURLSources    []string
	HotIPSources     []string

	JWTSecret         string
	AdminSecretHash   string
	AdminBootstrapKey string

	RedisAddr    string
	RedisDB      int
	RedisEnabled bool
	UpdateChannel string

	LogLevel int8
}

func loadConfig() appConfig {
	return appConfig{
		DatabasePath: envconfig.Optional("BLACKLIST_DB_PATH", "blacklist.db"),

		HTTPPort:       envconfig.Optional("BLACKLIST_HTTP_PORT", "8080"),
		HTTPAccessLog:  envconfig.OptionalBool("BLACKLIST_HTTP_ACCESS_LOG", true),
		HTTPProduction: envconfig.OptionalBool("BLACKLIST_HTTP_PRODUCTION", false),

		HotDomainSources: envconfig.OptionalStringSlice("BLACKLIST_HOT_DOMAIN_SOURCES", ",", nil),
		HotURLSources:    envconfig.OptionalStringSlice("BLACKLIST_HOT_URL_SOURCES", ",", nil),
		HotIPSources:     envconfig.OptionalStringSlice("BLACKLIST_HOT_IP_SOURCES", ",", nil),

		JWTSecret:         envconfig.Optional("BLACKLIST_JWT_SECRET", ""),
		AdminSecretHash:   envconfig.Optional("BLACKLIST_ADMIN_SECRET_HASH", ""),
		AdminBootstrapKey: envconfig.Optional("BLACKLIST_ADMIN_BOOTSTRAP_KEY", ""),

		RedisAddr:     envconfig.Optional("BLACKLIST_REDIS_ADDR", ""),
		RedisDB:       envconfig.OptionalInt("BLACKLIST_REDIS_DB", 0),
		RedisEnabled:  envconfig.OptionalBool("BLACKLIST_REDIS_ENABLED", false),
		UpdateChannel: envconfig.Optional("BLACKLIST_UPDATE_CHANNEL", "blacklist.updates"),

		LogLevel: int8(envconfig.OptionalInt("BLACKLIST_LOG_LEVEL", 1)),
	}
}

// readTimeouts centralizes the server's timeout defaults, overridable
// individually for operators who need longer batch-write windows.
func readTimeouts() (read, write, idle time.Duration) {
	read = envconfig.OptionalDuration("BLACKLIST_HTTP_READ_TIMEOUT", 15*time.Second)
	write = envconfig.OptionalDuration("BLACKLIST_HTTP_WRITE_TIMEOUT", 60*time.Second)
	idle = envconfig.OptionalDuration("BLACKLIST_HTTP_IDLE_TIMEOUT", 120*time.Second)
	return
}
