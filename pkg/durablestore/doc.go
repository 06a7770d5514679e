// Package durablestore persists blacklist entries and update-history audit
// rows to a local SQLite file, applying the WAL/NORMAL/cache_size pragmas
// required for crash-safe commits without a full fsync per statement.
package durablestore
