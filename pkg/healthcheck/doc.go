// Package healthcheck registers /healthz/readiness and /healthz/liveness
// endpoints on a Chi router. Optional HealthCheckFunc callbacks can be
// provided to perform custom readiness and liveness checks.
package healthcheck
