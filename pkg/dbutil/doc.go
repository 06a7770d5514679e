// Package dbutil provides helpers for opening and configuring database/sql
// connection pools with sensible defaults.
//
// The package imports the pure-Go SQLite driver (modernc.org/sqlite) as a
// side effect. OpenSQLite additionally applies the WAL/NORMAL/cache_size
// pragmas required for crash-safe, low-fsync-overhead commits. Use Open
// directly with a different driverName for other databases that have been
// registered separately.
package dbutil
