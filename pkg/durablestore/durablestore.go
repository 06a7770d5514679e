// Package durablestore is the relational persistence layer (C2) for the
// blacklist Index: four tables (domain, url, ip — which also carries CIDR
// rows — and an append-only audit log), opened with the WAL/NORMAL pragmas
// a crash-safe, low-fsync-overhead commit path needs.
//
// Every exported method runs on the database/sql pool Open configured (one
// connection unless overridden); writes run as short, individually-committed
// transactions.
package durablestore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/PhilipKram/blacklist-index/pkg/blacklist"
	"github.com/PhilipKram/blacklist-index/pkg/dbutil"
)

const schema = `
CREATE TABLE IF NOT EXISTS blacklist_domain (
	domain TEXT PRIMARY KEY,
	date   TEXT,
	score  REAL,
	source TEXT
);
CREATE INDEX IF NOT EXISTS idx_blacklist_domain_source ON blacklist_domain(source);

CREATE TABLE IF NOT EXISTS blacklist_url (
	url    TEXT PRIMARY KEY,
	date   TEXT,
	score  REAL,
	source TEXT
);
CREATE INDEX IF NOT EXISTS idx_blacklist_url_source ON blacklist_url(source);

CREATE TABLE IF NOT EXISTS blacklist_ip (
	ip     TEXT PRIMARY KEY,
	date   TEXT,
	score  REAL,
	source TEXT
);
CREATE INDEX IF NOT EXISTS idx_blacklist_ip_source ON blacklist_ip(source);

CREATE TABLE IF NOT EXISTS updates (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp   TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	source      TEXT NOT NULL,
	entry_count INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_updates_source ON updates(source);
CREATE INDEX IF NOT EXISTS idx_updates_timestamp ON updates(timestamp);
`

// tableFor maps a Kind to its table name and primary-key column. CIDR
// entries share the ip table; the caller is responsible for routing them
// there (the "/" in the value is what distinguishes a CIDR row).
func tableFor(kind blacklist.Kind) (table, column string, ok bool) {
	switch kind {
	case blacklist.KindDomain:
		return "blacklist_domain", "domain", true
	case blacklist.KindURL:
		return "blacklist_url", "url", true
	case blacklist.KindIP, blacklist.KindCIDR:
		return "blacklist_ip", "ip", true
	default:
		return "", "", false
	}
}

// Store is a relational durable store backed by a single SQLite file.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens (creating if necessary) the SQLite database at path, applies
// the required pragmas, and idempotently creates any missing tables and
// indices. It never destroys existing data.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	db, err := dbutil.OpenSQLite(path)
	if err != nil {
		return nil, blacklist.WrapStorage("opening durable store", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, blacklist.WrapStorage("creating schema", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert inserts a new row for (kind, key) or, if the key already exists,
// replaces its metadata (upsert semantics — never ignored).
func (s *Store) Upsert(kind blacklist.Kind, key string, e blacklist.Entry) error {
	table, column, ok := tableFor(kind)
	if !ok {
		return fmt.Errorf("durablestore: unsupported kind %q", kind)
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (%s, date, score, source) VALUES (?, ?, ?, ?)
		 ON CONFLICT(%s) DO UPDATE SET date = excluded.date, score = excluded.score, source = excluded.source`,
		table, column, column,
	)
	if _, err := s.db.Exec(query, key, e.Date, e.Score, e.Source); err != nil {
		return blacklist.WrapStorage(fmt.Sprintf("upserting %s", kind), err)
	}
	return nil
}

// Item is a single (key, Entry) pair for batch upserts.
type Item struct {
	Key   string
	Entry blacklist.Entry
}

// UpsertBatch applies all items for kind in a single transaction. On any
// failure, the whole batch is rolled back and no row is committed.
func (s *Store) UpsertBatch(kind blacklist.Kind, items []Item) error {
	table, column, ok := tableFor(kind)
	if !ok {
		return fmt.Errorf("durablestore: unsupported kind %q", kind)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return blacklist.WrapStorage("beginning batch transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	query := fmt.Sprintf(
		`INSERT INTO %s (%s, date, score, source) VALUES (?, ?, ?, ?)
		 ON CONFLICT(%s) DO UPDATE SET date = excluded.date, score = excluded.score, source = excluded.source`,
		table, column, column,
	)
	stmt, err := tx.Prepare(query)
	if err != nil {
		return blacklist.WrapStorage("preparing batch statement", err)
	}
	defer stmt.Close()

	for _, it := range items {
		if _, err := stmt.Exec(it.Key, it.Entry.Date, it.Entry.Score, it.Entry.Source); err != nil {
			return blacklist.WrapStorage(fmt.Sprintf("upserting %s in batch", kind), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return blacklist.WrapStorage("committing batch transaction", err)
	}
	return nil
}

// DeleteByValue removes value from all three entity tables within a single
// transaction. Returns true if at least one row was deleted.
func (s *Store) DeleteByValue(value string) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, blacklist.WrapStorage("beginning delete transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var affected int64
	for _, table := range []string{"blacklist_domain", "blacklist_url", "blacklist_ip"} {
		col := map[string]string{"blacklist_domain": "domain", "blacklist_url": "url", "blacklist_ip": "ip"}[table]
		res, err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, col), value)
		if err != nil {
			return false, blacklist.WrapStorage(fmt.Sprintf("deleting from %s", table), err)
		}
		n, _ := res.RowsAffected()
		affected += n
	}

	if err := tx.Commit(); err != nil {
		return false, blacklist.WrapStorage("committing delete transaction", err)
	}
	return affected > 0, nil
}

// StreamDomains calls fn for every row in the domain table, in no
// particular order. If fn returns an error for a given row, that row is
// skipped (not fatal); a failure reading the table itself is returned.
func (s *Store) StreamDomains(fn func(domain string, e blacklist.Entry) error) error {
	return s.stream("SELECT domain, date, score, source FROM blacklist_domain", fn)
}

// StreamURLs calls fn for every row in the url table.
func (s *Store) StreamURLs(fn func(url string, e blacklist.Entry) error) error {
	return s.stream("SELECT url, date, score, source FROM blacklist_url", fn)
}

// StreamIPs calls fn for every row in the ip table (includes CIDR rows —
// distinguished by a "/" in the key — the caller routes those separately).
func (s *Store) StreamIPs(fn func(ip string, e blacklist.Entry) error) error {
	return s.stream("SELECT ip, date, score, source FROM blacklist_ip", fn)
}

func (s *Store) stream(query string, fn func(key string, e blacklist.Entry) error) error {
	rows, err := s.db.Query(query)
	if err != nil {
		return blacklist.WrapStorage("querying rows", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, date, source string
		var score sql.NullFloat64
		if err := rows.Scan(&key, &date, &score, &source); err != nil {
			return blacklist.WrapStorage("scanning row", err)
		}
		_ = fn(key, blacklist.Entry{Source: source, Date: date, Score: score.Float64})
	}
	return rows.Err()
}

// CountEntries returns the total row count across the three entity tables.
func (s *Store) CountEntries() (int, error) {
	var total int
	for _, table := range []string{"blacklist_domain", "blacklist_url", "blacklist_ip"} {
		var n int
		if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n); err != nil {
			return 0, blacklist.WrapStorage(fmt.Sprintf("counting %s", table), err)
		}
		total += n
	}
	return total, nil
}

// SourceCounts returns the number of entries per source, aggregated across
// all three entity tables.
func (s *Store) SourceCounts() (map[string]int, error) {
	counts := make(map[string]int)
	for _, table := range []string{"blacklist_domain", "blacklist_url", "blacklist_ip"} {
		rows, err := s.db.Query(fmt.Sprintf("SELECT source, COUNT(*) FROM %s GROUP BY source", table))
		if err != nil {
			return nil, blacklist.WrapStorage(fmt.Sprintf("aggregating %s by source", table), err)
		}
		for rows.Next() {
			var source string
			var n int
			if err := rows.Scan(&source, &n); err != nil {
				rows.Close()
				return nil, blacklist.WrapStorage("scanning source count", err)
			}
			counts[source] += n
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, blacklist.WrapStorage(fmt.Sprintf("aggregating %s by source", table), err)
		}
		rows.Close()
	}
	return counts, nil
}

// LogUpdate appends an audit row recording that source contributed
// entryCount entries in the most recent refresh.
func (s *Store) LogUpdate(source string, entryCount int) error {
	_, err := s.db.Exec("INSERT INTO updates (source, entry_count) VALUES (?, ?)", source, entryCount)
	if err != nil {
		return blacklist.WrapStorage("logging update", err)
	}
	return nil
}

// LastUpdatePerSource returns the most recent update timestamp for each
// source that has ever logged one.
func (s *Store) LastUpdatePerSource() (map[string]string, error) {
	rows, err := s.db.Query("SELECT source, MAX(timestamp) FROM updates GROUP BY source")
	if err != nil {
		return nil, blacklist.WrapStorage("querying last update per source", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var source, ts string
		if err := rows.Scan(&source, &ts); err != nil {
			return nil, blacklist.WrapStorage("scanning last update row", err)
		}
		out[source] = ts
	}
	return out, rows.Err()
}

// sqliteTimestampFormat matches the layout SQLite's CURRENT_TIMESTAMP
// default writes into the updates table (space-separated, no "T", no
// offset). Filter bounds must be formatted the same way or the plain
// string comparison in UpdateHistory sorts them incorrectly against
// stored rows.
const sqliteTimestampFormat = "2006-01-02 15:04:05"

// UpdateHistoryFilter narrows UpdateHistory's result set. A nil/empty field
// means "no filter on that dimension".
type UpdateHistoryFilter struct {
	Source string
	Start  time.Time
	End    time.Time
}

// UpdateHistory returns audit rows matching filter, ordered by timestamp
// ascending.
func (s *Store) UpdateHistory(filter UpdateHistoryFilter) ([]blacklist.UpdateRecord, error) {
	query := "SELECT timestamp, source, entry_count FROM updates WHERE 1=1"
	var args []any

	if filter.Source != "" {
		query += " AND source = ?"
		args = append(args, filter.Source)
	}
	if !filter.Start.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.Start.UTC().Format(sqliteTimestampFormat))
	}
	if !filter.End.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, filter.End.UTC().Format(sqliteTimestampFormat))
	}
	query += " ORDER BY timestamp ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, blacklist.WrapStorage("querying update history", err)
	}
	defer rows.Close()

	var out []blacklist.UpdateRecord
	for rows.Next() {
		var rec blacklist.UpdateRecord
		if err := rows.Scan(&rec.Timestamp, &rec.Source, &rec.EntryCount); err != nil {
			return nil, blacklist.WrapStorage("scanning update history row", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
