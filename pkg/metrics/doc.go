// Package metrics is the running-counter half of Metrics & Audit (C6): total
// and per-kind lookup counts, hit/miss and hot/cold accounting, a
// numerically stable incremental mean lookup latency, and the two
// canonicalization-adjacent counters (compact IPv4 entries, URLs altered by
// canonicalization). Collectors are exported to Prometheus via
// github.com/prometheus/client_golang; the audit log itself lives in
// durablestore's updates table.
package metrics
