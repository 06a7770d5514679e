package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/PhilipKram/blacklist-index/pkg/blacklist"
)

// Outcome classifies how a lookup resolved, for hit/miss and hot/cold
// accounting. A miss carries no tier (nothing was found in either shard).
type Outcome int

const (
	Miss Outcome = iota
	HotHit
	ColdHit
)

// Snapshot is an immutable copy of the running counters at a point in time.
type Snapshot struct {
	TotalLookups     int64
	LookupsByKind    map[blacklist.Kind]int64
	Hits             int64
	Misses           int64
	HotHits          int64
	ColdHits         int64
	MeanLatencyNanos float64
	CompactIPv4Count int64
	URLsAlteredCount int64
}

// Metrics holds the Index's running lookup counters, each mirrored into a
// Prometheus collector registered against reg at construction time.
type Metrics struct {
	mu sync.Mutex

	total       int64
	byKind      map[blacklist.Kind]int64
	hits        int64
	misses      int64
	hotHits     int64
	coldHits    int64
	latencyMean float64
	latencyN    int64
	compactIPv4 int64
	urlsAltered int64

	promTotal       prometheus.Counter
	promByKind      *prometheus.CounterVec
	promHits        prometheus.Counter
	promMisses      prometheus.Counter
	promHotHits     prometheus.Counter
	promColdHits    prometheus.Counter
	promLatency     prometheus.Gauge
	promCompactIPv4 prometheus.Counter
	promURLsAltered prometheus.Counter
}

// New builds a Metrics instance and registers its collectors against reg.
// Passing nil registers against prometheus.DefaultRegisterer, the
// production path; tests should pass a fresh prometheus.NewRegistry() so
// repeated construction within the same binary never collides.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		byKind: make(map[blacklist.Kind]int64),

		promTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blacklist_lookups_total",
			Help: "Total number of lookups performed against the Index.",
		}),
		promByKind: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blacklist_lookups_by_kind_total",
			Help: "Number of lookups performed, partitioned by indicator kind.",
		}, []string{"kind"}),
		promHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blacklist_lookup_hits_total",
			Help: "Number of lookups that matched a blacklisted indicator.",
		}),
		promMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blacklist_lookup_misses_total",
			Help: "Number of lookups that matched nothing.",
		}),
		promHotHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blacklist_lookup_hot_hits_total",
			Help: "Number of hits resolved by the hot shard.",
		}),
		promColdHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blacklist_lookup_cold_hits_total",
			Help: "Number of hits resolved by the cold shard.",
		}),
		promLatency: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blacklist_lookup_latency_mean_nanoseconds",
			Help: "Running mean lookup latency in nanoseconds.",
		}),
		promCompactIPv4: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blacklist_compact_ipv4_entries_total",
			Help: "Number of single-address IPv4 adds stored in packed uint32 form.",
		}),
		promURLsAltered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blacklist_urls_altered_total",
			Help: "Number of URLs whose canonical form differed from the input.",
		}),
	}

	reg.MustRegister(
		m.promTotal, m.promByKind, m.promHits, m.promMisses,
		m.promHotHits, m.promColdHits, m.promLatency,
		m.promCompactIPv4, m.promURLsAltered,
	)
	return m
}

// Observe records one lookup of the given kind, its outcome, and the
// latency it took. It is the single update path the query side of the
// Coordinator calls on every is_*/source_of_* lookup that reaches the
// index (empty domains and unparseable IPs return before it is called).
func (m *Metrics) Observe(kind blacklist.Kind, outcome Outcome, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.byKind[kind]++
	m.promTotal.Inc()
	m.promByKind.WithLabelValues(string(kind)).Inc()

	switch outcome {
	case HotHit:
		m.hits++
		m.hotHits++
		m.promHits.Inc()
		m.promHotHits.Inc()
	case ColdHit:
		m.hits++
		m.coldHits++
		m.promHits.Inc()
		m.promColdHits.Inc()
	default:
		m.misses++
		m.promMisses.Inc()
	}

	m.latencyN++
	delta := float64(latency.Nanoseconds()) - m.latencyMean
	m.latencyMean += delta / float64(m.latencyN)
	m.promLatency.Set(m.latencyMean)
}

// RecordCompactIPv4 increments the count of entries stored in packed IPv4
// form. The Coordinator calls it once per successful single-address IPv4
// AddIP; IPv4 rows added through AddBatch or loaded by a reload are not
// counted, and re-adding an existing address counts it again.
func (m *Metrics) RecordCompactIPv4() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.compactIPv4++
	m.promCompactIPv4.Inc()
}

// RecordURLAltered increments the count of URLs whose canonical form
// differed from the value originally submitted.
func (m *Metrics) RecordURLAltered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urlsAltered++
	m.promURLsAltered.Inc()
}

// Snapshot returns a point-in-time copy of every counter.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	byKind := make(map[blacklist.Kind]int64, len(m.byKind))
	for k, v := range m.byKind {
		byKind[k] = v
	}

	return Snapshot{
		TotalLookups:     m.total,
		LookupsByKind:    byKind,
		Hits:             m.hits,
		Misses:           m.misses,
		HotHits:          m.hotHits,
		ColdHits:         m.coldHits,
		MeanLatencyNanos: m.latencyMean,
		CompactIPv4Count: m.compactIPv4,
		URLsAlteredCount: m.urlsAltered,
	}
}
