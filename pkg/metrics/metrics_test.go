package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/PhilipKram/blacklist-index/pkg/blacklist"
)

func newTestMetrics() *Metrics {
	return New(prometheus.NewRegistry())
}

func TestObserve_CountsTotalsAndByKind(t *testing.T) {
	m := newTestMetrics()
	m.Observe(blacklist.KindDomain, HotHit, time.Microsecond)
	m.Observe(blacklist.KindDomain, ColdHit, time.Microsecond)
	m.Observe(blacklist.KindURL, Miss, time.Microsecond)

	snap := m.Snapshot()
	if snap.TotalLookups != 3 {
		t.Errorf("expected 3 total lookups, got %d", snap.TotalLookups)
	}
	if snap.LookupsByKind[blacklist.KindDomain] != 2 {
		t.Errorf("expected 2 domain lookups, got %d", snap.LookupsByKind[blacklist.KindDomain])
	}
	if snap.LookupsByKind[blacklist.KindURL] != 1 {
		t.Errorf("expected 1 url lookup, got %d", snap.LookupsByKind[blacklist.KindURL])
	}
}

func TestObserve_HitMissAndTierAccounting(t *testing.T) {
	m := newTestMetrics()
	m.Observe(blacklist.KindDomain, HotHit, time.Microsecond)
	m.Observe(blacklist.KindDomain, ColdHit, time.Microsecond)
	m.Observe(blacklist.KindDomain, Miss, time.Microsecond)

	snap := m.Snapshot()
	if snap.Hits != 2 {
		t.Errorf("expected 2 hits, got %d", snap.Hits)
	}
	if snap.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", snap.Misses)
	}
	if snap.HotHits != 1 || snap.ColdHits != 1 {
		t.Errorf("expected 1 hot hit and 1 cold hit, got hot=%d cold=%d", snap.HotHits, snap.ColdHits)
	}
}

func TestObserve_RunningMeanLatency(t *testing.T) {
	m := newTestMetrics()
	m.Observe(blacklist.KindDomain, HotHit, 100*time.Nanosecond)
	m.Observe(blacklist.KindDomain, HotHit, 300*time.Nanosecond)

	snap := m.Snapshot()
	if snap.MeanLatencyNanos != 200 {
		t.Errorf("expected running mean 200ns, got %v", snap.MeanLatencyNanos)
	}
}

func TestRecordCompactIPv4AndURLsAltered(t *testing.T) {
	m := newTestMetrics()
	m.RecordCompactIPv4()
	m.RecordCompactIPv4()
	m.RecordURLAltered()

	snap := m.Snapshot()
	if snap.CompactIPv4Count != 2 {
		t.Errorf("expected 2 compact ipv4 entries, got %d", snap.CompactIPv4Count)
	}
	if snap.URLsAlteredCount != 1 {
		t.Errorf("expected 1 altered url, got %d", snap.URLsAlteredCount)
	}
}

func TestNew_MultipleInstancesDoNotCollide(t *testing.T) {
	// Each Metrics is backed by its own registry, so constructing several
	// in the same process (as independent tests do) must never panic.
	_ = newTestMetrics()
	_ = newTestMetrics()
}
