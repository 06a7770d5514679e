package coordinator

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/PhilipKram/blacklist-index/pkg/blacklist"
	"github.com/PhilipKram/blacklist-index/pkg/durablestore"
)

type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) Publish(event string) {
	n.events = append(n.events, event)
}

func newTestCoordinator(t *testing.T) (*Coordinator, *durablestore.Store, *recordingNotifier) {
	t.Helper()
	store, err := durablestore.Open(filepath.Join(t.TempDir(), "blacklist.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("opening durable store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	notifier := &recordingNotifier{}
	cfg := Config{
		HotDomainSources: []string{"PhishTank"},
		HotURLSources:    []string{"PhishTank"},
		HotIPSources:     []string{"PhishTank"},
	}
	c, err := New(cfg, store, zerolog.Nop(), prometheus.NewRegistry(), notifier)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, store, notifier
}

func TestAddDomain_InsertsAndMatchesHierarchically(t *testing.T) {
	c, _, notifier := newTestCoordinator(t)

	if err := c.AddDomain("evil.com", "2026-01-01", 0.9, "PhishTank"); err != nil {
		t.Fatalf("AddDomain: %v", err)
	}

	source, ok := c.SourceOfDomain("a.b.evil.com")
	if !ok || source != "PhishTank" {
		t.Errorf("expected hierarchical match to PhishTank, got ok=%v source=%s", ok, source)
	}
	if len(notifier.events) != 1 {
		t.Errorf("expected one notify event, got %v", notifier.events)
	}
}

func TestAddDomain_RollsBackInMemoryOnDurableFailure(t *testing.T) {
	c, store, _ := newTestCoordinator(t)

	if err := c.AddDomain("evil.com", "2026-01-01", 0.9, "PhishTank"); err != nil {
		t.Fatalf("seeding AddDomain: %v", err)
	}

	store.Close()

	err := c.AddDomain("evil.com", "2026-02-02", 0.1, "OpenPhish")
	if err == nil {
		t.Fatal("expected an error once the durable store is closed")
	}
	if !errors.Is(err, blacklist.ErrStorage) {
		t.Errorf("expected ErrStorage, got %v", err)
	}

	source, ok := c.SourceOfDomain("evil.com")
	if !ok || source != "PhishTank" {
		t.Errorf("expected the original entry restored after rollback, got ok=%v source=%s", ok, source)
	}
}

func TestAddDomain_RollsBackNewEntryOnDurableFailure(t *testing.T) {
	c, store, _ := newTestCoordinator(t)
	store.Close()

	if err := c.AddDomain("brandnew.com", "2026-01-01", 0.5, "PhishTank"); err == nil {
		t.Fatal("expected an error once the durable store is closed")
	}

	if c.IsDomain("brandnew.com") {
		t.Error("expected the failed insert to be rolled back entirely, not left in memory")
	}
}

func TestAddURL_CanonicalizesAndTracksAltered(t *testing.T) {
	c, _, _ := newTestCoordinator(t)

	if err := c.AddURL("HTTP://EVIL.COM/?utm_source=spam", "2026-01-01", 0.7, "URLhaus"); err != nil {
		t.Fatalf("AddURL: %v", err)
	}

	if !c.IsURL("http://evil.com") {
		t.Error("expected canonical form to match")
	}

	snap := c.Metrics()
	if snap.URLsAlteredCount != 1 {
		t.Errorf("expected 1 altered URL recorded, got %d", snap.URLsAlteredCount)
	}
}

func TestAddIP_RoutesCIDRVsAddress(t *testing.T) {
	c, _, _ := newTestCoordinator(t)

	if err := c.AddIP("192.168.1.100", "2026-01-01", 0.3, "BlocklistDE"); err != nil {
		t.Fatalf("AddIP (address): %v", err)
	}
	if err := c.AddIP("10.0.0.0/8", "2026-01-01", 0.8, "SpamhausDROP"); err != nil {
		t.Fatalf("AddIP (cidr): %v", err)
	}

	if !c.IsIP("192.168.1.100") {
		t.Error("expected exact address match")
	}
	source, ok := c.SourceOfIP("10.1.1.1")
	if !ok || source != "SpamhausDROP" {
		t.Errorf("expected CIDR containment match, got ok=%v source=%s", ok, source)
	}
}

func TestAddIP_InvalidValueReturnsErrInvalidInput(t *testing.T) {
	c, _, _ := newTestCoordinator(t)

	err := c.AddIP("not-an-ip", "2026-01-01", 0.1, "Obscure")
	if !errors.Is(err, blacklist.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRemove_DeletesFromMemoryAndDurable(t *testing.T) {
	c, _, _ := newTestCoordinator(t)

	if err := c.AddDomain("evil.com", "2026-01-01", 0.9, "PhishTank"); err != nil {
		t.Fatalf("AddDomain: %v", err)
	}

	removed, err := c.Remove("evil.com")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !removed {
		t.Error("expected removed=true")
	}
	if c.IsDomain("evil.com") {
		t.Error("expected the domain to no longer match after removal")
	}
}

func TestRemove_UnknownValueIsNoop(t *testing.T) {
	c, _, _ := newTestCoordinator(t)

	removed, err := c.Remove("never-added.com")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed {
		t.Error("expected removed=false for a value that was never added")
	}
}

func TestAddBatch_InsertsAllItemsAndLogsUpdate(t *testing.T) {
	c, store, _ := newTestCoordinator(t)

	items := []BatchItem{
		{Value: "a.com", Date: "2026-01-01", Score: 0.5},
		{Value: "b.com", Date: "2026-01-01", Score: 0.6},
	}
	if err := c.AddBatch(blacklist.KindDomain, "PhishTank", items); err != nil {
		t.Fatalf("AddBatch: %v", err)
	}

	if !c.IsDomain("a.com") || !c.IsDomain("b.com") {
		t.Error("expected both batch items to be queryable")
	}

	history, err := store.UpdateHistory(durablestore.UpdateHistoryFilter{Source: "PhishTank"})
	if err != nil {
		t.Fatalf("UpdateHistory: %v", err)
	}
	if len(history) != 1 || history[0].EntryCount != 2 {
		t.Errorf("expected one audit row with entry_count=2, got %+v", history)
	}
}

func TestAddBatch_DurableFailureReturnsError(t *testing.T) {
	c, store, _ := newTestCoordinator(t)
	store.Close()

	err := c.AddBatch(blacklist.KindDomain, "PhishTank", []BatchItem{{Value: "a.com"}})
	if !errors.Is(err, blacklist.ErrStorage) {
		t.Errorf("expected ErrStorage, got %v", err)
	}
}

func TestReload_RebuildsFromDurableStore(t *testing.T) {
	c, store, _ := newTestCoordinator(t)

	if err := c.AddDomain("evil.com", "2026-01-01", 0.9, "PhishTank"); err != nil {
		t.Fatalf("AddDomain: %v", err)
	}

	fresh, err := New(Config{}, store, zerolog.Nop(), prometheus.NewRegistry(), nil)
	if err != nil {
		t.Fatalf("New (hydration): %v", err)
	}
	if !fresh.IsDomain("evil.com") {
		t.Error("expected a freshly constructed Coordinator to hydrate from durable state")
	}
	_ = c
}

func TestMetrics_TracksHotAndColdHits(t *testing.T) {
	c, _, _ := newTestCoordinator(t)

	if err := c.AddDomain("hot.com", "2026-01-01", 0.9, "PhishTank"); err != nil {
		t.Fatalf("AddDomain hot: %v", err)
	}
	if err := c.AddDomain("cold.com", "2026-01-01", 0.1, "Obscure"); err != nil {
		t.Fatalf("AddDomain cold: %v", err)
	}

	c.IsDomain("hot.com")
	c.IsDomain("cold.com")
	c.IsDomain("missing.com")

	snap := c.Metrics()
	if snap.HotHits != 1 || snap.ColdHits != 1 || snap.Misses != 1 {
		t.Errorf("expected hot=1 cold=1 miss=1, got hot=%d cold=%d miss=%d", snap.HotHits, snap.ColdHits, snap.Misses)
	}
}

func TestSourceCountsAndActiveSources(t *testing.T) {
	c, _, _ := newTestCoordinator(t)

	if err := c.AddDomain("a.com", "2026-01-01", 0.9, "PhishTank"); err != nil {
		t.Fatalf("AddDomain: %v", err)
	}
	if err := c.AddURL("http://b.com", "2026-01-01", 0.5, "PhishTank"); err != nil {
		t.Fatalf("AddURL: %v", err)
	}

	counts := c.SourceCounts()
	if counts["PhishTank"] != 2 {
		t.Errorf("expected PhishTank count=2, got %d", counts["PhishTank"])
	}

	sources := c.ActiveSources()
	if len(sources) != 1 || sources[0] != "PhishTank" {
		t.Errorf("expected exactly [PhishTank], got %v", sources)
	}
}

func TestSample_ReturnsUpToN(t *testing.T) {
	c, _, _ := newTestCoordinator(t)

	for _, d := range []string{"a.com", "b.com", "c.com"} {
		if err := c.AddDomain(d, "2026-01-01", 0.5, "PhishTank"); err != nil {
			t.Fatalf("AddDomain(%s): %v", d, err)
		}
	}

	got := c.SampleDomains(2)
	if len(got) != 2 {
		t.Errorf("expected 2 sampled domains, got %d", len(got))
	}
}

func TestCountEntries_SumsAllKinds(t *testing.T) {
	c, _, _ := newTestCoordinator(t)

	if err := c.AddDomain("a.com", "2026-01-01", 0.5, "PhishTank"); err != nil {
		t.Fatalf("AddDomain: %v", err)
	}
	if err := c.AddIP("10.0.0.0/8", "2026-01-01", 0.5, "SpamhausDROP"); err != nil {
		t.Fatalf("AddIP: %v", err)
	}

	if got := c.CountEntries(); got != 2 {
		t.Errorf("expected 2 total entries, got %d", got)
	}
}
