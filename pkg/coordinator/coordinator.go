package coordinator

import (
	"fmt"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/PhilipKram/blacklist-index/pkg/blacklist"
	"github.com/PhilipKram/blacklist-index/pkg/canonical"
	"github.com/PhilipKram/blacklist-index/pkg/durablestore"
	"github.com/PhilipKram/blacklist-index/pkg/metrics"
	"github.com/PhilipKram/blacklist-index/pkg/tiering"
)

// Notifier is a best-effort sink for update events. A missing or
// unreachable notifier must never fail a mutation.
type Notifier interface {
	Publish(event string)
}

// Config configures the Coordinator's tier classification. Database
// connectivity and the durable store's lifetime belong to the caller.
type Config struct {
	HotDomainSources []string
	HotURLSources    []string
	HotIPSources     []string
}

// BatchItem is one (value, metadata) pair for AddBatch. All items in a
// batch share the same source and kind.
type BatchItem struct {
	Value string
	Date  string
	Score float64
}

// Coordinator is the Index's public query/mutation API (C5). A single
// process-wide RWMutex guards the in-memory tiering.Index; every public
// method is the sole lock holder for its call — internal helpers (the
// "Locked" suffix) assume the caller already holds it.
type Coordinator struct {
	mu sync.RWMutex

	store    *durablestore.Store
	index    *tiering.Index
	metrics  *metrics.Metrics
	notifier Notifier
	logger   zerolog.Logger

	lastReload time.Time
}

// New constructs a Coordinator backed by store and immediately hydrates
// its in-memory state from the durable store's current contents.
func New(cfg Config, store *durablestore.Store, logger zerolog.Logger, reg prometheus.Registerer, notifier Notifier) (*Coordinator, error) {
	classifier := tiering.NewClassifier(
		nonEmptyOr(cfg.HotDomainSources, tiering.DefaultHotSources),
		nonEmptyOr(cfg.HotURLSources, tiering.DefaultHotSources),
		nonEmptyOr(cfg.HotIPSources, tiering.DefaultHotSources),
	)

	c := &Coordinator{
		store:    store,
		index:    tiering.New(classifier),
		metrics:  metrics.New(reg),
		notifier: notifier,
		logger:   logger,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.reloadLocked(); err != nil {
		return nil, err
	}
	return c, nil
}

func nonEmptyOr(v, fallback []string) []string {
	if len(v) == 0 {
		return fallback
	}
	return v
}

func (c *Coordinator) notify(event string) {
	if c.notifier == nil {
		return
	}
	c.notifier.Publish(event)
}

func (c *Coordinator) observe(kind blacklist.Kind, tier blacklist.Tier, hit bool, start time.Time) {
	outcome := metrics.Miss
	if hit {
		if tier == blacklist.TierHot {
			outcome = metrics.HotHit
		} else {
			outcome = metrics.ColdHit
		}
	}
	c.metrics.Observe(kind, outcome, time.Since(start))
}

// IsDomain reports whether d, or any of its ancestor domains, is listed.
func (c *Coordinator) IsDomain(d string) bool {
	_, ok := c.SourceOfDomain(d)
	return ok
}

// SourceOfDomain returns the source covering d (via hierarchical match),
// or ("", false) if nothing covers it. Total: never errors.
func (c *Coordinator) SourceOfDomain(d string) (string, bool) {
	if strings.TrimSpace(d) == "" {
		return "", false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	start := time.Now()
	e, _, tier, ok := c.index.MatchDomain(d)
	c.observe(blacklist.KindDomain, tier, ok, start)
	if !ok {
		return "", false
	}
	return e.Source, true
}

// IsURL reports whether u, canonicalized, is listed.
func (c *Coordinator) IsURL(u string) bool {
	_, ok := c.SourceOfURL(u)
	return ok
}

// SourceOfURL canonicalizes u and returns the source covering its
// canonical form, or ("", false). Total: never errors.
func (c *Coordinator) SourceOfURL(u string) (string, bool) {
	result := canonical.Canonicalize(u)

	c.mu.RLock()
	defer c.mu.RUnlock()

	start := time.Now()
	e, tier, ok := c.index.MatchURL(result.Canonical)
	c.observe(blacklist.KindURL, tier, ok, start)
	if result.Altered {
		c.metrics.RecordURLAltered()
	}
	if !ok {
		return "", false
	}
	return e.Source, true
}

// IsIP reports whether addr matches an exact IP entry or falls inside a
// listed CIDR range. Unparseable input returns false, never an error.
func (c *Coordinator) IsIP(addr string) bool {
	_, ok := c.SourceOfIP(addr)
	return ok
}

// SourceOfIP returns the source covering addr (exact match first, then
// CIDR containment), or ("", false).
func (c *Coordinator) SourceOfIP(addr string) (string, bool) {
	parsed, err := netip.ParseAddr(strings.TrimSpace(addr))
	if err != nil {
		return "", false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	start := time.Now()
	e, tier, ok := c.matchIPLocked(parsed)
	if !ok {
		e, tier, ok = c.index.LookupCIDR(parsed)
	}
	c.observe(blacklist.KindIP, tier, ok, start)
	if !ok {
		return "", false
	}
	return e.Source, true
}

func (c *Coordinator) matchIPLocked(addr netip.Addr) (blacklist.Entry, blacklist.Tier, bool) {
	if addr.Is4() {
		packed, _ := canonical.PackIPv4(addr.String())
		return c.index.MatchIP(true, packed, "")
	}
	return c.index.MatchIP(false, 0, addr.String())
}

// AddDomain inserts or replaces a domain entry, in memory and durably. On
// durable failure the in-memory mutation is rolled back and the error is
// returned.
func (c *Coordinator) AddDomain(value, date string, score float64, source string) error {
	value = strings.TrimSpace(value)
	if value == "" || source == "" {
		return blacklist.ErrInvalidInput
	}
	key := canonical.NormalizeDomain(value)
	entry := blacklist.Entry{Source: source, Date: date, Score: score}

	c.mu.Lock()
	defer c.mu.Unlock()

	prev, _, hadPrev := c.index.GetDomain(key)
	c.index.InsertDomain(key, entry)

	if err := c.store.Upsert(blacklist.KindDomain, key, entry); err != nil {
		if hadPrev {
			c.index.InsertDomain(key, prev)
		} else {
			c.index.RemoveDomain(key)
		}
		return err
	}
	c.notify("add:domain:" + key)
	return nil
}

// AddURL inserts or replaces a URL entry (canonicalized first), in memory
// and durably.
func (c *Coordinator) AddURL(value, date string, score float64, source string) error {
	value = strings.TrimSpace(value)
	if value == "" || source == "" {
		return blacklist.ErrInvalidInput
	}
	result := canonical.Canonicalize(value)
	entry := blacklist.Entry{Source: source, Date: date, Score: score}

	c.mu.Lock()
	defer c.mu.Unlock()

	prev, _, hadPrev := c.index.MatchURL(result.Canonical)
	c.index.InsertURL(result.Canonical, entry)

	if err := c.store.Upsert(blacklist.KindURL, result.Canonical, entry); err != nil {
		if hadPrev {
			c.index.InsertURL(result.Canonical, prev)
		} else {
			c.index.RemoveURL(result.Canonical)
		}
		return err
	}
	if result.Altered {
		c.metrics.RecordURLAltered()
	}
	c.notify("add:url:" + result.Canonical)
	return nil
}

// AddIP inserts or replaces an IP or CIDR entry (a value containing "/" is
// parsed as a CIDR range; otherwise a single address), in memory and
// durably.
func (c *Coordinator) AddIP(value, date string, score float64, source string) error {
	value = strings.TrimSpace(value)
	if value == "" || source == "" {
		return blacklist.ErrInvalidInput
	}
	entry := blacklist.Entry{Source: source, Date: date, Score: score}

	c.mu.Lock()
	defer c.mu.Unlock()

	if strings.Contains(value, "/") {
		return c.addCIDRLocked(value, entry)
	}
	return c.addAddrLocked(value, entry)
}

func (c *Coordinator) addCIDRLocked(value string, entry blacklist.Entry) error {
	prefix, err := netip.ParsePrefix(value)
	if err != nil {
		return blacklist.ErrInvalidInput
	}

	prev, _, hadPrev := c.index.GetCIDR(prefix)
	c.index.InsertCIDR(prefix, entry)

	if err := c.store.Upsert(blacklist.KindIP, prefix.String(), entry); err != nil {
		if hadPrev {
			c.index.InsertCIDR(prefix, prev)
		} else {
			c.index.RemoveCIDR(prefix)
		}
		return err
	}
	c.notify("add:cidr:" + prefix.String())
	return nil
}

func (c *Coordinator) addAddrLocked(value string, entry blacklist.Entry) error {
	addr, err := netip.ParseAddr(value)
	if err != nil {
		return blacklist.ErrInvalidInput
	}

	if addr.Is4() {
		packed, ok := canonical.PackIPv4(addr.String())
		if !ok {
			return blacklist.ErrInvalidInput
		}
		prev, _, hadPrev := c.index.MatchIP(true, packed, "")
		c.index.InsertIPv4(packed, entry)

		if err := c.store.Upsert(blacklist.KindIP, addr.String(), entry); err != nil {
			if hadPrev {
				c.index.InsertIPv4(packed, prev)
			} else {
				c.index.RemoveIPv4(packed)
			}
			return err
		}
		c.metrics.RecordCompactIPv4()
		c.notify("add:ip:" + addr.String())
		return nil
	}

	addrStr := addr.String()
	prev, _, hadPrev := c.index.MatchIP(false, 0, addrStr)
	c.index.InsertIPv6(addrStr, entry)

	if err := c.store.Upsert(blacklist.KindIP, addrStr, entry); err != nil {
		if hadPrev {
			c.index.InsertIPv6(addrStr, prev)
		} else {
			c.index.RemoveIPv6(addrStr)
		}
		return err
	}
	c.notify("add:ip:" + addrStr)
	return nil
}

// AddBatch applies every item of kind (domain, url, or ip — a value
// containing "/" within an ip batch is treated as a CIDR range) from
// source in one in-memory pass, then attempts a single transactional
// durable commit. On durable failure, the in-memory changes for kind are
// discarded by reloading just that kind's structures from the durable
// store, restoring a consistent view without disturbing the other kinds.
// On success, an audit row is appended via LogUpdate.
func (c *Coordinator) AddBatch(kind blacklist.Kind, source string, items []BatchItem) error {
	if source == "" {
		return blacklist.ErrInvalidInput
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	durableItems, err := c.applyBatchLocked(kind, source, items)
	if err != nil {
		return err
	}

	if err := c.store.UpsertBatch(kind, durableItems); err != nil {
		if reloadErr := c.reloadKindLocked(kind); reloadErr != nil {
			c.logger.Error().Err(reloadErr).Msg("failed to restore in-memory state after batch failure")
		}
		return err
	}

	if err := c.store.LogUpdate(source, len(durableItems)); err != nil {
		c.logger.Error().Err(err).Msg("failed to append update audit row")
	}
	c.notify("add:batch:" + string(kind))
	return nil
}

// applyBatchLocked mutates the in-memory index for every well-formed item
// and returns the parallel list of durable rows to commit. Malformed
// individual items are skipped, not fatal to the batch.
func (c *Coordinator) applyBatchLocked(kind blacklist.Kind, source string, items []BatchItem) ([]durablestore.Item, error) {
	durableItems := make([]durablestore.Item, 0, len(items))

	for _, it := range items {
		value := strings.TrimSpace(it.Value)
		if value == "" {
			continue
		}
		entry := blacklist.Entry{Source: source, Date: it.Date, Score: it.Score}

		switch kind {
		case blacklist.KindDomain:
			key := canonical.NormalizeDomain(value)
			c.index.InsertDomain(key, entry)
			durableItems = append(durableItems, durablestore.Item{Key: key, Entry: entry})

		case blacklist.KindURL:
			key := canonical.Canonicalize(value).Canonical
			c.index.InsertURL(key, entry)
			durableItems = append(durableItems, durablestore.Item{Key: key, Entry: entry})

		case blacklist.KindIP:
			if strings.Contains(value, "/") {
				prefix, err := netip.ParsePrefix(value)
				if err != nil {
					continue
				}
				c.index.InsertCIDR(prefix, entry)
				durableItems = append(durableItems, durablestore.Item{Key: prefix.String(), Entry: entry})
				continue
			}
			addr, err := netip.ParseAddr(value)
			if err != nil {
				continue
			}
			if addr.Is4() {
				packed, ok := canonical.PackIPv4(addr.String())
				if !ok {
					continue
				}
				c.index.InsertIPv4(packed, entry)
			} else {
				c.index.InsertIPv6(addr.String(), entry)
			}
			durableItems = append(durableItems, durablestore.Item{Key: addr.String(), Entry: entry})

		default:
			return nil, fmt.Errorf("coordinator: unsupported batch kind %q", kind)
		}
	}

	return durableItems, nil
}

// Remove deletes value from every in-memory structure it matches (domain,
// url, ip, cidr — a raw value can plausibly match more than one, though in
// practice only one does) and from the durable store. On durable failure
// every removed entry is reinserted, preserving the dual-write invariant.
// Returns true if at least one row was actually deleted.
func (c *Coordinator) Remove(value string) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	type removal struct {
		key     string
		restore func()
	}
	var removals []removal

	domainKey := canonical.NormalizeDomain(value)
	if e, _, ok := c.index.GetDomain(domainKey); ok {
		c.index.RemoveDomain(domainKey)
		removals = append(removals, removal{key: domainKey, restore: func() { c.index.InsertDomain(domainKey, e) }})
	}

	urlKey := canonical.Canonicalize(value).Canonical
	if e, _, ok := c.index.MatchURL(urlKey); ok {
		c.index.RemoveURL(urlKey)
		removals = append(removals, removal{key: urlKey, restore: func() { c.index.InsertURL(urlKey, e) }})
	}

	if addr, err := netip.ParseAddr(value); err == nil {
		if addr.Is4() {
			packed, _ := canonical.PackIPv4(addr.String())
			if e, _, ok := c.index.MatchIP(true, packed, ""); ok {
				c.index.RemoveIPv4(packed)
				removals = append(removals, removal{key: addr.String(), restore: func() { c.index.InsertIPv4(packed, e) }})
			}
		} else {
			addrStr := addr.String()
			if e, _, ok := c.index.MatchIP(false, 0, addrStr); ok {
				c.index.RemoveIPv6(addrStr)
				removals = append(removals, removal{key: addrStr, restore: func() { c.index.InsertIPv6(addrStr, e) }})
			}
		}
	} else if prefix, err := netip.ParsePrefix(value); err == nil {
		if e, _, ok := c.index.GetCIDR(prefix); ok {
			c.index.RemoveCIDR(prefix)
			removals = append(removals, removal{key: prefix.String(), restore: func() { c.index.InsertCIDR(prefix, e) }})
		}
	}

	if len(removals) == 0 {
		return false, nil
	}

	deletedAny := false
	for _, r := range removals {
		deleted, err := c.store.DeleteByValue(r.key)
		if err != nil {
			for _, rr := range removals {
				rr.restore()
			}
			return false, err
		}
		deletedAny = deletedAny || deleted
	}

	c.notify("remove:" + value)
	return deletedAny, nil
}

// Reload discards all in-memory state and rebuilds it from the durable
// store's current contents.
func (c *Coordinator) Reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reloadLocked()
}

func (c *Coordinator) reloadLocked() error {
	c.index.Clear()

	if err := c.store.StreamDomains(func(domain string, e blacklist.Entry) error {
		c.index.InsertDomain(domain, e)
		return nil
	}); err != nil {
		c.index.Clear()
		return blacklist.WrapReloadFailure("streaming domains", err)
	}
	if err := c.store.StreamURLs(func(url string, e blacklist.Entry) error {
		c.index.InsertURL(url, e)
		return nil
	}); err != nil {
		c.index.Clear()
		return blacklist.WrapReloadFailure("streaming urls", err)
	}
	if err := c.store.StreamIPs(func(ip string, e blacklist.Entry) error {
		return c.insertIPRowLocked(ip, e)
	}); err != nil {
		c.index.Clear()
		return blacklist.WrapReloadFailure("streaming ips", err)
	}

	c.lastReload = time.Now()
	return nil
}

// reloadKindLocked discards and rebuilds the in-memory structures for a
// single kind only, leaving the other kinds' state untouched.
func (c *Coordinator) reloadKindLocked(kind blacklist.Kind) error {
	switch kind {
	case blacklist.KindDomain:
		c.index.ClearDomains()
		return c.store.StreamDomains(func(domain string, e blacklist.Entry) error {
			c.index.InsertDomain(domain, e)
			return nil
		})
	case blacklist.KindURL:
		c.index.ClearURLs()
		return c.store.StreamURLs(func(url string, e blacklist.Entry) error {
			c.index.InsertURL(url, e)
			return nil
		})
	case blacklist.KindIP:
		c.index.ClearIPs()
		c.index.ClearCIDR()
		return c.store.StreamIPs(func(ip string, e blacklist.Entry) error {
			return c.insertIPRowLocked(ip, e)
		})
	default:
		return fmt.Errorf("coordinator: unsupported reload kind %q", kind)
	}
}

// insertIPRowLocked routes one durable ip-table row (a plain address or a
// CIDR range, distinguished by "/") to the right in-memory structure. A
// malformed CIDR is reported via ErrCIDRParse and skipped by the caller.
func (c *Coordinator) insertIPRowLocked(raw string, e blacklist.Entry) error {
	if strings.Contains(raw, "/") {
		prefix, err := netip.ParsePrefix(raw)
		if err != nil {
			return blacklist.ErrCIDRParse
		}
		c.index.InsertCIDR(prefix, e)
		return nil
	}

	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return err
	}
	if addr.Is4() {
		packed, ok := canonical.PackIPv4(addr.String())
		if !ok {
			return fmt.Errorf("coordinator: malformed ipv4 row %q", raw)
		}
		c.index.InsertIPv4(packed, e)
	} else {
		c.index.InsertIPv6(addr.String(), e)
	}
	return nil
}

// CountEntries returns the total number of in-memory entries across every
// kind (domains, urls, exact ips, and cidr ranges).
func (c *Coordinator) CountEntries() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.DomainCount() + c.index.URLCount() + c.index.IPCount() + c.index.CIDRCount()
}

// SourceCounts returns the number of entries per source, from the current
// in-memory snapshot.
func (c *Coordinator) SourceCounts() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.SourceCounts()
}

// SourceTypeCounts returns the number of entries per source broken down by
// indicator kind, from the current in-memory snapshot.
func (c *Coordinator) SourceTypeCounts() map[string]map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.SourceTypeCounts()
}

// ActiveSources returns the distinct sources with at least one entry.
func (c *Coordinator) ActiveSources() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.ActiveSources()
}

// SampleDomains returns up to n domain keys from the current in-memory set.
func (c *Coordinator) SampleDomains(n int) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.SampleDomains(n)
}

// SampleURLs returns up to n URL keys from the current in-memory set.
func (c *Coordinator) SampleURLs(n int) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.SampleURLs(n)
}

// SampleIPs returns up to n IP address strings from the current in-memory
// set.
func (c *Coordinator) SampleIPs(n int) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.SampleIPs(n)
}

// LogUpdate appends an audit row recording that source contributed n
// entries in the most recent refresh.
func (c *Coordinator) LogUpdate(source string, n int) error {
	return c.store.LogUpdate(source, n)
}

// UpdateHistory returns audit rows matching filter.
func (c *Coordinator) UpdateHistory(filter durablestore.UpdateHistoryFilter) ([]blacklist.UpdateRecord, error) {
	return c.store.UpdateHistory(filter)
}

// Metrics returns a point-in-time snapshot of the running counters.
func (c *Coordinator) Metrics() metrics.Snapshot {
	return c.metrics.Snapshot()
}
