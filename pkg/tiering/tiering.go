package tiering

import (
	"net/netip"

	"github.com/PhilipKram/blacklist-index/pkg/blacklist"
	"github.com/PhilipKram/blacklist-index/pkg/indexcore"
)

// Classifier decides which tier a source belongs to, independently for
// each of the three indicator kinds (a source can be hot for domains and
// cold for IPs, say). Unlisted sources default to cold.
type Classifier struct {
	hotDomain map[string]bool
	hotURL    map[string]bool
	hotIP     map[string]bool
}

// NewClassifier builds a Classifier from the hot-source lists loaded at
// startup (one list per kind, falling back to the baked-in defaults when
// the corresponding environment variable is unset).
func NewClassifier(hotDomainSources, hotURLSources, hotIPSources []string) *Classifier {
	return &Classifier{
		hotDomain: toSet(hotDomainSources),
		hotURL:    toSet(hotURLSources),
		hotIP:     toSet(hotIPSources),
	}
}

func toSet(sources []string) map[string]bool {
	m := make(map[string]bool, len(sources))
	for _, s := range sources {
		m[s] = true
	}
	return m
}

// DefaultHotSources is the baked-in fallback used by all three kinds when
// no environment override is configured.
var DefaultHotSources = []string{"PhishTank", "URLhaus", "BlocklistDE", "SpamhausDROP"}

func (c *Classifier) domainTier(source string) blacklist.Tier {
	if c.hotDomain[source] {
		return blacklist.TierHot
	}
	return blacklist.TierCold
}

func (c *Classifier) urlTier(source string) blacklist.Tier {
	if c.hotURL[source] {
		return blacklist.TierHot
	}
	return blacklist.TierCold
}

func (c *Classifier) ipTier(source string) blacklist.Tier {
	if c.hotIP[source] {
		return blacklist.TierHot
	}
	return blacklist.TierCold
}

// Index is the hot/cold pair of indexcore.Stores for all three kinds, plus
// the Classifier that routes inserts between them. It does no locking of
// its own; the Coordinator serializes all access.
type Index struct {
	classifier *Classifier
	hot        *indexcore.Store
	cold       *indexcore.Store
}

// New builds an Index backed by an empty hot and cold shard.
func New(classifier *Classifier) *Index {
	return &Index{classifier: classifier, hot: indexcore.New(), cold: indexcore.New()}
}

// shardForDomain, shardForURL and shardForIP return the shard an entry of
// that kind from source is written to.
func (ix *Index) shardForDomain(source string) *indexcore.Store {
	if ix.classifier.domainTier(source) == blacklist.TierHot {
		return ix.hot
	}
	return ix.cold
}

func (ix *Index) shardForURL(source string) *indexcore.Store {
	if ix.classifier.urlTier(source) == blacklist.TierHot {
		return ix.hot
	}
	return ix.cold
}

func (ix *Index) shardForIP(source string) *indexcore.Store {
	if ix.classifier.ipTier(source) == blacklist.TierHot {
		return ix.hot
	}
	return ix.cold
}

// sibling returns the shard opposite s, so an insert that lands in one tier
// can evict a stale copy from the other.
func (ix *Index) sibling(s *indexcore.Store) *indexcore.Store {
	if s == ix.hot {
		return ix.cold
	}
	return ix.hot
}

// InsertDomain routes domain to the hot or cold shard based on e.Source,
// first evicting any copy left behind in the other shard by an earlier
// insert under a different-tier source. Without this, re-adding the same
// key from a source in the other tier would leave the key present in both
// shards at once.
func (ix *Index) InsertDomain(domain string, e blacklist.Entry) {
	target := ix.shardForDomain(e.Source)
	ix.sibling(target).RemoveDomain(domain)
	target.InsertDomain(domain, e)
}

// RemoveDomain removes domain from both shards, returning true if it was
// present in either.
func (ix *Index) RemoveDomain(domain string) bool {
	hot := ix.hot.RemoveDomain(domain)
	cold := ix.cold.RemoveDomain(domain)
	return hot || cold
}

// MatchDomain probes the hot shard first, falling back to cold. tier
// reports which shard produced the hit.
func (ix *Index) MatchDomain(domain string) (e blacklist.Entry, matched string, tier blacklist.Tier, ok bool) {
	if e, matched, ok := ix.hot.MatchDomain(domain); ok {
		return e, matched, blacklist.TierHot, true
	}
	if e, matched, ok := ix.cold.MatchDomain(domain); ok {
		return e, matched, blacklist.TierCold, true
	}
	return blacklist.Entry{}, "", blacklist.TierCold, false
}

// GetDomain returns the entry for an exact (non-hierarchical) domain key,
// probing hot then cold, for pre-mutation state capture.
func (ix *Index) GetDomain(domain string) (e blacklist.Entry, tier blacklist.Tier, ok bool) {
	if e, ok := ix.hot.GetDomain(domain); ok {
		return e, blacklist.TierHot, true
	}
	if e, ok := ix.cold.GetDomain(domain); ok {
		return e, blacklist.TierCold, true
	}
	return blacklist.Entry{}, blacklist.TierCold, false
}

// InsertURL routes url to the hot or cold shard based on e.Source, first
// evicting any stale copy from the other shard.
func (ix *Index) InsertURL(url string, e blacklist.Entry) {
	target := ix.shardForURL(e.Source)
	ix.sibling(target).RemoveURL(url)
	target.InsertURL(url, e)
}

// RemoveURL removes url from both shards, returning true if it was present
// in either.
func (ix *Index) RemoveURL(url string) bool {
	hot := ix.hot.RemoveURL(url)
	cold := ix.cold.RemoveURL(url)
	return hot || cold
}

// MatchURL probes the hot shard first, falling back to cold.
func (ix *Index) MatchURL(url string) (e blacklist.Entry, tier blacklist.Tier, ok bool) {
	if e, ok := ix.hot.MatchURL(url); ok {
		return e, blacklist.TierHot, true
	}
	if e, ok := ix.cold.MatchURL(url); ok {
		return e, blacklist.TierCold, true
	}
	return blacklist.Entry{}, blacklist.TierCold, false
}

// InsertIPv4 routes packed to the hot or cold shard based on e.Source, first
// evicting any stale copy from the other shard.
func (ix *Index) InsertIPv4(packed uint32, e blacklist.Entry) {
	target := ix.shardForIP(e.Source)
	ix.sibling(target).RemoveIPv4(packed)
	target.InsertIPv4(packed, e)
}

// RemoveIPv4 removes packed from both shards, returning true if it was
// present in either.
func (ix *Index) RemoveIPv4(packed uint32) bool {
	hot := ix.hot.RemoveIPv4(packed)
	cold := ix.cold.RemoveIPv4(packed)
	return hot || cold
}

// InsertIPv6 routes addr to the hot or cold shard based on e.Source, first
// evicting any stale copy from the other shard.
func (ix *Index) InsertIPv6(addr string, e blacklist.Entry) {
	target := ix.shardForIP(e.Source)
	ix.sibling(target).RemoveIPv6(addr)
	target.InsertIPv6(addr, e)
}

// RemoveIPv6 removes addr from both shards, returning true if it was
// present in either.
func (ix *Index) RemoveIPv6(addr string) bool {
	hot := ix.hot.RemoveIPv6(addr)
	cold := ix.cold.RemoveIPv6(addr)
	return hot || cold
}

// MatchIP probes the hot shard first, then cold, across both families.
// is4 selects which exact-match map to check; packed is ignored (pass
// zero) when is4 is false.
func (ix *Index) MatchIP(is4 bool, packed uint32, addr string) (e blacklist.Entry, tier blacklist.Tier, ok bool) {
	lookup := func(s *indexcore.Store) (blacklist.Entry, bool) {
		if is4 {
			return s.MatchIPv4(packed)
		}
		return s.MatchIPv6(addr)
	}
	if e, ok := lookup(ix.hot); ok {
		return e, blacklist.TierHot, true
	}
	if e, ok := lookup(ix.cold); ok {
		return e, blacklist.TierCold, true
	}
	return blacklist.Entry{}, blacklist.TierCold, false
}

// InsertCIDR routes prefix to the hot or cold shard based on e.Source, first
// evicting any stale copy from the other shard.
func (ix *Index) InsertCIDR(prefix netip.Prefix, e blacklist.Entry) {
	target := ix.shardForIP(e.Source)
	ix.sibling(target).RemoveCIDR(prefix)
	target.InsertCIDR(prefix, e)
}

// RemoveCIDR removes prefix from both shards, returning true if it was
// present in either.
func (ix *Index) RemoveCIDR(prefix netip.Prefix) bool {
	hot := ix.hot.RemoveCIDR(prefix)
	cold := ix.cold.RemoveCIDR(prefix)
	return hot || cold
}

// GetCIDR returns the entry for an exact CIDR range, probing hot then
// cold, for pre-mutation state capture.
func (ix *Index) GetCIDR(prefix netip.Prefix) (e blacklist.Entry, tier blacklist.Tier, ok bool) {
	if e, ok := ix.hot.GetCIDR(prefix); ok {
		return e, blacklist.TierHot, true
	}
	if e, ok := ix.cold.GetCIDR(prefix); ok {
		return e, blacklist.TierCold, true
	}
	return blacklist.Entry{}, blacklist.TierCold, false
}

// LookupCIDR probes the hot radix table first, then cold.
func (ix *Index) LookupCIDR(addr netip.Addr) (e blacklist.Entry, tier blacklist.Tier, ok bool) {
	if e, ok := ix.hot.LookupCIDR(addr); ok {
		return e, blacklist.TierHot, true
	}
	if e, ok := ix.cold.LookupCIDR(addr); ok {
		return e, blacklist.TierCold, true
	}
	return blacklist.Entry{}, blacklist.TierCold, false
}

// DomainCount returns the combined hot+cold exact domain count.
func (ix *Index) DomainCount() int { return ix.hot.DomainCount() + ix.cold.DomainCount() }

// URLCount returns the combined hot+cold exact URL count.
func (ix *Index) URLCount() int { return ix.hot.URLCount() + ix.cold.URLCount() }

// IPCount returns the combined hot+cold exact IP count (v4+v6, both tiers).
func (ix *Index) IPCount() int { return ix.hot.IPCount() + ix.cold.IPCount() }

// CIDRCount returns the combined hot+cold CIDR range count.
func (ix *Index) CIDRCount() int { return ix.hot.CIDRCount() + ix.cold.CIDRCount() }

// SampleDomains returns up to n domain keys, hot shard first.
func (ix *Index) SampleDomains(n int) []string {
	return sampleBoth(n, ix.hot.SampleDomains, ix.cold.SampleDomains)
}

// SampleURLs returns up to n URL keys, hot shard first.
func (ix *Index) SampleURLs(n int) []string {
	return sampleBoth(n, ix.hot.SampleURLs, ix.cold.SampleURLs)
}

// SampleIPs returns up to n IP address strings, hot shard first.
func (ix *Index) SampleIPs(n int) []string {
	return sampleBoth(n, ix.hot.SampleIPs, ix.cold.SampleIPs)
}

func sampleBoth(n int, hot, cold func(int) []string) []string {
	out := hot(n)
	if len(out) >= n {
		return out
	}
	return append(out, cold(n-len(out))...)
}

// SourceCounts returns the number of entries per source, across both
// shards and all four structures.
func (ix *Index) SourceCounts() map[string]int {
	counts := make(map[string]int)
	ix.hot.AccumulateSourceCounts(counts)
	ix.cold.AccumulateSourceCounts(counts)
	return counts
}

// SourceTypeCounts returns the number of entries per source, broken down
// further by indicator kind ("domain", "url", "ip", "cidr").
func (ix *Index) SourceTypeCounts() map[string]map[string]int {
	counts := make(map[string]map[string]int)
	ix.hot.AccumulateSourceTypeCounts(counts)
	ix.cold.AccumulateSourceTypeCounts(counts)
	return counts
}

// ActiveSources returns the distinct sources with at least one entry.
func (ix *Index) ActiveSources() []string {
	counts := ix.SourceCounts()
	sources := make([]string, 0, len(counts))
	for source := range counts {
		sources = append(sources, source)
	}
	return sources
}

// Clear empties both shards, for a full reload.
func (ix *Index) Clear() {
	ix.hot.Clear()
	ix.cold.Clear()
}

// ClearDomains empties only the domain sets in both shards.
func (ix *Index) ClearDomains() {
	ix.hot.ClearDomains()
	ix.cold.ClearDomains()
}

// ClearURLs empties only the URL sets in both shards.
func (ix *Index) ClearURLs() {
	ix.hot.ClearURLs()
	ix.cold.ClearURLs()
}

// ClearIPs empties only the exact IP sets (v4 and v6) in both shards. CIDR
// ranges are unaffected; see ClearCIDR.
func (ix *Index) ClearIPs() {
	ix.hot.ClearIPs()
	ix.cold.ClearIPs()
}

// ClearCIDR empties only the CIDR radix tables in both shards.
func (ix *Index) ClearCIDR() {
	ix.hot.ClearCIDR()
	ix.cold.ClearCIDR()
}
