package indexcore

import (
	"net/netip"
	"strings"

	"github.com/gaissmai/bart"

	"github.com/PhilipKram/blacklist-index/pkg/blacklist"
	"github.com/PhilipKram/blacklist-index/pkg/canonical"
)

// Store is one tier's worth of index structures: exact-match hash sets for
// domains, URLs and both IP families, plus a single radix table carrying
// both the v4 and v6 CIDR ranges (bart.Table splits internally by family,
// so one instance plays the role of "two trees, one per address family").
//
// Store does no locking of its own; callers serialize access (the
// Coordinator holds the single writer lock for the whole Index).
type Store struct {
	domains map[string]blacklist.Entry
	urls    map[string]blacklist.Entry
	ipv4    map[uint32]blacklist.Entry
	ipv6    map[string]blacklist.Entry
	cidr    *bart.Table[blacklist.Entry]
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		domains: make(map[string]blacklist.Entry),
		urls:    make(map[string]blacklist.Entry),
		ipv4:    make(map[uint32]blacklist.Entry),
		ipv6:    make(map[string]blacklist.Entry),
		cidr:    new(bart.Table[blacklist.Entry]),
	}
}

// InsertDomain adds or replaces an exact domain entry.
func (s *Store) InsertDomain(domain string, e blacklist.Entry) {
	s.domains[canonical.NormalizeDomain(domain)] = e
}

// RemoveDomain deletes an exact domain entry. Returns true if it existed.
func (s *Store) RemoveDomain(domain string) bool {
	domain = canonical.NormalizeDomain(domain)
	if _, ok := s.domains[domain]; !ok {
		return false
	}
	delete(s.domains, domain)
	return true
}

// MatchDomain walks from the full domain down to its registrable suffixes,
// most-specific label-set first, and returns the entry for the first
// suffix present in the set. This is the hierarchical match: a listing of
// "evil.com" also matches "a.evil.com", "a.b.evil.com", and so on.
func (s *Store) MatchDomain(domain string) (e blacklist.Entry, matched string, ok bool) {
	domain = canonical.NormalizeDomain(domain)
	labels := strings.Split(domain, ".")
	for i := 0; i < len(labels); i++ {
		candidate := strings.Join(labels[i:], ".")
		if e, ok := s.domains[candidate]; ok {
			return e, candidate, true
		}
	}
	return blacklist.Entry{}, "", false
}

// GetDomain returns the entry for an exact (non-hierarchical) domain key,
// for callers that need to distinguish "this exact key is listed" from
// MatchDomain's suffix-walk semantics (e.g. pre-mutation state capture).
func (s *Store) GetDomain(domain string) (blacklist.Entry, bool) {
	e, ok := s.domains[canonical.NormalizeDomain(domain)]
	return e, ok
}

// DomainCount returns the number of exact domain entries held.
func (s *Store) DomainCount() int { return len(s.domains) }

// InsertURL adds or replaces an exact URL entry. The caller is responsible
// for canonicalizing url first.
func (s *Store) InsertURL(url string, e blacklist.Entry) {
	s.urls[url] = e
}

// RemoveURL deletes an exact URL entry. Returns true if it existed.
func (s *Store) RemoveURL(url string) bool {
	if _, ok := s.urls[url]; !ok {
		return false
	}
	delete(s.urls, url)
	return true
}

// MatchURL returns the entry for an exact (already canonicalized) URL.
func (s *Store) MatchURL(url string) (blacklist.Entry, bool) {
	e, ok := s.urls[url]
	return e, ok
}

// URLCount returns the number of exact URL entries held.
func (s *Store) URLCount() int { return len(s.urls) }

// InsertIPv4 adds or replaces an exact IPv4 entry, keyed by its packed
// uint32 form so a v4 address is counted and compared exactly once.
func (s *Store) InsertIPv4(packed uint32, e blacklist.Entry) {
	s.ipv4[packed] = e
}

// RemoveIPv4 deletes an exact IPv4 entry. Returns true if it existed.
func (s *Store) RemoveIPv4(packed uint32) bool {
	if _, ok := s.ipv4[packed]; !ok {
		return false
	}
	delete(s.ipv4, packed)
	return true
}

// MatchIPv4 returns the entry for an exact packed IPv4 address.
func (s *Store) MatchIPv4(packed uint32) (blacklist.Entry, bool) {
	e, ok := s.ipv4[packed]
	return e, ok
}

// InsertIPv6 adds or replaces an exact IPv6 entry, keyed by its normalized
// string form (net/netip's canonical text representation).
func (s *Store) InsertIPv6(addr string, e blacklist.Entry) {
	s.ipv6[addr] = e
}

// RemoveIPv6 deletes an exact IPv6 entry. Returns true if it existed.
func (s *Store) RemoveIPv6(addr string) bool {
	if _, ok := s.ipv6[addr]; !ok {
		return false
	}
	delete(s.ipv6, addr)
	return true
}

// MatchIPv6 returns the entry for an exact IPv6 address string.
func (s *Store) MatchIPv6(addr string) (blacklist.Entry, bool) {
	e, ok := s.ipv6[addr]
	return e, ok
}

// IPCount returns the number of exact IP entries (v4 and v6 combined).
func (s *Store) IPCount() int { return len(s.ipv4) + len(s.ipv6) }

// InsertCIDR adds or replaces a CIDR range in the radix table.
func (s *Store) InsertCIDR(prefix netip.Prefix, e blacklist.Entry) {
	s.cidr.Insert(prefix, e)
}

// RemoveCIDR deletes an exact CIDR range from the radix table. Returns true
// if it existed. This closes the removal gap a non-deleting radix
// structure would otherwise leave.
func (s *Store) RemoveCIDR(prefix netip.Prefix) bool {
	_, existed := s.cidr.GetAndDelete(prefix)
	return existed
}

// GetCIDR returns the entry for an exact CIDR range (not a longest-prefix
// lookup — the prefix must match exactly), for pre-mutation state capture.
func (s *Store) GetCIDR(prefix netip.Prefix) (blacklist.Entry, bool) {
	return s.cidr.Get(prefix)
}

// LookupCIDR returns the entry of the most specific (longest-prefix) CIDR
// range containing addr, across both address families.
func (s *Store) LookupCIDR(addr netip.Addr) (blacklist.Entry, bool) {
	return s.cidr.Lookup(addr)
}

// CIDRCount returns the number of CIDR ranges held, both families combined.
func (s *Store) CIDRCount() int { return s.cidr.Size() }

// SampleDomains returns up to n domain keys in map-iteration order.
func (s *Store) SampleDomains(n int) []string {
	out := make([]string, 0, n)
	for k := range s.domains {
		if len(out) >= n {
			break
		}
		out = append(out, k)
	}
	return out
}

// SampleURLs returns up to n URL keys in map-iteration order.
func (s *Store) SampleURLs(n int) []string {
	out := make([]string, 0, n)
	for k := range s.urls {
		if len(out) >= n {
			break
		}
		out = append(out, k)
	}
	return out
}

// SampleIPs returns up to n IP addresses (v4 unpacked to dotted form, v6
// as-is) in map-iteration order, v4 entries first.
func (s *Store) SampleIPs(n int) []string {
	out := make([]string, 0, n)
	for k := range s.ipv4 {
		if len(out) >= n {
			break
		}
		out = append(out, canonical.UnpackIPv4(k))
	}
	for k := range s.ipv6 {
		if len(out) >= n {
			break
		}
		out = append(out, k)
	}
	return out
}

// AccumulateSourceCounts adds this Store's per-source entry counts into
// counts (across every structure, domains+urls+ips+cidrs), so a caller
// holding both the hot and cold shard can merge both into one map.
func (s *Store) AccumulateSourceCounts(counts map[string]int) {
	for _, e := range s.domains {
		counts[e.Source]++
	}
	for _, e := range s.urls {
		counts[e.Source]++
	}
	for _, e := range s.ipv4 {
		counts[e.Source]++
	}
	for _, e := range s.ipv6 {
		counts[e.Source]++
	}
	for _, e := range s.cidr.All() {
		counts[e.Source]++
	}
}

// AccumulateSourceTypeCounts adds this Store's per-source, per-kind entry
// counts into counts.
func (s *Store) AccumulateSourceTypeCounts(counts map[string]map[string]int) {
	add := func(kind, source string) {
		if counts[source] == nil {
			counts[source] = make(map[string]int)
		}
		counts[source][kind]++
	}
	for _, e := range s.domains {
		add("domain", e.Source)
	}
	for _, e := range s.urls {
		add("url", e.Source)
	}
	for _, e := range s.ipv4 {
		add("ip", e.Source)
	}
	for _, e := range s.ipv6 {
		add("ip", e.Source)
	}
	for _, e := range s.cidr.All() {
		add("cidr", e.Source)
	}
}

// Clear empties every structure in the Store, for a full reload.
func (s *Store) Clear() {
	s.ClearDomains()
	s.ClearURLs()
	s.ClearIPs()
	s.ClearCIDR()
}

// ClearDomains empties only the domain set, for a single-kind reload.
func (s *Store) ClearDomains() { s.domains = make(map[string]blacklist.Entry) }

// ClearURLs empties only the URL set, for a single-kind reload.
func (s *Store) ClearURLs() { s.urls = make(map[string]blacklist.Entry) }

// ClearIPs empties both exact IP sets (v4 and v6), for a single-kind
// reload. CIDR ranges are a distinct structure; see ClearCIDR.
func (s *Store) ClearIPs() {
	s.ipv4 = make(map[uint32]blacklist.Entry)
	s.ipv6 = make(map[string]blacklist.Entry)
}

// ClearCIDR empties the CIDR radix table.
func (s *Store) ClearCIDR() { s.cidr = new(bart.Table[blacklist.Entry]) }
