package indexcore

import (
	"net/netip"
	"testing"

	"github.com/PhilipKram/blacklist-index/pkg/blacklist"
)

func TestMatchDomain_HierarchicalSuffix(t *testing.T) {
	s := New()
	s.InsertDomain("evil.com", blacklist.Entry{Source: "PhishTank"})

	e, matched, ok := s.MatchDomain("a.b.evil.com")
	if !ok {
		t.Fatal("expected a.b.evil.com to match via suffix evil.com")
	}
	if matched != "evil.com" {
		t.Errorf("expected matched=evil.com, got %s", matched)
	}
	if e.Source != "PhishTank" {
		t.Errorf("expected source PhishTank, got %s", e.Source)
	}

	if _, _, ok := s.MatchDomain("notevil.com"); ok {
		t.Error("expected no match for an unrelated domain")
	}
}

func TestMatchDomain_MostSpecificWins(t *testing.T) {
	s := New()
	s.InsertDomain("evil.com", blacklist.Entry{Source: "PhishTank"})
	s.InsertDomain("a.evil.com", blacklist.Entry{Source: "OpenPhish"})

	e, matched, ok := s.MatchDomain("x.a.evil.com")
	if !ok {
		t.Fatal("expected match")
	}
	if matched != "a.evil.com" || e.Source != "OpenPhish" {
		t.Errorf("expected most-specific suffix a.evil.com/OpenPhish, got %s/%s", matched, e.Source)
	}
}

func TestDomain_InsertRemoveCount(t *testing.T) {
	s := New()
	s.InsertDomain("evil.com", blacklist.Entry{Source: "PhishTank"})
	if s.DomainCount() != 1 {
		t.Errorf("expected count 1, got %d", s.DomainCount())
	}
	if !s.RemoveDomain("evil.com") {
		t.Error("expected removal to report existed=true")
	}
	if s.RemoveDomain("evil.com") {
		t.Error("expected second removal to report existed=false")
	}
	if s.DomainCount() != 0 {
		t.Errorf("expected count 0 after removal, got %d", s.DomainCount())
	}
}

func TestURL_InsertMatchRemove(t *testing.T) {
	s := New()
	s.InsertURL("http://evil.com/path", blacklist.Entry{Source: "URLhaus"})

	if _, ok := s.MatchURL("http://evil.com/path"); !ok {
		t.Fatal("expected exact URL match")
	}
	if _, ok := s.MatchURL("http://evil.com/other"); ok {
		t.Error("expected no match for a different path")
	}
	if !s.RemoveURL("http://evil.com/path") {
		t.Error("expected removal to report existed=true")
	}
	if s.URLCount() != 0 {
		t.Errorf("expected 0 URLs after removal, got %d", s.URLCount())
	}
}

func TestIPv4_PackedExactMatch(t *testing.T) {
	s := New()
	s.InsertIPv4(3232235876, blacklist.Entry{Source: "BlocklistDE"})

	if _, ok := s.MatchIPv4(3232235876); !ok {
		t.Fatal("expected exact v4 match")
	}
	if _, ok := s.MatchIPv4(1); ok {
		t.Error("expected no match for an unrelated address")
	}
	if s.IPCount() != 1 {
		t.Errorf("expected IPCount 1, got %d", s.IPCount())
	}
	if !s.RemoveIPv4(3232235876) {
		t.Error("expected removal to report existed=true")
	}
}

func TestIPv6_ExactMatch(t *testing.T) {
	s := New()
	s.InsertIPv6("2001:db8::1", blacklist.Entry{Source: "SpamhausDROP"})
	if _, ok := s.MatchIPv6("2001:db8::1"); !ok {
		t.Fatal("expected exact v6 match")
	}
	if s.IPCount() != 1 {
		t.Errorf("expected IPCount 1, got %d", s.IPCount())
	}
	if !s.RemoveIPv6("2001:db8::1") {
		t.Error("expected removal to report existed=true")
	}
}

func TestCIDR_LongestPrefixMatch(t *testing.T) {
	s := New()
	wide := netip.MustParsePrefix("10.0.0.0/8")
	narrow := netip.MustParsePrefix("10.1.0.0/16")
	s.InsertCIDR(wide, blacklist.Entry{Source: "SpamhausDROP"})
	s.InsertCIDR(narrow, blacklist.Entry{Source: "URLhaus"})

	e, ok := s.LookupCIDR(netip.MustParseAddr("10.1.2.3"))
	if !ok {
		t.Fatal("expected CIDR match")
	}
	if e.Source != "URLhaus" {
		t.Errorf("expected most-specific prefix 10.1.0.0/16 (URLhaus) to win, got %s", e.Source)
	}

	e, ok = s.LookupCIDR(netip.MustParseAddr("10.2.2.3"))
	if !ok || e.Source != "SpamhausDROP" {
		t.Errorf("expected fallback to wider prefix SpamhausDROP, got %v %s", ok, e.Source)
	}

	if _, ok := s.LookupCIDR(netip.MustParseAddr("192.168.1.1")); ok {
		t.Error("expected no match outside any inserted prefix")
	}
}

func TestCIDR_Removal(t *testing.T) {
	s := New()
	pfx := netip.MustParsePrefix("192.168.0.0/16")
	s.InsertCIDR(pfx, blacklist.Entry{Source: "SpamhausDROP"})
	if s.CIDRCount() != 1 {
		t.Fatalf("expected 1 CIDR entry, got %d", s.CIDRCount())
	}
	if !s.RemoveCIDR(pfx) {
		t.Error("expected removal to report existed=true")
	}
	if s.CIDRCount() != 0 {
		t.Errorf("expected 0 CIDR entries after removal, got %d", s.CIDRCount())
	}
	if _, ok := s.LookupCIDR(netip.MustParseAddr("192.168.1.1")); ok {
		t.Error("expected no match after the covering prefix was removed")
	}
}

func TestCIDR_DualStack(t *testing.T) {
	s := New()
	s.InsertCIDR(netip.MustParsePrefix("10.0.0.0/8"), blacklist.Entry{Source: "v4"})
	s.InsertCIDR(netip.MustParsePrefix("2001:db8::/32"), blacklist.Entry{Source: "v6"})

	if e, ok := s.LookupCIDR(netip.MustParseAddr("10.5.5.5")); !ok || e.Source != "v4" {
		t.Errorf("expected v4 match, got %v %s", ok, e.Source)
	}
	if e, ok := s.LookupCIDR(netip.MustParseAddr("2001:db8::dead")); !ok || e.Source != "v6" {
		t.Errorf("expected v6 match, got %v %s", ok, e.Source)
	}
}

func TestSample_RespectsLimit(t *testing.T) {
	s := New()
	for _, d := range []string{"a.com", "b.com", "c.com"} {
		s.InsertDomain(d, blacklist.Entry{Source: "PhishTank"})
	}
	if got := s.SampleDomains(2); len(got) != 2 {
		t.Errorf("expected 2 sampled domains, got %d", len(got))
	}
	if got := s.SampleDomains(10); len(got) != 3 {
		t.Errorf("expected all 3 domains when n exceeds count, got %d", len(got))
	}
}

func TestSampleIPs_UnpacksV4(t *testing.T) {
	s := New()
	s.InsertIPv4(3232235876, blacklist.Entry{Source: "BlocklistDE"})
	got := s.SampleIPs(10)
	if len(got) != 1 || got[0] != "192.168.1.100" {
		t.Errorf("expected [192.168.1.100], got %v", got)
	}
}

func TestGetDomain_ExactOnly(t *testing.T) {
	s := New()
	s.InsertDomain("evil.com", blacklist.Entry{Source: "PhishTank"})

	if _, ok := s.GetDomain("evil.com"); !ok {
		t.Error("expected exact match for evil.com")
	}
	if _, ok := s.GetDomain("sub.evil.com"); ok {
		t.Error("expected GetDomain not to do hierarchical matching")
	}
}

func TestGetCIDR_ExactOnlyNotLongestPrefix(t *testing.T) {
	s := New()
	wide := netip.MustParsePrefix("10.0.0.0/8")
	s.InsertCIDR(wide, blacklist.Entry{Source: "SpamhausDROP"})

	if _, ok := s.GetCIDR(wide); !ok {
		t.Error("expected exact match for the inserted prefix")
	}
	if _, ok := s.GetCIDR(netip.MustParsePrefix("10.1.0.0/16")); ok {
		t.Error("expected GetCIDR not to fall back to a covering prefix")
	}
}

func TestAccumulateSourceCounts(t *testing.T) {
	s := New()
	s.InsertDomain("a.com", blacklist.Entry{Source: "PhishTank"})
	s.InsertURL("http://b.com", blacklist.Entry{Source: "PhishTank"})
	s.InsertIPv4(1, blacklist.Entry{Source: "BlocklistDE"})
	s.InsertCIDR(netip.MustParsePrefix("10.0.0.0/8"), blacklist.Entry{Source: "SpamhausDROP"})

	counts := make(map[string]int)
	s.AccumulateSourceCounts(counts)
	if counts["PhishTank"] != 2 {
		t.Errorf("expected PhishTank=2, got %d", counts["PhishTank"])
	}
	if counts["BlocklistDE"] != 1 || counts["SpamhausDROP"] != 1 {
		t.Errorf("expected 1 each for BlocklistDE/SpamhausDROP, got %v", counts)
	}
}

func TestAccumulateSourceTypeCounts(t *testing.T) {
	s := New()
	s.InsertDomain("a.com", blacklist.Entry{Source: "PhishTank"})
	s.InsertURL("http://a.com", blacklist.Entry{Source: "PhishTank"})

	counts := make(map[string]map[string]int)
	s.AccumulateSourceTypeCounts(counts)
	if counts["PhishTank"]["domain"] != 1 || counts["PhishTank"]["url"] != 1 {
		t.Errorf("expected domain=1 url=1 for PhishTank, got %v", counts["PhishTank"])
	}
}

func TestClear_ResetsAllStructures(t *testing.T) {
	s := New()
	s.InsertDomain("evil.com", blacklist.Entry{})
	s.InsertURL("http://evil.com", blacklist.Entry{})
	s.InsertIPv4(1, blacklist.Entry{})
	s.InsertIPv6("::1", blacklist.Entry{})
	s.InsertCIDR(netip.MustParsePrefix("10.0.0.0/8"), blacklist.Entry{})

	s.Clear()

	if s.DomainCount() != 0 || s.URLCount() != 0 || s.IPCount() != 0 || s.CIDRCount() != 0 {
		t.Error("expected all structures empty after Clear")
	}
}
