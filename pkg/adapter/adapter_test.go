package adapter

import (
	"errors"
	"strings"
	"testing"

	"github.com/PhilipKram/blacklist-index/pkg/blacklist"
)

type fakeIndex struct {
	domains map[string]string
	urls    map[string]string
	ips     map[string]string
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{domains: map[string]string{}, urls: map[string]string{}, ips: map[string]string{}}
}

// SourceOfDomain mirrors the Coordinator's hierarchical match: d itself or
// any of its parent domains.
func (f *fakeIndex) SourceOfDomain(d string) (string, bool) {
	labels := strings.Split(d, ".")
	for i := range labels {
		if s, ok := f.domains[strings.Join(labels[i:], ".")]; ok {
			return s, true
		}
	}
	return "", false
}

func (f *fakeIndex) SourceOfURL(u string) (string, bool)    { s, ok := f.urls[u]; return s, ok }
func (f *fakeIndex) SourceOfIP(addr string) (string, bool)  { s, ok := f.ips[addr]; return s, ok }

func TestCheck_IPLiteral_NoFallback(t *testing.T) {
	idx := newFakeIndex()
	idx.ips["10.1.1.1"] = "SpamhausDROP"

	res, err := Check(idx, "10.1.1.1")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !res.Matched || res.Source != "SpamhausDROP" || res.Kind != blacklist.KindIP {
		t.Errorf("unexpected result: %+v", res)
	}

	res, err = Check(idx, "10.2.2.2")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Matched {
		t.Error("expected no match and no fallback for an unlisted IP")
	}
}

func TestCheck_URLHitTakesPrecedenceOverDomain(t *testing.T) {
	idx := newFakeIndex()
	idx.urls["http://evil.com/path"] = "URLhaus"
	idx.domains["evil.com"] = "PhishTank"

	res, err := Check(idx, "http://evil.com/path")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Source != "URLhaus" || res.Kind != blacklist.KindURL {
		t.Errorf("expected URL match to win, got %+v", res)
	}
}

func TestCheck_URLMissFallsBackToHostDomain(t *testing.T) {
	idx := newFakeIndex()
	idx.domains["evil.com"] = "PhishTank"

	res, err := Check(idx, "http://evil.com/some/path")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !res.Matched || res.Source != "PhishTank" || res.Kind != blacklist.KindDomain {
		t.Errorf("expected domain fallback, got %+v", res)
	}
}

func TestCheck_URLMissAndHostNotListed(t *testing.T) {
	idx := newFakeIndex()

	res, err := Check(idx, "http://safe.com/path")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Matched {
		t.Error("expected no match when neither the URL nor its host is listed")
	}
	if res.Kind != blacklist.KindURL {
		t.Errorf("expected Kind=url even on miss, got %v", res.Kind)
	}
}

func TestCheck_Domain(t *testing.T) {
	idx := newFakeIndex()
	idx.domains["evil.com"] = "PhishTank"

	res, err := Check(idx, "sub.evil.com")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !res.Matched || res.Kind != blacklist.KindDomain {
		t.Errorf("expected domain match, got %+v", res)
	}
}

func TestCheck_InvalidInput(t *testing.T) {
	idx := newFakeIndex()

	for _, v := range []string{"", "   ", "not a domain", "-bad-.com", "justtext"} {
		_, err := Check(idx, v)
		if !errors.Is(err, blacklist.ErrInvalidInput) {
			t.Errorf("Check(%q): expected ErrInvalidInput, got %v", v, err)
		}
	}
}

func TestCheck_IPv6Literal(t *testing.T) {
	idx := newFakeIndex()
	idx.ips["2001:db8::1"] = "Obscure"

	res, err := Check(idx, "2001:db8::1")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !res.Matched || res.Kind != blacklist.KindIP {
		t.Errorf("expected v6 match, got %+v", res)
	}
}
