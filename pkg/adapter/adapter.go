package adapter

import (
	"net/netip"
	"net/url"
	"strings"

	"github.com/PhilipKram/blacklist-index/pkg/blacklist"
)

// Index is the subset of the Coordinator's query surface the adapter needs.
// Declared narrowly here so tests can supply a fake without a durable store.
type Index interface {
	SourceOfDomain(d string) (string, bool)
	SourceOfURL(u string) (string, bool)
	SourceOfIP(addr string) (string, bool)
}

// Result is the outcome of a Check call.
type Result struct {
	Matched bool
	Source  string
	Kind    blacklist.Kind
}

// Check classifies value and dispatches it to the matching query:
//   - an IP literal (v4 or v6) goes to the IP check, no fallback on miss;
//   - a value with an http:// or https:// scheme goes to the URL check; on a
//     miss, if the URL's host is itself a blacklisted domain, that domain's
//     source is returned instead (the only cross-kind fallback);
//   - a syntactically valid domain (at least one dot, well-formed labels)
//     goes to the domain check;
//   - anything else is ErrInvalidInput.
func Check(idx Index, value string) (Result, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Result{}, blacklist.ErrInvalidInput
	}

	if _, err := netip.ParseAddr(value); err == nil {
		source, ok := idx.SourceOfIP(value)
		return Result{Matched: ok, Source: source, Kind: blacklist.KindIP}, nil
	}

	if isURL(value) {
		if source, ok := idx.SourceOfURL(value); ok {
			return Result{Matched: true, Source: source, Kind: blacklist.KindURL}, nil
		}
		if host := extractHost(value); host != "" {
			if source, ok := idx.SourceOfDomain(host); ok {
				return Result{Matched: true, Source: source, Kind: blacklist.KindDomain}, nil
			}
		}
		return Result{Kind: blacklist.KindURL}, nil
	}

	if isValidDomain(value) {
		source, ok := idx.SourceOfDomain(value)
		return Result{Matched: ok, Source: source, Kind: blacklist.KindDomain}, nil
	}

	return Result{}, blacklist.ErrInvalidInput
}

func isURL(value string) bool {
	lowered := strings.ToLower(value)
	return strings.HasPrefix(lowered, "http://") || strings.HasPrefix(lowered, "https://")
}

// extractHost returns the lowercased hostname (no port) of a URL, or "" if
// it can't be parsed.
func extractHost(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

// isValidDomain requires at least one dot and every label to be non-empty,
// alphanumeric-or-hyphen, and not starting or ending with a hyphen.
func isValidDomain(value string) bool {
	if !strings.Contains(value, ".") {
		return false
	}
	labels := strings.Split(value, ".")
	for _, label := range labels {
		if !isValidLabel(label) {
			return false
		}
	}
	return true
}

func isValidLabel(label string) bool {
	if label == "" || label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-':
		default:
			return false
		}
	}
	return true
}
