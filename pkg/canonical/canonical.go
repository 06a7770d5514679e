// Package canonical normalizes raw indicator values (URLs, IPv4 addresses,
// domains) into the identity form the rest of the Index uses as a map/set
// key. URL canonicalization is total: it never returns an error, falling
// back to a lowercased copy of the input on any parse failure (tracked
// internally via Result.Recovered and never surfaced to callers).
package canonical

import (
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// trackingParams lists query-string keys stripped during URL
// canonicalization because they carry no identity information (campaign and
// click-tracking noise). Keys are matched case-insensitively.
var trackingParams = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
	"fbclid":       true,
	"gclid":        true,
	"mc_eid":       true,
	"_ga":          true,
	"ref":          true,
	"referrer":     true,
}

var mu sync.RWMutex

// AddTrackingParams adds additional parameter names to the tracking-param
// strip list. Safe for concurrent use; intended to be called during process
// startup before any lookups begin.
func AddTrackingParams(params ...string) {
	mu.Lock()
	defer mu.Unlock()
	for _, p := range params {
		trackingParams[strings.ToLower(p)] = true
	}
}

// Result is the outcome of canonicalizing a URL.
type Result struct {
	// Canonical is the normalized URL, suitable as a map key.
	Canonical string
	// Altered reports whether Canonical differs from the raw input, i.e.
	// canonicalization actually changed the identity string (dropped a
	// tracking param, trimmed a slash, added a scheme, ...). Feeds the
	// "URLs altered by canonicalization" metric.
	Altered bool
	// Recovered reports that url.Parse failed and Canonical is simply the
	// lowercased, whitespace-trimmed original. Internal only — never
	// surfaced to API callers (the CanonicalizationRecovered taxonomy
	// entry is non-fatal by design).
	Recovered bool
}

// Canonicalize normalizes rawURL: lowercase, default scheme "http", drop the
// fragment, strip tracking query parameters, preserve the insertion order of
// remaining parameters, and trim a single trailing slash from the path. A
// bare root path is omitted when no query remains ("http://host/" and
// "http://host/?utm_source=x" canonicalize to "http://host") and is kept
// before a remaining query ("http://host/?a=1" stays "http://host/?a=1").
//
// Canonicalize is idempotent: Canonicalize(Canonicalize(u).Canonical).Canonical
// always equals Canonicalize(u).Canonical.
func Canonicalize(rawURL string) Result {
	lowered := strings.ToLower(strings.TrimSpace(rawURL))

	withScheme := lowered
	if !strings.Contains(withScheme, "://") {
		withScheme = "http://" + withScheme
	}

	parsed, err := url.Parse(withScheme)
	if err != nil {
		return Result{Canonical: lowered, Altered: lowered != rawURL, Recovered: true}
	}

	parsed.Fragment = ""
	parsed.RawFragment = ""
	parsed.RawQuery = cleanQuery(parsed.RawQuery)
	if parsed.Path != "/" || parsed.RawQuery == "" {
		parsed.Path = trimSingleTrailingSlash(parsed.Path)
	}

	canonical := reassemble(parsed)
	return Result{Canonical: canonical, Altered: canonical != rawURL}
}

// trimSingleTrailingSlash removes exactly one trailing "/" from path. A bare
// "/" becomes "" so that the root path is omitted entirely when reassembled.
func trimSingleTrailingSlash(path string) string {
	if strings.HasSuffix(path, "/") {
		return path[:len(path)-1]
	}
	return path
}

// cleanQuery drops tracking parameters from rawQuery and re-encodes the
// remaining parameters in their original (first-seen) order.
func cleanQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	mu.RLock()
	defer mu.RUnlock()

	var kept []string
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key := pair
		if idx := strings.IndexByte(pair, '='); idx >= 0 {
			key = pair[:idx]
		}
		decodedKey, err := url.QueryUnescape(key)
		if err != nil {
			decodedKey = key
		}
		if trackingParams[strings.ToLower(decodedKey)] {
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&")
}

// reassemble rebuilds the canonical URL string by hand rather than via
// url.URL.String() so that a root/empty path is omitted entirely instead of
// being rendered as a bare "/".
func reassemble(u *url.URL) string {
	var b strings.Builder
	if u.Scheme != "" {
		b.WriteString(u.Scheme)
		b.WriteString("://")
	}
	b.WriteString(u.Host)
	b.WriteString(u.EscapedPath())
	if u.RawQuery != "" {
		b.WriteByte('?')
		b.WriteString(u.RawQuery)
	}
	return b.String()
}

// PackIPv4 packs a dotted-quad IPv4 address into its big-endian unsigned
// 32-bit integer representation: (a<<24)|(b<<16)|(c<<8)|d. ok is false if v
// is not a well-formed IPv4 dotted quad (wrong part count, an octet outside
// [0,255], or an octet not in plain decimal form such as "01" or "+1") or
// contains ':' (an IPv6 literal, which the caller should keep as a string
// instead).
func PackIPv4(v string) (packed uint32, ok bool) {
	if strings.Contains(v, ":") {
		return 0, false
	}

	parts := strings.Split(v, ".")
	if len(parts) != 4 {
		return 0, false
	}

	var out uint32
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 || strconv.Itoa(n) != p {
			return 0, false
		}
		out |= uint32(n) << uint(8*(3-i))
	}
	return out, true
}

// UnpackIPv4 is the inverse of PackIPv4: it renders a packed 32-bit unsigned
// integer back into dotted-quad form. The packing is bijective, so
// UnpackIPv4(PackIPv4(v)) == v for every v that packs successfully.
func UnpackIPv4(packed uint32) string {
	return strconv.Itoa(int(packed>>24&0xff)) + "." +
		strconv.Itoa(int(packed>>16&0xff)) + "." +
		strconv.Itoa(int(packed>>8&0xff)) + "." +
		strconv.Itoa(int(packed&0xff))
}

// NormalizeDomain lowercases a domain label sequence. No Unicode folding is
// performed at this layer — callers are responsible for validating that the
// value is a syntactically well-formed domain before treating it as one.
func NormalizeDomain(d string) string {
	return strings.ToLower(strings.TrimSpace(d))
}
