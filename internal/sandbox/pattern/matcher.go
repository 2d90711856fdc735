package pattern

import (
	"net/url"
	"strings"

	"github.com/gobwas/glob"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/types"
)

// Match compares a plain-text candidate against one pattern.
// No URL normalization takes place.
func Match(candidate, pattern string, kind types.RestrictionType) bool {
	c := normalize(candidate)
	p := normalize(pattern)
	if p == "" {
		return false
	}

	switch kind {
	case types.RestrictionExact:
		return c == p
	default:
		return globMatch(p, c)
	}
}

// MatchURL compares a parsed URL against one pattern.
//
// Glob patterns are split into scheme, host and path parts, and each part is
// matched against the same part of the URL. A pattern without a path allows
// every path on a matching host. Exact patterns are compared against the
// hostname and the full URL.
func MatchURL(u *url.URL, pattern string, kind types.RestrictionType) bool {
	p := normalize(pattern)
	if p == "" || u == nil {
		return false
	}

	if kind == types.RestrictionExact {
		for _, c := range exactForms(u) {
			if c == p {
				return true
			}
		}
		return false
	}

	sp := splitPattern(p)
	if sp.scheme != "" && !globMatch(sp.scheme, strings.ToLower(u.Scheme)) {
		return false
	}
	if !globMatch(sp.host, strings.ToLower(u.Hostname())) && !globMatch(sp.host, strings.ToLower(u.Host)) {
		return false
	}
	if sp.path == "" {
		return true
	}
	for _, c := range PathForms(u) {
		if globMatch(sp.path, c) {
			return true
		}
	}
	return false
}

type urlPattern struct {
	scheme string
	host   string
	path   string
}

// splitPattern cuts "scheme://host/path" into its parts. The host part ends at
// the first slash, so a wildcard in it can never reach into the path.
func splitPattern(p string) urlPattern {
	var sp urlPattern
	if i := strings.Index(p, "://"); i >= 0 {
		sp.scheme, p = p[:i], p[i+3:]
	}
	if i := strings.IndexByte(p, '/'); i >= 0 {
		sp.host, sp.path = p[:i], p[i:]
	} else {
		sp.host = p
	}
	return sp
}

// PathForms returns the lower-cased path representations of u that the path
// part of a glob pattern is evaluated against, with and without a trailing
// slash, query and fragment.
func PathForms(u *url.URL) []string {
	path := collapseSlashes(u.EscapedPath())
	trimmed := strings.TrimSuffix(path, "/")
	slashed := trimmed + "/"

	suffix := ""
	if u.RawQuery != "" {
		suffix += "?" + u.RawQuery
	}
	if u.Fragment != "" {
		suffix += "#" + u.EscapedFragment()
	}

	forms := []string{trimmed, slashed, trimmed + suffix, slashed + suffix}

	seen := make(map[string]struct{}, len(forms))
	out := forms[:0]
	for _, f := range forms {
		f = strings.ToLower(f)
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

func exactForms(u *url.URL) []string {
	host := strings.ToLower(u.Hostname())
	return []string{host, strings.ToLower(u.Host), strings.ToLower(u.String())}
}

// globMatch reports a match only for well-formed patterns; a malformed
// pattern never matches. No separators are declared, so * and ? also
// cross slashes and dots.
func globMatch(pattern, candidate string) bool {
	g, err := glob.Compile(pattern)
	return err == nil && g.Match(candidate)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func collapseSlashes(p string) string {
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}
