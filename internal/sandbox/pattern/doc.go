// Package pattern matches candidates against domain and keyword allow-list patterns.
//
// Glob patterns are compared case-insensitively: `*` matches any run of
// characters including `/` and `.`, `?` matches one character and `[...]` is
// a character class.
//
// URL glob patterns are split into scheme, host and path. Each part is matched
// against the same part of the URL, so `*.example.com`,
// `https://*.example.com/path/*` and `example.com/path` all work as written
// and a host wildcard never matches text in the path.
package pattern
