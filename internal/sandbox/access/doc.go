// Package access decides which URLs and search queries a template may act on.
//
// Restrictions are opt-in: a template without allowedDomains or
// allowedKeywords is unrestricted. Once patterns are configured, anything
// that cannot be parsed or matched is denied, and the denial message lists
// the allowed patterns.
package access
