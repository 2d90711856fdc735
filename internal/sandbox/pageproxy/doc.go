// Package pageproxy gates a template's access to the live browser page.
//
// A Proxy is an allow-list dispatch table in front of types.Page:
//
//   - methods outside the allow-list fail with CAPABILITY_DENIED and are
//     not counted
//   - every permitted call counts against a per-execution budget; once it
//     is spent, all calls fail with CALL_BUDGET_EXCEEDED
//   - code strings handed to evaluate-style methods are rescanned by the
//     static analyzer
//   - page.goto targets are checked by an optional NavigationGuard
//   - setting or deleting page properties fails with MODIFICATION_DENIED
//
// The proxy never closes the page; the crawling engine owns it.
package pageproxy
