// Package types provides shared data structures for the template sandbox.
//
// This package defines the types exchanged between the orchestrator, the
// sandbox components and the external collaborators (template store,
// execution log, crawling engine).
//
// Core Types:
//   - Template: Published snapshot of user-authored code and its policy
//   - Restriction: Domain or keyword allow-list (glob or exact)
//   - Variable: Typed template input declaration
//   - ExecutionContext: Per-attempt inputs, exclusively owned by one run
//   - Page: Borrowed browser-page handle supplied by the crawling engine
//   - ScrapeResult: Extraction output, safe for concurrent fill
//
// Isolation:
//   - IsolationStrategy: Isolated (untrusted) or Ambient (trusted)
//
// Example Usage:
//
//	tpl := &types.Template{
//	    TemplateID: "product-prices",
//	    Code:       types.Code{Source: "return context.title;"},
//	}
//	strategy := tpl.Strategy() // types.Isolated
package types
