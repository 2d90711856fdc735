// Package execlog records finished template executions: duration, credits
// charged and outcome. Writes are best-effort from the caller's side.
package execlog
