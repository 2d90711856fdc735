// Package prenav stores data captured before a page navigation completed,
// such as intercepted API responses, so a template can pick it up later
// through context.preNav.
//
// Two backends exist: MemoryStore for single-process deployments and tests,
// and RedisStore when the capture step runs in another worker.
package prenav
