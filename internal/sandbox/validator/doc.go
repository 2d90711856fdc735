// Package validator decides whether template code may run.
//
// Checks run in order and stop at the first failure: the code must compile
// as an async function body, pass the static analyzer, and stay within the
// length, nesting and loop ceilings. A passing (template id, version) pair
// is cached so an unchanged template is not rescanned on every request; a
// new updatedAt marker forces a full re-check.
package validator
