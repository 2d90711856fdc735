// Package analyzer scans template source for forbidden constructs.
//
// The scan is a first line of defense: an ordered table of regular
// expressions is run over the raw text and every rule that matches is
// reported. Obfuscated access (bracket notation, string concatenation) is
// not detected, and pattern text inside comments or string literals is
// reported as a violation.
package analyzer
