// Package utils holds small helpers shared by the template packages:
// content fingerprints and input validation.
package utils
