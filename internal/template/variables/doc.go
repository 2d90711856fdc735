// Package variables resolves the declared variables of a template against
// caller input and the request payload.
package variables
