package types

import "context"

// Page is the borrowed browser-page handle supplied by a crawling engine.
// Implementations dispatch method names to the engine's page object; the
// sandbox never closes it.
type Page interface {
	Invoke(ctx context.Context, method string, args ...interface{}) (interface{}, error)
	Cookies(ctx context.Context, urls ...string) ([]Cookie, error)
	IsClosed() bool
}

// Cookie represents a browser cookie as exposed to templates
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"httpOnly"`
	SameSite string  `json:"sameSite,omitempty"`
}
