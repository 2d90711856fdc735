package access

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/tplerr"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/types"
)

func glob(patterns ...string) *types.Restriction {
	return &types.Restriction{Type: types.RestrictionGlob, Patterns: patterns}
}

func exact(patterns ...string) *types.Restriction {
	return &types.Restriction{Type: types.RestrictionExact, Patterns: patterns}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		restriction *types.Restriction
		wantValid   bool
		wantCode    tplerr.Code
	}{
		{"no restriction", "https://anything.test/x", nil, true, ""},
		{"empty restriction", "https://anything.test/x", glob(), true, ""},
		{"no restriction ignores bad url", "::::", nil, true, ""},
		{"wildcard subdomain with path", "https://api.example.com/x", glob("*.example.com"), true, ""},
		{"wildcard subdomain http", "http://sub.example.com", glob("*.example.com"), true, ""},
		{"wildcard other tld", "https://example.org", glob("*.example.com"), false, tplerr.DomainNotAllowed},
		{"origin pattern", "https://shop.example.com/products/1", glob("https://*.example.com/products/*"), true, ""},
		{"host path pattern", "https://example.com/path", glob("example.com/path"), true, ""},
		{"second pattern matches", "https://b.test/", glob("a.test", "b.test"), true, ""},
		{"exact literal host", "https://example.com/page", exact("example.com"), true, ""},
		{"exact rejects subdomain", "https://www.example.com", exact("example.com"), false, tplerr.DomainNotAllowed},
		{"exact rejects other host", "https://evil.com/path", exact("example.com"), false, tplerr.DomainNotAllowed},
		{"exact is case-insensitive", "https://EXAMPLE.com", exact(" example.COM "), true, ""},
		{"missing scheme", "example.com/path", glob("*"), false, tplerr.InvalidURL},
		{"unparseable", "http://[::1", glob("*"), false, tplerr.InvalidURL},
		{"empty candidate", "", glob("*"), false, tplerr.InvalidURL},
	}

	c := New(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := c.ValidateURL(tt.url, tt.restriction)
			assert.Equal(t, tt.wantValid, r.IsValid)
			assert.Equal(t, tt.wantCode, r.Code)
			if tt.wantValid {
				assert.Empty(t, r.Error)
				assert.NoError(t, r.Err())
			} else {
				assert.NotEmpty(t, r.Error)
			}
		})
	}
}

func TestDenialEnumeratesPatterns(t *testing.T) {
	r := New(nil, nil).ValidateURL("https://evil.com", glob("*.example.com", "example.net"))
	require.False(t, r.IsValid)
	assert.Contains(t, r.Error, "*.example.com")
	assert.Contains(t, r.Error, "example.net")

	err := r.Err()
	assert.True(t, errors.Is(err, tplerr.ErrDomainNotAllowed))
	info := tplerr.InfoOf(err)
	assert.Equal(t, tplerr.KindAccessControl, info.Kind)
}

func TestValidateURLMultiSegment(t *testing.T) {
	c := New(nil, nil)
	assert.True(t, c.ValidateURL("https://example.com/a/b", glob("example.com/*")).IsValid)
	assert.True(t, c.ValidateURL("https://example.com/docs/a/b", glob("https://example.com/docs/*")).IsValid)
	assert.False(t, c.ValidateURL("https://example.com/blog/a", glob("https://example.com/docs/*")).IsValid)
}

func TestValidateKeyword(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		restriction *types.Restriction
		wantValid   bool
	}{
		{"unrestricted", "anything", nil, true},
		{"exact match", "Running Shoes", exact("running shoes"), true},
		{"exact mismatch", "running shoes sale", exact("running shoes"), false},
		{"glob prefix", "laptop deals 2025", glob("laptop*"), true},
		{"glob miss", "tablet deals", glob("laptop*"), false},
		{"no url normalization", "example.com", glob("https://example.com"), false},
		{"glob across slash", "golang/tips", glob("golang*"), true},
		{"glob inner slash segments", "shoes/men/running", glob("shoes/*/running"), true},
	}

	c := New(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := c.ValidateKeyword(tt.query, tt.restriction)
			assert.Equal(t, tt.wantValid, r.IsValid)
			if !tt.wantValid {
				assert.Equal(t, tplerr.PatternNotAllowed, r.Code)
			}
		})
	}
}
