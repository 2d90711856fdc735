package store

import (
	"context"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/tplerr"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/types"
)

// Store resolves templates by id. A missing template is reported as a
// tplerr.TemplateNotFound error.
type Store interface {
	Get(ctx context.Context, templateID string) (*types.Template, error)
}

// Writer is implemented by stores that accept templates directly
type Writer interface {
	Put(ctx context.Context, tpl *types.Template) error
	Delete(ctx context.Context, templateID string) error
}

// NotFound builds the error returned for an unknown template id
func NotFound(templateID string) error {
	return tplerr.New(tplerr.TemplateNotFound, "template %q not found", templateID).WithTemplate(templateID)
}

// clone returns a copy a caller may modify without touching the store
func clone(t *types.Template) *types.Template {
	c := *t
	c.Variables = append([]types.Variable(nil), t.Variables...)
	if t.AllowedDomains != nil {
		r := *t.AllowedDomains
		r.Patterns = append([]string(nil), r.Patterns...)
		c.AllowedDomains = &r
	}
	if t.AllowedKeywords != nil {
		r := *t.AllowedKeywords
		r.Patterns = append([]string(nil), r.Patterns...)
		c.AllowedKeywords = &r
	}
	return &c
}
