package client

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/types"
)

type cachedTemplate struct {
	tpl     *types.Template
	expires time.Time
}

// templateCache holds resolved templates for a fixed TTL. A zero TTL
// disables caching.
type templateCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]cachedTemplate
}

func newTemplateCache(ttl time.Duration) *templateCache {
	return &templateCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cachedTemplate),
	}
}

func (c *templateCache) get(id string) (*types.Template, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	if !ok || c.now().After(e.expires) {
		return nil, false
	}
	return e.tpl, true
}

func (c *templateCache) put(tpl *types.Template) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[tpl.TemplateID] = cachedTemplate{tpl: tpl, expires: c.now().Add(c.ttl)}
}

func (c *templateCache) delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

func (c *templateCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
