package validator

import "sync"

type cacheEntry struct {
	version     int64
	fingerprint string
}

// Cache remembers the last version marker and source fingerprint that passed
// validation for each template. Failed versions are never stored, and a hit
// needs both to match so edited code is re-checked even when the marker did
// not move.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Validated reports whether version and fingerprint are cached for templateID.
func (c *Cache) Validated(templateID string, version int64, fingerprint string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[templateID]
	return ok && e.version == version && e.fingerprint == fingerprint
}

// Put replaces any entry previously stored for templateID.
func (c *Cache) Put(templateID string, version int64, fingerprint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[templateID] = cacheEntry{version: version, fingerprint: fingerprint}
}

// Invalidate drops the entry for templateID.
func (c *Cache) Invalidate(templateID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, templateID)
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
