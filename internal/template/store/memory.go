package store

import (
	"context"
	"sync"
	"time"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/types"
)

// MemoryStore keeps templates in a map. Used for tests and the CLI.
type MemoryStore struct {
	mu        sync.RWMutex
	templates map[string]*types.Template
}

func NewMemoryStore(templates ...*types.Template) *MemoryStore {
	m := &MemoryStore{templates: make(map[string]*types.Template)}
	for _, t := range templates {
		_ = m.Put(context.Background(), t)
	}
	return m
}

func (m *MemoryStore) Get(_ context.Context, templateID string) (*types.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.templates[templateID]
	if !ok {
		return nil, NotFound(templateID)
	}
	return clone(t), nil
}

// Put inserts or replaces a template. A missing UpdatedAt is set to now, and
// replacing a template always moves its version marker forward.
func (m *MemoryStore) Put(_ context.Context, tpl *types.Template) error {
	t := clone(tpl)
	normalize(t)
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.templates[t.TemplateID]; ok && t.VersionMarker() <= prev.VersionMarker() {
		t.UpdatedAt = prev.UpdatedAt.Add(time.Millisecond)
		if now.After(t.UpdatedAt) {
			t.UpdatedAt = now
		}
	}
	m.templates[t.TemplateID] = t
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, templateID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.templates, templateID)
	return nil
}

// Len returns the number of templates held
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.templates)
}
