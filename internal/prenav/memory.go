package prenav

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps captures in process. Waiters are woken on Put.
type MemoryStore struct {
	mu      sync.Mutex
	values  map[Key]interface{}
	waiters map[Key][]chan struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:  make(map[Key]interface{}),
		waiters: make(map[Key][]chan struct{}),
	}
}

func (m *MemoryStore) Put(_ context.Context, key Key, value interface{}) error {
	if !key.valid() {
		return ErrInvalidKey
	}

	m.mu.Lock()
	m.values[key] = value
	waiters := m.waiters[key]
	delete(m.waiters, key)
	m.mu.Unlock()

	for _, ch := range waiters {
		close(ch)
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key Key) (interface{}, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Has(ctx context.Context, key Key) (bool, error) {
	_, ok, err := m.Get(ctx, key)
	return ok, err
}

func (m *MemoryStore) Wait(ctx context.Context, key Key, timeout time.Duration) (interface{}, bool, error) {
	m.mu.Lock()
	if v, ok := m.values[key]; ok {
		m.mu.Unlock()
		return v, true, nil
	}
	ch := make(chan struct{})
	m.waiters[key] = append(m.waiters[key], ch)
	m.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ch:
		return m.Get(ctx, key)
	case <-timer.C:
		m.dropWaiter(key, ch)
		return nil, false, nil
	case <-ctx.Done():
		m.dropWaiter(key, ch)
		return nil, false, ctx.Err()
	}
}

// Forget removes every capture of a request once it has been processed.
func (m *MemoryStore) Forget(jobID, requestID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.values {
		if k.JobID == jobID && k.RequestID == requestID {
			delete(m.values, k)
		}
	}
}

func (m *MemoryStore) dropWaiter(key Key, ch chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.waiters[key]
	for i, c := range list {
		if c == ch {
			m.waiters[key] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(m.waiters[key]) == 0 {
		delete(m.waiters, key)
	}
}
