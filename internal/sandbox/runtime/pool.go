package runtime

import (
	"context"
	"errors"
	"sync"
)

var ErrSlotsClosed = errors.New("execution slots are closed")

// Slots caps how many templates execute at once. A slot stays taken until
// the VM goroutine has actually stopped, even when the caller gave up on it
// after a timeout.
type Slots struct {
	tokens chan struct{}
	size   int
	mu     sync.RWMutex
	closed bool
}

// NewSlots creates size execution slots
func NewSlots(size int) *Slots {
	if size <= 0 {
		size = 4
	}
	s := &Slots{
		tokens: make(chan struct{}, size),
		size:   size,
	}
	for i := 0; i < size; i++ {
		s.tokens <- struct{}{}
	}
	return s
}

// Acquire takes a slot, waiting until one frees up or ctx ends
func (s *Slots) Acquire(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrSlotsClosed
	}

	select {
	case <-s.tokens:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a slot
func (s *Slots) Release() {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return
	}
	select {
	case s.tokens <- struct{}{}:
	default:
	}
}

// Close rejects further acquisitions
func (s *Slots) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// SlotStats reports slot usage
type SlotStats struct {
	Size      int  `json:"size"`
	Available int  `json:"available"`
	InUse     int  `json:"in_use"`
	Closed    bool `json:"closed"`
}

func (s *Slots) Stats() SlotStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	available := len(s.tokens)
	return SlotStats{
		Size:      s.size,
		Available: available,
		InUse:     s.size - available,
		Closed:    s.closed,
	}
}
