package prenav

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidKey is returned for keys missing a namespace part.
var ErrInvalidKey = errors.New("prenav: job id, request id and key are required")

// Key addresses one captured value. Captures are namespaced by job and
// request so concurrent requests never see each other's data.
type Key struct {
	JobID     string
	RequestID string
	Name      string
}

func (k Key) valid() bool {
	return k.JobID != "" && k.RequestID != "" && k.Name != ""
}

// Store holds data captured before page navigation completed.
type Store interface {
	// Put records a value and wakes any waiter on the key.
	Put(ctx context.Context, key Key, value interface{}) error
	// Get returns the value for key without blocking.
	Get(ctx context.Context, key Key) (interface{}, bool, error)
	// Has reports whether key has a value without blocking.
	Has(ctx context.Context, key Key) (bool, error)
	// Wait blocks until key has a value, timeout elapses or ctx ends.
	// A timeout is not an error: it returns found == false.
	Wait(ctx context.Context, key Key, timeout time.Duration) (value interface{}, found bool, err error)
}

// Scope is the view of a Store bound to one request, as exposed to a
// template through context.preNav.
type Scope struct {
	store     Store
	jobID     string
	requestID string
	maxWait   time.Duration
}

// Bind returns the scope of (jobID, requestID). maxWait caps every Wait.
func Bind(store Store, jobID, requestID string, maxWait time.Duration) *Scope {
	return &Scope{store: store, jobID: jobID, requestID: requestID, maxWait: maxWait}
}

func (s *Scope) key(name string) Key {
	return Key{JobID: s.jobID, RequestID: s.requestID, Name: name}
}

func (s *Scope) Get(ctx context.Context, name string) (interface{}, bool, error) {
	if s == nil || s.store == nil {
		return nil, false, nil
	}
	return s.store.Get(ctx, s.key(name))
}

func (s *Scope) Has(ctx context.Context, name string) (bool, error) {
	if s == nil || s.store == nil {
		return false, nil
	}
	return s.store.Has(ctx, s.key(name))
}

// Wait blocks for name. A non-positive or oversized timeout is replaced by
// the scope's maximum.
func (s *Scope) Wait(ctx context.Context, name string, timeout time.Duration) (interface{}, bool, error) {
	if s == nil || s.store == nil {
		return nil, false, nil
	}
	if timeout <= 0 || (s.maxWait > 0 && timeout > s.maxWait) {
		timeout = s.maxWait
	}
	return s.store.Wait(ctx, s.key(name), timeout)
}
