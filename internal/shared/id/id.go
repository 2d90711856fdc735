// Package id provides ID generation for executions and template records.
//
// Execution and request IDs are prefixed ULIDs so log lines sort by time
// and show what they identify at a glance (exec_*, req_*, job_*). Template
// records carry a UUID assigned by whichever store created them.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// ExecutionID identifies a single template run
type ExecutionID string

// RequestID identifies the scrape request that triggered a run
type RequestID string

// JobID identifies the scrape job a request belongs to
type JobID string

const (
	ExecutionPrefix = "exec"
	RequestPrefix   = "req"
	JobPrefix       = "job"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the shared generator, backed by monotonic crypto entropy.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

func NewGenerator() *Generator {
	return &Generator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source
// for deterministic tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// WithPrefix returns "prefix_ULID".
func (g *Generator) WithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

func NewExecutionID() ExecutionID {
	return ExecutionID(Default().WithPrefix(ExecutionPrefix))
}

func NewRequestID() RequestID {
	return RequestID(Default().WithPrefix(RequestPrefix))
}

func NewJobID() JobID {
	return JobID(Default().WithPrefix(JobPrefix))
}

func (id ExecutionID) String() string { return string(id) }
func (id RequestID) String() string   { return string(id) }
func (id JobID) String() string       { return string(id) }

// NewTemplateUUID returns a random UUID for a template record that has none.
func NewTemplateUUID() string {
	return uuid.NewString()
}

// IsTemplateUUID reports whether s parses as a UUID.
func IsTemplateUUID(s string) bool {
	return uuid.Validate(s) == nil
}

// Split separates a prefixed ID into its prefix and ULID part.
func Split(prefixed string) (prefix string, u ulid.ULID, err error) {
	prefix, raw, ok := strings.Cut(prefixed, "_")
	if !ok {
		return "", ulid.ULID{}, fmt.Errorf("id %q has no prefix", prefixed)
	}
	u, err = ulid.Parse(raw)
	if err != nil {
		return "", ulid.ULID{}, fmt.Errorf("id %q: %w", prefixed, err)
	}
	return prefix, u, nil
}

// Timestamp extracts the creation time from a prefixed ID.
func Timestamp(prefixed string) (time.Time, error) {
	_, u, err := Split(prefixed)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()), nil
}
