package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var errBackend = errors.New("backend down")
var errMissing = errors.New("missing")

func call(b *Breaker, err error) error {
	_, got := Do(context.Background(), b, func(context.Context) (string, error) {
		if err != nil {
			return "", err
		}
		return "ok", nil
	})
	return got
}

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		settings      Settings
		requests      []error
		expectedState State
	}{
		{
			name:          "stays closed on successes",
			settings:      Settings{Interval: time.Minute, Timeout: time.Minute},
			requests:      []error{nil, nil, nil},
			expectedState: StateClosed,
		},
		{
			name: "opens after consecutive failures",
			settings: Settings{
				Interval:    time.Minute,
				Timeout:     time.Minute,
				ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 3 },
			},
			requests:      []error{errBackend, errBackend, errBackend},
			expectedState: StateOpen,
		},
		{
			name: "success resets consecutive failures",
			settings: Settings{
				Interval:    time.Minute,
				Timeout:     time.Minute,
				ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 2 },
			},
			requests:      []error{errBackend, nil, errBackend},
			expectedState: StateClosed,
		},
		{
			name: "ignored errors do not trip",
			settings: Settings{
				Interval:    time.Minute,
				Timeout:     time.Minute,
				ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
				IsFailure:   func(err error) bool { return !errors.Is(err, errMissing) },
			},
			requests:      []error{errMissing, errMissing},
			expectedState: StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("test", tt.settings)
			for _, err := range tt.requests {
				_ = call(b, err)
			}
			assert.Equal(t, tt.expectedState, b.State())
		})
	}
}

func TestBreakerFailsFastWhenOpen(t *testing.T) {
	b := New("registry", Settings{
		Timeout:     time.Minute,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})

	require.ErrorIs(t, call(b, errBackend), errBackend)

	called := false
	_, err := Do(context.Background(), b, func(context.Context) (int, error) {
		called = true
		return 1, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	var transitions []string
	core, logs := observer.New(zap.WarnLevel)
	b := New("registry", Settings{
		Timeout:     10 * time.Millisecond,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
		Logger:      zap.New(core),
		OnStateChange: func(_ string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	_ = call(b, errBackend)
	require.Equal(t, StateOpen, b.State())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, b.State())

	require.NoError(t, call(b, nil))
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
	assert.Equal(t, 3, logs.FilterMessage("Circuit breaker state changed").Len())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := New("registry", Settings{
		Timeout:     10 * time.Millisecond,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})

	_ = call(b, errBackend)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, StateHalfOpen, b.State())

	_ = call(b, errBackend)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerIgnoresCancelledContext(t *testing.T) {
	b := New("registry", Settings{
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Do(ctx, b, func(ctx context.Context) (string, error) {
		return "", ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, uint32(0), b.Counts().TotalFailures)
}

func TestBreakerCounts(t *testing.T) {
	b := New("test", Settings{Interval: time.Minute})

	_ = call(b, nil)
	_ = call(b, nil)
	_ = call(b, errBackend)

	counts := b.Counts()
	assert.Equal(t, uint32(3), counts.Requests)
	assert.Equal(t, uint32(2), counts.TotalSuccesses)
	assert.Equal(t, uint32(1), counts.TotalFailures)
	assert.Equal(t, uint32(1), counts.ConsecutiveFailures)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "unknown", State(42).String())
}
