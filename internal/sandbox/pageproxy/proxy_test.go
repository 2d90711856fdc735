package pageproxy

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/tplerr"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/types"
)

type fakePage struct {
	mu      sync.Mutex
	invoked []string
	closed  bool
}

func (f *fakePage) Invoke(_ context.Context, method string, args ...interface{}) (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invoked = append(f.invoked, method)
	return method + "-result", nil
}

func (f *fakePage) Cookies(context.Context, ...string) ([]types.Cookie, error) {
	return []types.Cookie{{Name: "sid", Value: "1"}}, nil
}

func (f *fakePage) IsClosed() bool { return f.closed }

func TestCallAllowedIncrementsByOne(t *testing.T) {
	page := &fakePage{}
	p := New(page, Config{}, Options{TemplateID: "tpl"})

	for i := 1; i <= 3; i++ {
		res, err := p.Call(context.Background(), "title")
		require.NoError(t, err)
		assert.Equal(t, "title-result", res)
		assert.Equal(t, i, p.Calls())
	}
	assert.Equal(t, []string{"title", "title", "title"}, page.invoked)
}

func TestCallDeniedMethod(t *testing.T) {
	page := &fakePage{}
	p := New(page, Config{}, Options{TemplateID: "tpl"})

	for _, method := range []string{"goto2", "close", "browser", "exposeFunction", "setContent"} {
		_, err := p.Call(context.Background(), method)
		require.Error(t, err)
		assert.True(t, errors.Is(err, tplerr.ErrCapabilityDenied))
		assert.Contains(t, err.Error(), method)
		assert.Contains(t, err.Error(), "goto", "allow-list is echoed")
	}
	assert.Zero(t, p.Calls())
	assert.Empty(t, page.invoked)
}

func TestCallBudgetExceeded(t *testing.T) {
	p := New(&fakePage{}, Config{MaxCalls: 2}, Options{})
	ctx := context.Background()

	_, err := p.Call(ctx, "content")
	require.NoError(t, err)
	_, err = p.Call(ctx, "url")
	require.NoError(t, err)

	for _, method := range []string{"content", "evaluate"} {
		_, err = p.Call(ctx, method, "document.title")
		assert.ErrorIs(t, err, tplerr.ErrCallBudgetExceeded)
	}
	_, err = p.Cookies(ctx)
	assert.ErrorIs(t, err, tplerr.ErrCallBudgetExceeded)

	_, err = p.Call(ctx, "nope")
	assert.ErrorIs(t, err, tplerr.ErrCapabilityDenied, "unknown methods stay capability errors")
	assert.Equal(t, 2, p.Calls())
}

func TestEvaluateRescansCode(t *testing.T) {
	page := &fakePage{}
	p := New(page, Config{}, Options{})
	ctx := context.Background()

	_, err := p.Call(ctx, "evaluate", "() => document.title")
	require.NoError(t, err)

	for _, method := range []string{"evaluate", "evaluateHandle", "$eval", "$$eval", "waitForFunction"} {
		_, err = p.Call(ctx, method, "h1", "() => require('fs')")
		require.Error(t, err, method)
		assert.True(t, errors.Is(err, tplerr.ErrSecurityViolation), method)
	}
	assert.Equal(t, 1, p.Calls())
	assert.Equal(t, []string{"evaluate"}, page.invoked)
}

func TestGotoNavigationGuard(t *testing.T) {
	guard := func(target string) error {
		if target != "https://example.com/" {
			return tplerr.New(tplerr.DomainNotAllowed, "navigation to %q denied", target)
		}
		return nil
	}
	page := &fakePage{}
	p := New(page, Config{}, Options{Guard: guard, TemplateID: "tpl"})
	ctx := context.Background()

	_, err := p.Call(ctx, "goto", "https://example.com/")
	require.NoError(t, err)

	_, err = p.Call(ctx, "goto", "https://evil.com/")
	require.ErrorIs(t, err, tplerr.ErrDomainNotAllowed)
	e, ok := tplerr.As(err)
	require.True(t, ok)
	assert.Equal(t, "tpl", e.TemplateID)
	assert.Equal(t, 1, p.Calls())
}

func TestDenyMutation(t *testing.T) {
	p := New(&fakePage{}, Config{}, Options{})
	err := p.DenyMutation("set", "goto")
	assert.ErrorIs(t, err, tplerr.ErrModificationDenied)
	assert.Contains(t, err.Error(), "goto")
}

func TestCustomAllowList(t *testing.T) {
	p := New(&fakePage{}, Config{AllowedMethods: []string{"content"}}, Options{})
	assert.True(t, p.Allowed("content"))
	assert.False(t, p.Allowed("goto"))
	assert.Equal(t, []string{"content"}, p.Methods())
}

func TestIsClosedAnsweredByHost(t *testing.T) {
	page := &fakePage{closed: true}
	p := New(page, Config{}, Options{})

	res, err := p.Call(context.Background(), "isClosed")
	require.NoError(t, err)
	assert.Equal(t, true, res)
	assert.Empty(t, page.invoked)
}

func TestCallLogsRunningCount(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := New(&fakePage{}, Config{MaxCalls: 5}, Options{TemplateID: "tpl", Logger: zap.New(core)})

	_, err := p.Call(context.Background(), "content")
	require.NoError(t, err)

	entries := logs.FilterMessage("Page method call").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "tpl", fields["template_id"])
	assert.Equal(t, "content", fields["method"])
	assert.EqualValues(t, 1, fields["calls"])
	assert.EqualValues(t, 5, fields["max_calls"])
}

func TestConcurrentCallsNeverExceedBudget(t *testing.T) {
	p := New(&fakePage{}, Config{MaxCalls: 50}, Options{})

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		okCalls  int
		rejected int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Call(context.Background(), "content")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				okCalls++
			} else {
				rejected++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, okCalls)
	assert.Equal(t, 50, rejected)
	assert.Equal(t, 50, p.Calls())
}

func TestDefaultMethodsCoverGroups(t *testing.T) {
	methods := DefaultMethods()
	for _, m := range []string{"goto", "click", "evaluate", "$", "content", "screenshot", "pdf", "frames", "getAttribute", "isClosed"} {
		assert.Contains(t, methods, m)
	}
}
