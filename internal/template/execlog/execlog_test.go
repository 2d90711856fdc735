package execlog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/template/store"
)

func newRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	db, err := store.OpenSQLite(filepath.Join(t.TempDir(), "log.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	r, err := NewSQLiteRecorder(db)
	require.NoError(t, err)
	return r
}

func TestSQLiteRecorder(t *testing.T) {
	ctx := context.Background()
	r := newRecorder(t)

	require.NoError(t, r.Record(ctx, Entry{TemplateID: "tpl", ExecutionID: "exec_1", Duration: 120 * time.Millisecond, CreditsCharged: 2, Success: true}))
	require.NoError(t, r.Record(ctx, Entry{TemplateID: "tpl", ExecutionID: "exec_2", Duration: time.Second, Success: false, ErrorCode: "TIMEOUT", ErrorMessage: "timed out"}))
	require.NoError(t, r.Record(ctx, Entry{TemplateID: "other", ExecutionID: "exec_3", Success: true, CreditsCharged: 1}))

	entries, err := r.Recent(ctx, "tpl", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "exec_2", entries[0].ExecutionID)
	assert.False(t, entries[0].Success)
	assert.Equal(t, "TIMEOUT", entries[0].ErrorCode)
	assert.Equal(t, "timed out", entries[0].ErrorMessage)
	assert.Equal(t, time.Second, entries[0].Duration)
	assert.Equal(t, 120*time.Millisecond, entries[1].Duration)
	assert.Empty(t, entries[1].ErrorCode)
	assert.False(t, entries[1].RecordedAt.IsZero())

	u, err := r.Usage(ctx, "tpl")
	require.NoError(t, err)
	assert.Equal(t, Usage{Runs: 2, Successes: 1, Credits: 2}, u)
}

func TestZapRecorder(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := NewZapRecorder(zap.New(core))

	require.NoError(t, r.Record(context.Background(), Entry{TemplateID: "tpl", Success: false, ErrorCode: "RUNTIME_ERROR", ErrorMessage: "boom"}))

	entries := logs.FilterMessage("Template execution recorded").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "tpl", fields["template_id"])
	assert.Equal(t, "RUNTIME_ERROR", fields["error_code"])
	assert.Equal(t, false, fields["success"])
}

type failingRecorder struct{ calls int }

func (f *failingRecorder) Record(context.Context, Entry) error {
	f.calls++
	return errors.New("disk full")
}

func TestMultiAttemptsAll(t *testing.T) {
	failing := &failingRecorder{}
	core, logs := observer.New(zap.InfoLevel)

	err := Multi(failing, nil, NewZapRecorder(zap.New(core))).Record(context.Background(), Entry{TemplateID: "tpl", Success: true})
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, logs.Len())

	assert.NoError(t, Multi().Record(context.Background(), Entry{}))
}
