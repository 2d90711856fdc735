package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewBuildsLogger(t *testing.T) {
	logger, err := New(Config{Level: "warn", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	assert.NotNil(t, logger.Logger)
}

func TestForTemplateAddsFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	ForTemplate(zap.New(core), "tpl-1", "exec-1").Info("hello")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "tpl-1", fields["template_id"])
	assert.Equal(t, "exec-1", fields["execution_id"])
}

func TestNilSafety(t *testing.T) {
	var l *Logger
	assert.NotNil(t, l.Component("x"))
	assert.NotNil(t, OrNop(nil))
	assert.NotPanics(t, func() { ForTemplate(nil, "tpl", "").Info("ok") })
}
