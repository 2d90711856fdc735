package tplerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := New(Timeout, "execution exceeded %s", "100ms").WithTemplate("tpl-1")
	wrapped := fmt.Errorf("run: %w", err)

	assert.ErrorIs(t, wrapped, ErrTimeout)
	assert.NotErrorIs(t, wrapped, ErrRuntime)
	assert.Equal(t, KindSandbox, err.Kind)
	assert.Equal(t, "TIMEOUT [template tpl-1]: execution exceeded 100ms", err.Error())
}

func TestCodeKinds(t *testing.T) {
	tests := []struct {
		code Code
		kind Kind
	}{
		{InvalidSyntax, KindValidation},
		{TooManyLoops, KindValidation},
		{DomainNotAllowed, KindAccessControl},
		{InvalidURL, KindAccessControl},
		{CallBudgetExceeded, KindSandbox},
		{TemplateNotFound, KindNotFound},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.code.Kind())
		})
	}
}

func TestInfoOf(t *testing.T) {
	assert.Nil(t, InfoOf(nil))

	info := InfoOf(errors.New("boom"))
	require.NotNil(t, info)
	assert.Equal(t, RuntimeError, info.Code)
	assert.Equal(t, "boom", info.Message)

	cause := errors.New("cause")
	info = InfoOf(Wrap(SecurityViolation, cause, "forbidden construct"))
	assert.Equal(t, KindValidation, info.Kind)
	assert.Equal(t, SecurityViolation, info.Code)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(nil))
	assert.Equal(t, RuntimeError, CodeOf(errors.New("x")))
	assert.Equal(t, InvalidURL, CodeOf(fmt.Errorf("a: %w", New(InvalidURL, "bad"))))
}
