package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/types"
)

func TestParseRestriction(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  *types.Restriction
	}{
		{
			name:  "nil means unrestricted",
			input: nil,
			want:  nil,
		},
		{
			name:  "bare string",
			input: "*.example.com",
			want:  &types.Restriction{Type: types.RestrictionGlob, Patterns: []string{"*.example.com"}},
		},
		{
			name:  "comma separated string",
			input: "example.com, *.example.org",
			want:  &types.Restriction{Type: types.RestrictionGlob, Patterns: []string{"example.com", "*.example.org"}},
		},
		{
			name:  "string list",
			input: []string{"a.com", "b.com,c.com"},
			want:  &types.Restriction{Type: types.RestrictionGlob, Patterns: []string{"a.com", "b.com", "c.com"}},
		},
		{
			name:  "decoded json list",
			input: []interface{}{"a.com"},
			want:  &types.Restriction{Type: types.RestrictionGlob, Patterns: []string{"a.com"}},
		},
		{
			name: "structured exact",
			input: map[string]interface{}{
				"type":     "exact",
				"patterns": []interface{}{"example.com"},
			},
			want: &types.Restriction{Type: types.RestrictionExact, Patterns: []string{"example.com"}},
		},
		{
			name:  "structured without patterns",
			input: map[string]interface{}{"type": "glob"},
			want:  nil,
		},
		{
			name:  "empty list",
			input: []string{" ", ""},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRestriction(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRestrictionRejectsUnknownShapes(t *testing.T) {
	inputs := []interface{}{
		42,
		map[string]interface{}{"type": "regex", "patterns": []interface{}{".*"}},
		map[string]interface{}{"type": 3},
		map[string]interface{}{"patterns": 7},
		[]interface{}{"a.com", 5},
	}

	for _, in := range inputs {
		_, err := ParseRestriction(in)
		assert.ErrorIs(t, err, ErrUnrecognizedRestriction, "input %#v", in)
	}
}
