package variables

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/tplerr"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/types"
)

func TestResolvePrecedence(t *testing.T) {
	decls := []types.Variable{
		{Name: "limit", Type: types.VarNumber, DefaultValue: 10, Mapping: &types.VariableMapping{Target: "paging.limit"}},
		{Name: "query", Type: types.VarString, Mapping: &types.VariableMapping{Target: "search.q"}},
		{Name: "headless", Type: types.VarBoolean, DefaultValue: "true"},
	}
	body := map[string]interface{}{
		"paging": map[string]interface{}{"limit": "25"},
		"search": map[string]interface{}{"q": "shoes"},
	}

	tests := []struct {
		name     string
		provided map[string]interface{}
		want     map[string]interface{}
	}{
		{
			name: "body and defaults",
			want: map[string]interface{}{"limit": float64(25), "query": "shoes", "headless": true},
		},
		{
			name:     "caller wins",
			provided: map[string]interface{}{"limit": 3, "headless": false},
			want:     map[string]interface{}{"limit": float64(3), "query": "shoes", "headless": false},
		},
		{
			name:     "null caller value falls through",
			provided: map[string]interface{}{"limit": nil},
			want:     map[string]interface{}{"limit": float64(25), "query": "shoes", "headless": true},
		},
		{
			name:     "undeclared values pass through",
			provided: map[string]interface{}{"extra": []interface{}{"x"}},
			want:     map[string]interface{}{"limit": float64(25), "query": "shoes", "headless": true, "extra": []interface{}{"x"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(decls, tt.provided, body)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveRequired(t *testing.T) {
	decls := []types.Variable{{Name: "sku", Type: types.VarString, Required: true}}

	_, err := Resolve(decls, nil, nil)
	assert.ErrorIs(t, err, tplerr.ErrInvalidVariable)
	assert.Contains(t, err.Error(), "sku")

	got, err := Resolve(decls, map[string]interface{}{"sku": "A1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "A1", got["sku"])
}

func TestResolveOptionalMissingIsOmitted(t *testing.T) {
	got, err := Resolve([]types.Variable{{Name: "page", Type: types.VarNumber}}, nil, nil)
	require.NoError(t, err)
	assert.NotContains(t, got, "page")
}

func TestResolveRejectsBadName(t *testing.T) {
	_, err := Resolve([]types.Variable{{Name: "bad-name", DefaultValue: "x"}}, nil, nil)
	assert.ErrorIs(t, err, tplerr.ErrInvalidVariable)
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name    string
		decl    types.Variable
		in      interface{}
		want    interface{}
		wantErr bool
	}{
		{"number from string", types.Variable{Type: types.VarNumber}, " 4.5 ", 4.5, false},
		{"number from int", types.Variable{Type: types.VarNumber}, 7, float64(7), false},
		{"number rejects text", types.Variable{Type: types.VarNumber}, "many", nil, true},
		{"boolean from string", types.Variable{Type: types.VarBoolean}, "FALSE", false, false},
		{"boolean rejects yes", types.Variable{Type: types.VarBoolean}, "yes", nil, true},
		{"url", types.Variable{Type: types.VarURL}, "https://example.com/a?b=1", "https://example.com/a?b=1", false},
		{"url rejects relative", types.Variable{Type: types.VarURL}, "/a/b", nil, true},
		{"url rejects ftp", types.Variable{Type: types.VarURL}, "ftp://example.com", nil, true},
		{"enum from values", types.Variable{Type: types.VarEnum, Values: []interface{}{"asc", "desc"}}, "desc", "desc", false},
		{"enum from options", types.Variable{Type: types.VarEnum, Options: []interface{}{float64(10), float64(20)}}, "20", float64(20), false},
		{"enum rejects other", types.Variable{Type: types.VarEnum, Values: []interface{}{"asc"}}, "up", nil, true},
		{"string from number", types.Variable{Type: types.VarString}, 12, "12", false},
		{"string rejects object", types.Variable{Type: types.VarString}, map[string]interface{}{}, nil, true},
		{"untyped is string", types.Variable{}, "x", "x", false},
		{"unknown type", types.Variable{Type: "date"}, "x", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.decl.Name = "v"
			got, err := Coerce(tt.decl, tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, tplerr.ErrInvalidVariable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPath(t *testing.T) {
	doc := map[string]interface{}{
		"a": map[string]interface{}{
			"items": []interface{}{map[string]interface{}{"id": "first"}},
		},
	}
	v, ok := Path(doc, "a.items.0.id")
	assert.True(t, ok)
	assert.Equal(t, "first", v)

	for _, p := range []string{"", "b", "a.items.1.id", "a.items.x", "a.items.0.id.deeper"} {
		_, ok := Path(doc, p)
		assert.False(t, ok, p)
	}
}
