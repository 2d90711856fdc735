package store

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/id"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/tplerr"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/types"
)

func sampleTemplate() *types.Template {
	return &types.Template{
		TemplateID: "product-page",
		Name:       "Product page",
		Trusted:    true,
		Code:       types.Code{Source: "return context.title", Language: types.LanguageJavaScript},
		AllowedDomains: &types.Restriction{
			Type:     types.RestrictionGlob,
			Patterns: []string{"*.example.com"},
		},
		Variables: []types.Variable{
			{Name: "limit", Type: types.VarNumber, DefaultValue: float64(10)},
		},
		CreditsPerRun: 2,
		UpdatedAt:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(sampleTemplate())

	got, err := s.Get(ctx, "product-page")
	require.NoError(t, err)
	assert.Equal(t, "Product page", got.Name)
	assert.Equal(t, types.StatusPublished, got.Status)
	assert.True(t, id.IsTemplateUUID(got.UUID))

	got.AllowedDomains.Patterns[0] = "mutated"
	again, err := s.Get(ctx, "product-page")
	require.NoError(t, err)
	assert.Equal(t, "*.example.com", again.AllowedDomains.Patterns[0])

	require.NoError(t, s.Delete(ctx, "product-page"))
	_, err = s.Get(ctx, "product-page")
	assert.ErrorIs(t, err, tplerr.ErrTemplateNotFound)
}

func TestMemoryStoreReplaceMovesVersionMarker(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	tpl := &types.Template{TemplateID: "edited", Code: types.Code{Source: "return 1"}}
	require.NoError(t, s.Put(ctx, tpl))
	first, err := s.Get(ctx, "edited")
	require.NoError(t, err)
	assert.NotZero(t, first.VersionMarker())

	tpl.Code.Source = "return 2"
	require.NoError(t, s.Put(ctx, tpl))
	second, err := s.Get(ctx, "edited")
	require.NoError(t, err)
	assert.Greater(t, second.VersionMarker(), first.VersionMarker())

	// An explicit but stale timestamp cannot move the marker backwards.
	stale := sampleTemplate()
	stale.TemplateID = "edited"
	stale.UpdatedAt = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Put(ctx, stale))
	third, err := s.Get(ctx, "edited")
	require.NoError(t, err)
	assert.Greater(t, third.VersionMarker(), second.VersionMarker())
}

func TestSQLiteStoreRejectsCorruptTimestamp(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put(ctx, sampleTemplate()))
	_, err = s.DB().ExecContext(ctx, "UPDATE templates SET updated_at = 'yesterday' WHERE template_id = ?", "product-page")
	require.NoError(t, err)

	_, err = s.Get(ctx, "product-page")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "updated_at")
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "templates.db"))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get(ctx, "product-page")
	assert.ErrorIs(t, err, tplerr.ErrTemplateNotFound)

	tpl := sampleTemplate()
	require.NoError(t, s.Put(ctx, tpl))

	got, err := s.Get(ctx, "product-page")
	require.NoError(t, err)
	assert.Equal(t, tpl.Name, got.Name)
	assert.True(t, got.Trusted)
	assert.Equal(t, tpl.Code, got.Code)
	assert.Equal(t, tpl.AllowedDomains, got.AllowedDomains)
	assert.Nil(t, got.AllowedKeywords)
	assert.Equal(t, tpl.Variables, got.Variables)
	assert.Equal(t, 2, got.CreditsPerRun)
	assert.Equal(t, tpl.UpdatedAt.UnixMilli(), got.VersionMarker())
	assert.False(t, got.CreatedAt.IsZero())

	tpl.UpdatedAt = tpl.UpdatedAt.Add(time.Hour)
	tpl.Code.Source = "return 2"
	require.NoError(t, s.Put(ctx, tpl))

	got, err = s.Get(ctx, "product-page")
	require.NoError(t, err)
	assert.Equal(t, "return 2", got.Code.Source)
	assert.Equal(t, tpl.UpdatedAt.UnixMilli(), got.VersionMarker())

	ids, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"product-page"}, ids)
}

func TestSQLiteStoreInMemory(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put(ctx, sampleTemplate()))
	_, err = s.Get(ctx, "product-page")
	require.NoError(t, err)
}

func TestDecodeFormats(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		data   string
	}{
		{
			name:   "yaml",
			format: FormatYAML,
			data: `
templateId: listing
name: Listing
trusted: false
code:
  source: return 1
allowedDomains:
  type: exact
  patterns: [shop.example.com]
allowedKeywords: "shoes, boots"
variables:
  - name: limit
    type: number
    defaultValue: 5
updatedAt: 2025-01-02T03:04:05Z
`,
		},
		{
			name:   "toml",
			format: FormatTOML,
			data: `
templateId = "listing"
name = "Listing"
trusted = false
allowedDomains = { type = "exact", patterns = ["shop.example.com"] }
allowedKeywords = ["shoes", "boots"]
updatedAt = 2025-01-02T03:04:05Z

[code]
source = "return 1"

[[variables]]
name = "limit"
type = "number"
defaultValue = 5
`,
		},
		{
			name:   "json",
			format: FormatJSON,
			data: `{
				"templateId": "listing",
				"name": "Listing",
				"code": {"source": "return 1"},
				"allowedDomains": {"type": "exact", "patterns": ["shop.example.com"]},
				"allowedKeywords": "shoes,boots",
				"variables": [{"name": "limit", "type": "number", "defaultValue": 5}],
				"updatedAt": "2025-01-02T03:04:05Z"
			}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl, err := Decode([]byte(tt.data), tt.format)
			require.NoError(t, err)
			assert.Equal(t, "listing", tpl.TemplateID)
			assert.Equal(t, "return 1", tpl.Code.Source)
			assert.Equal(t, types.LanguageJavaScript, tpl.Code.Language)
			assert.Equal(t, &types.Restriction{Type: types.RestrictionExact, Patterns: []string{"shop.example.com"}}, tpl.AllowedDomains)
			assert.Equal(t, []string{"shoes", "boots"}, tpl.AllowedKeywords.Patterns)
			require.Len(t, tpl.Variables, 1)
			assert.EqualValues(t, 5, tpl.Variables[0].DefaultValue)
			assert.Equal(t, 1, tpl.CreditsPerRun)
			assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC).UnixMilli(), tpl.VersionMarker())
		})
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
		code tplerr.Code
	}{
		{"missing id", `{"code": {"source": "return 1"}}`, ""},
		{"missing code", `{"templateId": "x"}`, ""},
		{"bad restriction", `{"templateId": "x", "code": {"source": "1"}, "allowedDomains": 42}`, tplerr.InvalidRestriction},
		{"bad restriction type", `{"templateId": "x", "code": {"source": "1"}, "allowedDomains": {"type": "regex", "patterns": ["a"]}}`, tplerr.InvalidRestriction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data), FormatJSON)
			require.Error(t, err)
			if tt.code != "" {
				assert.Equal(t, tt.code, tplerr.CodeOf(err))
			}
		})
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yaml"), "templateId: alpha\ncode:\n  source: return 'a'\n")
	writeFile(t, filepath.Join(dir, "nested", "b.toml"), "templateId = \"beta\"\n[code]\nsource = \"return 'b'\"\n")
	writeFile(t, filepath.Join(dir, "c.json"), `{"templateId": "gamma", "code": {"source": "return 'c'"}}`)
	writeFile(t, filepath.Join(dir, "broken.json"), `{"templateId": `)
	writeFile(t, filepath.Join(dir, "README.md"), "# not a template")

	s, err := NewFileStore(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())

	for id, src := range map[string]string{"alpha": "return 'a'", "beta": "return 'b'", "gamma": "return 'c'"} {
		tpl, err := s.Get(context.Background(), id)
		require.NoError(t, err, id)
		assert.Equal(t, src, tpl.Code.Source)
	}

	_, err = s.Get(context.Background(), "broken")
	assert.ErrorIs(t, err, tplerr.ErrTemplateNotFound)
}

func TestFileStoreVersionFromModTime(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.yaml")
	writeFile(t, path, "templateId: alpha\ncode:\n  source: return 1\n")
	stamp := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, stamp, stamp))

	s, err := NewFileStore(dir, nil)
	require.NoError(t, err)
	tpl, err := s.Get(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Equal(t, stamp.UnixMilli(), tpl.VersionMarker())
}

func TestFileStoreMissingDir(t *testing.T) {
	_, err := NewFileStore(filepath.Join(t.TempDir(), "absent"), nil)
	assert.Error(t, err)
}

func TestFileStoreWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.yaml")
	writeFile(t, path, "templateId: alpha\ncode:\n  source: return 1\n")

	s, err := NewFileStore(dir, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 16)
	require.NoError(t, s.Watch(ctx, func(id string) { changed <- id }))

	writeFile(t, path, "templateId: alpha\ncode:\n  source: return 2\n")
	select {
	case id := <-changed:
		assert.Equal(t, "alpha", id)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}
	assert.Eventually(t, func() bool {
		tpl, err := s.Get(context.Background(), "alpha")
		return err == nil && tpl.Code.Source == "return 2"
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(path))
	assert.Eventually(t, func() bool {
		_, err := s.Get(context.Background(), "alpha")
		return tplerr.CodeOf(err) == tplerr.TemplateNotFound
	}, 5*time.Second, 20*time.Millisecond)
}

func TestRemoteStore(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/templates/product-page":
			body, _ := sonic.Marshal(FromTemplate(sampleTemplate()))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(body)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s, err := NewRemoteStore(RemoteConfig{BaseURL: srv.URL, Token: "secret", RetryMax: 1, RetryWaitMin: time.Millisecond, RetryWaitMax: time.Millisecond})
	require.NoError(t, err)

	tpl, err := s.Get(context.Background(), "product-page")
	require.NoError(t, err)
	assert.Equal(t, "Product page", tpl.Name)
	assert.Equal(t, []string{"*.example.com"}, tpl.AllowedDomains.Patterns)
	assert.Equal(t, 2, tpl.CreditsPerRun)

	for i := 0; i < 10; i++ {
		_, err = s.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, tplerr.ErrTemplateNotFound)
	}
	assert.Equal(t, resilience.StateClosed, s.Breaker().State(), "not-found does not trip the breaker")
}

func TestRemoteStoreBreakerOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s, err := NewRemoteStore(RemoteConfig{
		BaseURL:      srv.URL,
		RetryMax:     1,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: time.Millisecond,
		Breaker: resilience.Settings{
			ReadyToTrip: func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 2 },
			Timeout:     time.Minute,
		},
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = s.Get(context.Background(), "any")
		require.Error(t, err)
		assert.NotErrorIs(t, err, tplerr.ErrTemplateNotFound)
	}
	assert.Equal(t, resilience.StateOpen, s.Breaker().State())

	before := hits.Load()
	_, err = s.Get(context.Background(), "any")
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, before, hits.Load())
}

func TestNewRemoteStoreRequiresURL(t *testing.T) {
	_, err := NewRemoteStore(RemoteConfig{})
	assert.Error(t, err)
}
