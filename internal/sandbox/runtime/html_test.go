package runtime

import (
	"bytes"
	"context"
	"testing"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/types"
)

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func zstded(t *testing.T, s string) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()
	return enc.EncodeAll([]byte(s), nil)
}

func TestResolveHTMLOrder(t *testing.T) {
	page := &fakePage{}
	body := []byte("<html><body>from body</body></html>")

	tests := []struct {
		name string
		ec   *types.ExecutionContext
		want string
		live bool
	}{
		{
			name: "captured html wins",
			ec: &types.ExecutionContext{
				ScrapeResult: types.NewScrapeResult("<p>captured</p>"),
				Response:     &types.Response{Status: 200, Body: body},
				Page:         page,
			},
			want: "<p>captured</p>",
		},
		{
			name: "response body before page",
			ec: &types.ExecutionContext{
				ScrapeResult: types.NewScrapeResult(""),
				Response:     &types.Response{Status: 200, Body: body},
				Page:         page,
			},
			want: string(body),
		},
		{
			name: "live page last",
			ec:   &types.ExecutionContext{Page: page},
			want: "<html><head><title>Live</title></head><body><h1>live</h1></body></html>",
			live: true,
		},
		{
			name: "closed page is not read",
			ec:   &types.ExecutionContext{Page: &fakePage{closed: true}},
			want: "",
		},
		{
			name: "nothing available",
			ec:   &types.ExecutionContext{},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page.invoked = nil
			assert.Equal(t, tt.want, ResolveHTML(context.Background(), tt.ec, nil))
			if tt.live {
				assert.Equal(t, []string{"content"}, page.calls())
			} else {
				assert.Empty(t, page.calls())
			}
		})
	}
}

func TestDecodeBodyEncodings(t *testing.T) {
	const doc = "<html><body><p>héllo</p></body></html>"

	tests := []struct {
		name     string
		encoding string
		body     []byte
	}{
		{"identity", "", []byte(doc)},
		{"gzip", "gzip", gzipped(t, doc)},
		{"zstd", "zstd", zstded(t, doc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &types.Response{
				Headers: map[string]string{"content-encoding": tt.encoding, "Content-Type": "text/html; charset=utf-8"},
				Body:    tt.body,
			}
			got, err := DecodeBody(resp)
			require.NoError(t, err)
			assert.Equal(t, doc, got)
		})
	}
}

func TestDecodeBodyTranscodesLatin1(t *testing.T) {
	// "café" in ISO-8859-1
	body := []byte("<html><body>caf\xe9</body></html>")
	resp := &types.Response{
		Headers: map[string]string{"Content-Type": "text/html; charset=iso-8859-1"},
		Body:    body,
	}
	got, err := DecodeBody(resp)
	require.NoError(t, err)
	assert.Contains(t, got, "café")
}

func TestDecodeBodyRejectsBinary(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	_, err := DecodeBody(&types.Response{Body: png})
	assert.Error(t, err)
}

func TestDecodeBodyRejectsUnknownEncoding(t *testing.T) {
	_, err := DecodeBody(&types.Response{
		Headers: map[string]string{"Content-Encoding": "br"},
		Body:    []byte("x"),
	})
	assert.ErrorContains(t, err, "br")
}

func TestResolveHTMLFallsThroughBadBody(t *testing.T) {
	ec := &types.ExecutionContext{
		Response: &types.Response{Headers: map[string]string{"Content-Encoding": "gzip"}, Body: []byte("not gzip")},
		Page:     &fakePage{},
	}
	assert.Contains(t, ResolveHTML(context.Background(), ec, nil), "<h1>live</h1>")
}

func TestResolveHTMLDecodesBinaryBodyLossily(t *testing.T) {
	page := &fakePage{}
	ec := &types.ExecutionContext{
		Response: &types.Response{Body: []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\xff\xfe")},
		Page:     page,
	}

	got := ResolveHTML(context.Background(), ec, nil)
	assert.Contains(t, got, "PNG")
	assert.Contains(t, got, "IHDR")
	assert.True(t, utf8.ValidString(got))
	assert.Empty(t, page.calls(), "a readable body must not fall through to the page")
}
