package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/saintfish/chardet"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/types"
)

// maxBodySize caps a decompressed response body
const maxBodySize = 20 << 20

// errNotText marks a body that decompressed fine but is not text
var errNotText = errors.New("response body is not text")

// ResolveHTML picks the HTML a template sees as context.html: HTML already
// captured by extraction, then the decoded response body, then the live
// page. It never fails. A body that is not text is still used, decoded as
// UTF-8 with invalid bytes replaced; only a body that cannot be
// decompressed falls through to the page.
func ResolveHTML(ctx context.Context, ec *types.ExecutionContext, logger *zap.Logger) string {
	if ec == nil {
		return ""
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if h := ec.ScrapeResult.HTML(); h != "" {
		return h
	}

	if ec.Response != nil && len(ec.Response.Body) > 0 {
		h, err := DecodeBody(ec.Response)
		if err == nil {
			return h
		}
		if errors.Is(err, errNotText) {
			if body, derr := decompress(ec.Response.Body, ec.Response.Header("Content-Encoding")); derr == nil {
				logger.Debug("Response body is not text, decoding lossily", zap.Error(err))
				return strings.ToValidUTF8(string(body), "\uFFFD")
			}
		}
		logger.Debug("Response body unusable as HTML", zap.Error(err))
	}

	if ec.Page != nil && !ec.Page.IsClosed() {
		v, err := ec.Page.Invoke(ctx, "content")
		if err != nil {
			logger.Warn("Failed to read live page content", zap.Error(err))
			return ""
		}
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// DecodeBody turns a raw response body into UTF-8 text. It undoes the
// Content-Encoding, refuses binary payloads and transcodes legacy charsets.
func DecodeBody(resp *types.Response) (string, error) {
	body, err := decompress(resp.Body, resp.Header("Content-Encoding"))
	if err != nil {
		return "", err
	}
	if !isText(body) {
		return "", fmt.Errorf("%w: detected %s", errNotText, mimetype.Detect(body).String())
	}
	return transcode(body, resp.Header("Content-Type"))
}

func decompress(body []byte, encoding string) ([]byte, error) {
	var r io.Reader
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return body, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		r = zr
	case "deflate":
		// Servers disagree on whether deflate carries a zlib header.
		zr, err := zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			fr := flate.NewReader(bytes.NewReader(body))
			defer fr.Close()
			r = fr
		} else {
			defer zr.Close()
			r = zr
		}
	case "zstd":
		zr, err := zstd.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer zr.Close()
		r = zr
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}

	out, err := io.ReadAll(io.LimitReader(r, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", encoding, err)
	}
	if len(out) > maxBodySize {
		return nil, fmt.Errorf("decompressed body exceeds %d bytes", maxBodySize)
	}
	return out, nil
}

func isText(body []byte) bool {
	for m := mimetype.Detect(body); m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

func transcode(body []byte, contentType string) (string, error) {
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if !certain && utf8.Valid(body) {
		return string(body), nil
	}
	if !certain {
		if best, err := chardet.NewTextDetector().DetectBest(body); err == nil {
			if e, n := charset.Lookup(best.Charset); e != nil {
				enc, name = e, n
			}
		}
	}
	if name == "utf-8" {
		return string(body), nil
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", name, err)
	}
	return string(out), nil
}
