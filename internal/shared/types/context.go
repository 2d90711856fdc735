package types

import (
	"strings"
	"sync"
)

// Request is the crawl request a template runs for
type Request struct {
	URL     string                 `json:"url"`
	Method  string                 `json:"method"`
	Headers map[string]string      `json:"headers,omitempty"`
	Body    map[string]interface{} `json:"body,omitempty"`
}

// Response is the raw HTTP response of a non-browser fetch
type Response struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    []byte            `json:"-"`
}

// Header returns a response header case-insensitively
func (r *Response) Header(name string) string {
	if r == nil {
		return ""
	}
	if v, ok := r.Headers[name]; ok {
		return v
	}
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// ScrapeResult is the extraction output, possibly still being filled
// by a concurrent extractor while the template runs.
type ScrapeResult struct {
	mu   sync.RWMutex
	html string
	data map[string]interface{}
}

// NewScrapeResult creates a scrape result with optional pre-captured HTML
func NewScrapeResult(html string) *ScrapeResult {
	return &ScrapeResult{html: html, data: make(map[string]interface{})}
}

// SetHTML records the raw HTML captured by extraction
func (s *ScrapeResult) SetHTML(html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.html = html
}

// HTML returns the captured raw HTML
func (s *ScrapeResult) HTML() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.html
}

// Set stores one extracted field
func (s *ScrapeResult) Set(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = make(map[string]interface{})
	}
	s.data[key] = value
}

// Snapshot returns a copy of the extracted fields
func (s *ScrapeResult) Snapshot() map[string]interface{} {
	out := make(map[string]interface{})
	if s == nil {
		return out
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, v := range s.data {
		out[k] = v
	}
	return out
}

// ExecutionContext is owned by exactly one template execution.
// Page is borrowed and may be used concurrently by extraction.
type ExecutionContext struct {
	TemplateID   string
	JobID        string
	RequestID    string
	Request      Request
	SearchQuery  string
	Variables    map[string]interface{}
	UserData     map[string]interface{}
	ScrapeResult *ScrapeResult
	Page         Page
	Response     *Response
}
