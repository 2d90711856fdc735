package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/tplerr"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/types"
)

// RemoteConfig configures the HTTP template registry client
type RemoteConfig struct {
	BaseURL      string
	Token        string
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Breaker      resilience.Settings
	Logger       *zap.Logger
}

// RemoteStore fetches templates from a registry exposing
// GET {base}/templates/{id}. Transient failures are retried, and a
// breaker stops hammering a registry that keeps failing.
type RemoteStore struct {
	client  *resty.Client
	breaker *resilience.Breaker
	logger  *zap.Logger
}

func NewRemoteStore(cfg RemoteConfig) (*RemoteStore, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("remote template store requires a base URL")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 3
	}
	if cfg.RetryWaitMin <= 0 {
		cfg.RetryWaitMin = 200 * time.Millisecond
	}
	if cfg.RetryWaitMax <= 0 {
		cfg.RetryWaitMax = 5 * time.Second
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.Logger = nil

	client := resty.NewWithClient(retryClient.StandardClient()).
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "ScrapeSandbox-Templates/1.0")
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}

	settings := cfg.Breaker
	if settings.Logger == nil {
		settings.Logger = cfg.Logger
	}
	if settings.IsFailure == nil {
		// An unknown template says nothing about registry health.
		settings.IsFailure = func(err error) bool {
			return !errors.Is(err, tplerr.ErrTemplateNotFound)
		}
	}

	return &RemoteStore{
		client:  client,
		breaker: resilience.New("template-registry", settings),
		logger:  cfg.Logger,
	}, nil
}

func (s *RemoteStore) Get(ctx context.Context, templateID string) (*types.Template, error) {
	return resilience.Do(ctx, s.breaker, func(ctx context.Context) (*types.Template, error) {
		return s.fetch(ctx, templateID)
	})
}

func (s *RemoteStore) fetch(ctx context.Context, templateID string) (*types.Template, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetPathParam("id", templateID).
		Get("/templates/{id}")
	if err != nil {
		return nil, fmt.Errorf("fetch template %q: %w", templateID, err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, NotFound(templateID)
	default:
		s.logger.Warn("Template registry error",
			zap.String("template_id", templateID),
			zap.Int("status", resp.StatusCode()))
		return nil, fmt.Errorf("fetch template %q: registry returned %s", templateID, resp.Status())
	}

	var doc Document
	if err := sonic.Unmarshal(resp.Body(), &doc); err != nil {
		return nil, fmt.Errorf("decode template %q: %w", templateID, err)
	}
	if doc.TemplateID == "" {
		doc.TemplateID = templateID
	}
	if doc.TemplateID != templateID {
		return nil, fmt.Errorf("registry returned template %q for %q", doc.TemplateID, templateID)
	}
	return doc.Template()
}

// Breaker exposes the registry breaker for health reporting
func (s *RemoteStore) Breaker() *resilience.Breaker {
	return s.breaker
}
