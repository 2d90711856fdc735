package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/types"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/template/store"
)

const fetchTimeout = 30 * time.Second

type runOptions struct {
	file     string
	url      string
	query    string
	htmlFile string
	fetch    bool
	vars     map[string]string
}

func (a *app) newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <templateId>",
		Short: "Execute a template once and print the result",
		Long: `Resolve a template and run it through the full pipeline: access
control, validation, variable resolution, sandboxed execution and
execution logging. No browser page is attached.

Examples:
  # Run against saved HTML
  sandbox run products --url https://shop.example.com/p/1 --html page.html

  # Fetch the URL first and run against the raw response
  sandbox run products --url https://shop.example.com/p/1 --fetch

  # Run a template document without a store
  sandbox run products --file products.yaml --html page.html --var currency=EUR`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Template document to run instead of the configured store")
	cmd.Flags().StringVar(&opts.url, "url", "", "Request URL")
	cmd.Flags().StringVar(&opts.query, "query", "", "Search query for keyword-restricted templates")
	cmd.Flags().StringVar(&opts.htmlFile, "html", "", "File with the scraped HTML")
	cmd.Flags().BoolVar(&opts.fetch, "fetch", false, "Fetch --url and pass the raw response to the template")
	cmd.Flags().StringToStringVar(&opts.vars, "var", nil, "Template variable as name=value (repeatable)")

	return cmd
}

func (a *app) run(ctx context.Context, templateID string, opts *runOptions) error {
	s, err := a.open(ctx, opts.file)
	if err != nil {
		return err
	}
	defer s.close()

	ec := &types.ExecutionContext{
		Request:     types.Request{URL: opts.url, Method: "GET"},
		SearchQuery: opts.query,
		Variables:   make(map[string]interface{}, len(opts.vars)),
	}
	for k, v := range opts.vars {
		ec.Variables[k] = v
	}

	html := ""
	if opts.htmlFile != "" {
		data, err := os.ReadFile(opts.htmlFile)
		if err != nil {
			return err
		}
		html = string(data)
	}
	ec.ScrapeResult = types.NewScrapeResult(html)

	if opts.fetch {
		if opts.url == "" {
			return fmt.Errorf("--fetch requires --url")
		}
		resp, err := fetch(ctx, opts.url)
		if err != nil {
			return err
		}
		ec.Response = resp
	}

	res, runErr := s.client.ExecuteTemplate(ctx, templateID, ec)
	if err := a.printJSON(res); err != nil {
		return err
	}
	return runErr
}

// open builds the stack. With a document file the template is served from
// an in-memory store instead of the configured one.
func (a *app) open(ctx context.Context, file string) (*stack, error) {
	cfg, logger, err := a.load()
	if err != nil {
		return nil, err
	}

	var tpl *types.Template
	if file != "" {
		format, ok := store.FormatOf(file)
		if !ok {
			return nil, fmt.Errorf("%s: unsupported template document", file)
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		if tpl, err = store.Decode(data, format); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		cfg.Template.Store = "memory"
	}

	s, err := build(cfg, logger)
	if err != nil {
		return nil, err
	}
	if tpl != nil {
		if err := s.store.(store.Writer).Put(ctx, tpl); err != nil {
			_ = s.close()
			return nil, err
		}
	}
	return s, nil
}

// fetch retrieves url as the raw response a non-browser crawl would hand
// to the sandbox.
func fetch(ctx context.Context, url string) (*types.Response, error) {
	resp, err := resty.New().
		SetTimeout(fetchTimeout).
		SetHeader("User-Agent", "ScrapeSandbox/1.0").
		R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	headers := make(map[string]string, len(resp.Header()))
	for k := range resp.Header() {
		headers[k] = resp.Header().Get(k)
	}
	return &types.Response{
		Status:  resp.StatusCode(),
		Headers: headers,
		Body:    resp.Body(),
	}, nil
}
