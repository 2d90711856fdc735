package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/sandbox/access"
)

type checkReport struct {
	TemplateID string         `json:"templateId"`
	URL        string         `json:"url"`
	Domain     access.Result  `json:"domain"`
	Keyword    *access.Result `json:"keyword,omitempty"`
}

func (a *app) newCheckCmd() *cobra.Command {
	var file, query string

	cmd := &cobra.Command{
		Use:   "check <templateId> <url>",
		Short: "Check a URL against a template's domain restrictions",
		Long: `Report whether a template may run for a URL (and, with --query, a
search query) without executing it. Exits non-zero when denied.

Examples:
  sandbox check products https://shop.example.com/p/1
  sandbox check search https://www.google.com/ --query "running shoes"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.check(cmd.Context(), args[0], args[1], query, file)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Template document to check instead of the configured store")
	cmd.Flags().StringVar(&query, "query", "", "Search query to check against allowed keywords")
	return cmd
}

func (a *app) check(ctx context.Context, templateID, url, query, file string) error {
	s, err := a.open(ctx, file)
	if err != nil {
		return err
	}
	defer s.close()

	tpl, err := s.client.Resolve(ctx, templateID)
	if err != nil {
		return err
	}

	report := checkReport{
		TemplateID: templateID,
		URL:        url,
		Domain:     s.client.ValidateDomainRestrictions(tpl, url),
	}
	allowed := report.Domain.IsValid
	if query != "" {
		kw := s.client.ValidateKeywordRestrictions(tpl, query)
		report.Keyword = &kw
		allowed = allowed && kw.IsValid
	}

	if err := a.printJSON(report); err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("template %q is not allowed for %s", templateID, url)
	}
	return nil
}
