package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/sandbox/validator"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/tplerr"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/types"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/template/store"
)

type validateReport struct {
	File       string       `json:"file"`
	TemplateID string       `json:"templateId,omitempty"`
	Valid      bool         `json:"valid"`
	Error      *tplerr.Info `json:"error,omitempty"`
}

func (a *app) newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Statically validate template code",
		Long: `Run the syntax, security and complexity checks on a template.

The file is either a template document (.json, .yaml, .yml, .toml) or a
plain code file whose content is the template body. A .ts code file is
checked as TypeScript.

Examples:
  sandbox validate templates/products.yaml
  sandbox validate extract.js
  sandbox validate extract.ts`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.validate(args[0])
		},
	}
}

func (a *app) validate(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	report := validateReport{File: path}
	src := types.Code{Source: string(data), Language: types.LanguageJavaScript}
	if strings.EqualFold(filepath.Ext(path), ".ts") {
		src.Language = types.LanguageTypeScript
	}
	if format, ok := store.FormatOf(path); ok {
		tpl, err := store.Decode(data, format)
		if err != nil {
			report.Error = tplerr.InfoOf(err)
			if err := a.printJSON(report); err != nil {
				return err
			}
			return fmt.Errorf("%s: %w", path, err)
		}
		report.TemplateID = tpl.TemplateID
		src = tpl.Code
	}

	err = validator.New(nil, validator.DefaultLimits(), nil, nil, nil).CheckSource(src)
	report.Valid = err == nil
	report.Error = tplerr.InfoOf(err)
	if perr := a.printJSON(report); perr != nil {
		return perr
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
