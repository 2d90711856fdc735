package store

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/sandbox/pattern"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/id"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/tplerr"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/types"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/utils"
)

// Format is the serialization of a template document
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf derives the format from a file extension
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".toml":
		return FormatTOML, true
	}
	return "", false
}

// CodeDocument is the serialized code payload
type CodeDocument struct {
	Source   string `json:"source" yaml:"source" toml:"source"`
	Language string `json:"language,omitempty" yaml:"language,omitempty" toml:"language,omitempty"`
}

// Document is the serialized form of a template shared by the file store
// and the remote registry. Restrictions are kept raw so every accepted
// shape goes through pattern.ParseRestriction.
type Document struct {
	TemplateID      string           `json:"templateId" yaml:"templateId" toml:"templateId"`
	UUID            string           `json:"uuid,omitempty" yaml:"uuid,omitempty" toml:"uuid,omitempty"`
	Name            string           `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Status          string           `json:"status,omitempty" yaml:"status,omitempty" toml:"status,omitempty"`
	Trusted         bool             `json:"trusted" yaml:"trusted" toml:"trusted"`
	Code            CodeDocument     `json:"code" yaml:"code" toml:"code"`
	AllowedDomains  interface{}      `json:"allowedDomains,omitempty" yaml:"allowedDomains,omitempty" toml:"allowedDomains,omitempty"`
	AllowedKeywords interface{}      `json:"allowedKeywords,omitempty" yaml:"allowedKeywords,omitempty" toml:"allowedKeywords,omitempty"`
	Variables       []types.Variable `json:"variables,omitempty" yaml:"variables,omitempty" toml:"variables,omitempty"`
	CreditsPerRun   int              `json:"creditsPerRun,omitempty" yaml:"creditsPerRun,omitempty" toml:"creditsPerRun,omitempty"`
	CreatedAt       time.Time        `json:"createdAt" yaml:"createdAt" toml:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt" yaml:"updatedAt" toml:"updatedAt"`
}

// Decode parses a template document in the given format
func Decode(data []byte, format Format) (*types.Template, error) {
	var doc Document
	var err error
	switch format {
	case FormatJSON:
		err = sonic.Unmarshal(data, &doc)
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatTOML:
		err = toml.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("unsupported template format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s template: %w", format, err)
	}
	return doc.Template()
}

// Template validates the document and converts it
func (d *Document) Template() (*types.Template, error) {
	if err := utils.ValidateTemplateID(d.TemplateID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(d.Code.Source) == "" {
		return nil, fmt.Errorf("template %q has no code", d.TemplateID)
	}

	domains, err := pattern.ParseRestriction(d.AllowedDomains)
	if err != nil {
		return nil, tplerr.Wrap(tplerr.InvalidRestriction, err, "allowedDomains: %s", err.Error()).WithTemplate(d.TemplateID)
	}
	keywords, err := pattern.ParseRestriction(d.AllowedKeywords)
	if err != nil {
		return nil, tplerr.Wrap(tplerr.InvalidRestriction, err, "allowedKeywords: %s", err.Error()).WithTemplate(d.TemplateID)
	}

	t := &types.Template{
		TemplateID:      d.TemplateID,
		UUID:            d.UUID,
		Name:            d.Name,
		Status:          types.TemplateStatus(d.Status),
		Trusted:         d.Trusted,
		Code:            types.Code{Source: d.Code.Source, Language: types.Language(d.Code.Language)},
		AllowedDomains:  domains,
		AllowedKeywords: keywords,
		Variables:       d.Variables,
		CreditsPerRun:   d.CreditsPerRun,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	normalize(t)
	return t, nil
}

// FromTemplate converts a template back into its document form
func FromTemplate(t *types.Template) Document {
	d := Document{
		TemplateID:    t.TemplateID,
		UUID:          t.UUID,
		Name:          t.Name,
		Status:        string(t.Status),
		Trusted:       t.Trusted,
		Code:          CodeDocument{Source: t.Code.Source, Language: string(t.Code.Language)},
		Variables:     t.Variables,
		CreditsPerRun: t.CreditsPerRun,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
	if t.AllowedDomains != nil {
		d.AllowedDomains = map[string]interface{}{"type": string(t.AllowedDomains.Type), "patterns": t.AllowedDomains.Patterns}
	}
	if t.AllowedKeywords != nil {
		d.AllowedKeywords = map[string]interface{}{"type": string(t.AllowedKeywords.Type), "patterns": t.AllowedKeywords.Patterns}
	}
	return d
}

// normalize fills defaults every backend agrees on
func normalize(t *types.Template) {
	if t.UUID == "" {
		t.UUID = id.NewTemplateUUID()
	}
	if t.Status == "" {
		t.Status = types.StatusPublished
	}
	if t.Code.Language == "" {
		t.Code.Language = types.LanguageJavaScript
	}
	if t.CreditsPerRun <= 0 {
		t.CreditsPerRun = 1
	}
}
