package types

import "time"

// Language of a template's code payload
type Language string

const (
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
)

// TemplateStatus represents the authoring lifecycle of a template
type TemplateStatus string

const (
	StatusDraft         TemplateStatus = "draft"
	StatusPendingReview TemplateStatus = "pending_review"
	StatusPublished     TemplateStatus = "published"
	StatusArchived      TemplateStatus = "archived"
)

// RestrictionType selects how restriction patterns are compared
type RestrictionType string

const (
	RestrictionGlob  RestrictionType = "glob"
	RestrictionExact RestrictionType = "exact"
)

// Restriction is an allow-list of domain or keyword patterns.
// A nil restriction or one without patterns allows everything.
type Restriction struct {
	Type     RestrictionType `json:"type" yaml:"type" toml:"type"`
	Patterns []string        `json:"patterns" yaml:"patterns" toml:"patterns"`
}

// Empty reports whether the restriction allows all candidates
func (r *Restriction) Empty() bool {
	return r == nil || len(r.Patterns) == 0
}

// VariableType is the declared type of a template variable
type VariableType string

const (
	VarString  VariableType = "string"
	VarNumber  VariableType = "number"
	VarBoolean VariableType = "boolean"
	VarURL     VariableType = "url"
	VarEnum    VariableType = "enum"
)

// VariableMapping points a variable at a dotted path of the request payload
type VariableMapping struct {
	Target string `json:"target" yaml:"target" toml:"target"`
}

// Variable declares one named input of a template
type Variable struct {
	Name         string           `json:"name" yaml:"name" toml:"name"`
	Type         VariableType     `json:"type" yaml:"type" toml:"type"`
	Required     bool             `json:"required" yaml:"required" toml:"required"`
	DefaultValue interface{}      `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty" toml:"defaultValue,omitempty"`
	Mapping      *VariableMapping `json:"mapping,omitempty" yaml:"mapping,omitempty" toml:"mapping,omitempty"`
	Values       []interface{}    `json:"values,omitempty" yaml:"values,omitempty" toml:"values,omitempty"`
	Options      []interface{}    `json:"options,omitempty" yaml:"options,omitempty" toml:"options,omitempty"`
}

// Code is the executable payload of a template
type Code struct {
	Source   string   `json:"source"`
	Language Language `json:"language"`
}

// Template is a published, resolved snapshot of user-authored code
type Template struct {
	TemplateID      string         `json:"templateId"`
	UUID            string         `json:"uuid"`
	Name            string         `json:"name"`
	Status          TemplateStatus `json:"status"`
	Trusted         bool           `json:"trusted"`
	Code            Code           `json:"code"`
	AllowedDomains  *Restriction   `json:"allowedDomains,omitempty"`
	AllowedKeywords *Restriction   `json:"allowedKeywords,omitempty"`
	Variables       []Variable     `json:"variables,omitempty"`
	CreditsPerRun   int            `json:"creditsPerRun"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// VersionMarker returns the monotonic marker used to invalidate validations.
// UpdatedAt wins; CreatedAt is the fallback for never-edited templates.
func (t *Template) VersionMarker() int64 {
	if !t.UpdatedAt.IsZero() {
		return t.UpdatedAt.UnixMilli()
	}
	return t.CreatedAt.UnixMilli()
}

// IsolationStrategy selects the execution back-end for a template
type IsolationStrategy int

const (
	Isolated IsolationStrategy = iota
	Ambient
)

// String returns the string representation of the strategy
func (s IsolationStrategy) String() string {
	switch s {
	case Isolated:
		return "isolated"
	case Ambient:
		return "ambient"
	default:
		return "unknown"
	}
}

// Strategy derives the isolation strategy from the trust flag
func (t *Template) Strategy() IsolationStrategy {
	if t.Trusted {
		return Ambient
	}
	return Isolated
}
