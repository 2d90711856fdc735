package analyzer

import "regexp"

// Violation is one rule that fired
type Violation struct {
	Rule     string   `json:"rule"`
	Category Category `json:"category"`
	Message  string   `json:"message"`
}

// Report is the outcome of a scan
type Report struct {
	Safe       bool        `json:"safe"`
	Violations []Violation `json:"violations"`
}

// Messages returns the violation messages in rule order
func (r Report) Messages() []string {
	out := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		out[i] = v.Message
	}
	return out
}

// Rules returns the names of the rules that fired
func (r Report) Rules() []string {
	out := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		out[i] = v.Rule
	}
	return out
}

// Scanner is anything that can scan source text
type Scanner interface {
	Scan(code string) Report
}

// Analyzer runs a rule table over raw source text. It does not parse the
// code, so matches inside comments and string literals are reported too.
type Analyzer struct {
	rules []Rule
}

// New creates an analyzer over rules; nil selects DefaultRules
func New(rules []Rule) *Analyzer {
	if rules == nil {
		rules = DefaultRules
	}
	return &Analyzer{rules: rules}
}

// Default returns an analyzer with the default rule table
func Default() *Analyzer {
	return New(nil)
}

// Scan reports every rule that matches anywhere in code
func (a *Analyzer) Scan(code string) Report {
	report := Report{Safe: true, Violations: []Violation{}}
	for _, rule := range a.rules {
		if rule.Pattern.MatchString(code) {
			report.Violations = append(report.Violations, Violation{
				Rule:     rule.Name,
				Category: rule.Category,
				Message:  rule.Message,
			})
		}
	}
	report.Safe = len(report.Violations) == 0
	return report
}

// Rules returns a copy of the analyzer's rule table
func (a *Analyzer) Rules() []Rule {
	return append([]Rule(nil), a.rules...)
}

// WithRule returns a new analyzer with an extra rule appended
func (a *Analyzer) WithRule(name string, category Category, pattern, message string) (*Analyzer, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	rules := append(a.Rules(), Rule{Name: name, Category: category, Pattern: re, Message: message})
	return New(rules), nil
}
