package tplerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind groups error codes by the stage that produced them
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAccessControl Kind = "access_control"
	KindSandbox       Kind = "sandbox"
	KindNotFound      Kind = "not_found"
)

// Code is the stable wire identifier of an error
type Code string

const (
	// Validation
	InvalidSyntax     Code = "INVALID_SYNTAX"
	SecurityViolation Code = "SECURITY_VIOLATION"
	TooLong           Code = "CODE_TOO_LONG"
	TooDeep           Code = "NESTING_TOO_DEEP"
	TooManyLoops      Code = "TOO_MANY_LOOPS"
	InvalidVariable   Code = "INVALID_VARIABLE"

	// Access control
	DomainNotAllowed   Code = "DOMAIN_NOT_ALLOWED"
	PatternNotAllowed  Code = "PATTERN_NOT_ALLOWED"
	InvalidURL         Code = "INVALID_URL"
	InvalidRestriction Code = "INVALID_RESTRICTION"

	// Sandbox
	CapabilityDenied   Code = "CAPABILITY_DENIED"
	CallBudgetExceeded Code = "CALL_BUDGET_EXCEEDED"
	ModificationDenied Code = "MODIFICATION_DENIED"
	Timeout            Code = "TIMEOUT"
	RuntimeError       Code = "RUNTIME_ERROR"

	// Lookup
	TemplateNotFound Code = "TEMPLATE_NOT_FOUND"
)

var codeKinds = map[Code]Kind{
	InvalidSyntax:      KindValidation,
	SecurityViolation:  KindValidation,
	TooLong:            KindValidation,
	TooDeep:            KindValidation,
	TooManyLoops:       KindValidation,
	InvalidVariable:    KindValidation,
	DomainNotAllowed:   KindAccessControl,
	PatternNotAllowed:  KindAccessControl,
	InvalidURL:         KindAccessControl,
	InvalidRestriction: KindAccessControl,
	CapabilityDenied:   KindSandbox,
	CallBudgetExceeded: KindSandbox,
	ModificationDenied: KindSandbox,
	Timeout:            KindSandbox,
	RuntimeError:       KindSandbox,
	TemplateNotFound:   KindNotFound,
}

// Kind returns the kind a code belongs to
func (c Code) Kind() Kind {
	return codeKinds[c]
}

// Sentinels for errors.Is. Matching is by Code only.
var (
	ErrInvalidSyntax      = &Error{Code: InvalidSyntax}
	ErrSecurityViolation  = &Error{Code: SecurityViolation}
	ErrTooLong            = &Error{Code: TooLong}
	ErrTooDeep            = &Error{Code: TooDeep}
	ErrTooManyLoops       = &Error{Code: TooManyLoops}
	ErrInvalidVariable    = &Error{Code: InvalidVariable}
	ErrDomainNotAllowed   = &Error{Code: DomainNotAllowed}
	ErrPatternNotAllowed  = &Error{Code: PatternNotAllowed}
	ErrInvalidURL         = &Error{Code: InvalidURL}
	ErrInvalidRestriction = &Error{Code: InvalidRestriction}
	ErrCapabilityDenied   = &Error{Code: CapabilityDenied}
	ErrCallBudgetExceeded = &Error{Code: CallBudgetExceeded}
	ErrModificationDenied = &Error{Code: ModificationDenied}
	ErrTimeout            = &Error{Code: Timeout}
	ErrRuntime            = &Error{Code: RuntimeError}
	ErrTemplateNotFound   = &Error{Code: TemplateNotFound}
)

// Error is the single error type surfaced by the sandbox and its orchestrator
type Error struct {
	Kind       Kind
	Code       Code
	Message    string
	TemplateID string
	Violations []string
	Err        error
}

// New creates an error for code with a formatted message
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    code.Kind(),
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates an error for code that keeps err as its cause
func Wrap(code Code, err error, format string, args ...interface{}) *Error {
	e := New(code, format, args...)
	e.Err = err
	return e
}

// WithTemplate tags the error with a template id and returns it
func (e *Error) WithTemplate(templateID string) *Error {
	e.TemplateID = templateID
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.TemplateID != "" {
		b.WriteString(" [template ")
		b.WriteString(e.TemplateID)
		b.WriteString("]")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// As extracts the first *Error in err's chain
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the code of err, or RuntimeError for foreign errors
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	if e, ok := As(err); ok {
		return e.Code
	}
	return RuntimeError
}

// Info is the user-visible shape of a rejected run
type Info struct {
	Kind       Kind     `json:"kind"`
	Code       Code     `json:"code"`
	Message    string   `json:"message"`
	Violations []string `json:"violations,omitempty"`
}

// InfoOf converts any error into its structured form
func InfoOf(err error) *Info {
	if err == nil {
		return nil
	}
	if e, ok := As(err); ok {
		return &Info{Kind: e.Kind, Code: e.Code, Message: e.Message, Violations: e.Violations}
	}
	return &Info{Kind: KindSandbox, Code: RuntimeError, Message: err.Error()}
}
