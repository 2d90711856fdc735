package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/bytedance/sonic"
)

const (
	// MaxVariablesSize bounds the encoded size of caller-supplied variables
	MaxVariablesSize = 256 * 1024
	// MaxVariablesDepth bounds nesting of caller-supplied variables
	MaxVariablesDepth = 16
	MaxIDLength       = 128
)

var (
	// SafeIDPattern allows alphanumeric, dots, hyphens, underscores
	SafeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
	// IdentifierPattern matches a JavaScript-safe variable name
	IdentifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
)

// ValidateString checks length bounds and rejects NUL bytes.
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if value == "" {
		if required {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}
	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}
	return nil
}

// ValidateTemplateID validates a template identifier used as a store key.
func ValidateTemplateID(id string) error {
	if err := ValidateString(id, "template id", 1, MaxIDLength, true); err != nil {
		return err
	}
	if !SafeIDPattern.MatchString(id) {
		return fmt.Errorf("template id %q contains invalid characters", id)
	}
	return nil
}

// ValidateVariableName validates a declared template variable name.
func ValidateVariableName(name string) error {
	if !IdentifierPattern.MatchString(name) {
		return fmt.Errorf("variable name %q is not a valid identifier", name)
	}
	return nil
}

// ValidateVariablesPayload bounds caller-supplied variables by encoded size
// and nesting depth before they are handed to a template.
func ValidateVariablesPayload(vars map[string]interface{}) error {
	if len(vars) == 0 {
		return nil
	}
	data, err := sonic.Marshal(vars)
	if err != nil {
		return fmt.Errorf("variables are not serializable: %w", err)
	}
	if len(data) > MaxVariablesSize {
		return fmt.Errorf("variables size %d bytes exceeds maximum %d bytes", len(data), MaxVariablesSize)
	}
	return ValidateJSONDepth(vars, MaxVariablesDepth)
}

// ValidateJSONDepth checks that nested maps and slices stay within maxDepth.
func ValidateJSONDepth(data interface{}, maxDepth int) error {
	return checkDepth(data, 0, maxDepth)
}

func checkDepth(data interface{}, currentDepth, maxDepth int) error {
	if currentDepth > maxDepth {
		return fmt.Errorf("nesting depth %d exceeds maximum %d", currentDepth, maxDepth)
	}

	switch v := data.(type) {
	case map[string]interface{}:
		for _, value := range v {
			if err := checkDepth(value, currentDepth+1, maxDepth); err != nil {
				return err
			}
		}
	case []interface{}:
		for _, value := range v {
			if err := checkDepth(value, currentDepth+1, maxDepth); err != nil {
				return err
			}
		}
	}
	return nil
}
