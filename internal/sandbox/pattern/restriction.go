package pattern

import (
	"errors"
	"fmt"
	"strings"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/types"
)

// ErrUnrecognizedRestriction is returned for restriction values of an unknown shape
var ErrUnrecognizedRestriction = errors.New("unrecognized restriction shape")

// ParseRestriction accepts a bare string, a list of strings or a
// {type, patterns} object. A nil input means "no restriction" and yields
// (nil, nil). Comma-separated entries are split into separate patterns.
func ParseRestriction(input interface{}) (*types.Restriction, error) {
	switch v := input.(type) {
	case nil:
		return nil, nil
	case *types.Restriction:
		if v == nil {
			return nil, nil
		}
		return normalizeRestriction(v.Type, v.Patterns)
	case types.Restriction:
		return normalizeRestriction(v.Type, v.Patterns)
	case string:
		return normalizeRestriction(types.RestrictionGlob, []string{v})
	case []string:
		return normalizeRestriction(types.RestrictionGlob, v)
	case []interface{}:
		patterns, err := stringList(v)
		if err != nil {
			return nil, err
		}
		return normalizeRestriction(types.RestrictionGlob, patterns)
	case map[string]interface{}:
		return parseObject(v)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnrecognizedRestriction, input)
	}
}

func parseObject(obj map[string]interface{}) (*types.Restriction, error) {
	kind := types.RestrictionGlob
	if raw, ok := obj["type"]; ok && raw != nil {
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: type must be a string", ErrUnrecognizedRestriction)
		}
		kind = types.RestrictionType(strings.ToLower(strings.TrimSpace(s)))
	}

	var patterns []string
	switch p := obj["patterns"].(type) {
	case nil:
	case string:
		patterns = []string{p}
	case []string:
		patterns = p
	case []interface{}:
		list, err := stringList(p)
		if err != nil {
			return nil, err
		}
		patterns = list
	default:
		return nil, fmt.Errorf("%w: patterns must be a string or list", ErrUnrecognizedRestriction)
	}

	return normalizeRestriction(kind, patterns)
}

func normalizeRestriction(kind types.RestrictionType, raw []string) (*types.Restriction, error) {
	if kind == "" {
		kind = types.RestrictionGlob
	}
	if kind != types.RestrictionGlob && kind != types.RestrictionExact {
		return nil, fmt.Errorf("%w: unknown type %q", ErrUnrecognizedRestriction, kind)
	}

	patterns := make([]string, 0, len(raw))
	for _, entry := range raw {
		for _, part := range strings.Split(entry, ",") {
			if part = strings.TrimSpace(part); part != "" {
				patterns = append(patterns, part)
			}
		}
	}

	if len(patterns) == 0 {
		return nil, nil
	}
	return &types.Restriction{Type: kind, Patterns: patterns}, nil
}

func stringList(items []interface{}) ([]string, error) {
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%w: pattern %v is not a string", ErrUnrecognizedRestriction, item)
		}
		out = append(out, s)
	}
	return out, nil
}
