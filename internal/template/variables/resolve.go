package variables

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/tplerr"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/types"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/utils"
)

// Resolve computes the variables a template sees. For each declaration the
// caller's value wins, then the value at mapping.target in the request
// body, then the default. Caller values without a declaration pass through
// unchanged.
func Resolve(decls []types.Variable, provided map[string]interface{}, body map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(decls)+len(provided))
	for k, v := range provided {
		out[k] = v
	}

	for _, decl := range decls {
		if err := utils.ValidateVariableName(decl.Name); err != nil {
			return nil, tplerr.Wrap(tplerr.InvalidVariable, err, "%s", err.Error())
		}

		raw, ok := lookup(decl, provided, body)
		if !ok {
			if decl.Required {
				return nil, tplerr.New(tplerr.InvalidVariable, "variable %q is required", decl.Name)
			}
			delete(out, decl.Name)
			continue
		}

		v, err := Coerce(decl, raw)
		if err != nil {
			return nil, err
		}
		out[decl.Name] = v
	}
	return out, nil
}

func lookup(decl types.Variable, provided, body map[string]interface{}) (interface{}, bool) {
	if v, ok := provided[decl.Name]; ok && v != nil {
		return v, true
	}
	if decl.Mapping != nil && decl.Mapping.Target != "" {
		if v, ok := Path(body, decl.Mapping.Target); ok && v != nil {
			return v, true
		}
	}
	if decl.DefaultValue != nil {
		return decl.DefaultValue, true
	}
	return nil, false
}

// Path reads a dotted path such as "filters.items.0.id" from a decoded
// JSON document. Numeric segments index arrays.
func Path(doc map[string]interface{}, path string) (interface{}, bool) {
	if doc == nil || path == "" {
		return nil, false
	}
	var cur interface{} = doc
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]interface{}:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []interface{}:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Coerce converts v to the declared type of decl.
func Coerce(decl types.Variable, v interface{}) (interface{}, error) {
	switch decl.Type {
	case types.VarNumber:
		return toNumber(decl.Name, v)
	case types.VarBoolean:
		return toBool(decl.Name, v)
	case types.VarURL:
		return toURL(decl.Name, v)
	case types.VarEnum:
		return toEnum(decl, v)
	case types.VarString, "":
		return toString(decl.Name, v)
	default:
		return nil, tplerr.New(tplerr.InvalidVariable, "variable %q has unknown type %q", decl.Name, decl.Type)
	}
}

func invalid(name, want string, v interface{}) error {
	return tplerr.New(tplerr.InvalidVariable, "variable %q must be a %s, got %v", name, want, v)
}

func toNumber(name string, v interface{}) (interface{}, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil, invalid(name, "number", v)
		}
		return f, nil
	}
	return nil, invalid(name, "number", v)
}

func toBool(name string, v interface{}) (interface{}, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return nil, invalid(name, "boolean", v)
}

func toURL(name string, v interface{}) (interface{}, error) {
	s, ok := v.(string)
	if !ok {
		return nil, invalid(name, "URL", v)
	}
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, invalid(name, "absolute http(s) URL", v)
	}
	return u.String(), nil
}

func toEnum(decl types.Variable, v interface{}) (interface{}, error) {
	choices := append(append([]interface{}(nil), decl.Values...), decl.Options...)
	want := fmt.Sprint(v)
	for _, c := range choices {
		if fmt.Sprint(c) == want {
			return c, nil
		}
	}
	names := make([]string, len(choices))
	for i, c := range choices {
		names[i] = fmt.Sprint(c)
	}
	return nil, tplerr.New(tplerr.InvalidVariable, "variable %q must be one of [%s], got %v",
		decl.Name, strings.Join(names, ", "), v)
}

func toString(name string, v interface{}) (interface{}, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case bool, float64, float32, int, int64, int32, uint64:
		return fmt.Sprint(s), nil
	}
	return nil, invalid(name, "string", v)
}
