package commands

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/nexus-ptz/ptzctl/internal/errors"
)

var (
	truthy = map[string]bool{"1": true, "true": true, "t": true, "yes": true, "y": true, "on": true}
	falsy  = map[string]bool{"0": true, "false": true, "f": true, "no": true, "n": true, "off": true}
)

// BoolInputs returns the accepted boolean spellings, sorted.
func BoolInputs() []string {
	out := make([]string, 0, len(truthy)+len(falsy))
	for k := range truthy {
		out = append(out, k)
	}
	for k := range falsy {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Coerce converts a caller-supplied value to the wire encoding of p's kind.
// Floats are rendered with at most 10 significant digits.
func Coerce(p ParamSpec, raw any) (string, error) {
	value := stringify(raw)

	switch p.Kind {
	case KindBool:
		lower := strings.ToLower(value)
		if truthy[lower] {
			return "1", nil
		}
		if falsy[lower] {
			return "0", nil
		}
		return "", errors.InvalidParameterValue(p.Name, value, "boolean", BoolInputs())

	case KindFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return "", errors.NewErrorBuilder(errors.KindInvalidParameterValue).
				WithMessage("unable to convert '%s'='%s' to float", p.Name, value).
				WithParam(p.Name).
				WithCause(err).
				Build()
		}
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return "", errors.NewErrorBuilder(errors.KindInvalidParameterValue).
				WithMessage("'%s'='%s' is not a finite number", p.Name, value).
				WithParam(p.Name).
				Build()
		}
		return strconv.FormatFloat(f, 'g', 10, 64), nil

	case KindInt:
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return "", errors.NewErrorBuilder(errors.KindInvalidParameterValue).
				WithMessage("unable to convert '%s'='%s' to int", p.Name, value).
				WithParam(p.Name).
				WithCause(err).
				Build()
		}
		return strconv.FormatInt(n, 10), nil

	default:
		return value, nil
	}
}

// stringify renders loosely typed input (CLI strings, decoded JSON) as text.
func stringify(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return formatNumber(v, 64)
	case float32:
		return formatNumber(float64(v), 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	case fmt.Stringer:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// formatNumber renders a decoded number without exponent notation, so whole
// numbers such as 1000000 still parse as ints.
func formatNumber(f float64, bits int) string {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}

// ResolveParams validates supplied against spec and returns the coerced dynamic
// parameters in declaration order.
//
// Missing required parameters are reported while walking the declarations, in
// declaration order. Undeclared keys are reported only after every declared
// parameter resolved.
func ResolveParams(spec *CommandSpec, supplied map[string]any) (Params, error) {
	resolved := make(Params, 0, len(spec.Params))
	used := make(map[string]bool, len(spec.Params))

	for _, p := range spec.Params {
		raw, ok := supplied[p.Name]
		if !ok {
			if p.Default != nil {
				raw = *p.Default
			} else if p.Required {
				return nil, errors.MissingParameter(spec.Name, p.Name)
			} else {
				continue
			}
		}
		used[p.Name] = true

		value, err := Coerce(p, raw)
		if err != nil {
			var e *errors.Error
			if errors.As(err, &e) && e.Command == "" {
				e.Command = spec.Name
			}
			return nil, err
		}
		resolved = append(resolved, WireParam{Name: p.Name, Value: value})
	}

	var extras []string
	for key := range supplied {
		if !used[key] {
			extras = append(extras, key)
		}
	}
	if len(extras) > 0 {
		sort.Strings(extras)
		return nil, errors.UnexpectedParameter(spec.Name, extras, spec.ParamNames())
	}
	return resolved, nil
}
