package command

import (
	"errors"
	"sort"
	"strings"

	"github.com/RevCBH/batchq/internal/client"
)

// DefaultParams returns a value for every parameter of t, pre-filled with
// the declared defaults ("" when none).
func DefaultParams(t client.JobType) map[string]string {
	params := make(map[string]string, len(t.Params))
	for _, p := range t.Params {
		params[p.Name] = p.DefaultValue()
	}
	return params
}

// ValidateParams checks params against the declared parameters of t.
// Every declared parameter needs a value (the empty string counts),
// integer parameters must parse, and undeclared names are rejected.
// All problems are returned joined.
func ValidateParams(t client.JobType, params map[string]string) error {
	var errs []error

	for _, p := range t.Params {
		value, ok := params[p.Name]
		if !ok {
			errs = append(errs, &ValidationError{
				Field:   p.Name,
				Message: "missing value for " + p.DisplayTitle(),
			})
			continue
		}
		if err := p.CheckValue(value); err != nil {
			errs = append(errs, &ValidationError{
				Field:   p.Name,
				Value:   value,
				Message: "must be an integer",
			})
		}
	}

	var unknown []string
	for name := range params {
		if _, ok := t.Param(name); !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		errs = append(errs, &ValidationError{
			Field:   name,
			Message: "not a parameter of job type " + t.Name,
		})
	}

	return errors.Join(errs...)
}

// normalizeParams trims whitespace around integer values so "  5" is sent
// as "5". Other values are sent verbatim.
func normalizeParams(t client.JobType, params map[string]string) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		if p, ok := t.Param(k); ok && p.Type == client.ParamInteger {
			v = strings.TrimSpace(v)
		}
		out[k] = v
	}
	return out
}
