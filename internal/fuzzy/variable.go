package fuzzy

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrBlankVariableName = errors.New("input variable name cannot be blank")
	ErrDuplicateVariable = errors.New("duplicate input variable")
)

// InputVariable names one crisp input of a fuzzy system. Variables are
// compared and ordered by name.
type InputVariable struct {
	name string
}

func NewInputVariable(name string) (InputVariable, error) {
	if strings.TrimSpace(name) == "" {
		return InputVariable{}, ErrBlankVariableName
	}
	return InputVariable{name: name}, nil
}

// MustInputVariable is NewInputVariable for static variable names.
func MustInputVariable(name string) InputVariable {
	v, err := NewInputVariable(name)
	if err != nil {
		panic(err)
	}
	return v
}

func (v InputVariable) Name() string {
	return v.name
}

func (v InputVariable) String() string {
	return v.name
}

func (v InputVariable) Compare(other InputVariable) int {
	return strings.Compare(v.name, other.name)
}

// Variables builds input variables from names, keeping their order.
func Variables(names ...string) ([]InputVariable, error) {
	out := make([]InputVariable, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for i, name := range names {
		v, err := NewInputVariable(name)
		if err != nil {
			return nil, fmt.Errorf("variable %d: %w", i, err)
		}
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateVariable, name)
		}
		seen[name] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// Inputs maps input variables to their crisp values.
type Inputs map[InputVariable]float64

// Value returns the crisp value of v, or 0 when v is absent.
func (in Inputs) Value(v InputVariable) float64 {
	return in[v]
}

// InputsFromNames converts a name-keyed map. Blank names are rejected.
func InputsFromNames(values map[string]float64) (Inputs, error) {
	out := make(Inputs, len(values))
	for name, value := range values {
		v, err := NewInputVariable(name)
		if err != nil {
			return nil, err
		}
		out[v] = value
	}
	return out, nil
}

// SortedVariables returns the variables of in ordered by name.
func (in Inputs) SortedVariables() []InputVariable {
	out := make([]InputVariable, 0, len(in))
	for v := range in {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}
