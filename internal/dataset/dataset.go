package dataset

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"math/rand"

	"fuzzyga/internal/fuzzy"
)

var (
	ErrNoHeader        = errors.New("dataset has no header row")
	ErrTooFewColumns   = errors.New("dataset needs at least one input column and one output column")
	ErrColumnCount     = errors.New("dataset row column count mismatch")
	ErrInvalidFraction = errors.New("validation fraction must be in [0, 1)")
)

// DataPoint is one sample: crisp inputs and the expected output.
type DataPoint struct {
	Inputs   fuzzy.Inputs
	Expected float64
}

// Dataset is an immutable ordered sequence of data points.
type Dataset struct {
	variables []fuzzy.InputVariable
	output    string
	points    []DataPoint
}

// New copies points into a dataset. Variables and output name are optional
// metadata used for reporting and serialization.
func New(variables []fuzzy.InputVariable, output string, points []DataPoint) *Dataset {
	copied := make([]DataPoint, len(points))
	for i, p := range points {
		inputs := make(fuzzy.Inputs, len(p.Inputs))
		for v, value := range p.Inputs {
			inputs[v] = value
		}
		copied[i] = DataPoint{Inputs: inputs, Expected: p.Expected}
	}
	return &Dataset{
		variables: append([]fuzzy.InputVariable(nil), variables...),
		output:    output,
		points:    copied,
	}
}

func (d *Dataset) Size() int {
	return len(d.points)
}

// Point returns the i-th data point. The returned inputs must not be
// modified.
func (d *Dataset) Point(i int) DataPoint {
	return d.points[i]
}

// All yields every data point in order.
func (d *Dataset) All() iter.Seq2[int, DataPoint] {
	return func(yield func(int, DataPoint) bool) {
		for i, p := range d.points {
			if !yield(i, p) {
				return
			}
		}
	}
}

// Variables returns the input columns in file order.
func (d *Dataset) Variables() []fuzzy.InputVariable {
	return append([]fuzzy.InputVariable(nil), d.variables...)
}

func (d *Dataset) OutputName() string {
	return d.output
}

// Split shuffles the dataset with seed and moves round(fraction*size)
// points into the validation set.
func (d *Dataset) Split(fraction float64, seed int64) (*Dataset, *Dataset, error) {
	if math.IsNaN(fraction) || fraction < 0 || fraction >= 1 {
		return nil, nil, fmt.Errorf("%w: %g", ErrInvalidFraction, fraction)
	}
	n := len(d.points)
	validationSize := int(math.Round(fraction * float64(n)))
	perm := rand.New(rand.NewSource(seed)).Perm(n)

	train := make([]DataPoint, 0, n-validationSize)
	validation := make([]DataPoint, 0, validationSize)
	for i, idx := range perm {
		if i < validationSize {
			validation = append(validation, d.points[idx])
		} else {
			train = append(train, d.points[idx])
		}
	}
	return &Dataset{variables: d.variables, output: d.output, points: train},
		&Dataset{variables: d.variables, output: d.output, points: validation},
		nil
}

// Range returns the observed min and max of variable v. ok is false for an
// empty dataset.
func (d *Dataset) Range(v fuzzy.InputVariable) (lo, hi float64, ok bool) {
	if len(d.points) == 0 {
		return 0, 0, false
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, p := range d.points {
		x := p.Inputs.Value(v)
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi, true
}
