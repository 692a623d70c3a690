package dataset

import (
	"fmt"
	"math"

	"fuzzyga/internal/fuzzy"
)

// Grid samples fn on the regular grid [lo, hi] with the given step over
// every variable. The first variable varies slowest.
func Grid(names []string, output string, lo, hi, step float64, fn func(x []float64) float64) (*Dataset, error) {
	if step <= 0 || math.IsNaN(step) {
		return nil, fmt.Errorf("grid step must be > 0")
	}
	if lo > hi {
		return nil, fmt.Errorf("grid min %g > max %g", lo, hi)
	}
	variables, err := fuzzy.Variables(names...)
	if err != nil {
		return nil, err
	}
	if len(variables) == 0 {
		return nil, ErrTooFewColumns
	}

	var axis []float64
	for i := 0; ; i++ {
		x := lo + float64(i)*step
		if x > hi+step*1e-9 {
			break
		}
		axis = append(axis, x)
	}

	total := 1
	for range variables {
		total *= len(axis)
	}
	points := make([]DataPoint, 0, total)
	x := make([]float64, len(variables))
	for n := 0; n < total; n++ {
		rem := n
		for v := len(variables) - 1; v >= 0; v-- {
			x[v] = axis[rem%len(axis)]
			rem /= len(axis)
		}
		inputs := make(fuzzy.Inputs, len(variables))
		for i, v := range variables {
			inputs[v] = x[i]
		}
		points = append(points, DataPoint{Inputs: inputs, Expected: fn(x)})
	}
	return &Dataset{variables: variables, output: output, points: points}, nil
}

// Benchmark3D is the two-input benchmark surface
// f(x, y) = ((x-1)^2 + (y+2)^2 - 5xy + 3) * cos^2(x/5).
func Benchmark3D(x []float64) float64 {
	a, b := x[0], x[1]
	c := math.Cos(a / 5)
	return ((a-1)*(a-1) + (b+2)*(b+2) - 5*a*b + 3) * c * c
}
