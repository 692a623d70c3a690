package fuzzy

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
)

var (
	ErrTNormExists   = errors.New("t-norm already registered")
	ErrTNormNotFound = errors.New("t-norm not found")
)

// TNorm combines two membership degrees (fuzzy AND).
type TNorm func(a, b float64) float64

const (
	TNormEinstein = "einstein"
	TNormProduct  = "product"
	TNormMin      = "min"
	TNormHamacher = "hamacher"
)

// EinsteinProduct is T(a,b) = ab / (2 - (a + b - ab)). The denominator is
// at least 1 for degrees in [0, 1].
func EinsteinProduct(a, b float64) float64 {
	return (a * b) / (2 - (a + b - a*b))
}

func AlgebraicProduct(a, b float64) float64 {
	return a * b
}

func Minimum(a, b float64) float64 {
	return math.Min(a, b)
}

// HamacherProduct is T(a,b) = ab / (a + b - ab), with T(0,0) = 0.
func HamacherProduct(a, b float64) float64 {
	den := a + b - a*b
	if den == 0 {
		return 0
	}
	return (a * b) / den
}

// Aggregate folds values left to right with t, starting from the t-norm
// identity 1.
func Aggregate(values []float64, t TNorm) float64 {
	acc := 1.0
	for _, v := range values {
		acc = t(acc, v)
	}
	return acc
}

var tnormRegistry = struct {
	mu sync.RWMutex
	m  map[string]TNorm
}{
	m: make(map[string]TNorm),
}

func init() {
	initializeBuiltInTNorms()
}

func initializeBuiltInTNorms() {
	MustRegisterTNorm(TNormEinstein, EinsteinProduct)
	MustRegisterTNorm(TNormProduct, AlgebraicProduct)
	MustRegisterTNorm(TNormMin, Minimum)
	MustRegisterTNorm(TNormHamacher, HamacherProduct)
}

func RegisterTNorm(name string, t TNorm) error {
	if name == "" {
		return errors.New("t-norm name is required")
	}
	if t == nil {
		return errors.New("t-norm function is required")
	}

	tnormRegistry.mu.Lock()
	defer tnormRegistry.mu.Unlock()

	if _, exists := tnormRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrTNormExists, name)
	}
	tnormRegistry.m[name] = t
	return nil
}

func MustRegisterTNorm(name string, t TNorm) {
	if err := RegisterTNorm(name, t); err != nil {
		panic(err)
	}
}

// GetTNorm resolves a registered t-norm. An empty name selects Einstein.
func GetTNorm(name string) (TNorm, error) {
	if name == "" {
		name = TNormEinstein
	}

	tnormRegistry.mu.RLock()
	defer tnormRegistry.mu.RUnlock()

	t, ok := tnormRegistry.m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTNormNotFound, name)
	}
	return t, nil
}

func ListTNorms() []string {
	tnormRegistry.mu.RLock()
	defer tnormRegistry.mu.RUnlock()

	names := make([]string, 0, len(tnormRegistry.m))
	for name := range tnormRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetTNormRegistryForTests() {
	tnormRegistry.mu.Lock()
	tnormRegistry.m = make(map[string]TNorm)
	tnormRegistry.mu.Unlock()
	initializeBuiltInTNorms()
}
