package fuzzy

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrShapeExists   = errors.New("membership shape already registered")
	ErrShapeNotFound = errors.New("membership shape not found")
	ErrShapeParams   = errors.New("membership shape parameter count mismatch")
)

// MembershipFunction maps a crisp value to a degree of membership in [0, 1].
type MembershipFunction interface {
	Membership(x float64) float64
	Shape() string
	Params() []float64
}

const (
	ShapeTriangular = "triangular"

	ParamCenter = "center"
	ParamWidth  = "width"
)

// Triangular peaks at Center and reaches zero at Center-Width and
// Center+Width. A zero width is an indicator of x == Center.
type Triangular struct {
	Center float64
	Width  float64
}

func (t Triangular) Membership(x float64) float64 {
	if t.Width == 0 {
		if x == t.Center {
			return 1
		}
		return 0
	}

	left := t.Center - t.Width
	right := t.Center + t.Width
	switch {
	case x <= left || x >= right:
		return 0
	case x == t.Center:
		return 1
	case x < t.Center:
		return (x - left) / t.Width
	default:
		return (right - x) / t.Width
	}
}

func (Triangular) Shape() string {
	return ShapeTriangular
}

func (t Triangular) Params() []float64 {
	return []float64{t.Center, t.Width}
}

// Shape describes how a membership function is built from a fixed number of
// named parameters. The codec budgets len(ParamNames) genes per fuzzy set.
type Shape struct {
	Name       string
	ParamNames []string
	Build      func(params []float64) MembershipFunction
}

func (s Shape) ParamCount() int {
	return len(s.ParamNames)
}

// New builds a membership function, checking the parameter count.
func (s Shape) New(params []float64) (MembershipFunction, error) {
	if len(params) != len(s.ParamNames) {
		return nil, fmt.Errorf("%w: shape=%s got=%d want=%d", ErrShapeParams, s.Name, len(params), len(s.ParamNames))
	}
	return s.Build(params), nil
}

var shapeRegistry = struct {
	mu sync.RWMutex
	m  map[string]Shape
}{
	m: make(map[string]Shape),
}

func init() {
	initializeBuiltInShapes()
}

func initializeBuiltInShapes() {
	MustRegisterShape(TriangularShape())
}

// TriangularShape is the built-in triangular shape.
func TriangularShape() Shape {
	return Shape{
		Name:       ShapeTriangular,
		ParamNames: []string{ParamCenter, ParamWidth},
		Build: func(params []float64) MembershipFunction {
			return Triangular{Center: params[0], Width: params[1]}
		},
	}
}

func RegisterShape(shape Shape) error {
	if shape.Name == "" {
		return errors.New("shape name is required")
	}
	if len(shape.ParamNames) == 0 {
		return errors.New("shape parameters are required")
	}
	if shape.Build == nil {
		return errors.New("shape constructor is required")
	}

	shapeRegistry.mu.Lock()
	defer shapeRegistry.mu.Unlock()

	if _, exists := shapeRegistry.m[shape.Name]; exists {
		return fmt.Errorf("%w: %s", ErrShapeExists, shape.Name)
	}
	shape.ParamNames = append([]string(nil), shape.ParamNames...)
	shapeRegistry.m[shape.Name] = shape
	return nil
}

func MustRegisterShape(shape Shape) {
	if err := RegisterShape(shape); err != nil {
		panic(err)
	}
}

func GetShape(name string) (Shape, error) {
	shapeRegistry.mu.RLock()
	defer shapeRegistry.mu.RUnlock()

	shape, ok := shapeRegistry.m[name]
	if !ok {
		return Shape{}, fmt.Errorf("%w: %s", ErrShapeNotFound, name)
	}
	return shape, nil
}

func ListShapes() []string {
	shapeRegistry.mu.RLock()
	defer shapeRegistry.mu.RUnlock()

	names := make([]string, 0, len(shapeRegistry.m))
	for name := range shapeRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetShapeRegistryForTests() {
	shapeRegistry.mu.Lock()
	shapeRegistry.m = make(map[string]Shape)
	shapeRegistry.mu.Unlock()
	initializeBuiltInShapes()
}
