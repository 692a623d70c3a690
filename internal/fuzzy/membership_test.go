package fuzzy

import (
	"errors"
	"math"
	"testing"
)

func TestTriangularMembership(t *testing.T) {
	tri := Triangular{Center: 0, Width: 2}
	cases := []struct {
		x    float64
		want float64
	}{
		{x: -3, want: 0},
		{x: -2, want: 0},
		{x: -1, want: 0.5},
		{x: 0, want: 1},
		{x: 1, want: 0.5},
		{x: 1.5, want: 0.25},
		{x: 2, want: 0},
		{x: 10, want: 0},
	}
	for _, tc := range cases {
		if got := tri.Membership(tc.x); math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("membership(%f): got=%f want=%f", tc.x, got, tc.want)
		}
	}
}

func TestTriangularMembershipBounded(t *testing.T) {
	sets := []Triangular{
		{Center: 5, Width: 0.1},
		{Center: -3, Width: 7},
		{Center: 0, Width: 1e-9},
	}
	for _, tri := range sets {
		for x := -20.0; x <= 20; x += 0.37 {
			got := tri.Membership(x)
			if got < 0 || got > 1 {
				t.Fatalf("membership out of range: set=%+v x=%f got=%f", tri, x, got)
			}
			if x <= tri.Center-tri.Width || x >= tri.Center+tri.Width {
				if got != 0 {
					t.Fatalf("expected zero outside support: set=%+v x=%f got=%f", tri, x, got)
				}
			}
		}
	}
}

func TestTriangularZeroWidthIsIndicator(t *testing.T) {
	tri := Triangular{Center: 3, Width: 0}
	if got := tri.Membership(3); got != 1 {
		t.Fatalf("expected 1 at center, got=%f", got)
	}
	if got := tri.Membership(3.0001); got != 0 {
		t.Fatalf("expected 0 off center, got=%f", got)
	}
}

func TestTriangularShapeParams(t *testing.T) {
	shape, err := GetShape(ShapeTriangular)
	if err != nil {
		t.Fatalf("get shape: %v", err)
	}
	if shape.ParamCount() != 2 {
		t.Fatalf("unexpected param count: %d", shape.ParamCount())
	}
	fn, err := shape.New([]float64{1.5, 0.5})
	if err != nil {
		t.Fatalf("build shape: %v", err)
	}
	tri, ok := fn.(Triangular)
	if !ok {
		t.Fatalf("unexpected membership type %T", fn)
	}
	if tri.Center != 1.5 || tri.Width != 0.5 {
		t.Fatalf("unexpected params: %+v", tri)
	}
	if params := fn.Params(); len(params) != 2 || params[0] != 1.5 || params[1] != 0.5 {
		t.Fatalf("unexpected Params(): %v", params)
	}
	if _, err := shape.New([]float64{1}); !errors.Is(err, ErrShapeParams) {
		t.Fatalf("expected ErrShapeParams, got: %v", err)
	}
}

func TestShapeRegistry(t *testing.T) {
	resetShapeRegistryForTests()
	t.Cleanup(resetShapeRegistryForTests)

	err := RegisterShape(Shape{
		Name:       "singleton",
		ParamNames: []string{ParamCenter},
		Build: func(params []float64) MembershipFunction {
			return Triangular{Center: params[0]}
		},
	})
	if err != nil {
		t.Fatalf("register shape: %v", err)
	}
	if err := RegisterShape(TriangularShape()); !errors.Is(err, ErrShapeExists) {
		t.Fatalf("expected ErrShapeExists, got: %v", err)
	}
	if _, err := GetShape("missing"); !errors.Is(err, ErrShapeNotFound) {
		t.Fatalf("expected ErrShapeNotFound, got: %v", err)
	}
	if err := RegisterShape(Shape{Name: "nobuild", ParamNames: []string{"a"}}); err == nil {
		t.Fatal("expected missing constructor error")
	}
	names := ListShapes()
	if len(names) != 2 || names[0] != "singleton" || names[1] != ShapeTriangular {
		t.Fatalf("unexpected shapes: %v", names)
	}
}
