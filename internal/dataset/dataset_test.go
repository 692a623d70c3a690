package dataset

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuzzyga/internal/fuzzy"
)

const sampleTable = `x y z

-4 -4 1.5
-4 -3   2
  0 1 -0.25
`

func TestParseWhitespaceTable(t *testing.T) {
	d, err := Parse(strings.NewReader(sampleTable))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Size() != 3 {
		t.Fatalf("unexpected size: %d", d.Size())
	}
	if d.OutputName() != "z" {
		t.Fatalf("unexpected output name: %s", d.OutputName())
	}
	vars := d.Variables()
	require.Len(t, vars, 2)
	assert.Equal(t, "x", vars[0].Name())
	assert.Equal(t, "y", vars[1].Name())

	p := d.Point(1)
	assert.Equal(t, -4.0, p.Inputs.Value(vars[0]))
	assert.Equal(t, -3.0, p.Inputs.Value(vars[1]))
	assert.Equal(t, 2.0, p.Expected)

	var expected []float64
	for _, point := range d.All() {
		expected = append(expected, point.Expected)
	}
	assert.Equal(t, []float64{1.5, 2, -0.25}, expected)
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse(strings.NewReader("\n\n")); !errors.Is(err, ErrNoHeader) {
		t.Fatalf("expected ErrNoHeader, got: %v", err)
	}
	if _, err := Parse(strings.NewReader("z\n1\n")); !errors.Is(err, ErrTooFewColumns) {
		t.Fatalf("expected ErrTooFewColumns, got: %v", err)
	}
	if _, err := Parse(strings.NewReader("x y z\n1 2\n")); !errors.Is(err, ErrColumnCount) {
		t.Fatalf("expected ErrColumnCount, got: %v", err)
	}
	if _, err := Parse(strings.NewReader("x x z\n1 2 3\n")); !errors.Is(err, fuzzy.ErrDuplicateVariable) {
		t.Fatalf("expected ErrDuplicateVariable, got: %v", err)
	}
	_, err := Parse(strings.NewReader("x y z\n1 2 3\n1 abc 3\n"))
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("expected line number in parse error, got: %v", err)
	}
}

func TestParseHeaderOnly(t *testing.T) {
	d, err := Parse(strings.NewReader("x y z\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, d.Size())
	_, _, ok := d.Range(fuzzy.MustInputVariable("x"))
	assert.False(t, ok)
}

func TestParseCSV(t *testing.T) {
	input := "x, y, out\n1, 2, 3\n\n4, 5, 6\n"
	d, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, 2, d.Size())
	x := fuzzy.MustInputVariable("x")
	y := fuzzy.MustInputVariable("y")
	assert.Equal(t, 4.0, d.Point(1).Inputs.Value(x))
	assert.Equal(t, 5.0, d.Point(1).Inputs.Value(y))
	assert.Equal(t, 6.0, d.Point(1).Expected)
	assert.Equal(t, "out", d.OutputName())

	_, err = ParseCSV(strings.NewReader("x,y,out\n1,2\n"))
	assert.ErrorIs(t, err, ErrColumnCount)
}

func TestLoadFileDispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "data.txt")
	csvPath := filepath.Join(dir, "data.CSV")
	if err := os.WriteFile(txt, []byte(sampleTable), 0o644); err != nil {
		t.Fatalf("write txt: %v", err)
	}
	if err := os.WriteFile(csvPath, []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	d, err := LoadFile(txt)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Size())

	d, err = LoadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Size())

	_, err = LoadFile(filepath.Join(dir, "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteRoundTrip(t *testing.T) {
	d, err := Parse(strings.NewReader(sampleTable))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, d))
	again, err := Parse(&buf)
	require.NoError(t, err)
	require.Equal(t, d.Size(), again.Size())
	for i := 0; i < d.Size(); i++ {
		assert.Equal(t, d.Point(i).Expected, again.Point(i).Expected)
		assert.Equal(t, d.Point(i).Inputs, again.Point(i).Inputs)
	}

	path := filepath.Join(t.TempDir(), "nested", "out.txt")
	require.NoError(t, WriteFile(path, d))
	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, d.Size(), loaded.Size())
}

func TestSplit(t *testing.T) {
	d, err := Grid([]string{"x"}, "y", 0, 9, 1, func(x []float64) float64 { return x[0] })
	require.NoError(t, err)
	require.Equal(t, 10, d.Size())

	train, validation, err := d.Split(0.3, 1)
	require.NoError(t, err)
	assert.Equal(t, 7, train.Size())
	assert.Equal(t, 3, validation.Size())

	seen := map[float64]struct{}{}
	for _, part := range []*Dataset{train, validation} {
		for _, p := range part.All() {
			seen[p.Expected] = struct{}{}
		}
	}
	assert.Len(t, seen, 10)

	again, _, err := d.Split(0.3, 1)
	require.NoError(t, err)
	for i := 0; i < train.Size(); i++ {
		assert.Equal(t, train.Point(i).Expected, again.Point(i).Expected)
	}

	_, none, err := d.Split(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, none.Size())

	for _, bad := range []float64{-0.1, 1, 2} {
		_, _, err := d.Split(bad, 1)
		assert.ErrorIs(t, err, ErrInvalidFraction)
	}
}

func TestGridAndBenchmark(t *testing.T) {
	d, err := Grid([]string{"x", "y"}, "z", -4, 4, 1, Benchmark3D)
	require.NoError(t, err)
	assert.Equal(t, 81, d.Size())

	x := fuzzy.MustInputVariable("x")
	y := fuzzy.MustInputVariable("y")
	first := d.Point(0)
	assert.Equal(t, -4.0, first.Inputs.Value(x))
	assert.Equal(t, -4.0, first.Inputs.Value(y))
	second := d.Point(1)
	assert.Equal(t, -4.0, second.Inputs.Value(x))
	assert.Equal(t, -3.0, second.Inputs.Value(y))

	// f(1, -2) = (0 + 0 + 10 + 3) * cos^2(0.2)
	assert.InDelta(t, 13*0.9605304970014426, Benchmark3D([]float64{1, -2}), 1e-9)

	lo, hi, ok := d.Range(y)
	require.True(t, ok)
	assert.Equal(t, -4.0, lo)
	assert.Equal(t, 4.0, hi)

	_, err = Grid([]string{"x"}, "y", 0, 1, 0, Benchmark3D)
	assert.Error(t, err)
}

func TestNewCopiesPoints(t *testing.T) {
	x := fuzzy.MustInputVariable("x")
	inputs := fuzzy.Inputs{x: 1}
	d := New([]fuzzy.InputVariable{x}, "y", []DataPoint{{Inputs: inputs, Expected: 2}})
	inputs[x] = 100
	assert.Equal(t, 1.0, d.Point(0).Inputs.Value(x))
}
