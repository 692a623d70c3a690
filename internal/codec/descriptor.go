package codec

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"fuzzyga/internal/fuzzy"
	"fuzzyga/internal/model"
)

const (
	ParamCenter     = fuzzy.ParamCenter
	ParamWidth      = fuzzy.ParamWidth
	ParamConsequent = "consequent"

	// MaxChromosomeLength bounds S^V growth of the consequent segment.
	MaxChromosomeLength = 1 << 22

	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var (
	ErrNoVariables       = errors.New("descriptor requires at least one input variable")
	ErrNoFuzzySets       = errors.New("descriptor requires at least one fuzzy set per variable")
	ErrInvalidRange      = errors.New("invalid parameter range")
	ErrMissingRange      = errors.New("missing parameter range")
	ErrDuplicateVariable = fuzzy.ErrDuplicateVariable
	ErrTooManyGenes      = errors.New("chromosome length exceeds limit")
)

// Range is a closed [Min, Max] interval used to sample initial genes.
type Range struct {
	Min float64
	Max float64
}

func (r Range) Validate() error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) || math.IsInf(r.Min, 0) || math.IsInf(r.Max, 0) {
		return fmt.Errorf("%w: bounds must be finite: [%g, %g]", ErrInvalidRange, r.Min, r.Max)
	}
	if r.Min > r.Max {
		return fmt.Errorf("%w: min %g > max %g", ErrInvalidRange, r.Min, r.Max)
	}
	return nil
}

func (r Range) Contains(x float64) bool {
	return x >= r.Min && x <= r.Max
}

func (r Range) Clamp(x float64) float64 {
	return math.Max(r.Min, math.Min(r.Max, x))
}

// Sample draws uniformly from [Min, Max).
func (r Range) Sample(rng *rand.Rand) float64 {
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// Descriptor fixes the structure of a fuzzy system: its ordered input
// variables, the number of fuzzy sets per variable, the membership shape and
// the sampling range of every parameter. Descriptors are immutable.
type Descriptor struct {
	variables []fuzzy.InputVariable
	sets      int
	ranges    map[string]Range
	shape     fuzzy.Shape
	tnormName string
	tnorm     fuzzy.TNorm
}

type DescriptorOption func(*descriptorOptions)

type descriptorOptions struct {
	shape string
	tnorm string
}

// WithShape selects a registered membership shape. Defaults to triangular.
func WithShape(name string) DescriptorOption {
	return func(o *descriptorOptions) {
		o.shape = name
	}
}

// WithTNorm selects a registered t-norm for decoded systems. Defaults to
// the Einstein product.
func WithTNorm(name string) DescriptorOption {
	return func(o *descriptorOptions) {
		o.tnorm = name
	}
}

func NewDescriptor(variables []fuzzy.InputVariable, sets int, ranges map[string]Range, opts ...DescriptorOption) (Descriptor, error) {
	options := descriptorOptions{shape: fuzzy.ShapeTriangular, tnorm: fuzzy.TNormEinstein}
	for _, opt := range opts {
		opt(&options)
	}

	if len(variables) == 0 {
		return Descriptor{}, ErrNoVariables
	}
	if sets < 1 {
		return Descriptor{}, fmt.Errorf("%w: got %d", ErrNoFuzzySets, sets)
	}
	seen := make(map[fuzzy.InputVariable]struct{}, len(variables))
	for _, v := range variables {
		if v.Name() == "" {
			return Descriptor{}, fuzzy.ErrBlankVariableName
		}
		if _, ok := seen[v]; ok {
			return Descriptor{}, fmt.Errorf("%w: %s", ErrDuplicateVariable, v)
		}
		seen[v] = struct{}{}
	}

	shape, err := fuzzy.GetShape(options.shape)
	if err != nil {
		return Descriptor{}, err
	}
	tnorm, err := fuzzy.GetTNorm(options.tnorm)
	if err != nil {
		return Descriptor{}, err
	}

	required := append(append([]string(nil), shape.ParamNames...), ParamConsequent)
	copied := make(map[string]Range, len(required))
	for _, name := range required {
		r, ok := ranges[name]
		if !ok {
			return Descriptor{}, fmt.Errorf("%w: %s", ErrMissingRange, name)
		}
		if err := r.Validate(); err != nil {
			return Descriptor{}, fmt.Errorf("range %s: %w", name, err)
		}
		copied[name] = r
	}

	d := Descriptor{
		variables: append([]fuzzy.InputVariable(nil), variables...),
		sets:      sets,
		ranges:    copied,
		shape:     shape,
		tnormName: options.tnorm,
		tnorm:     tnorm,
	}
	if _, err := d.checkedLength(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

func (d Descriptor) Variables() []fuzzy.InputVariable {
	return append([]fuzzy.InputVariable(nil), d.variables...)
}

func (d Descriptor) VariableCount() int {
	return len(d.variables)
}

func (d Descriptor) SetCount() int {
	return d.sets
}

func (d Descriptor) Shape() fuzzy.Shape {
	return d.shape
}

func (d Descriptor) TNorm() fuzzy.TNorm {
	return d.tnorm
}

func (d Descriptor) TNormName() string {
	return d.tnormName
}

func (d Descriptor) Range(name string) (Range, bool) {
	r, ok := d.ranges[name]
	return r, ok
}

// RangeNames lists the configured parameter ranges in sorted order.
func (d Descriptor) RangeNames() []string {
	names := make([]string, 0, len(d.ranges))
	for name := range d.ranges {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RuleCount is S^V.
func (d Descriptor) RuleCount() int {
	n := 1
	for range d.variables {
		n *= d.sets
	}
	return n
}

// AntecedentLength is V*S*P, P being the shape parameter count.
func (d Descriptor) AntecedentLength() int {
	return len(d.variables) * d.sets * d.shape.ParamCount()
}

// ConsequentLength is S^V*(V+1).
func (d Descriptor) ConsequentLength() int {
	return d.RuleCount() * (len(d.variables) + 1)
}

func (d Descriptor) ChromosomeLength() int {
	return d.AntecedentLength() + d.ConsequentLength()
}

func (d Descriptor) checkedLength() (int, error) {
	rules := 1
	for range d.variables {
		if rules > MaxChromosomeLength/d.sets {
			return 0, fmt.Errorf("%w: %d sets over %d variables", ErrTooManyGenes, d.sets, len(d.variables))
		}
		rules *= d.sets
	}
	if rules > MaxChromosomeLength/(len(d.variables)+1) {
		return 0, fmt.Errorf("%w: %d rules", ErrTooManyGenes, rules)
	}
	total := rules*(len(d.variables)+1) + d.AntecedentLength()
	if total > MaxChromosomeLength {
		return 0, fmt.Errorf("%w: %d genes", ErrTooManyGenes, total)
	}
	return total, nil
}

// RuleSets returns the fuzzy set index each variable uses in rule i. Rules
// enumerate the Cartesian product of set indices with the first variable
// varying slowest.
func (d Descriptor) RuleSets(i int) []int {
	out := make([]int, len(d.variables))
	for v := len(d.variables) - 1; v >= 0; v-- {
		out[v] = i % d.sets
		i /= d.sets
	}
	return out
}

// ConsequentOffset returns the index of the first consequent gene of rule i.
func (d Descriptor) ConsequentOffset(i int) int {
	return d.AntecedentLength() + i*(len(d.variables)+1)
}

// AntecedentOffset returns the index of the first parameter gene of set s of
// variable v.
func (d Descriptor) AntecedentOffset(v, s int) int {
	return (v*d.sets + s) * d.shape.ParamCount()
}

// GeneBounds returns the sampling range of every gene, in chromosome order.
func (d Descriptor) GeneBounds() []Range {
	out := make([]Range, 0, d.ChromosomeLength())
	for range d.variables {
		for s := 0; s < d.sets; s++ {
			for _, param := range d.shape.ParamNames {
				out = append(out, d.ranges[param])
			}
		}
	}
	consequent := d.ranges[ParamConsequent]
	for i := d.AntecedentLength(); i < d.ChromosomeLength(); i++ {
		out = append(out, consequent)
	}
	return out
}

func (d Descriptor) Record() model.DescriptorRecord {
	names := make([]string, len(d.variables))
	for i, v := range d.variables {
		names[i] = v.Name()
	}
	ranges := make(map[string]model.RangeRecord, len(d.ranges))
	for name, r := range d.ranges {
		ranges[name] = model.RangeRecord{Min: r.Min, Max: r.Max}
	}
	return model.DescriptorRecord{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: CurrentSchemaVersion,
			CodecVersion:  CurrentCodecVersion,
		},
		Variables: names,
		FuzzySets: d.sets,
		Shape:     d.shape.Name,
		TNorm:     d.tnormName,
		Ranges:    ranges,
	}
}

func DescriptorFromRecord(record model.DescriptorRecord) (Descriptor, error) {
	if record.CodecVersion != 0 && record.CodecVersion != CurrentCodecVersion {
		return Descriptor{}, fmt.Errorf("unsupported descriptor codec version %d", record.CodecVersion)
	}
	variables, err := fuzzy.Variables(record.Variables...)
	if err != nil {
		return Descriptor{}, err
	}
	ranges := make(map[string]Range, len(record.Ranges))
	for name, r := range record.Ranges {
		ranges[name] = Range{Min: r.Min, Max: r.Max}
	}
	var opts []DescriptorOption
	if record.Shape != "" {
		opts = append(opts, WithShape(record.Shape))
	}
	if record.TNorm != "" {
		opts = append(opts, WithTNorm(record.TNorm))
	}
	return NewDescriptor(variables, record.FuzzySets, ranges, opts...)
}
