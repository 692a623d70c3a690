package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"fuzzyga/internal/codec"
	"fuzzyga/internal/evo"
	"fuzzyga/internal/fuzzy"
	"fuzzyga/internal/storage"
)

var ErrInvalid = errors.New("invalid configuration")

// Range is a closed interval. In YAML it is written either as a two element
// sequence [min, max] or as a mapping {min: a, max: b}.
type Range struct {
	Min float64
	Max float64
}

func (r *Range) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var pair []float64
		if err := node.Decode(&pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("line %d: range needs exactly 2 values, got %d", node.Line, len(pair))
		}
		r.Min, r.Max = pair[0], pair[1]
		return nil
	case yaml.MappingNode:
		var m struct {
			Min *float64 `yaml:"min"`
			Max *float64 `yaml:"max"`
		}
		if err := node.Decode(&m); err != nil {
			return err
		}
		if m.Min == nil || m.Max == nil {
			return fmt.Errorf("line %d: range mapping needs min and max", node.Line)
		}
		r.Min, r.Max = *m.Min, *m.Max
		return nil
	default:
		return fmt.Errorf("line %d: range must be a sequence or a mapping", node.Line)
	}
}

func (r Range) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, v := range []float64{r.Min, r.Max} {
		var item yaml.Node
		if err := item.Encode(v); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &item)
	}
	return node, nil
}

func (r Range) toCodec() codec.Range {
	return codec.Range{Min: r.Min, Max: r.Max}
}

type GA struct {
	PopulationSize   int     `yaml:"population_size"`
	MaxGenerations   int     `yaml:"max_generations"`
	ElitismCount     int     `yaml:"elitism_count"`
	CrossoverRate    float64 `yaml:"crossover_rate"`
	MutationRate     float64 `yaml:"mutation_rate"`
	MutationStrength float64 `yaml:"mutation_strength"`
	TournamentSize   int     `yaml:"tournament_size"`
	FitnessThreshold float64 `yaml:"fitness_threshold"`
	Selection        string  `yaml:"selection"`
	Crossover        string  `yaml:"crossover"`
	Mutation         string  `yaml:"mutation"`
	ClampGenes       bool    `yaml:"clamp_genes"`
}

type System struct {
	FuzzySets  int    `yaml:"fuzzy_sets"`
	Shape      string `yaml:"shape"`
	TNorm      string `yaml:"tnorm"`
	Center     Range  `yaml:"center"`
	Width      Range  `yaml:"width"`
	Consequent Range  `yaml:"consequent"`
}

// Tune configures hill climbing on the best solution after evolution.
// Attempts 0 disables it.
type Tune struct {
	Attempts  int     `yaml:"attempts"`
	Steps     int     `yaml:"steps"`
	StepSize  float64 `yaml:"step_size"`
	Annealing float64 `yaml:"annealing"`
}

type Run struct {
	Dataset            string  `yaml:"dataset"`
	ValidationFraction float64 `yaml:"validation_fraction"`
	// Seed 0 draws a seed from the clock; the drawn seed is recorded.
	Seed         int64  `yaml:"seed"`
	Workers      int    `yaml:"workers"`
	ArtifactsDir string `yaml:"artifacts_dir"`
}

type Store struct {
	Kind string `yaml:"kind"`
	Path string `yaml:"path"`
}

type Config struct {
	GA     GA     `yaml:"ga"`
	System System `yaml:"system"`
	Tune   Tune   `yaml:"tune"`
	Run    Run    `yaml:"run"`
	Store  Store  `yaml:"store"`
}

func Default() Config {
	return Config{
		GA: GA{
			PopulationSize:   100,
			MaxGenerations:   500,
			ElitismCount:     2,
			CrossoverRate:    0.9,
			MutationRate:     0.05,
			MutationStrength: 0.5,
			TournamentSize:   3,
			FitnessThreshold: 0.999,
			Selection:        evo.SelectionTournament,
			Crossover:        evo.CrossoverBlend,
			Mutation:         evo.MutationGaussian,
		},
		System: System{
			FuzzySets:  3,
			Shape:      fuzzy.ShapeTriangular,
			TNorm:      fuzzy.TNormEinstein,
			Center:     Range{Min: -5, Max: 15},
			Width:      Range{Min: 1, Max: 5},
			Consequent: Range{Min: -10, Max: 10},
		},
		Tune: Tune{
			Steps:     2,
			StepSize:  0.1,
			Annealing: 1,
		},
		Run: Run{
			ArtifactsDir: "artifacts",
		},
		Store: Store{
			Kind: storage.DefaultStoreKind(),
			Path: storage.DefaultSQLitePath,
		},
	}
}

// Parse overlays YAML onto Default. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Write(w io.Writer, cfg Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}

func WriteFile(path string, cfg Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	var buf bytes.Buffer
	if err := Write(&buf, cfg); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func (c Config) Validate() error {
	if err := c.Evo().Validate(); err != nil {
		return err
	}
	if _, err := evo.ResolveSelector(c.GA.Selection, c.Evo()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := evo.ResolveCrossover(c.GA.Crossover, c.Evo()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := evo.ResolveMutation(c.GA.Mutation, c.Evo()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.System.FuzzySets < 1 {
		return fmt.Errorf("%w: fuzzy_sets must be >= 1", ErrInvalid)
	}
	if _, err := fuzzy.GetShape(c.System.Shape); err != nil {
		return fmt.Errorf("%w: %v (available: %s)", ErrInvalid, err, strings.Join(fuzzy.ListShapes(), ", "))
	}
	if _, err := fuzzy.GetTNorm(c.System.TNorm); err != nil {
		return fmt.Errorf("%w: %v (available: %s)", ErrInvalid, err, strings.Join(fuzzy.ListTNorms(), ", "))
	}
	for name, r := range c.System.Ranges() {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, name, err)
		}
	}
	if c.Tune.Attempts < 0 {
		return fmt.Errorf("%w: tune attempts must be >= 0", ErrInvalid)
	}
	if c.Tune.Attempts > 0 {
		if c.Tune.Steps < 1 {
			return fmt.Errorf("%w: tune steps must be >= 1", ErrInvalid)
		}
		if !(c.Tune.StepSize > 0) {
			return fmt.Errorf("%w: tune step_size must be > 0", ErrInvalid)
		}
		if !(c.Tune.Annealing > 0 && c.Tune.Annealing <= 1) {
			return fmt.Errorf("%w: tune annealing must be in (0, 1]", ErrInvalid)
		}
	}
	if f := c.Run.ValidationFraction; math.IsNaN(f) || f < 0 || f >= 1 {
		return fmt.Errorf("%w: validation_fraction must be in [0, 1)", ErrInvalid)
	}
	if c.Run.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0", ErrInvalid)
	}
	switch c.Store.Kind {
	case "", "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("%w: sqlite store needs a path", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unsupported store kind %q", ErrInvalid, c.Store.Kind)
	}
	return nil
}

func (c Config) Evo() evo.Config {
	return evo.Config{
		PopulationSize:   c.GA.PopulationSize,
		MaxGenerations:   c.GA.MaxGenerations,
		ElitismCount:     c.GA.ElitismCount,
		CrossoverRate:    c.GA.CrossoverRate,
		MutationRate:     c.GA.MutationRate,
		MutationStrength: c.GA.MutationStrength,
		TournamentSize:   c.GA.TournamentSize,
		FitnessThreshold: c.GA.FitnessThreshold,
	}
}

// Ranges returns the descriptor parameter ranges keyed by parameter name.
func (s System) Ranges() map[string]codec.Range {
	return map[string]codec.Range{
		codec.ParamCenter:     s.Center.toCodec(),
		codec.ParamWidth:      s.Width.toCodec(),
		codec.ParamConsequent: s.Consequent.toCodec(),
	}
}
