package evo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"k8s.io/klog/v2"

	"fuzzyga/internal/model"
)

const (
	StopMaxGenerations   = "max_generations"
	StopFitnessThreshold = "fitness_threshold"
)

var ErrPopulationMismatch = errors.New("initial population size mismatch")

// Evaluator scores populations and creates random chromosomes.
//
// Evaluate must return a new slice of the same length in the same order,
// leave already evaluated individuals unchanged, and run every per-individual
// computation through exec.
type Evaluator interface {
	Evaluate(ctx context.Context, population []Individual, exec Executor) ([]Individual, error)
	NewChromosome() Chromosome
}

type Result struct {
	Best                 Individual
	BestByGeneration     []float64
	BestEverByGeneration []float64
	Diagnostics          []model.GenerationDiagnostics
	FinalPopulation      []Individual
	Generations          int
	StopReason           string
	Evaluations          int
}

type Option func(*Engine)

// WithSeed fixes the breeding random source.
func WithSeed(seed int64) Option {
	return func(e *Engine) {
		e.rng = rand.New(rand.NewSource(seed))
	}
}

// WithExecutor sets the evaluation executor. Nil means serial.
func WithExecutor(exec Executor) Option {
	return func(e *Engine) {
		if exec == nil {
			exec = SerialExecutor{}
		}
		e.exec = exec
	}
}

func WithSelector(s Selector) Option {
	return func(e *Engine) {
		if s != nil {
			e.selector = s
		}
	}
}

func WithCrossover(x Crossover) Option {
	return func(e *Engine) {
		if x != nil {
			e.crossover = x
		}
	}
}

func WithMutation(m Mutation) Option {
	return func(e *Engine) {
		if m != nil {
			e.mutation = m
		}
	}
}

// WithObserver is called once per generation after ranking.
func WithObserver(fn func(model.GenerationDiagnostics)) Option {
	return func(e *Engine) {
		e.observer = fn
	}
}

// WithGeneBounds clamps every bred child gene into its bound. Without it
// children may leave their initial sampling ranges.
func WithGeneBounds(bounds []Bound) Option {
	return func(e *Engine) {
		e.bounds = append([]Bound(nil), bounds...)
	}
}

// Engine runs a generational GA with elitism over real-valued chromosomes.
type Engine struct {
	cfg       Config
	evaluator Evaluator
	rng       *rand.Rand
	exec      Executor
	selector  Selector
	crossover Crossover
	mutation  Mutation
	observer  func(model.GenerationDiagnostics)
	bounds    []Bound
}

func NewEngine(cfg Config, evaluator Evaluator, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if evaluator == nil {
		return nil, fmt.Errorf("evaluator is required")
	}

	e := &Engine{
		cfg:       cfg,
		evaluator: evaluator,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		exec:      SerialExecutor{},
		selector:  TournamentSelector{Size: cfg.TournamentSize},
		crossover: BlendCrossover{Alpha: DefaultBlendAlpha},
		mutation:  GaussianMutation{Rate: cfg.MutationRate, Strength: cfg.MutationStrength},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Evolve runs the GA from initial, or from PopulationSize random
// chromosomes when initial is empty. The context is checked between
// generations; an evaluation batch in flight always completes.
func (e *Engine) Evolve(ctx context.Context, initial []Chromosome) (Result, error) {
	logger := klog.FromContext(ctx)

	population, err := e.initialPopulation(initial)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		BestByGeneration:     make([]float64, 0, e.cfg.MaxGenerations),
		BestEverByGeneration: make([]float64, 0, e.cfg.MaxGenerations),
		Diagnostics:          make([]model.GenerationDiagnostics, 0, e.cfg.MaxGenerations),
		StopReason:           StopMaxGenerations,
	}

	var bestEver Individual
	hasBestEver := false

	for gen := 0; gen < e.cfg.MaxGenerations; gen++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		ranked, evaluated, err := e.evaluate(ctx, population)
		if err != nil {
			return Result{}, fmt.Errorf("generation %d: %w", gen, err)
		}
		result.Evaluations += evaluated

		best := ranked[0]
		if !hasBestEver || best.Fitness.Better(bestEver.Fitness) {
			bestEver = best
			hasBestEver = true
		}
		result.BestByGeneration = append(result.BestByGeneration, best.Score())
		result.BestEverByGeneration = append(result.BestEverByGeneration, bestEver.Score())

		diag := summarizeGeneration(gen, ranked, bestEver, evaluated)
		result.Diagnostics = append(result.Diagnostics, diag)
		if e.observer != nil {
			e.observer(diag)
		}
		logger.V(2).Info("generation complete",
			"generation", gen,
			"best", diag.BestFitness,
			"bestEver", diag.BestEverFitness,
			"mean", diag.MeanFitness,
			"distinct", diag.DistinctGenotypes,
		)

		population, err = e.nextGeneration(ranked)
		if err != nil {
			return Result{}, fmt.Errorf("generation %d: %w", gen, err)
		}
		result.Generations = gen + 1

		if best.Score() >= e.cfg.FitnessThreshold {
			result.StopReason = StopFitnessThreshold
			logger.V(1).Info("fitness threshold reached", "generation", gen, "fitness", best.Score())
			break
		}
	}

	final, evaluated, err := e.evaluate(ctx, population)
	if err != nil {
		return Result{}, fmt.Errorf("final evaluation: %w", err)
	}
	result.Evaluations += evaluated
	result.FinalPopulation = final

	result.Best = final[0]
	if hasBestEver && bestEver.Fitness.Better(final[0].Fitness) {
		result.Best = bestEver
	}
	logger.V(1).Info("evolution finished",
		"generations", result.Generations,
		"stopReason", result.StopReason,
		"best", result.Best.Score(),
		"evaluations", result.Evaluations,
	)
	return result, nil
}

func (e *Engine) initialPopulation(initial []Chromosome) ([]Individual, error) {
	if len(initial) == 0 {
		population := make([]Individual, e.cfg.PopulationSize)
		for i := range population {
			population[i] = NewIndividual(e.evaluator.NewChromosome())
		}
		return population, nil
	}
	if len(initial) != e.cfg.PopulationSize {
		return nil, fmt.Errorf("%w: got=%d want=%d", ErrPopulationMismatch, len(initial), e.cfg.PopulationSize)
	}
	population := make([]Individual, len(initial))
	for i, c := range initial {
		population[i] = NewIndividual(c)
	}
	return population, nil
}

// evaluate scores pending individuals and returns the ranked population
// along with the number of fresh evaluations.
func (e *Engine) evaluate(ctx context.Context, population []Individual) ([]Individual, int, error) {
	pending := 0
	for _, ind := range population {
		if !ind.Fitness.IsEvaluated() {
			pending++
		}
	}
	klog.FromContext(ctx).V(4).Info("evaluating population", "size", len(population), "pending", pending)

	scored, err := e.evaluator.Evaluate(ctx, population, e.exec)
	if err != nil {
		return nil, 0, err
	}
	if len(scored) != len(population) {
		return nil, 0, fmt.Errorf("evaluator returned %d individuals for %d", len(scored), len(population))
	}
	ranked := cloneIndividuals(scored)
	SortByFitness(ranked)
	return ranked, pending, nil
}

func (e *Engine) nextGeneration(ranked []Individual) ([]Individual, error) {
	next := make([]Individual, 0, e.cfg.PopulationSize)
	for i := 0; i < e.cfg.ElitismCount && i < len(ranked); i++ {
		next = append(next, ranked[i])
	}

	for len(next) < e.cfg.PopulationSize {
		first, err := e.selector.PickParent(e.rng, ranked)
		if err != nil {
			return nil, err
		}
		second, err := e.selector.PickParent(e.rng, ranked)
		if err != nil {
			return nil, err
		}

		child := first.Chromosome
		if e.rng.Float64() < e.cfg.CrossoverRate {
			child, err = e.crossover.Cross(e.rng, first.Chromosome, second.Chromosome)
			if err != nil {
				return nil, err
			}
		}
		child = e.mutation.Mutate(e.rng, child)
		if len(e.bounds) > 0 {
			child = clampChromosome(child, e.bounds)
		}
		next = append(next, NewIndividual(child))
	}
	return next, nil
}

func summarizeGeneration(gen int, ranked []Individual, bestEver Individual, evaluated int) model.GenerationDiagnostics {
	diag := model.GenerationDiagnostics{
		Generation:      gen,
		BestFitness:     ranked[0].Score(),
		BestEverFitness: bestEver.Score(),
		PopulationSize:  len(ranked),
		EvaluatedCount:  evaluated,
	}

	values := make([]float64, 0, len(ranked))
	fingerprints := make(map[string]struct{}, len(ranked))
	for _, ind := range ranked {
		fingerprints[ind.Chromosome.Fingerprint()] = struct{}{}
		if v, ok := ind.Fitness.Value(); ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
			values = append(values, v)
		}
	}
	diag.DistinctGenotypes = len(fingerprints)

	if len(values) == 0 {
		return diag
	}
	mean, std := stat.MeanStdDev(values, nil)
	if len(values) < 2 {
		std = 0
	}
	diag.MeanFitness = mean
	diag.StdDevFitness = std
	diag.MinFitness = floats.Min(values)
	return diag
}
