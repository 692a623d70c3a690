package fitness

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuzzyga/internal/codec"
	"fuzzyga/internal/dataset"
	"fuzzyga/internal/evo"
	"fuzzyga/internal/fuzzy"
)

func unitRanges() map[string]codec.Range {
	return map[string]codec.Range{
		codec.ParamCenter:     {Min: 0, Max: 1},
		codec.ParamWidth:      {Min: 0, Max: 1},
		codec.ParamConsequent: {Min: 0, Max: 1},
	}
}

func newTestEvaluator(t *testing.T, names []string, sets int, data *dataset.Dataset) *Evaluator {
	t.Helper()
	vars, err := fuzzy.Variables(names...)
	require.NoError(t, err)
	desc, err := codec.NewDescriptor(vars, sets, unitRanges())
	require.NoError(t, err)
	if data == nil {
		data = dataset.New(vars, "out", nil)
	}
	e, err := NewEvaluator(codec.New(desc), data, 1)
	require.NoError(t, err)
	return e
}

// constantData holds x in {0, 1} with targets {2, 3}.
func constantData() *dataset.Dataset {
	x := fuzzy.MustInputVariable("x")
	return dataset.New([]fuzzy.InputVariable{x}, "y", []dataset.DataPoint{
		{Inputs: fuzzy.Inputs{x: 0}, Expected: 2},
		{Inputs: fuzzy.Inputs{x: 1}, Expected: 3},
	})
}

func TestDecodeTwoInputTwoSetChromosome(t *testing.T) {
	e := newTestEvaluator(t, []string{"x", "y"}, 2, nil)
	genes := []float64{
		0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8,
		1.1, 1.2, 1.3,
		2.1, 2.2, 2.3,
		3.1, 3.2, 3.3,
		4.1, 4.2, 4.3,
	}
	sys, err := e.Decode(evo.NewChromosome(genes))
	require.NoError(t, err)
	rules := sys.Rules()
	require.Len(t, rules, 4)

	x := fuzzy.MustInputVariable("x")
	y := fuzzy.MustInputVariable("y")

	setX, ok := rules[0].Set(x)
	require.True(t, ok)
	assert.Equal(t, fuzzy.Triangular{Center: 0.1, Width: 0.2}, setX)
	coef, _ := rules[0].Consequent().Coefficient(x)
	assert.Equal(t, 1.1, coef)
	coef, _ = rules[0].Consequent().Coefficient(y)
	assert.Equal(t, 1.2, coef)
	assert.Equal(t, 1.3, rules[0].Consequent().Constant())

	setX, _ = rules[3].Set(x)
	assert.Equal(t, fuzzy.Triangular{Center: 0.3, Width: 0.4}, setX)
	coef, _ = rules[3].Consequent().Coefficient(x)
	assert.Equal(t, 4.1, coef)
	coef, _ = rules[3].Consequent().Coefficient(y)
	assert.Equal(t, 4.2, coef)
	assert.Equal(t, 4.3, rules[3].Consequent().Constant())
}

func TestMSEAndFitness(t *testing.T) {
	e := newTestEvaluator(t, []string{"x"}, 1, constantData())
	// one wide set with constant output 2
	c := evo.NewChromosome([]float64{0, 10, 0, 2})

	mse, err := e.MSE(c)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, mse, 1e-12)
	assert.InDelta(t, 1/1.5, FromMSE(mse), 1e-12)

	perfect := evo.NewChromosome([]float64{0, 10, 1, 2})
	mse, err = e.MSE(perfect)
	require.NoError(t, err)
	assert.InDelta(t, 0, mse, 1e-12)
	assert.Equal(t, 1.0, FromMSE(0))
}

func TestMSEEmptyDatasetIsZero(t *testing.T) {
	e := newTestEvaluator(t, []string{"x"}, 1, nil)
	mse, err := e.MSE(evo.NewChromosome([]float64{0, 1, 5, 5}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, mse)
}

func TestMSEWithNoFiringRulesPredictsZero(t *testing.T) {
	e := newTestEvaluator(t, []string{"x"}, 1, constantData())
	// set centered far from every sample
	mse, err := e.MSE(evo.NewChromosome([]float64{100, 1, 0, 7}))
	require.NoError(t, err)
	assert.InDelta(t, (4.0+9.0)/2, mse, 1e-12)
}

func TestEvaluateScoresPendingOnly(t *testing.T) {
	e := newTestEvaluator(t, []string{"x"}, 1, constantData())
	population := []evo.Individual{
		evo.NewIndividual(evo.NewChromosome([]float64{0, 10, 0, 2})),
		{Chromosome: evo.NewChromosome([]float64{0, 10, 0, 2}), Fitness: evo.Evaluated(0.42)},
		evo.NewIndividual(evo.NewChromosome([]float64{0, 10, 1, 2})),
	}

	for _, exec := range []evo.Executor{evo.SerialExecutor{}, evo.NewPoolExecutor(3), nil} {
		scored, err := e.Evaluate(context.Background(), population, exec)
		require.NoError(t, err)
		require.Len(t, scored, 3)

		assert.InDelta(t, 1/1.5, scored[0].Score(), 1e-12)
		assert.Equal(t, 0.42, scored[1].Score())
		assert.InDelta(t, 1.0, scored[2].Score(), 1e-12)
		assert.False(t, population[0].Fitness.IsEvaluated(), "input population must not be modified")
	}
}

func TestEvaluateReportsDecodeErrors(t *testing.T) {
	e := newTestEvaluator(t, []string{"x"}, 1, constantData())
	population := []evo.Individual{
		evo.NewIndividual(evo.NewChromosome([]float64{0, 10, 0, 2})),
		evo.NewIndividual(evo.NewChromosome([]float64{1, 2, 3})),
	}
	_, err := e.Evaluate(context.Background(), population, evo.SerialExecutor{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, codec.ErrLengthMismatch))
}

func TestNewChromosomeWithinBounds(t *testing.T) {
	e := newTestEvaluator(t, []string{"x", "y"}, 3, nil)
	bounds := e.GeneBounds()
	require.Len(t, bounds, e.Descriptor().ChromosomeLength())
	for n := 0; n < 20; n++ {
		c := e.NewChromosome()
		require.Equal(t, len(bounds), c.Len())
		for i, b := range bounds {
			g := c.Gene(i)
			if g < b.Min || g > b.Max || math.IsNaN(g) {
				t.Fatalf("gene %d out of bounds: %g not in [%g, %g]", i, g, b.Min, b.Max)
			}
		}
	}
}

func TestNewEvaluatorRequiresDependencies(t *testing.T) {
	_, err := NewEvaluator(nil, constantData(), 1)
	assert.Error(t, err)

	vars, _ := fuzzy.Variables("x")
	desc, err := codec.NewDescriptor(vars, 1, unitRanges())
	require.NoError(t, err)
	_, err = NewEvaluator(codec.New(desc), nil, 1)
	assert.Error(t, err)
}

func TestEvaluatorDrivesEngine(t *testing.T) {
	e := newTestEvaluator(t, []string{"x"}, 2, constantData())
	engine, err := evo.NewEngine(evo.Config{
		PopulationSize:   12,
		MaxGenerations:   5,
		ElitismCount:     1,
		CrossoverRate:    0.9,
		MutationRate:     0.1,
		MutationStrength: 0.2,
		TournamentSize:   3,
		FitnessThreshold: 1.1,
	}, e, evo.WithSeed(3), evo.WithExecutor(evo.NewPoolExecutor(2)))
	require.NoError(t, err)

	result, err := engine.Evolve(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, evo.StopMaxGenerations, result.StopReason)
	score := result.Best.Score()
	assert.Greater(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)

	mse, err := e.MSE(result.Best.Chromosome)
	require.NoError(t, err)
	assert.InDelta(t, FromMSE(mse), score, 1e-12)
}

func TestFromMSEStrictlyDecreasing(t *testing.T) {
	prev := FromMSE(0)
	assert.Equal(t, 1.0, prev)
	for _, mse := range []float64{1e-9, 1e-3, 0.1, 0.5, 1, 2, 10, 1e3, 1e6} {
		got := FromMSE(mse)
		if got >= prev {
			t.Fatalf("FromMSE(%g) = %g, want < %g", mse, got, prev)
		}
		if got <= 0 {
			t.Fatalf("FromMSE(%g) = %g, want > 0", mse, got)
		}
		prev = got
	}
}

func TestEvolveSinglePointBestEverNeverDecreases(t *testing.T) {
	x := fuzzy.MustInputVariable("x")
	data := dataset.New([]fuzzy.InputVariable{x}, "y", []dataset.DataPoint{
		{Inputs: fuzzy.Inputs{x: 0.5}, Expected: 0.7},
	})
	e := newTestEvaluator(t, []string{"x"}, 1, data)
	engine, err := evo.NewEngine(evo.Config{
		PopulationSize:   10,
		MaxGenerations:   15,
		ElitismCount:     1,
		CrossoverRate:    0.8,
		MutationRate:     0.3,
		MutationStrength: 0.1,
		TournamentSize:   2,
		FitnessThreshold: 1.1,
	}, e, evo.WithSeed(9))
	require.NoError(t, err)

	result, err := engine.Evolve(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, result.BestEverByGeneration, 15)

	for i := 1; i < len(result.BestEverByGeneration); i++ {
		if result.BestEverByGeneration[i] < result.BestEverByGeneration[i-1] {
			t.Fatalf("best-ever decreased at generation %d: %v", i, result.BestEverByGeneration)
		}
		if result.BestByGeneration[i] < result.BestByGeneration[i-1] {
			t.Fatalf("best-of-generation decreased at generation %d: %v", i, result.BestByGeneration)
		}
	}
	last := result.BestEverByGeneration[len(result.BestEverByGeneration)-1]
	assert.GreaterOrEqual(t, result.Best.Score(), last)
	assert.LessOrEqual(t, result.Best.Score(), 1.0)
}
