package evo

import (
	"fmt"
	"math"
	"math/rand"
)

// Crossover produces one child from two parents of equal length.
type Crossover interface {
	Name() string
	Cross(rng *rand.Rand, a, b Chromosome) (Chromosome, error)
}

// Mutation returns a perturbed copy of a chromosome.
type Mutation interface {
	Name() string
	Mutate(rng *rand.Rand, c Chromosome) Chromosome
}

const DefaultBlendAlpha = 0.5

// BlendCrossover is BLX-alpha: every child gene is drawn uniformly from the
// parents' interval extended by Alpha times its width on both sides.
type BlendCrossover struct {
	Alpha float64
}

func (BlendCrossover) Name() string {
	return "blx"
}

func (x BlendCrossover) Cross(rng *rand.Rand, a, b Chromosome) (Chromosome, error) {
	if a.Len() != b.Len() {
		return Chromosome{}, fmt.Errorf("crossover parent length mismatch: %d != %d", a.Len(), b.Len())
	}
	genes := make([]float64, a.Len())
	for i := range genes {
		g1, g2 := a.genes[i], b.genes[i]
		d := math.Abs(g1 - g2)
		lo := math.Min(g1, g2) - x.Alpha*d
		hi := math.Max(g1, g2) + x.Alpha*d
		genes[i] = lo + rng.Float64()*(hi-lo)
	}
	return Chromosome{genes: genes}, nil
}

// UniformCrossover takes each gene from either parent with equal
// probability.
type UniformCrossover struct{}

func (UniformCrossover) Name() string {
	return "uniform"
}

func (UniformCrossover) Cross(rng *rand.Rand, a, b Chromosome) (Chromosome, error) {
	if a.Len() != b.Len() {
		return Chromosome{}, fmt.Errorf("crossover parent length mismatch: %d != %d", a.Len(), b.Len())
	}
	genes := make([]float64, a.Len())
	for i := range genes {
		if rng.Float64() < 0.5 {
			genes[i] = a.genes[i]
		} else {
			genes[i] = b.genes[i]
		}
	}
	return Chromosome{genes: genes}, nil
}

// GaussianMutation adds N(0, Strength^2) noise to each gene with
// probability Rate.
type GaussianMutation struct {
	Rate     float64
	Strength float64
}

func (GaussianMutation) Name() string {
	return "gaussian"
}

func (m GaussianMutation) Mutate(rng *rand.Rand, c Chromosome) Chromosome {
	genes := c.Genes()
	for i := range genes {
		if rng.Float64() < m.Rate {
			genes[i] += rng.NormFloat64() * m.Strength
		}
	}
	return Chromosome{genes: genes}
}

// Bound is the clamping interval of one gene.
type Bound struct {
	Min float64
	Max float64
}

func clampChromosome(c Chromosome, bounds []Bound) Chromosome {
	if len(bounds) != c.Len() {
		return c
	}
	genes := c.Genes()
	for i, b := range bounds {
		genes[i] = math.Max(b.Min, math.Min(b.Max, genes[i]))
	}
	return Chromosome{genes: genes}
}
