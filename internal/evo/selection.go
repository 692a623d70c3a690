package evo

import (
	"fmt"
	"math"
	"math/rand"
)

// Selector chooses a parent from a ranked population.
type Selector interface {
	Name() string
	PickParent(rng *rand.Rand, ranked []Individual) (Individual, error)
}

// TournamentSelector draws Size individuals uniformly with replacement and
// returns the fittest. Earlier draws win ties.
type TournamentSelector struct {
	Size int
}

func (TournamentSelector) Name() string {
	return "tournament"
}

func (s TournamentSelector) PickParent(rng *rand.Rand, ranked []Individual) (Individual, error) {
	if rng == nil {
		return Individual{}, fmt.Errorf("random source is required")
	}
	if len(ranked) == 0 {
		return Individual{}, fmt.Errorf("cannot select from an empty population")
	}

	size := s.Size
	if size <= 0 {
		size = 1
	}

	best := ranked[rng.Intn(len(ranked))]
	for i := 1; i < size; i++ {
		candidate := ranked[rng.Intn(len(ranked))]
		if candidate.Fitness.Better(best.Fitness) {
			best = candidate
		}
	}
	return best, nil
}

// RouletteSelector picks with probability proportional to fitness. It falls
// back to a uniform pick when no individual has a positive finite score.
type RouletteSelector struct{}

func (RouletteSelector) Name() string {
	return "roulette"
}

func (RouletteSelector) PickParent(rng *rand.Rand, ranked []Individual) (Individual, error) {
	if rng == nil {
		return Individual{}, fmt.Errorf("random source is required")
	}
	if len(ranked) == 0 {
		return Individual{}, fmt.Errorf("cannot select from an empty population")
	}

	total := 0.0
	for _, ind := range ranked {
		total += rouletteWeight(ind)
	}
	if total <= 0 || math.IsInf(total, 0) {
		return ranked[rng.Intn(len(ranked))], nil
	}

	target := rng.Float64() * total
	acc := 0.0
	for _, ind := range ranked {
		acc += rouletteWeight(ind)
		if target < acc {
			return ind, nil
		}
	}
	return ranked[len(ranked)-1], nil
}

func rouletteWeight(ind Individual) float64 {
	value, ok := ind.Fitness.Value()
	if !ok || math.IsNaN(value) || value <= 0 {
		return 0
	}
	return value
}
