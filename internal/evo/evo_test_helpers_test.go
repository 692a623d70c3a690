package evo

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
)

// sphereEvaluator scores 1/(1+sum(g^2)), peaking at the origin.
type sphereEvaluator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	dims  int
	calls atomic.Int64
	fail  error
}

func newSphereEvaluator(seed int64, dims int) *sphereEvaluator {
	return &sphereEvaluator{rng: rand.New(rand.NewSource(seed)), dims: dims}
}

func (s *sphereEvaluator) NewChromosome() Chromosome {
	s.mu.Lock()
	defer s.mu.Unlock()
	genes := make([]float64, s.dims)
	for i := range genes {
		genes[i] = -5 + s.rng.Float64()*10
	}
	return NewChromosome(genes)
}

func (s *sphereEvaluator) Evaluate(_ context.Context, population []Individual, exec Executor) ([]Individual, error) {
	out := make([]Individual, len(population))
	err := exec.Run(len(population), func(i int) error {
		ind := population[i]
		if ind.Fitness.IsEvaluated() {
			out[i] = ind
			return nil
		}
		if s.fail != nil {
			return s.fail
		}
		s.calls.Add(1)
		sum := 0.0
		for _, g := range ind.Chromosome.Genes() {
			sum += g * g
		}
		out[i] = Individual{Chromosome: ind.Chromosome, Fitness: Evaluated(1 / (1 + sum))}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

var errTaskFailed = errors.New("task failed")
