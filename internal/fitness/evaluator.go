package fitness

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"k8s.io/klog/v2"

	"fuzzyga/internal/codec"
	"fuzzyga/internal/dataset"
	"fuzzyga/internal/evo"
	"fuzzyga/internal/fuzzy"
)

// FromMSE maps a mean squared error to a fitness in (0, 1].
func FromMSE(mse float64) float64 {
	return 1 / (1 + mse)
}

// MSE is the mean squared prediction error of sys over data. An empty
// dataset has zero error.
func MSE(sys *fuzzy.TskSystem, data *dataset.Dataset) float64 {
	if data.Size() == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range data.All() {
		diff := p.Expected - sys.Calculate(p.Inputs)
		sum += diff * diff
	}
	return sum / float64(data.Size())
}

// Evaluator scores chromosomes by decoding them into TSK systems and
// measuring their error on a dataset. It is safe for concurrent use.
type Evaluator struct {
	codec *codec.Codec
	data  *dataset.Dataset

	mu  sync.Mutex
	rng *rand.Rand
}

func NewEvaluator(c *codec.Codec, data *dataset.Dataset, seed int64) (*Evaluator, error) {
	if c == nil {
		return nil, fmt.Errorf("codec is required")
	}
	if data == nil {
		return nil, fmt.Errorf("dataset is required")
	}
	return &Evaluator{
		codec: c,
		data:  data,
		rng:   rand.New(rand.NewSource(seed)),
	}, nil
}

func (e *Evaluator) Descriptor() codec.Descriptor {
	return e.codec.Descriptor()
}

func (e *Evaluator) Dataset() *dataset.Dataset {
	return e.data
}

// NewChromosome samples a random chromosome within the descriptor ranges.
func (e *Evaluator) NewChromosome() evo.Chromosome {
	e.mu.Lock()
	defer e.mu.Unlock()
	return evo.NewChromosome(e.codec.Random(e.rng))
}

func (e *Evaluator) Decode(c evo.Chromosome) (*fuzzy.TskSystem, error) {
	return e.codec.Decode(c.Genes())
}

func (e *Evaluator) MSE(c evo.Chromosome) (float64, error) {
	sys, err := e.Decode(c)
	if err != nil {
		return 0, err
	}
	return MSE(sys, e.data), nil
}

// Evaluate scores every pending individual through exec. Evaluated
// individuals are copied through unchanged.
func (e *Evaluator) Evaluate(ctx context.Context, population []evo.Individual, exec evo.Executor) ([]evo.Individual, error) {
	if exec == nil {
		exec = evo.SerialExecutor{}
	}
	out := make([]evo.Individual, len(population))
	err := exec.Run(len(population), func(i int) error {
		ind := population[i]
		if ind.Fitness.IsEvaluated() {
			out[i] = ind
			return nil
		}
		mse, err := e.MSE(ind.Chromosome)
		if err != nil {
			return fmt.Errorf("individual %d: %w", i, err)
		}
		out[i] = evo.Individual{Chromosome: ind.Chromosome, Fitness: evo.Evaluated(FromMSE(mse))}
		return nil
	})
	if err != nil {
		return nil, err
	}
	klog.FromContext(ctx).V(5).Info("population evaluated", "size", len(population), "points", e.data.Size())
	return out, nil
}

// GeneBounds returns the per-gene sampling ranges as clamping bounds.
func (e *Evaluator) GeneBounds() []evo.Bound {
	ranges := e.codec.GeneBounds()
	out := make([]evo.Bound, len(ranges))
	for i, r := range ranges {
		out[i] = evo.Bound{Min: r.Min, Max: r.Max}
	}
	return out
}
