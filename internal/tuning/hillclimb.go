package tuning

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"

	"k8s.io/klog/v2"

	"fuzzyga/internal/evo"
)

const NameHillClimb = "hillclimb"

// HillClimber perturbs a few random genes of the best solution per attempt
// and keeps the candidate when it improves fitness by more than
// MinImprovement.
type HillClimber struct {
	Rand *rand.Rand
	// Steps is the number of gene perturbations per candidate.
	Steps    int
	StepSize float64
	// AnnealingFactor shrinks the spread of each successive step. Zero
	// means no annealing.
	AnnealingFactor float64
	MinImprovement  float64
	// GoalFitness stops tuning once reached. Zero disables the goal.
	GoalFitness float64
	// Bounds, when set, clamps every perturbed gene.
	Bounds []evo.Bound

	mu sync.Mutex
}

var _ Tuner = (*HillClimber)(nil)

func (h *HillClimber) Name() string {
	return NameHillClimb
}

func (h *HillClimber) validate() error {
	if h == nil || h.Rand == nil {
		return errors.New("random source is required")
	}
	if h.Steps <= 0 {
		return errors.New("steps must be > 0")
	}
	if !(h.StepSize > 0) {
		return errors.New("step size must be > 0")
	}
	if h.AnnealingFactor < 0 || math.IsNaN(h.AnnealingFactor) {
		return errors.New("annealing factor must be >= 0")
	}
	if h.MinImprovement < 0 || math.IsNaN(h.MinImprovement) {
		return errors.New("min improvement must be >= 0")
	}
	return nil
}

func (h *HillClimber) Tune(ctx context.Context, genes []float64, attempts int, fitness FitnessFn) ([]float64, Report, error) {
	report := Report{AttemptsPlanned: attempts}
	if err := ctx.Err(); err != nil {
		return nil, report, err
	}
	if attempts <= 0 || len(genes) == 0 {
		return append([]float64(nil), genes...), report, nil
	}
	if err := h.validate(); err != nil {
		return nil, report, err
	}
	if fitness == nil {
		return nil, report, errors.New("fitness function is required")
	}
	if len(h.Bounds) != 0 && len(h.Bounds) != len(genes) {
		return nil, report, errors.New("bounds length does not match genes")
	}
	annealing := h.AnnealingFactor
	if annealing == 0 {
		annealing = 1
	}

	best := append([]float64(nil), genes...)
	bestFitness, err := fitness(ctx, best)
	if err != nil {
		return nil, report, err
	}
	report.InitialFitness = bestFitness
	report.FinalFitness = bestFitness
	if h.goalReached(bestFitness) {
		report.GoalReached = true
		return best, report, nil
	}

	for a := 0; a < attempts; a++ {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}
		candidate := h.perturb(best, annealing)
		candidateFitness, err := fitness(ctx, candidate)
		if err != nil {
			return nil, report, err
		}
		report.AttemptsExecuted++
		report.CandidateEvaluations++
		if candidateFitness > bestFitness+h.MinImprovement {
			best, bestFitness = candidate, candidateFitness
			report.AcceptedCandidates++
		} else {
			report.RejectedCandidates++
		}
		if h.goalReached(bestFitness) {
			report.GoalReached = true
			break
		}
	}
	report.FinalFitness = bestFitness

	klog.FromContext(ctx).V(2).Info("tuning finished",
		"tuner", h.Name(),
		"attempts", report.AttemptsExecuted,
		"accepted", report.AcceptedCandidates,
		"initial", report.InitialFitness,
		"final", report.FinalFitness,
	)
	return best, report, nil
}

func (h *HillClimber) goalReached(fitness float64) bool {
	return h.GoalFitness > 0 && fitness >= h.GoalFitness
}

func (h *HillClimber) perturb(base []float64, annealing float64) []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	candidate := append([]float64(nil), base...)
	for s := 0; s < h.Steps; s++ {
		idx := h.Rand.Intn(len(candidate))
		spread := h.StepSize * math.Pow(annealing, float64(s))
		candidate[idx] += (h.Rand.Float64()*2 - 1) * spread
		if len(h.Bounds) != 0 {
			b := h.Bounds[idx]
			candidate[idx] = math.Max(b.Min, math.Min(b.Max, candidate[idx]))
		}
	}
	return candidate
}
