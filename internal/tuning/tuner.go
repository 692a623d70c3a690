package tuning

import (
	"context"
)

// FitnessFn scores a gene vector. Higher is better.
type FitnessFn func(ctx context.Context, genes []float64) (float64, error)

// Report describes one tuning pass.
type Report struct {
	AttemptsPlanned      int     `json:"attempts_planned"`
	AttemptsExecuted     int     `json:"attempts_executed"`
	CandidateEvaluations int     `json:"candidate_evaluations"`
	AcceptedCandidates   int     `json:"accepted_candidates"`
	RejectedCandidates   int     `json:"rejected_candidates"`
	GoalReached          bool    `json:"goal_reached"`
	InitialFitness       float64 `json:"initial_fitness"`
	FinalFitness         float64 `json:"final_fitness"`
}

// Improvement is the fitness gained by the pass.
func (r Report) Improvement() float64 {
	return r.FinalFitness - r.InitialFitness
}

// Tuner refines a single solution after evolution.
type Tuner interface {
	Name() string
	Tune(ctx context.Context, genes []float64, attempts int, fitness FitnessFn) ([]float64, Report, error)
}
