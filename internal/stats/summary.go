package stats

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// RunSummary condenses a best-by-generation series.
type RunSummary struct {
	RunID       string  `json:"run_id"`
	Generations int     `json:"generations"`
	InitialBest float64 `json:"initial_best"`
	FinalBest   float64 `json:"final_best"`
	BestMean    float64 `json:"best_mean"`
	BestStd     float64 `json:"best_std"`
	BestMax     float64 `json:"best_max"`
	BestMin     float64 `json:"best_min"`
	Improvement float64 `json:"improvement"`
	// PeakGeneration is the first generation reaching BestMax, or -1.
	PeakGeneration int `json:"peak_generation"`
}

// SummarizeRun computes series statistics. finalBest is the fitness of the
// returned solution, which can exceed the last generation best.
func SummarizeRun(runID string, bestByGeneration []float64, finalBest float64) RunSummary {
	summary := RunSummary{
		RunID:          runID,
		Generations:    len(bestByGeneration),
		FinalBest:      finalBest,
		PeakGeneration: -1,
	}
	if len(bestByGeneration) == 0 {
		return summary
	}

	summary.InitialBest = bestByGeneration[0]
	summary.BestMean, summary.BestStd = stat.MeanStdDev(bestByGeneration, nil)
	if len(bestByGeneration) < 2 {
		summary.BestStd = 0
	}
	summary.BestMax = floats.Max(bestByGeneration)
	summary.BestMin = floats.Min(bestByGeneration)
	summary.PeakGeneration = floats.MaxIdx(bestByGeneration)
	summary.Improvement = finalBest - summary.InitialBest
	return summary
}
