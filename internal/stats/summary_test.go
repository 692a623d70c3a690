package stats

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestSummarizeRun(t *testing.T) {
	got := SummarizeRun("run-1", []float64{0.2, 0.6, 0.4}, 0.6)
	want := RunSummary{
		RunID:          "run-1",
		Generations:    3,
		InitialBest:    0.2,
		FinalBest:      0.6,
		BestMean:       0.4,
		BestStd:        0.2, // sample std of {0.2, 0.6, 0.4}
		BestMax:        0.6,
		BestMin:        0.2,
		Improvement:    0.4,
		PeakGeneration: 1,
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarizeRunDegenerateSeries(t *testing.T) {
	empty := SummarizeRun("run-0", nil, 0)
	if empty.Generations != 0 || empty.PeakGeneration != -1 {
		t.Fatalf("unexpected empty summary: %+v", empty)
	}

	single := SummarizeRun("run-1", []float64{0.3}, 0.5)
	if single.BestStd != 0 || single.BestMean != 0.3 || single.PeakGeneration != 0 {
		t.Fatalf("unexpected single summary: %+v", single)
	}
	if math.Abs(single.Improvement-0.2) > 1e-12 {
		t.Fatalf("unexpected improvement: %f", single.Improvement)
	}
}
