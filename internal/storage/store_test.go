package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"fuzzyga/internal/model"
)

func newStores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	memory := NewMemoryStore()
	sqlite := NewSQLiteStore(filepath.Join(t.TempDir(), "fuzzyga.db"))
	stores := map[string]Store{"memory": memory, "sqlite": sqlite}
	for name, store := range stores {
		if err := store.Init(ctx); err != nil {
			t.Fatalf("init %s: %v", name, err)
		}
	}
	t.Cleanup(func() {
		_ = sqlite.Close()
	})
	return stores
}

func sampleRun(id, created string) model.RunRecord {
	return model.RunRecord{
		VersionedRecord: Stamp(),
		ID:              id,
		DatasetPath:     "data/3dfunc.txt",
		DatasetSize:     81,
		PopulationSize:  20,
		MaxGenerations:  10,
		Generations:     10,
		Evaluations:     182,
		Seed:            7,
		Workers:         2,
		StopReason:      "max_generations",
		BestFitness:     0.25,
		BestMSE:         3,
		CreatedAtUTC:    created,
		ElapsedMillis:   12,
	}
}

func sampleSolution(runID string) model.Solution {
	return model.Solution{
		VersionedRecord: Stamp(),
		RunID:           runID,
		Descriptor: model.DescriptorRecord{
			VersionedRecord: Stamp(),
			Variables:       []string{"x", "y"},
			FuzzySets:       2,
			Shape:           "triangular",
			TNorm:           "einstein",
			Ranges: map[string]model.RangeRecord{
				"center":     {Min: -5, Max: 15},
				"width":      {Min: 1, Max: 5},
				"consequent": {Min: -10, Max: 10},
			},
		},
		Genes:      []float64{0.1, 0.2, 0.3},
		Fitness:    0.25,
		MSE:        3,
		Generation: 9,
	}
}

func TestStoreRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			second := sampleRun("run-b", "2026-01-02T00:00:00Z")
			first := sampleRun("run-a", "2026-01-01T00:00:00Z")
			for _, run := range []model.RunRecord{second, first} {
				if err := store.SaveRun(ctx, run); err != nil {
					t.Fatalf("save run: %v", err)
				}
			}

			loaded, ok, err := store.GetRun(ctx, "run-a")
			if err != nil {
				t.Fatalf("get run: %v", err)
			}
			if !ok {
				t.Fatal("expected run-a")
			}
			if diff := cmp.Diff(first, loaded); diff != "" {
				t.Fatalf("run mismatch (-want +got):\n%s", diff)
			}

			runs, err := store.ListRuns(ctx)
			if err != nil {
				t.Fatalf("list runs: %v", err)
			}
			if len(runs) != 2 || runs[0].ID != "run-a" || runs[1].ID != "run-b" {
				t.Fatalf("unexpected run order: %+v", runs)
			}

			_, ok, err = store.GetRun(ctx, "missing")
			if err != nil || ok {
				t.Fatalf("expected missing run, got ok=%t err=%v", ok, err)
			}
		})
	}
}

func TestStoreListRunsOrdersSubSecondTimestamps(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			runs := []model.RunRecord{
				sampleRun("c-newest", "2026-01-01T00:00:00.5Z"),
				sampleRun("b-newer", "2026-01-01T00:00:00.12Z"),
				sampleRun("a-older", "2026-01-01T00:00:00.1Z"),
				sampleRun("a-oldest", "2026-01-01T00:00:00Z"),
			}
			for _, run := range runs {
				if err := store.SaveRun(ctx, run); err != nil {
					t.Fatalf("save run: %v", err)
				}
			}

			listed, err := store.ListRuns(ctx)
			if err != nil {
				t.Fatalf("list runs: %v", err)
			}
			var ids []string
			for _, run := range listed {
				ids = append(ids, run.ID)
			}
			want := []string{"a-oldest", "a-older", "b-newer", "c-newest"}
			if diff := cmp.Diff(want, ids); diff != "" {
				t.Fatalf("run order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStoreSeriesRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			history := []float64{0.1, 0.2, 0.3}
			if err := store.SaveFitnessHistory(ctx, "run-1", history); err != nil {
				t.Fatalf("save history: %v", err)
			}
			loadedHistory, ok, err := store.GetFitnessHistory(ctx, "run-1")
			if err != nil || !ok {
				t.Fatalf("get history: ok=%t err=%v", ok, err)
			}
			if diff := cmp.Diff(history, loadedHistory); diff != "" {
				t.Fatalf("history mismatch (-want +got):\n%s", diff)
			}

			diagnostics := []model.GenerationDiagnostics{
				{Generation: 0, BestFitness: 0.2, BestEverFitness: 0.2, MeanFitness: 0.1, MinFitness: 0.01, PopulationSize: 4, EvaluatedCount: 4, DistinctGenotypes: 4},
				{Generation: 1, BestFitness: 0.3, BestEverFitness: 0.3, MeanFitness: 0.2, MinFitness: 0.05, PopulationSize: 4, EvaluatedCount: 3, DistinctGenotypes: 3},
			}
			if err := store.SaveGenerationDiagnostics(ctx, "run-1", diagnostics); err != nil {
				t.Fatalf("save diagnostics: %v", err)
			}
			loadedDiagnostics, ok, err := store.GetGenerationDiagnostics(ctx, "run-1")
			if err != nil || !ok {
				t.Fatalf("get diagnostics: ok=%t err=%v", ok, err)
			}
			if diff := cmp.Diff(diagnostics, loadedDiagnostics); diff != "" {
				t.Fatalf("diagnostics mismatch (-want +got):\n%s", diff)
			}

			if _, ok, err := store.GetFitnessHistory(ctx, "other"); err != nil || ok {
				t.Fatalf("expected no history for other run, got ok=%t err=%v", ok, err)
			}
		})
	}
}

func TestStoreBestSolutionAndDelete(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			solution := sampleSolution("run-1")
			if err := store.SaveRun(ctx, sampleRun("run-1", "2026-01-01T00:00:00Z")); err != nil {
				t.Fatalf("save run: %v", err)
			}
			if err := store.SaveFitnessHistory(ctx, "run-1", []float64{0.5}); err != nil {
				t.Fatalf("save history: %v", err)
			}
			if err := store.SaveBestSolution(ctx, solution); err != nil {
				t.Fatalf("save solution: %v", err)
			}

			loaded, ok, err := store.GetBestSolution(ctx, "run-1")
			if err != nil || !ok {
				t.Fatalf("get solution: ok=%t err=%v", ok, err)
			}
			if diff := cmp.Diff(solution, loaded); diff != "" {
				t.Fatalf("solution mismatch (-want +got):\n%s", diff)
			}

			// stored copies are independent of caller slices
			loaded.Genes[0] = 99
			again, _, _ := store.GetBestSolution(ctx, "run-1")
			if again.Genes[0] != 0.1 {
				t.Fatalf("stored solution was aliased: %v", again.Genes)
			}

			if err := store.DeleteRun(ctx, "run-1"); err != nil {
				t.Fatalf("delete run: %v", err)
			}
			if _, ok, _ := store.GetRun(ctx, "run-1"); ok {
				t.Fatal("run still present after delete")
			}
			if _, ok, _ := store.GetFitnessHistory(ctx, "run-1"); ok {
				t.Fatal("history still present after delete")
			}
			if _, ok, _ := store.GetBestSolution(ctx, "run-1"); ok {
				t.Fatal("solution still present after delete")
			}
		})
	}
}

func TestStoresRequireInit(t *testing.T) {
	ctx := context.Background()
	for name, store := range map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": NewSQLiteStore(filepath.Join(t.TempDir(), "x.db")),
	} {
		if err := store.SaveRun(ctx, sampleRun("r", "")); !errors.Is(err, ErrNotInitialized) {
			t.Fatalf("%s: expected ErrNotInitialized, got %v", name, err)
		}
	}
	if err := NewSQLiteStore("").Init(ctx); err == nil {
		t.Fatal("expected error for empty sqlite path")
	}
}
