package storage

import (
	"context"
	"errors"

	"fuzzyga/internal/model"
)

// Store persists run records and the per-run series produced by evolution.
// Get methods report absence with ok=false rather than an error.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	DeleteRun(ctx context.Context, id string) error
	SaveFitnessHistory(ctx context.Context, runID string, history []float64) error
	GetFitnessHistory(ctx context.Context, runID string) ([]float64, bool, error)
	SaveGenerationDiagnostics(ctx context.Context, runID string, diagnostics []model.GenerationDiagnostics) error
	GetGenerationDiagnostics(ctx context.Context, runID string) ([]model.GenerationDiagnostics, bool, error)
	SaveBestSolution(ctx context.Context, solution model.Solution) error
	GetBestSolution(ctx context.Context, runID string) (model.Solution, bool, error)
}

var ErrNotInitialized = errors.New("store is not initialized")
