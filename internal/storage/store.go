package storage

import (
	"context"
	"sort"

	"tsevolve/internal/model"
)

// Store persists run outcomes for reporting. Populations are never stored;
// a run always starts from a freshly bootstrapped population.
type Store interface {
	Init(ctx context.Context) error
	Reset(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	// ListRuns returns every stored run, newest first.
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveFitnessHistory(ctx context.Context, runID string, history []model.Score) error
	GetFitnessHistory(ctx context.Context, runID string) ([]model.Score, bool, error)
	SaveGenerationDiagnostics(ctx context.Context, runID string, diagnostics []model.GenerationDiagnostics) error
	GetGenerationDiagnostics(ctx context.Context, runID string) ([]model.GenerationDiagnostics, bool, error)
	SaveGenerationBests(ctx context.Context, runID string, bests []model.GenerationBest) error
	GetGenerationBests(ctx context.Context, runID string) ([]model.GenerationBest, bool, error)
}

func sortRunsNewestFirst(runs []model.RunRecord) {
	sort.SliceStable(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].ID < runs[j].ID
	})
}

func cloneGenerationBests(bests []model.GenerationBest) []model.GenerationBest {
	copied := make([]model.GenerationBest, len(bests))
	for i, b := range bests {
		copied[i] = model.GenerationBest{
			Generation: b.Generation,
			Fitness:    b.Fitness,
			Points:     append([]model.Point(nil), b.Points...),
		}
	}
	return copied
}

func cloneRun(run model.RunRecord) model.RunRecord {
	run.Best = append([]model.Point(nil), run.Best...)
	run.Target = append([]model.Point(nil), run.Target...)
	return run
}
