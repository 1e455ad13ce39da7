package storage

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tsevolve/internal/model"
)

func sampleRun(id string, createdAt time.Time) model.RunRecord {
	return model.RunRecord{
		VersionedRecord: CurrentVersion(),
		ID:              id,
		CreatedAt:       createdAt,
		Config:          model.RunConfig{Population: 4, Threshold: 1, MaxGenerations: 10, Selection: "tournament"},
		State:           "exhausted",
		Generations:     10,
		BestFitness:     0.5,
		Best:            []model.Point{{Time: createdAt, Value: 1}},
		Target:          []model.Point{{Time: createdAt, Value: 2}},
	}
}

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Init(ctx))

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	older := sampleRun("run-a", base)
	newer := sampleRun("run-b", base.Add(time.Minute))
	newer.BestFitness = model.Score(math.Inf(1))
	for _, run := range []model.RunRecord{older, newer} {
		require.NoError(t, store.SaveRun(ctx, run), "save run %s", run.ID)
	}

	loaded, ok, err := store.GetRun(ctx, "run-b")
	require.NoError(t, err)
	require.True(t, ok, "expected persisted run")
	assert.True(t, math.IsInf(float64(loaded.BestFitness), 1), "best fitness %v", loaded.BestFitness)
	assert.Len(t, loaded.Best, 1)

	_, ok, err = store.GetRun(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-b", runs[0].ID, "newest first")
	assert.Equal(t, "run-a", runs[1].ID)

	history := []model.Score{0.1, 0.2, model.Score(math.Inf(1))}
	require.NoError(t, store.SaveFitnessHistory(ctx, "run-b", history))
	gotHistory, ok, err := store.GetFitnessHistory(ctx, "run-b")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, gotHistory, 3)
	assert.Equal(t, model.Score(0.2), gotHistory[1])
	assert.True(t, math.IsInf(float64(gotHistory[2]), 1))

	diagnostics := []model.GenerationDiagnostics{{Generation: 0, BestFitness: 0.3, MeanFitness: 0.2, MinFitness: 0.1}}
	require.NoError(t, store.SaveGenerationDiagnostics(ctx, "run-b", diagnostics))
	gotDiagnostics, ok, err := store.GetGenerationDiagnostics(ctx, "run-b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, diagnostics, gotDiagnostics)

	bests := []model.GenerationBest{{Generation: 0, Fitness: 0.3, Points: []model.Point{{Time: base, Value: 4}}}}
	require.NoError(t, store.SaveGenerationBests(ctx, "run-b", bests))
	gotBests, ok, err := store.GetGenerationBests(ctx, "run-b")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, gotBests, 1)
	require.Len(t, gotBests[0].Points, 1)
	assert.Equal(t, 4.0, gotBests[0].Points[0].Value)
	assert.True(t, gotBests[0].Points[0].Time.Equal(base))

	require.NoError(t, store.Reset(ctx))
	runs, err = store.ListRuns(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)
	_, ok, err = store.GetFitnessHistory(ctx, "run-b")
	require.NoError(t, err)
	assert.False(t, ok, "history cleared by reset")
}
