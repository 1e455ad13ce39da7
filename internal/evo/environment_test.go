package evo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCounters struct {
	mutations  int
	crossovers int
	clones     int
}

type stub struct {
	id          string
	fitness     float64
	child       bool
	mutateDelta float64
	childBonus  float64
	crossErr    error
	mutateErr   error
	counters    *stubCounters
}

func (s *stub) Fitness() float64 {
	return s.fitness
}

func (s *stub) Mutate(_ *rand.Rand) error {
	s.counters.mutations++
	if s.mutateErr != nil {
		return s.mutateErr
	}
	s.fitness += s.mutateDelta
	return nil
}

func (s *stub) Crossover(_ *rand.Rand, other *stub) (*stub, *stub, error) {
	s.counters.crossovers++
	if s.crossErr != nil {
		return nil, nil, s.crossErr
	}
	fit := math.Max(s.fitness, other.fitness) + s.childBonus
	first := *s
	first.id, first.child, first.fitness = s.id+"x"+other.id, true, fit
	second := *other
	second.id, second.child, second.fitness = other.id+"x"+s.id, true, fit
	return &first, &second, nil
}

func (s *stub) Clone() *stub {
	s.counters.clones++
	c := *s
	return &c
}

func newStubs(counters *stubCounters, fitness ...float64) []*stub {
	if counters == nil {
		counters = &stubCounters{}
	}
	out := make([]*stub, len(fitness))
	for i, f := range fitness {
		out[i] = &stub{id: fmt.Sprintf("s%d", i), fitness: f, counters: counters}
	}
	return out
}

type stubSpawner struct {
	counters *stubCounters
	next     int
	err      error
}

func (s *stubSpawner) RandomInstance(rng *rand.Rand) (*stub, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.next++
	return &stub{id: fmt.Sprintf("r%d", s.next), fitness: rng.Float64(), counters: s.counters}, nil
}

func testConfig(threshold float64) Config {
	cfg := DefaultConfig(threshold)
	cfg.Seed = 42
	return cfg
}

func TestNewEnvironmentRejectsInvalidConfig(t *testing.T) {
	population := newStubs(nil, 1, 2)
	cases := map[string]func(*Config){
		"mutation above one":    func(c *Config) { c.MutationChance = 1.5 },
		"mutation below zero":   func(c *Config) { c.MutationChance = -0.1 },
		"crossover above one":   func(c *Config) { c.CrossoverChance = 1.01 },
		"crossover below zero":  func(c *Config) { c.CrossoverChance = -1 },
		"zero generations":      func(c *Config) { c.MaxGenerations = 0 },
		"negative generations":  func(c *Config) { c.MaxGenerations = -3 },
		"unknown selection":     func(c *Config) { c.Selection = "elite" },
		"negative tournament k": func(c *Config) { c.TournamentSize = -1 },
		"NaN threshold":         func(c *Config) { c.Threshold = math.NaN() },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig(10)
			mutate(&cfg)
			_, err := NewEnvironment(population, cfg)
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := NewEnvironment([]*stub{}, testConfig(10))
	require.ErrorIs(t, err, ErrEmptyPopulation)
}

func TestNewEnvironmentDefaultsToTournamentSelection(t *testing.T) {
	cfg := testConfig(10)
	cfg.Selection = ""
	env, err := NewEnvironment(newStubs(nil, 1), cfg)
	require.NoError(t, err)
	assert.Equal(t, SelectionTournament, env.Config().Selection)
}

func TestRunKeepsPopulationSizeAcrossGenerations(t *testing.T) {
	for _, size := range []int{1, 2, 5, 8} {
		fitness := make([]float64, size)
		for i := range fitness {
			fitness[i] = float64(i + 1)
		}
		for _, kind := range []SelectionType{SelectionRoulette, SelectionTournament} {
			t.Run(fmt.Sprintf("%s/%d", kind, size), func(t *testing.T) {
				cfg := testConfig(math.Inf(1))
				cfg.Selection = kind
				cfg.CrossoverChance = 0.5
				cfg.MutationChance = 0.5
				env, err := NewEnvironment(newStubs(nil, fitness...), cfg)
				require.NoError(t, err)

				for gen := 0; gen < 10; gen++ {
					require.NoError(t, env.reproduce())
					require.Len(t, env.Population(), size)
					require.NoError(t, env.mutate())
					require.Len(t, env.Population(), size)
				}
			})
		}
	}
}

func TestReproduceWithoutCrossoverOnlyCarriesParents(t *testing.T) {
	counters := &stubCounters{}
	initial := newStubs(counters, 1, 2, 3, 4, 5)
	cfg := testConfig(100)
	cfg.CrossoverChance = 0
	cfg.Selection = SelectionRoulette
	env, err := NewEnvironment(initial, cfg)
	require.NoError(t, err)

	known := map[string]*stub{}
	for _, s := range initial {
		known[s.id] = s
	}

	require.NoError(t, env.reproduce())
	next := env.Population()
	require.Len(t, next, len(initial))
	for _, s := range next {
		parent, ok := known[s.id]
		require.True(t, ok, "unexpected individual %s", s.id)
		assert.False(t, s.child)
		assert.NotSame(t, parent, s, "carried parents are cloned")
		assert.Equal(t, parent.fitness, s.fitness)
	}
	assert.Zero(t, counters.crossovers)
}

func TestReproduceAlwaysRecombinesWithFullCrossoverChance(t *testing.T) {
	counters := &stubCounters{}
	cfg := testConfig(100)
	cfg.CrossoverChance = 1
	env, err := NewEnvironment(newStubs(counters, 1, 2, 3), cfg)
	require.NoError(t, err)

	require.NoError(t, env.reproduce())
	for _, s := range env.Population() {
		assert.True(t, s.child)
	}
	assert.Equal(t, 2, counters.crossovers)
}

func TestRunExhaustsSingleGenerationScenario(t *testing.T) {
	counters := &stubCounters{}
	initial := newStubs(counters, 1, 2, 3, 4)
	cfg := testConfig(100)
	cfg.MaxGenerations = 1
	cfg.MutationChance = 0
	cfg.CrossoverChance = 0
	cfg.TrackHistory = true
	env, err := NewEnvironment(initial, cfg)
	require.NoError(t, err)

	result, err := env.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateExhausted, result.State)
	assert.Same(t, initial[3], result.Best)
	assert.Equal(t, 4.0, result.BestFitness)
	assert.Equal(t, 1, result.Generations)
	require.Len(t, result.History, 1)
	assert.Same(t, initial[3], result.History[0])
	assert.Zero(t, counters.mutations)
	assert.Zero(t, counters.crossovers)
}

func TestRunConvergesBeforeReproductionWhenThresholdIsLow(t *testing.T) {
	counters := &stubCounters{}
	initial := newStubs(counters, 5, 3, 7, 7)
	cfg := testConfig(2)
	cfg.MutationChance = 1
	cfg.CrossoverChance = 1
	cfg.TrackHistory = true
	env, err := NewEnvironment(initial, cfg)
	require.NoError(t, err)

	result, err := env.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateConverged, result.State)
	assert.Same(t, initial[2], result.Best, "first maximal element wins ties")
	assert.Equal(t, 0, result.BestGeneration)
	assert.Equal(t, 1, result.Generations)
	assert.Len(t, result.History, 1)
	assert.Zero(t, counters.mutations)
	assert.Zero(t, counters.crossovers)
}

func TestRunConvergesAtFirstGenerationReachingThreshold(t *testing.T) {
	counters := &stubCounters{}
	initial := newStubs(counters, 1, 1, 1, 1, 1, 1)
	for _, s := range initial {
		s.childBonus = 1
	}
	cfg := testConfig(5)
	cfg.CrossoverChance = 1
	cfg.MutationChance = 0
	cfg.MaxGenerations = 50
	cfg.TrackHistory = true
	env, err := NewEnvironment(initial, cfg)
	require.NoError(t, err)

	result, err := env.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateConverged, result.State)
	assert.GreaterOrEqual(t, result.Best.Fitness(), 5.0)
	require.Len(t, result.Diagnostics, result.Generations)
	require.Len(t, result.History, result.Generations)
	for _, d := range result.Diagnostics[:len(result.Diagnostics)-1] {
		assert.Less(t, d.BestFitness, 5.0, "generation %d already converged", d.Generation)
	}
	assert.Same(t, result.History[len(result.History)-1], result.Best)
}

func TestRunExhaustedReturnsBestEverNotLastGeneration(t *testing.T) {
	counters := &stubCounters{}
	initial := newStubs(counters, 10, 1, 2, 3)
	for _, s := range initial {
		s.mutateDelta = -5
	}
	cfg := testConfig(100)
	cfg.CrossoverChance = 0
	cfg.MutationChance = 1
	cfg.MaxGenerations = 4
	env, err := NewEnvironment(initial, cfg)
	require.NoError(t, err)

	result, err := env.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateExhausted, result.State)
	assert.Equal(t, 4, result.Generations)
	assert.Equal(t, 10.0, result.BestFitness)
	assert.Equal(t, 10.0, result.Best.Fitness(), "best-ever is not mutated after being recorded")
	assert.Equal(t, 0, result.BestGeneration)
	assert.Less(t, result.Diagnostics[len(result.Diagnostics)-1].BestFitness, 10.0)
	assert.Nil(t, result.History, "history is only kept when tracked")
}

func TestRunDiagnosticsSummarizeFitness(t *testing.T) {
	cfg := testConfig(100)
	cfg.MaxGenerations = 1
	env, err := NewEnvironment(newStubs(nil, 2, 4, 6), cfg)
	require.NoError(t, err)

	result, err := env.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, GenerationDiagnostics{Generation: 0, BestFitness: 6, MeanFitness: 4, MinFitness: 2}, result.Diagnostics[0])
}

func TestRunPropagatesReplicatorErrorsUnchanged(t *testing.T) {
	errMismatch := errors.New("mismatched candidate shape")
	initial := newStubs(nil, 1, 2, 3)
	for _, s := range initial {
		s.crossErr = errMismatch
	}
	cfg := testConfig(100)
	cfg.CrossoverChance = 1
	env, err := NewEnvironment(initial, cfg)
	require.NoError(t, err)

	_, err = env.Run(context.Background())
	assert.Equal(t, errMismatch, err)
}

func TestRunPropagatesMutateErrorUnchanged(t *testing.T) {
	errBroken := errors.New("mutation broke an invariant")
	counters := &stubCounters{}
	initial := newStubs(counters, 1, 2, 3)
	for _, s := range initial {
		s.mutateErr = errBroken
	}
	cfg := testConfig(100)
	cfg.MaxGenerations = 3
	cfg.MutationChance = 1
	cfg.CrossoverChance = 0
	env, err := NewEnvironment(initial, cfg)
	require.NoError(t, err)

	result, err := env.Run(context.Background())
	assert.Equal(t, errBroken, err)
	assert.Zero(t, result.Generations)
	assert.Equal(t, 1, counters.mutations, "the first failure aborts the run")
}

// plain does not implement Cloner, so carried parents are shared.
type plain struct {
	fitness float64
}

func (p *plain) Fitness() float64 {
	return p.fitness
}

func (p *plain) Mutate(_ *rand.Rand) error {
	p.fitness--
	return nil
}

func (p *plain) Crossover(_ *rand.Rand, other *plain) (*plain, *plain, error) {
	first, second := *p, *other
	return &first, &second, nil
}

func TestRunBestAliasesCarriedParentsWithoutCloner(t *testing.T) {
	cfg := testConfig(100)
	cfg.MaxGenerations = 3
	cfg.MutationChance = 1
	cfg.CrossoverChance = 0
	cfg.TrackHistory = true
	env, err := NewEnvironment([]*plain{{fitness: 5}}, cfg)
	require.NoError(t, err)

	result, err := env.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateExhausted, result.State)
	assert.Equal(t, 5.0, result.BestFitness, "recorded at selection time")
	assert.Equal(t, 0, result.BestGeneration)
	assert.Equal(t, 2.0, result.Best.Fitness(), "mutated after it was recorded")
	require.Len(t, result.History, 3)
	assert.Same(t, result.History[0], result.History[2])
}

func TestRunBestIsIndependentWithCloner(t *testing.T) {
	counters := &stubCounters{}
	initial := newStubs(counters, 5)
	initial[0].mutateDelta = -1
	cfg := testConfig(100)
	cfg.MaxGenerations = 3
	cfg.MutationChance = 1
	cfg.CrossoverChance = 0
	env, err := NewEnvironment(initial, cfg)
	require.NoError(t, err)

	result, err := env.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5.0, result.BestFitness)
	assert.Equal(t, result.BestFitness, result.Best.Fitness())
	assert.Positive(t, counters.clones)
}

func TestRunIsSingleUse(t *testing.T) {
	cfg := testConfig(0)
	env, err := NewEnvironment(newStubs(nil, 1), cfg)
	require.NoError(t, err)

	_, err = env.Run(context.Background())
	require.NoError(t, err)
	_, err = env.Run(context.Background())
	require.ErrorIs(t, err, ErrAlreadyRan)
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	env, err := NewEnvironment(newStubs(nil, 1, 2), testConfig(100))
	require.NoError(t, err)

	_, err = env.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunIsDeterministicForAFixedSeed(t *testing.T) {
	run := func() Result[*stub] {
		initial := newStubs(nil, 1, 5, 2, 8, 3, 4)
		for _, s := range initial {
			s.childBonus = 0.5
			s.mutateDelta = -0.25
		}
		cfg := testConfig(1000)
		cfg.MaxGenerations = 20
		cfg.MutationChance = 0.3
		cfg.CrossoverChance = 0.6
		env, err := NewEnvironment(initial, cfg)
		require.NoError(t, err)
		result, err := env.Run(context.Background())
		require.NoError(t, err)
		return result
	}
	assert.Equal(t, run().Diagnostics, run().Diagnostics)
}

func TestBootstrap(t *testing.T) {
	spawner := &stubSpawner{counters: &stubCounters{}}
	population, err := Bootstrap[*stub](spawner, 7, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Len(t, population, 7)

	_, err = Bootstrap[*stub](spawner, 0, rand.New(rand.NewSource(1)))
	require.ErrorIs(t, err, ErrEmptyPopulation)

	_, err = Bootstrap[*stub](spawner, 3, nil)
	require.Error(t, err)
}

func TestBootstrapReturnsSpawnerErrorUnchanged(t *testing.T) {
	errExhausted := errors.New("no valid instance")
	spawner := &stubSpawner{counters: &stubCounters{}, err: errExhausted}

	population, err := Bootstrap[*stub](spawner, 4, rand.New(rand.NewSource(1)))
	assert.Equal(t, errExhausted, err)
	assert.Nil(t, population)
}
