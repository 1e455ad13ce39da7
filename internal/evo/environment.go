package evo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrEmptyPopulation = errors.New("initial population is empty")
	ErrInvalidConfig   = errors.New("invalid environment config")
	ErrAlreadyRan      = errors.New("environment has already run")
)

var configValidate = validator.New()

// State is the terminal state of a run.
type State string

const (
	StateConverged State = "converged"
	StateExhausted State = "exhausted"
)

// Config holds the tunable parameters of an Environment. It is copied by
// NewEnvironment and never changes afterwards.
type Config struct {
	Threshold       float64       `json:"threshold"`
	MaxGenerations  int           `json:"max_generations" validate:"gt=0"`
	MutationChance  float64       `json:"mutation_chance" validate:"gte=0,lte=1"`
	CrossoverChance float64       `json:"crossover_chance" validate:"gte=0,lte=1"`
	Selection       SelectionType `json:"selection" validate:"oneof=roulette tournament"`
	TournamentSize  int           `json:"tournament_size" validate:"gte=0"`
	TrackHistory    bool          `json:"track_history"`
	Seed            int64         `json:"seed"`
	// Rand overrides the source seeded from Seed.
	Rand *rand.Rand `json:"-" validate:"-"`
}

// DefaultConfig returns the library defaults: 100
// generations, 1% mutation, 70% crossover, tournament selection.
func DefaultConfig(threshold float64) Config {
	return Config{
		Threshold:       threshold,
		MaxGenerations:  100,
		MutationChance:  0.01,
		CrossoverChance: 0.7,
		Selection:       SelectionTournament,
	}
}

// GenerationDiagnostics summarizes the fitness vector of one executed
// generation.
type GenerationDiagnostics struct {
	Generation  int     `json:"generation"`
	BestFitness float64 `json:"best_fitness"`
	MeanFitness float64 `json:"mean_fitness"`
	MinFitness  float64 `json:"min_fitness"`
}

// Result is the outcome of Environment.Run.
type Result[R Replicator[R]] struct {
	State State
	// Best is the converging individual, or the fittest individual seen
	// across all executed generations when the budget was exhausted.
	//
	// Best and History hold references, not snapshots. When R does not
	// implement Cloner, a parent carried into the next generation is the
	// same value as these entries, and a later Mutate changes what their
	// Fitness reports. BestFitness always keeps the value recorded when
	// Best was chosen.
	Best R
	// BestFitness is the fitness of Best at the generation it was recorded.
	BestFitness    float64
	BestGeneration int
	// Generations is the number of generations actually executed.
	Generations int
	// History holds the best individual of every executed generation when
	// Config.TrackHistory is set. Without Cloner, entries may alias each
	// other and the live population, as described for Best.
	History     []R
	Diagnostics []GenerationDiagnostics
}

// Environment owns a population and evolves it until the threshold is met
// or the generation budget runs out. It is single use and not safe for
// concurrent use.
type Environment[R Replicator[R]] struct {
	cfg        Config
	rng        *rand.Rand
	selector   Selector[R]
	population []R
	ran        bool
}

// NewEnvironment validates cfg and takes a copy of population.
func NewEnvironment[R Replicator[R]](population []R, cfg Config) (*Environment[R], error) {
	if len(population) == 0 {
		return nil, ErrEmptyPopulation
	}
	if math.IsNaN(cfg.Threshold) {
		return nil, fmt.Errorf("%w: Threshold must not be NaN", ErrInvalidConfig)
	}
	if cfg.Selection == "" {
		cfg.Selection = SelectionTournament
	}
	if err := configValidate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, describeValidation(err))
	}

	selector, err := NewSelector[R](cfg.Selection, cfg.TournamentSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(cfg.Seed))
	}

	owned := make([]R, len(population))
	copy(owned, population)

	return &Environment[R]{
		cfg:        cfg,
		rng:        rng,
		selector:   selector,
		population: owned,
	}, nil
}

// Config returns the configuration the environment was built with.
func (e *Environment[R]) Config() Config {
	return e.cfg
}

// Population returns a copy of the current population buffer.
func (e *Environment[R]) Population() []R {
	out := make([]R, len(e.population))
	copy(out, e.population)
	return out
}

// Run executes generations until convergence or exhaustion. Errors raised by
// the replicators are returned unchanged and abort the run. ctx is only
// checked between generations.
func (e *Environment[R]) Run(ctx context.Context) (Result[R], error) {
	if e.ran {
		return Result[R]{}, ErrAlreadyRan
	}
	e.ran = true

	result := Result[R]{
		Diagnostics: make([]GenerationDiagnostics, 0, min(e.cfg.MaxGenerations, 1024)),
	}
	if e.cfg.TrackHistory {
		result.History = make([]R, 0, min(e.cfg.MaxGenerations, 1024))
	}
	haveBest := false

	for gen := 0; ; {
		if err := ctx.Err(); err != nil {
			return Result[R]{}, err
		}

		fitness := make([]float64, len(e.population))
		for i, individual := range e.population {
			fitness[i] = individual.Fitness()
		}
		bestIdx := argmax(fitness)
		best := e.population[bestIdx]
		bestFit := fitness[bestIdx]

		result.Diagnostics = append(result.Diagnostics, summarize(gen, fitness))
		result.Generations = gen + 1
		if e.cfg.TrackHistory {
			result.History = append(result.History, best)
		}
		if !haveBest || bestFit > result.BestFitness {
			result.Best = best
			result.BestFitness = bestFit
			result.BestGeneration = gen
			haveBest = true
		}

		if bestFit >= e.cfg.Threshold {
			result.State = StateConverged
			result.Best = best
			result.BestFitness = bestFit
			result.BestGeneration = gen
			return result, nil
		}

		if err := e.reproduce(); err != nil {
			return Result[R]{}, err
		}
		if err := e.mutate(); err != nil {
			return Result[R]{}, err
		}

		gen++
		if gen == e.cfg.MaxGenerations {
			result.State = StateExhausted
			return result, nil
		}
	}
}

// reproduce replaces the whole population with a new generation of the same
// size.
func (e *Environment[R]) reproduce() error {
	size := len(e.population)
	next := make([]R, 0, size+1)

	for len(next) < size {
		father, mother, err := e.selector.PickParents(e.rng, e.population)
		if err != nil {
			return err
		}

		if e.rng.Float64() < e.cfg.CrossoverChance {
			first, second, err := father.Crossover(e.rng, mother)
			if err != nil {
				return err
			}
			next = append(next, first, second)
		} else {
			next = append(next, carry(father), carry(mother))
		}
	}

	// Each iteration adds two, so at most one extra individual.
	if len(next) > size {
		next = next[:size]
	}

	e.population = next
	return nil
}

func (e *Environment[R]) mutate() error {
	for _, individual := range e.population {
		if e.rng.Float64() < e.cfg.MutationChance {
			if err := individual.Mutate(e.rng); err != nil {
				return err
			}
		}
	}
	return nil
}

func argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}

func summarize(gen int, fitness []float64) GenerationDiagnostics {
	d := GenerationDiagnostics{
		Generation:  gen,
		BestFitness: fitness[0],
		MinFitness:  fitness[0],
	}
	sum := 0.0
	for _, f := range fitness {
		sum += f
		if f > d.BestFitness {
			d.BestFitness = f
		}
		if f < d.MinFitness {
			d.MinFitness = f
		}
	}
	d.MeanFitness = sum / float64(len(fitness))
	return d
}

func describeValidation(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
