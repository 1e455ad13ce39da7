package evo

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

// ErrNoSelectionWeight is returned by roulette selection when the fitness
// weights do not sum to a positive value.
var ErrNoSelectionWeight = errors.New("roulette selection requires a positive total fitness")

// SelectionType names a parent selection strategy.
type SelectionType string

const (
	SelectionRoulette   SelectionType = "roulette"
	SelectionTournament SelectionType = "tournament"
)

// ParseSelectionType accepts the strategy name in any letter case.
func ParseSelectionType(name string) (SelectionType, error) {
	switch SelectionType(strings.ToLower(strings.TrimSpace(name))) {
	case SelectionRoulette:
		return SelectionRoulette, nil
	case SelectionTournament, "":
		return SelectionTournament, nil
	default:
		return "", fmt.Errorf("unsupported selection strategy: %s", name)
	}
}

// Selector chooses a pair of parents from a population. Both parents may be
// the same individual.
type Selector[R Replicator[R]] interface {
	Name() string
	PickParents(rng *rand.Rand, population []R) (R, R, error)
}

// NewSelector maps a selection type to its strategy. tournamentSize is only
// used by tournament selection.
func NewSelector[R Replicator[R]](kind SelectionType, tournamentSize int) (Selector[R], error) {
	switch kind {
	case SelectionRoulette:
		return RouletteSelector[R]{}, nil
	case SelectionTournament:
		return TournamentSelector[R]{Size: tournamentSize}, nil
	default:
		return nil, fmt.Errorf("unsupported selection strategy: %s", kind)
	}
}

// RouletteSelector draws two parents with replacement, each with probability
// proportional to its fitness.
//
// All fitness values must be non-negative. A negative fitness is a caller
// contract violation and the resulting draw is undefined.
type RouletteSelector[R Replicator[R]] struct{}

func (RouletteSelector[R]) Name() string {
	return string(SelectionRoulette)
}

func (RouletteSelector[R]) PickParents(rng *rand.Rand, population []R) (R, R, error) {
	var zero R
	if rng == nil {
		return zero, zero, fmt.Errorf("random source is required")
	}
	if len(population) == 0 {
		return zero, zero, ErrEmptyPopulation
	}

	wheel := make([]float64, len(population))
	total := 0.0
	for i, individual := range population {
		total += individual.Fitness()
		wheel[i] = total
	}
	if !(total > 0) {
		return zero, zero, ErrNoSelectionWeight
	}

	spin := func() R {
		target := rng.Float64() * total
		idx := sort.Search(len(wheel), func(i int) bool { return wheel[i] > target })
		if idx == len(wheel) {
			idx = len(wheel) - 1
		}
		return population[idx]
	}
	first := spin()
	second := spin()
	return first, second, nil
}

// TournamentSelector samples Size individuals uniformly with replacement and
// returns the two fittest of the sample. Size <= 0 uses half the population.
// When Size covers the whole population every member competes, so the two
// fittest members of the population are returned.
type TournamentSelector[R Replicator[R]] struct {
	Size int
}

func (TournamentSelector[R]) Name() string {
	return string(SelectionTournament)
}

func (s TournamentSelector[R]) PickParents(rng *rand.Rand, population []R) (R, R, error) {
	var zero R
	if rng == nil {
		return zero, zero, fmt.Errorf("random source is required")
	}
	if len(population) == 0 {
		return zero, zero, ErrEmptyPopulation
	}

	size := s.Size
	if size <= 0 {
		size = len(population) / 2
	}
	if size < 1 {
		size = 1
	}

	var participants []R
	if size >= len(population) {
		participants = population
	} else {
		participants = make([]R, size)
		for i := range participants {
			participants[i] = population[rng.Intn(len(population))]
		}
	}

	first, second := topTwo(participants)
	return participants[first], participants[second], nil
}

// topTwo returns the indexes of the two largest fitness values, earliest
// index first on ties. A single participant is returned twice.
func topTwo[R Replicator[R]](participants []R) (int, int) {
	best, runnerUp := 0, -1
	bestFit := participants[0].Fitness()
	runnerUpFit := 0.0
	for i := 1; i < len(participants); i++ {
		fit := participants[i].Fitness()
		switch {
		case fit > bestFit:
			runnerUp, runnerUpFit = best, bestFit
			best, bestFit = i, fit
		case runnerUp < 0 || fit > runnerUpFit:
			runnerUp, runnerUpFit = i, fit
		}
	}
	if runnerUp < 0 {
		runnerUp = best
	}
	return best, runnerUp
}
