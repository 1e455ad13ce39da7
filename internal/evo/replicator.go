package evo

import (
	"fmt"
	"math/rand"
)

// Replicator is the capability a candidate type must provide to be evolved.
//
// Fitness must be a pure, deterministic and total function of the current
// state; larger values are fitter. Crossover always yields two children,
// even for identical parents. Mutate may run any number of times without
// breaking the structural invariants of the concrete type. Violations are
// caller bugs and are not detected by the Environment.
type Replicator[R any] interface {
	Fitness() float64
	Mutate(rng *rand.Rand) error
	Crossover(rng *rand.Rand, other R) (R, R, error)
}

// Spawner produces random valid instances of a replicator type. It is only
// used to bootstrap a population.
type Spawner[R any] interface {
	RandomInstance(rng *rand.Rand) (R, error)
}

// Cloner is implemented by replicators that can produce an independent copy.
// Parents carried over unchanged into the next generation are cloned when
// available, so a later Mutate never touches a slot shared with another slot
// or with a recorded history entry.
type Cloner[R any] interface {
	Clone() R
}

// Bootstrap builds a population of size random instances.
func Bootstrap[R any](spawner Spawner[R], size int, rng *rand.Rand) ([]R, error) {
	if spawner == nil {
		return nil, fmt.Errorf("spawner is required")
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if size <= 0 {
		return nil, ErrEmptyPopulation
	}
	population := make([]R, 0, size)
	for i := 0; i < size; i++ {
		individual, err := spawner.RandomInstance(rng)
		if err != nil {
			return nil, err
		}
		population = append(population, individual)
	}
	return population, nil
}

func carry[R Replicator[R]](individual R) R {
	if cloner, ok := any(individual).(Cloner[R]); ok {
		return cloner.Clone()
	}
	return individual
}
