package series

import (
	"math/rand"
	"time"
)

// Pairwise returns consecutive pairs: s0,s1 s1,s2 ...
func Pairwise[T any](items []T) [][2]T {
	if len(items) < 2 {
		return nil
	}
	out := make([][2]T, 0, len(items)-1)
	for i := 1; i < len(items); i++ {
		out = append(out, [2]T{items[i-1], items[i]})
	}
	return out
}

// RandomTime returns a uniformly distributed time in [start, end].
func RandomTime(rng *rand.Rand, start, end time.Time) time.Time {
	span := end.Sub(start).Seconds()
	return start.Add(secondsToDuration(span * rng.Float64()))
}

// Uniform returns a uniformly distributed value in [low, high].
func Uniform(rng *rand.Rand, low, high float64) float64 {
	return low + (high-low)*rng.Float64()
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
