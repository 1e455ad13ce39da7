package model

import (
	"encoding/json"
	"math"
	"time"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Score is a fitness value that survives JSON encoding even when infinite,
// which is what an exact match to the target scores.
type Score float64

func (s Score) MarshalJSON() ([]byte, error) {
	f := float64(s)
	switch {
	case math.IsInf(f, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Inf"`), nil
	case math.IsNaN(f):
		return []byte(`"NaN"`), nil
	}
	return json.Marshal(f)
}

func (s *Score) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		switch text {
		case "+Inf", "Inf":
			*s = Score(math.Inf(1))
		case "-Inf":
			*s = Score(math.Inf(-1))
		default:
			*s = Score(math.NaN())
		}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*s = Score(f)
	return nil
}

type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// RunConfig is the persisted copy of the parameters a run was started with.
type RunConfig struct {
	Population      int     `json:"population"`
	Threshold       float64 `json:"threshold"`
	MaxGenerations  int     `json:"max_generations"`
	MutationChance  float64 `json:"mutation_chance"`
	CrossoverChance float64 `json:"crossover_chance"`
	Selection       string  `json:"selection"`
	TournamentSize  int     `json:"tournament_size"`
	Seed            int64   `json:"seed"`
}

// RunRecord is the outcome of one evolution run.
type RunRecord struct {
	VersionedRecord
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Config         RunConfig `json:"config"`
	State          string    `json:"state"`
	Generations    int       `json:"generations"`
	BestGeneration int       `json:"best_generation"`
	BestFitness    Score     `json:"best_fitness"`
	Best           []Point   `json:"best"`
	Target         []Point   `json:"target"`
}

type GenerationDiagnostics struct {
	Generation  int   `json:"generation"`
	BestFitness Score `json:"best_fitness"`
	MeanFitness Score `json:"mean_fitness"`
	MinFitness  Score `json:"min_fitness"`
}

// GenerationBest is the fittest series of one generation.
type GenerationBest struct {
	Generation int     `json:"generation"`
	Fitness    Score   `json:"fitness"`
	Points     []Point `json:"points"`
}
