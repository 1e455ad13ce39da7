// Package config loads run configuration from YAML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ncruces/go-strftime"
	"gopkg.in/yaml.v3"

	"tsevolve/internal/candidate"
	"tsevolve/internal/evo"
	"tsevolve/internal/series"
)

// DefaultTimeFormat is the strftime layout of target timestamps.
const DefaultTimeFormat = "%Y-%m-%d %H:%M"

var ErrInvalid = errors.New("invalid run config")

var validate = validator.New()

type TargetPoint struct {
	Time  string  `yaml:"time" validate:"required"`
	Value float64 `yaml:"value"`
}

// Run describes one evolution run. Seed 0 asks the runner to derive a seed
// from the clock.
type Run struct {
	RunID           string        `yaml:"run_id,omitempty"`
	Seed            int64         `yaml:"seed"`
	Population      int           `yaml:"population" validate:"gt=0"`
	Threshold       float64       `yaml:"threshold"`
	MaxGenerations  int           `yaml:"max_generations" validate:"gt=0"`
	MutationChance  float64       `yaml:"mutation_chance" validate:"gte=0,lte=1"`
	CrossoverChance float64       `yaml:"crossover_chance" validate:"gte=0,lte=1"`
	Selection       string        `yaml:"selection"`
	TournamentSize  int           `yaml:"tournament_size" validate:"gte=0"`
	TrackHistory    bool          `yaml:"track_history"`
	TimeFormat      string        `yaml:"time_format" validate:"required"`
	ValueSigma      float64       `yaml:"value_sigma" validate:"gte=0"`
	TimeSigma       time.Duration `yaml:"time_sigma" validate:"gte=0"`
	Target          []TargetPoint `yaml:"target" validate:"required,min=1,dive"`
}

// Default is the demo run: a trapezoid goal, 100 candidates, up to 1000
// generations.
func Default() Run {
	opts := candidate.DefaultOptions()
	goal := candidate.DemoGoal()
	target := make([]TargetPoint, 0, goal.Len())
	for _, p := range goal.Points() {
		target = append(target, TargetPoint{
			Time:  strftime.Format(DefaultTimeFormat, p.Time),
			Value: p.Value,
		})
	}
	return Run{
		Population:      100,
		Threshold:       1,
		MaxGenerations:  1000,
		MutationChance:  0.8,
		CrossoverChance: 0.6,
		Selection:       string(evo.SelectionTournament),
		TrackHistory:    true,
		TimeFormat:      DefaultTimeFormat,
		ValueSigma:      opts.ValueSigma,
		TimeSigma:       opts.TimeSigma,
		Target:          target,
	}
}

// Load reads and validates a YAML run file. Keys missing from the file keep
// their Default values.
func Load(path string) (Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Run{}, err
	}
	run, err := Decode(bytes.NewReader(data))
	if err != nil {
		return Run{}, fmt.Errorf("load %s: %w", path, err)
	}
	return run, nil
}

func Decode(r io.Reader) (Run, error) {
	run := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&run); err != nil && !errors.Is(err, io.EOF) {
		return Run{}, fmt.Errorf("decode run config: %w", err)
	}
	if err := run.Validate(); err != nil {
		return Run{}, err
	}
	return run, nil
}

func Encode(w io.Writer, run Run) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(run); err != nil {
		return err
	}
	return enc.Close()
}

// Validate checks field ranges and that every target timestamp parses with
// TimeFormat.
func (r Run) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, describe(err))
	}
	if math.IsNaN(r.Threshold) {
		return fmt.Errorf("%w: Run.Threshold must not be NaN", ErrInvalid)
	}
	if _, err := evo.ParseSelectionType(r.Selection); err != nil {
		return fmt.Errorf("%w: Run.Selection: %v", ErrInvalid, err)
	}
	if _, err := r.TargetSeries(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func (r Run) TargetSeries() (series.Series, error) {
	points := make([]series.Point, 0, len(r.Target))
	for i, p := range r.Target {
		ts, err := strftime.Parse(r.TimeFormat, p.Time)
		if err != nil {
			return series.Series{}, fmt.Errorf("target[%d]: parse %q with %q: %w", i, p.Time, r.TimeFormat, err)
		}
		points = append(points, series.Point{Time: ts, Value: p.Value})
	}
	return series.New(points), nil
}

func (r Run) CandidateOptions() candidate.Options {
	return candidate.Options{ValueSigma: r.ValueSigma, TimeSigma: r.TimeSigma}
}

// EvoConfig maps the run onto the engine config. Selection names are matched
// in any letter case.
func (r Run) EvoConfig() evo.Config {
	selection, err := evo.ParseSelectionType(r.Selection)
	if err != nil {
		// Left as given so NewEnvironment reports it.
		selection = evo.SelectionType(r.Selection)
	}
	return evo.Config{
		Threshold:       r.Threshold,
		MaxGenerations:  r.MaxGenerations,
		MutationChance:  r.MutationChance,
		CrossoverChance: r.CrossoverChance,
		Selection:       selection,
		TournamentSize:  r.TournamentSize,
		TrackHistory:    r.TrackHistory,
		Seed:            r.Seed,
	}
}

func describe(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s must satisfy %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
