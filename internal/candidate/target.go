// Package candidate implements the reference replicator: a time series that
// is evolved toward the shape of a target series.
package candidate

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"tsevolve/internal/evo"
	"tsevolve/internal/series"
)

var (
	ErrShapeMismatch = errors.New("candidate point count differs from target")
	ErrForeignTarget = errors.New("candidates belong to different targets")
)

// Options tune the mutation operator.
type Options struct {
	// ValueSigma is the standard deviation of the value jitter.
	ValueSigma float64 `json:"value_sigma" yaml:"value_sigma"`
	// TimeSigma is the standard deviation of the timestamp jitter.
	TimeSigma time.Duration `json:"time_sigma" yaml:"time_sigma"`
}

func DefaultOptions() Options {
	return Options{
		ValueSigma: 0.9,
		TimeSigma:  100 * time.Second,
	}
}

// Target is the ideal series candidates are compared against. Candidates can
// only be built through a Target.
type Target struct {
	ideal    series.Series
	opts     Options
	minValue float64
	maxValue float64
	earliest time.Time
	latest   time.Time
}

var _ evo.Spawner[*Candidate] = (*Target)(nil)

func NewTarget(ideal series.Series, opts Options) (*Target, error) {
	if ideal.Len() == 0 {
		return nil, fmt.Errorf("target: %w", series.ErrEmptySeries)
	}
	if opts.ValueSigma < 0 {
		return nil, fmt.Errorf("target: value sigma must be >= 0")
	}
	if opts.TimeSigma < 0 {
		return nil, fmt.Errorf("target: time sigma must be >= 0")
	}

	minValue, _ := ideal.MinValue()
	maxValue, _ := ideal.MaxValue()
	earliest, _ := ideal.EarliestTime()
	latest, _ := ideal.LatestTime()
	return &Target{
		ideal:    ideal,
		opts:     opts,
		minValue: minValue,
		maxValue: maxValue,
		earliest: earliest,
		latest:   latest,
	}, nil
}

func (t *Target) Series() series.Series {
	return t.ideal
}

func (t *Target) Options() Options {
	return t.opts
}

// NewCandidate builds a candidate from points, which are copied and ordered
// by time.
func (t *Target) NewCandidate(points []series.Point) (*Candidate, error) {
	if len(points) != t.ideal.Len() {
		return nil, fmt.Errorf("%w: got=%d want=%d", ErrShapeMismatch, len(points), t.ideal.Len())
	}
	copied := append([]series.Point(nil), points...)
	series.SortByTime(copied)
	return &Candidate{target: t, points: copied}, nil
}

// RandomInstance samples one point per target point, with times and values
// drawn uniformly from the target's time and value ranges.
func (t *Target) RandomInstance(rng *rand.Rand) (*Candidate, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	points := make([]series.Point, t.ideal.Len())
	for i := range points {
		points[i] = series.Point{
			Time:  series.RandomTime(rng, t.earliest, t.latest),
			Value: series.Uniform(rng, t.minValue, t.maxValue),
		}
	}
	return t.NewCandidate(points)
}
