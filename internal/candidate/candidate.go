package candidate

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"tsevolve/internal/evo"
	"tsevolve/internal/series"
)

// Candidate is a time series evolved toward its Target.
type Candidate struct {
	target *Target
	points []series.Point
}

var (
	_ evo.Replicator[*Candidate] = (*Candidate)(nil)
	_ evo.Cloner[*Candidate]     = (*Candidate)(nil)
)

func (c *Candidate) Target() *Target {
	return c.target
}

func (c *Candidate) Series() series.Series {
	return series.New(c.points)
}

func (c *Candidate) Points() []series.Point {
	return append([]series.Point(nil), c.points...)
}

// MaxDistance is the largest distance between a candidate point and the
// target point at the same index.
func (c *Candidate) MaxDistance() float64 {
	worst := 0.0
	for i, p := range c.points {
		if d := p.Distance(c.target.ideal.At(i)); d > worst {
			worst = d
		}
	}
	return worst
}

// Fitness is the reciprocal of MaxDistance. An exact match is +Inf.
func (c *Candidate) Fitness() float64 {
	worst := c.MaxDistance()
	if worst == 0 {
		return math.Inf(1)
	}
	return 1 / worst
}

// Mutate jitters every value and timestamp with gaussian noise and restores
// time order.
func (c *Candidate) Mutate(rng *rand.Rand) error {
	if rng == nil {
		return fmt.Errorf("random source is required")
	}
	valueSigma := c.target.opts.ValueSigma
	timeSigma := float64(c.target.opts.TimeSigma)
	for i := range c.points {
		p := &c.points[i]
		p.Value += rng.NormFloat64() * valueSigma
		p.Time = p.Time.Add(time.Duration(rng.NormFloat64() * timeSigma))
	}
	series.SortByTime(c.points)
	return nil
}

// Crossover produces two children: the first is a copy of c carrying the
// values of other, the second a copy of other carrying the timestamps of c.
func (c *Candidate) Crossover(_ *rand.Rand, other *Candidate) (*Candidate, *Candidate, error) {
	if other == nil {
		return nil, nil, fmt.Errorf("crossover partner is required")
	}
	if c.target != other.target {
		return nil, nil, ErrForeignTarget
	}
	if len(c.points) != len(other.points) {
		return nil, nil, fmt.Errorf("%w: got=%d want=%d", ErrShapeMismatch, len(other.points), len(c.points))
	}

	first := c.Clone()
	for i := range first.points {
		first.points[i].Value = other.points[i].Value
	}
	second := other.Clone()
	for i := range second.points {
		second.points[i].Time = c.points[i].Time
	}
	series.SortByTime(second.points)
	return first, second, nil
}

func (c *Candidate) Clone() *Candidate {
	return &Candidate{
		target: c.target,
		points: append([]series.Point(nil), c.points...),
	}
}

func (c *Candidate) String() string {
	return fmt.Sprintf("candidate(points=%d fitness=%g)", len(c.points), c.Fitness())
}
