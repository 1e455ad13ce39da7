// Package series holds chronologically ordered sequences of points and the
// small numeric and date helpers used around them.
package series

import (
	"errors"
	"sort"
	"time"
)

var ErrEmptySeries = errors.New("series has no points")

// Series is a chronologically ordered sequence of points. The zero value is
// an empty series.
type Series struct {
	points []Point
}

// New copies points and orders them by time. Points sharing a timestamp keep
// their input order.
func New(points []Point) Series {
	copied := append([]Point(nil), points...)
	SortByTime(copied)
	return Series{points: copied}
}

// SortByTime orders points in place by time, keeping the input order of
// equal timestamps.
func SortByTime(points []Point) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Time.Before(points[j].Time)
	})
}

func (s Series) Len() int {
	return len(s.points)
}

// Points returns a copy of the ordered points.
func (s Series) Points() []Point {
	return append([]Point(nil), s.points...)
}

func (s Series) At(i int) Point {
	return s.points[i]
}

func (s Series) Times() []time.Time {
	out := make([]time.Time, len(s.points))
	for i, p := range s.points {
		out[i] = p.Time
	}
	return out
}

func (s Series) Values() []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.Value
	}
	return out
}

func (s Series) MinValue() (float64, error) {
	if len(s.points) == 0 {
		return 0, ErrEmptySeries
	}
	low := s.points[0].Value
	for _, p := range s.points[1:] {
		if p.Value < low {
			low = p.Value
		}
	}
	return low, nil
}

func (s Series) MaxValue() (float64, error) {
	if len(s.points) == 0 {
		return 0, ErrEmptySeries
	}
	high := s.points[0].Value
	for _, p := range s.points[1:] {
		if p.Value > high {
			high = p.Value
		}
	}
	return high, nil
}

func (s Series) EarliestTime() (time.Time, error) {
	if len(s.points) == 0 {
		return time.Time{}, ErrEmptySeries
	}
	return s.points[0].Time, nil
}

func (s Series) LatestTime() (time.Time, error) {
	if len(s.points) == 0 {
		return time.Time{}, ErrEmptySeries
	}
	return s.points[len(s.points)-1].Time, nil
}

// Area is the trapezoidal area under the series in value-seconds.
func (s Series) Area() float64 {
	area := 0.0
	for _, pair := range Pairwise(s.points) {
		a, b := pair[0], pair[1]
		area += (a.Value + b.Value) * b.Time.Sub(a.Time).Seconds()
	}
	return area / 2
}
