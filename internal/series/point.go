package series

import (
	"fmt"
	"math"
	"time"
)

// Point is a timestamped value.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Distance is the euclidean distance between two points, with time measured
// in seconds.
func (p Point) Distance(other Point) float64 {
	dt := p.Time.Sub(other.Time).Seconds()
	dv := p.Value - other.Value
	return math.Sqrt(dt*dt + dv*dv)
}

func (p Point) String() string {
	return fmt.Sprintf("%s %g", p.Time.Format(time.DateTime), p.Value)
}
