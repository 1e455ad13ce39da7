package candidate

import (
	"time"

	"tsevolve/internal/series"
)

// DemoGoal is the trapezoid-shaped goal used by the demo run: a ramp up over
// half an hour, a plateau, and a ramp down.
func DemoGoal() series.Series {
	day := func(hour, minute int) time.Time {
		return time.Date(2019, 1, 1, hour, minute, 0, 0, time.UTC)
	}
	return series.New([]series.Point{
		{Time: day(9, 0), Value: 0},
		{Time: day(9, 15), Value: 5},
		{Time: day(9, 30), Value: 10},
		{Time: day(10, 0), Value: 10},
		{Time: day(10, 15), Value: 5},
		{Time: day(10, 30), Value: 0},
	})
}
