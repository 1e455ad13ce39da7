// Package plot turns run output into plottable series: fitness curves,
// ASCII canvases, and a terminal animation of the best series per
// generation.
package plot

type FitnessPoint struct {
	Generation int     `json:"generation"`
	Value      float64 `json:"value"`
}

// BuildFitnessPlot samples history every step generations.
func BuildFitnessPlot(history []float64, step int) []FitnessPoint {
	if step <= 0 {
		step = 1
	}
	points := make([]FitnessPoint, 0, len(history)/step+1)
	for i := 0; i < len(history); i += step {
		points = append(points, FitnessPoint{Generation: i, Value: history[i]})
	}
	return points
}

// BuildAveragePlot averages several fitness histories generation by
// generation. Histories that already ended drop out of later averages.
func BuildAveragePlot(histories [][]float64) []FitnessPoint {
	points := make([]FitnessPoint, 0, 128)
	current := cloneHistories(histories)
	for gen := 0; ; gen++ {
		sum := 0.0
		count := 0
		next := make([][]float64, 0, len(current))
		for _, history := range current {
			if len(history) == 0 {
				continue
			}
			sum += history[0]
			count++
			if len(history) > 1 {
				next = append(next, history[1:])
			}
		}
		if count == 0 {
			break
		}
		points = append(points, FitnessPoint{Generation: gen, Value: sum / float64(count)})
		current = next
	}
	return points
}

func cloneHistories(histories [][]float64) [][]float64 {
	cloned := make([][]float64, 0, len(histories))
	for _, history := range histories {
		cloned = append(cloned, append([]float64(nil), history...))
	}
	return cloned
}
