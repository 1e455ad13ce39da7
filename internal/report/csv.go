// Package report writes finished runs to external sinks: CSV files and
// InfluxDB.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/ncruces/go-strftime"

	"tsevolve/internal/model"
)

// DefaultTimeFormat is the strftime layout used when none is configured.
const DefaultTimeFormat = "%Y-%m-%d %H:%M:%S"

// WriteBestSeriesCSV writes one row per point of every generation's best
// series.
func WriteBestSeriesCSV(w io.Writer, bests []model.GenerationBest, timeFormat string) error {
	if timeFormat == "" {
		timeFormat = DefaultTimeFormat
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"generation", "fitness", "index", "time", "value"}); err != nil {
		return err
	}
	for _, best := range bests {
		for i, p := range best.Points {
			row := []string{
				strconv.Itoa(best.Generation),
				formatFloat(float64(best.Fitness)),
				strconv.Itoa(i),
				strftime.Format(timeFormat, p.Time),
				formatFloat(p.Value),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write generation %d: %w", best.Generation, err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDiagnosticsCSV writes one row per executed generation.
func WriteDiagnosticsCSV(w io.Writer, diagnostics []model.GenerationDiagnostics) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"generation", "best_fitness", "mean_fitness", "min_fitness"}); err != nil {
		return err
	}
	for _, d := range diagnostics {
		row := []string{
			strconv.Itoa(d.Generation),
			formatFloat(float64(d.BestFitness)),
			formatFloat(float64(d.MeanFitness)),
			formatFloat(float64(d.MinFitness)),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
