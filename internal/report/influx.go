package report

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"tsevolve/internal/model"
)

const (
	generationMeasurement = "tsevolve_generation"
	seriesMeasurement     = "tsevolve_best_series"
)

type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// InfluxExporter writes run diagnostics and the best series as InfluxDB
// points. Non-finite fitness values are left out since line protocol cannot
// carry them.
type InfluxExporter struct {
	client influxdb2.Client
	writer api.WriteAPIBlocking
}

func NewInfluxExporter(cfg InfluxConfig) (*InfluxExporter, error) {
	if cfg.URL == "" {
		return nil, errors.New("influx url is required")
	}
	if cfg.Org == "" || cfg.Bucket == "" {
		return nil, errors.New("influx org and bucket are required")
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxExporter{
		client: client,
		writer: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}, nil
}

// ExportRun writes one point per generation, spaced a millisecond apart
// from the run creation time, and one point per point of the best series.
func (e *InfluxExporter) ExportRun(ctx context.Context, run model.RunRecord, diagnostics []model.GenerationDiagnostics) error {
	points := make([]*write.Point, 0, len(diagnostics)+len(run.Best))
	tags := map[string]string{"run_id": run.ID, "state": run.State}

	for _, d := range diagnostics {
		fields := map[string]interface{}{"generation": d.Generation}
		addFinite(fields, "best_fitness", float64(d.BestFitness))
		addFinite(fields, "mean_fitness", float64(d.MeanFitness))
		addFinite(fields, "min_fitness", float64(d.MinFitness))
		ts := run.CreatedAt.Add(time.Duration(d.Generation) * time.Millisecond)
		points = append(points, influxdb2.NewPoint(generationMeasurement, tags, fields, ts))
	}
	for i, p := range run.Best {
		fields := map[string]interface{}{"index": i}
		addFinite(fields, "value", p.Value)
		points = append(points, influxdb2.NewPoint(seriesMeasurement, map[string]string{"run_id": run.ID}, fields, p.Time))
	}
	if len(points) == 0 {
		return nil
	}
	if err := e.writer.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("write run %s to influx: %w", run.ID, err)
	}
	return nil
}

func (e *InfluxExporter) Close() {
	e.client.Close()
}

func addFinite(fields map[string]interface{}, name string, v float64) {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return
	}
	fields[name] = v
}
