// Package metrics exposes run outcomes as Prometheus metrics.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Collector struct {
	runs        *prometheus.CounterVec
	generations prometheus.Counter
	bestFitness prometheus.Gauge
	runDuration prometheus.Histogram
}

// NewCollector registers the run metrics on reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tsevolve_runs_total",
			Help: "Finished evolution runs by terminal state",
		}, []string{"state"}),
		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tsevolve_generations_total",
			Help: "Generations executed across all runs",
		}),
		bestFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tsevolve_best_fitness",
			Help: "Best fitness of the most recent run",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tsevolve_run_duration_seconds",
			Help:    "Wall time of evolution runs",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4min
		}),
	}
	for _, collector := range []prometheus.Collector{c.runs, c.generations, c.bestFitness, c.runDuration} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return c, nil
}

// ObserveRun records one finished run.
func (c *Collector) ObserveRun(state string, generations int, bestFitness float64, elapsed time.Duration) {
	c.runs.WithLabelValues(state).Inc()
	c.generations.Add(float64(generations))
	c.bestFitness.Set(bestFitness)
	c.runDuration.Observe(elapsed.Seconds())
}

// WriteTextfile dumps everything gathered by g in the text exposition
// format, for the node exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
