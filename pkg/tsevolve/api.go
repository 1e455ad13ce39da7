// Package tsevolve is the public entry point: it runs evolutions of time
// series toward a target and keeps their outcomes in a store.
package tsevolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"tsevolve/internal/candidate"
	"tsevolve/internal/config"
	"tsevolve/internal/evo"
	"tsevolve/internal/metrics"
	"tsevolve/internal/model"
	"tsevolve/internal/report"
	"tsevolve/internal/series"
	"tsevolve/internal/storage"
)

const defaultExportsDir = "exports"

const (
	ExportCSV    = "csv"
	ExportInflux = "influx"
)

type Options struct {
	StoreKind  string
	DBPath     string
	ExportsDir string
	Logger     *slog.Logger
	// Registry receives the run metrics. A private registry is used when nil.
	Registry *prometheus.Registry
}

type Client struct {
	store      storage.Store
	logger     *slog.Logger
	registry   *prometheus.Registry
	metrics    *metrics.Collector
	exportsDir string

	initMu      sync.Mutex
	initialized bool
}

type RunRequest struct {
	Config config.Run
}

type RunSummary struct {
	RunID          string
	State          string
	Seed           int64
	Generations    int
	BestGeneration int
	BestFitness    float64
	Best           series.Series
	Elapsed        time.Duration
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID       string
	CreatedAt   time.Time
	State       string
	Seed        int64
	Population  int
	Generations int
	BestFitness float64
}

// RunRef points at one stored run, either by id or as the most recent one.
type RunRef struct {
	RunID  string
	Latest bool
}

type FitnessHistoryRequest struct {
	RunRef
	Limit int
}

type DiagnosticsRequest struct {
	RunRef
	Limit int
}

type ExportRequest struct {
	RunRef
	Format     string
	OutDir     string
	TimeFormat string
	Influx     report.InfluxConfig
}

type ExportSummary struct {
	RunID string
	Files []string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	store, err := storage.NewStore(storeKind, opts.DBPath)
	if err != nil {
		return nil, err
	}
	collector, err := metrics.NewCollector(registry)
	if err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, err
	}

	return &Client{
		store:      store,
		logger:     logger.With("store", storeKind),
		registry:   registry,
		metrics:    collector,
		exportsDir: exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.ensureInit(ctx)
}

func (c *Client) Reset(ctx context.Context) error {
	if err := c.ensureInit(ctx); err != nil {
		return err
	}
	return c.store.Reset(ctx)
}

// Run bootstraps a population from the configured target, evolves it and
// stores the outcome. A zero seed is replaced by one derived from the clock
// and reported in the summary.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	cfg := req.Config
	if err := cfg.Validate(); err != nil {
		return RunSummary{}, err
	}
	if err := c.ensureInit(ctx); err != nil {
		return RunSummary{}, err
	}

	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	goal, err := cfg.TargetSeries()
	if err != nil {
		return RunSummary{}, err
	}
	target, err := candidate.NewTarget(goal, cfg.CandidateOptions())
	if err != nil {
		return RunSummary{}, err
	}

	rng := rand.New(rand.NewSource(seed))
	population, err := evo.Bootstrap[*candidate.Candidate](target, cfg.Population, rng)
	if err != nil {
		return RunSummary{}, err
	}
	evoCfg := cfg.EvoConfig()
	evoCfg.Seed = seed
	evoCfg.Rand = rng
	env, err := evo.NewEnvironment(population, evoCfg)
	if err != nil {
		return RunSummary{}, err
	}

	logger := c.logger.With("run_id", runID)
	logger.Info("run started",
		"seed", seed,
		"population", cfg.Population,
		"max_generations", cfg.MaxGenerations,
		"selection", evoCfg.Selection,
	)
	started := time.Now()
	result, err := env.Run(ctx)
	elapsed := time.Since(started)
	if err != nil {
		logger.Error("run failed", "error", err)
		return RunSummary{}, fmt.Errorf("run %s: %w", runID, err)
	}

	record := model.RunRecord{
		VersionedRecord: storage.CurrentVersion(),
		ID:              runID,
		CreatedAt:       started.UTC(),
		Config: model.RunConfig{
			Population:      cfg.Population,
			Threshold:       cfg.Threshold,
			MaxGenerations:  cfg.MaxGenerations,
			MutationChance:  cfg.MutationChance,
			CrossoverChance: cfg.CrossoverChance,
			Selection:       string(evoCfg.Selection),
			TournamentSize:  cfg.TournamentSize,
			Seed:            seed,
		},
		State:          string(result.State),
		Generations:    result.Generations,
		BestGeneration: result.BestGeneration,
		BestFitness:    model.Score(result.BestFitness),
		Best:           toModelPoints(result.Best.Series()),
		Target:         toModelPoints(goal),
	}
	if err := c.save(ctx, record, result); err != nil {
		return RunSummary{}, err
	}

	c.metrics.ObserveRun(record.State, result.Generations, result.BestFitness, elapsed)
	logger.Info("run finished",
		"state", record.State,
		"generations", result.Generations,
		"best_fitness", result.BestFitness,
		"best_generation", result.BestGeneration,
		"elapsed", elapsed,
	)

	return RunSummary{
		RunID:          runID,
		State:          record.State,
		Seed:           seed,
		Generations:    result.Generations,
		BestGeneration: result.BestGeneration,
		BestFitness:    result.BestFitness,
		Best:           result.Best.Series(),
		Elapsed:        elapsed,
	}, nil
}

func (c *Client) save(ctx context.Context, record model.RunRecord, result evo.Result[*candidate.Candidate]) error {
	history := make([]model.Score, 0, len(result.Diagnostics))
	diagnostics := make([]model.GenerationDiagnostics, 0, len(result.Diagnostics))
	for _, d := range result.Diagnostics {
		history = append(history, model.Score(d.BestFitness))
		diagnostics = append(diagnostics, model.GenerationDiagnostics{
			Generation:  d.Generation,
			BestFitness: model.Score(d.BestFitness),
			MeanFitness: model.Score(d.MeanFitness),
			MinFitness:  model.Score(d.MinFitness),
		})
	}
	bests := make([]model.GenerationBest, 0, len(result.History))
	for gen, best := range result.History {
		bests = append(bests, model.GenerationBest{
			Generation: gen,
			Fitness:    model.Score(best.Fitness()),
			Points:     toModelPoints(best.Series()),
		})
	}
	if len(bests) == 0 {
		bests = append(bests, model.GenerationBest{
			Generation: result.BestGeneration,
			Fitness:    record.BestFitness,
			Points:     record.Best,
		})
	}

	if err := c.store.SaveRun(ctx, record); err != nil {
		return fmt.Errorf("save run %s: %w", record.ID, err)
	}
	if err := c.store.SaveFitnessHistory(ctx, record.ID, history); err != nil {
		return fmt.Errorf("save fitness history %s: %w", record.ID, err)
	}
	if err := c.store.SaveGenerationDiagnostics(ctx, record.ID, diagnostics); err != nil {
		return fmt.Errorf("save diagnostics %s: %w", record.ID, err)
	}
	if err := c.store.SaveGenerationBests(ctx, record.ID, bests); err != nil {
		return fmt.Errorf("save generation bests %s: %w", record.ID, err)
	}
	return nil
}

func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if err := c.ensureInit(ctx); err != nil {
		return nil, err
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	if len(runs) > req.Limit {
		runs = runs[:req.Limit]
	}

	out := make([]RunItem, 0, len(runs))
	for _, run := range runs {
		out = append(out, RunItem{
			RunID:       run.ID,
			CreatedAt:   run.CreatedAt,
			State:       run.State,
			Seed:        run.Config.Seed,
			Population:  run.Config.Population,
			Generations: run.Generations,
			BestFitness: float64(run.BestFitness),
		})
	}
	return out, nil
}

func (c *Client) GetRun(ctx context.Context, ref RunRef) (model.RunRecord, error) {
	runID, err := c.resolveRunID(ctx, ref, "run")
	if err != nil {
		return model.RunRecord{}, err
	}
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return model.RunRecord{}, err
	}
	if !ok {
		return model.RunRecord{}, fmt.Errorf("run not found: %s", runID)
	}
	return run, nil
}

func (c *Client) FitnessHistory(ctx context.Context, req FitnessHistoryRequest) ([]float64, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(ctx, req.RunRef, "fitness history")
	if err != nil {
		return nil, err
	}
	history, ok, err := c.store.GetFitnessHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("fitness history not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	out := make([]float64, len(history))
	for i, v := range history {
		out[i] = float64(v)
	}
	return out, nil
}

func (c *Client) Diagnostics(ctx context.Context, req DiagnosticsRequest) ([]model.GenerationDiagnostics, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(ctx, req.RunRef, "diagnostics")
	if err != nil {
		return nil, err
	}
	diagnostics, ok, err := c.store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("diagnostics not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(diagnostics) > req.Limit {
		diagnostics = diagnostics[:req.Limit]
	}
	out := make([]model.GenerationDiagnostics, len(diagnostics))
	copy(out, diagnostics)
	return out, nil
}

// GenerationBests returns the best series of every generation of a run that
// tracked history, or only the overall best otherwise.
func (c *Client) GenerationBests(ctx context.Context, ref RunRef) ([]model.GenerationBest, error) {
	runID, err := c.resolveRunID(ctx, ref, "generation bests")
	if err != nil {
		return nil, err
	}
	bests, ok, err := c.store.GetGenerationBests(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("generation bests not found for run id: %s", runID)
	}
	return bests, nil
}

// Export writes a stored run to CSV files under OutDir/<run id>, or to
// InfluxDB.
func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	run, err := c.GetRun(ctx, req.RunRef)
	if err != nil {
		return ExportSummary{}, err
	}
	diagnostics, err := c.Diagnostics(ctx, DiagnosticsRequest{RunRef: RunRef{RunID: run.ID}})
	if err != nil {
		return ExportSummary{}, err
	}

	switch req.Format {
	case "", ExportCSV:
		return c.exportCSV(ctx, run, diagnostics, req)
	case ExportInflux:
		exporter, err := report.NewInfluxExporter(req.Influx)
		if err != nil {
			return ExportSummary{}, err
		}
		defer exporter.Close()
		if err := exporter.ExportRun(ctx, run, diagnostics); err != nil {
			return ExportSummary{}, err
		}
		c.logger.Info("run exported", "run_id", run.ID, "format", ExportInflux, "url", req.Influx.URL)
		return ExportSummary{RunID: run.ID}, nil
	default:
		return ExportSummary{}, fmt.Errorf("unsupported export format: %s", req.Format)
	}
}

func (c *Client) exportCSV(ctx context.Context, run model.RunRecord, diagnostics []model.GenerationDiagnostics, req ExportRequest) (ExportSummary, error) {
	bests, err := c.GenerationBests(ctx, RunRef{RunID: run.ID})
	if err != nil {
		return ExportSummary{}, err
	}
	outDir := req.OutDir
	if outDir == "" {
		outDir = c.exportsDir
	}
	dir := filepath.Join(outDir, run.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ExportSummary{}, err
	}

	bestsPath := filepath.Join(dir, "best_series.csv")
	if err := writeFile(bestsPath, func(f *os.File) error {
		return report.WriteBestSeriesCSV(f, bests, req.TimeFormat)
	}); err != nil {
		return ExportSummary{}, err
	}
	diagnosticsPath := filepath.Join(dir, "diagnostics.csv")
	if err := writeFile(diagnosticsPath, func(f *os.File) error {
		return report.WriteDiagnosticsCSV(f, diagnostics)
	}); err != nil {
		return ExportSummary{}, err
	}

	c.logger.Info("run exported", "run_id", run.ID, "format", ExportCSV, "dir", dir)
	return ExportSummary{RunID: run.ID, Files: []string{bestsPath, diagnosticsPath}}, nil
}

// WriteMetrics dumps the client's metrics in the Prometheus text format.
func (c *Client) WriteMetrics(path string) error {
	return metrics.WriteTextfile(path, c.registry)
}

func (c *Client) resolveRunID(ctx context.Context, ref RunRef, what string) (string, error) {
	if ref.RunID != "" && ref.Latest {
		return "", errors.New("use either run id or latest")
	}
	if err := c.ensureInit(ctx); err != nil {
		return "", err
	}
	if ref.RunID != "" {
		return ref.RunID, nil
	}
	if !ref.Latest {
		return "", fmt.Errorf("%s requires run id or latest", what)
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", errors.New("no runs available")
	}
	return runs[0].ID, nil
}

func (c *Client) ensureInit(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func toModelPoints(s series.Series) []model.Point {
	out := make([]model.Point, 0, s.Len())
	for _, p := range s.Points() {
		out = append(out, model.Point{Time: p.Time, Value: p.Value})
	}
	return out
}

// ToSeries converts stored points back into a series.
func ToSeries(points []model.Point) series.Series {
	converted := make([]series.Point, 0, len(points))
	for _, p := range points {
		converted = append(converted, series.Point{Time: p.Time, Value: p.Value})
	}
	return series.New(converted)
}
