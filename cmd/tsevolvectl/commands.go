package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"tsevolve/internal/config"
	"tsevolve/internal/plot"
	"tsevolve/internal/report"
	"tsevolve/pkg/tsevolve"
)

func (c *cli) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the run store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withClient(func(client *tsevolve.Client) error {
				if err := client.Init(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(c.stdout, "initialized store=%s\n", c.store)
				return nil
			})
		},
	}
}

func (c *cli) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete every stored run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withClient(func(client *tsevolve.Client) error {
				if err := client.Reset(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(c.stdout, "reset store=%s\n", c.store)
				return nil
			})
		},
	}
}

func (c *cli) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the default run configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return config.Encode(c.stdout, config.Default())
		},
	}
}

type runFlags struct {
	configPath     string
	metricsFile    string
	runID          string
	seed           int64
	population     int
	generations    int
	threshold      float64
	mutation       float64
	crossover      float64
	selection      string
	tournamentSize int
	noHistory      bool
}

func (c *cli) runCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evolve a population toward the configured target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			return c.withClient(func(client *tsevolve.Client) error {
				summary, err := client.Run(cmd.Context(), tsevolve.RunRequest{Config: cfg})
				if err != nil {
					return err
				}
				if f.metricsFile != "" {
					if err := client.WriteMetrics(f.metricsFile); err != nil {
						return fmt.Errorf("write metrics: %w", err)
					}
				}
				printRunSummary(c.stdout, summary, terminal(c.stdout))
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.configPath, "config", "", "YAML run configuration")
	flags.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	flags.StringVar(&f.runID, "run-id", "", "explicit run id (random when empty)")
	flags.Int64Var(&f.seed, "seed", 0, "random seed (0 derives one from the clock)")
	flags.IntVar(&f.population, "population", 0, "population size")
	flags.IntVar(&f.generations, "generations", 0, "maximum number of generations")
	flags.Float64Var(&f.threshold, "threshold", 0, "fitness that ends the run")
	flags.Float64Var(&f.mutation, "mutation", 0, "per-individual mutation chance")
	flags.Float64Var(&f.crossover, "crossover", 0, "per-pair crossover chance")
	flags.StringVar(&f.selection, "selection", "", "parent selection: roulette|tournament")
	flags.IntVar(&f.tournamentSize, "tournament-size", 0, "tournament sample size (0 is half the population)")
	flags.BoolVar(&f.noHistory, "no-history", false, "keep only the overall best series")
	return cmd
}

// load reads the config file, or the defaults, and applies the flags the
// user set explicitly.
func (f runFlags) load(cmd *cobra.Command) (config.Run, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return config.Run{}, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("run-id") {
		cfg.RunID = f.runID
	}
	if changed("seed") {
		cfg.Seed = f.seed
	}
	if changed("population") {
		cfg.Population = f.population
	}
	if changed("generations") {
		cfg.MaxGenerations = f.generations
	}
	if changed("threshold") {
		cfg.Threshold = f.threshold
	}
	if changed("mutation") {
		cfg.MutationChance = f.mutation
	}
	if changed("crossover") {
		cfg.CrossoverChance = f.crossover
	}
	if changed("selection") {
		cfg.Selection = f.selection
	}
	if changed("tournament-size") {
		cfg.TournamentSize = f.tournamentSize
	}
	if f.noHistory {
		cfg.TrackHistory = false
	}
	return cfg, cfg.Validate()
}

func (c *cli) runsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withClient(func(client *tsevolve.Client) error {
				runs, err := client.Runs(cmd.Context(), tsevolve.RunsRequest{Limit: limit})
				if err != nil {
					return err
				}
				printRuns(c.stdout, runs, terminal(c.stdout))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs")
	return cmd
}

func addRunRefFlags(cmd *cobra.Command, ref *tsevolve.RunRef) {
	cmd.Flags().StringVar(&ref.RunID, "run-id", "", "run id")
	cmd.Flags().BoolVar(&ref.Latest, "latest", false, "use the most recent run")
}

func (c *cli) fitnessCmd() *cobra.Command {
	var (
		ref     tsevolve.RunRef
		limit   int
		step    int
		average int
		save    string
	)
	cmd := &cobra.Command{
		Use:   "fitness",
		Short: "Print the best fitness per generation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withClient(func(client *tsevolve.Client) error {
				var points []plot.FitnessPoint
				if average > 0 {
					histories, err := c.recentHistories(cmd, client, average)
					if err != nil {
						return err
					}
					points = plot.BuildAveragePlot(histories)
				} else {
					history, err := client.FitnessHistory(cmd.Context(), tsevolve.FitnessHistoryRequest{RunRef: ref, Limit: limit})
					if err != nil {
						return err
					}
					points = plot.BuildFitnessPlot(history, step)
				}
				if save != "" {
					if err := plot.SaveFitnessImage(save, "best fitness per generation", points); err != nil {
						return err
					}
					fmt.Fprintf(c.stdout, "saved %s\n", save)
					return nil
				}
				for _, p := range points {
					fmt.Fprintf(c.stdout, "%d\t%s\n", p.Generation, formatFitness(p.Value))
				}
				return nil
			})
		},
	}
	addRunRefFlags(cmd, &ref)
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of generations (0 for all)")
	cmd.Flags().IntVar(&step, "step", 1, "print every n-th generation")
	cmd.Flags().IntVar(&average, "average", 0, "average the histories of the n most recent runs")
	cmd.Flags().StringVar(&save, "save", "", "write the curve to an image file (png, svg, pdf) instead of printing")
	return cmd
}

func (c *cli) recentHistories(cmd *cobra.Command, client *tsevolve.Client, n int) ([][]float64, error) {
	runs, err := client.Runs(cmd.Context(), tsevolve.RunsRequest{Limit: n})
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, errors.New("no runs available")
	}
	histories := make([][]float64, 0, len(runs))
	for _, run := range runs {
		history, err := client.FitnessHistory(cmd.Context(), tsevolve.FitnessHistoryRequest{RunRef: tsevolve.RunRef{RunID: run.RunID}})
		if err != nil {
			return nil, err
		}
		histories = append(histories, history)
	}
	return histories, nil
}

func (c *cli) diagnosticsCmd() *cobra.Command {
	var (
		ref   tsevolve.RunRef
		limit int
	)
	cmd := &cobra.Command{
		Use:   "diagnostics",
		Short: "Print best, mean and worst fitness per generation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withClient(func(client *tsevolve.Client) error {
				diagnostics, err := client.Diagnostics(cmd.Context(), tsevolve.DiagnosticsRequest{RunRef: ref, Limit: limit})
				if err != nil {
					return err
				}
				return report.WriteDiagnosticsCSV(c.stdout, diagnostics)
			})
		},
	}
	addRunRefFlags(cmd, &ref)
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of generations (0 for all)")
	return cmd
}

func (c *cli) exportCmd() *cobra.Command {
	req := tsevolve.ExportRequest{Format: tsevolve.ExportCSV}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a run as CSV files or InfluxDB points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.Influx.Token == "" {
				req.Influx.Token = os.Getenv("INFLUX_TOKEN")
			}
			return c.withClient(func(client *tsevolve.Client) error {
				summary, err := client.Export(cmd.Context(), req)
				if err != nil {
					return err
				}
				if len(summary.Files) == 0 {
					fmt.Fprintf(c.stdout, "exported run=%s to %s\n", summary.RunID, req.Influx.URL)
					return nil
				}
				for _, path := range summary.Files {
					fmt.Fprintf(c.stdout, "exported run=%s file=%s\n", summary.RunID, path)
				}
				return nil
			})
		},
	}
	addRunRefFlags(cmd, &req.RunRef)
	flags := cmd.Flags()
	flags.StringVar(&req.Format, "format", tsevolve.ExportCSV, "export format: csv|influx")
	flags.StringVar(&req.OutDir, "out", "", "csv output directory")
	flags.StringVar(&req.TimeFormat, "time-format", report.DefaultTimeFormat, "strftime layout of csv timestamps")
	flags.StringVar(&req.Influx.URL, "influx-url", "http://localhost:8086", "InfluxDB url")
	flags.StringVar(&req.Influx.Token, "influx-token", "", "InfluxDB token (defaults to $INFLUX_TOKEN)")
	flags.StringVar(&req.Influx.Org, "influx-org", "", "InfluxDB organization")
	flags.StringVar(&req.Influx.Bucket, "influx-bucket", "", "InfluxDB bucket")
	return cmd
}

func (c *cli) animateCmd() *cobra.Command {
	var (
		ref      tsevolve.RunRef
		interval time.Duration
		loop     bool
		width    int
		height   int
		save     string
	)
	cmd := &cobra.Command{
		Use:   "animate",
		Short: "Replay the best series of every generation against the target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withClient(func(client *tsevolve.Client) error {
				run, err := client.GetRun(cmd.Context(), ref)
				if err != nil {
					return err
				}
				bests, err := client.GenerationBests(cmd.Context(), tsevolve.RunRef{RunID: run.ID})
				if err != nil {
					return err
				}
				target := tsevolve.ToSeries(run.Target).Points()
				frames := make([]plot.Frame, 0, len(bests))
				for _, best := range bests {
					frames = append(frames, plot.Frame{
						Label:  fmt.Sprintf("Generation %d  fitness %s", best.Generation, formatFitness(float64(best.Fitness))),
						Points: tsevolve.ToSeries(best.Points).Points(),
					})
				}

				if save != "" {
					if len(frames) == 0 {
						return errors.New("run has no generations to draw")
					}
					if err := plot.SaveFrameImage(save, target, frames[len(frames)-1]); err != nil {
						return err
					}
					fmt.Fprintf(c.stdout, "saved %s\n", save)
					return nil
				}
				if !terminal(c.stdout) {
					for _, line := range plot.RenderStatic(target, frames, width, height) {
						fmt.Fprintln(c.stdout, line)
					}
					return nil
				}
				screen, err := tcell.NewScreen()
				if err != nil {
					return err
				}
				return plot.NewAnimator(screen, target, frames, interval, loop).Run(cmd.Context())
			})
		},
	}
	addRunRefFlags(cmd, &ref)
	cmd.Flags().DurationVar(&interval, "interval", 20*time.Millisecond, "delay between frames")
	cmd.Flags().BoolVar(&loop, "loop", false, "restart after the last frame")
	cmd.Flags().IntVar(&width, "width", 72, "canvas width when not on a terminal")
	cmd.Flags().IntVar(&height, "height", 20, "canvas height when not on a terminal")
	cmd.Flags().StringVar(&save, "save", "", "write the final generation against the target to an image file")
	return cmd
}
