package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"tsevolve/internal/storage"
	"tsevolve/pkg/tsevolve"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cli carries the persistent flags shared by every subcommand.
type cli struct {
	stdout   io.Writer
	stderr   io.Writer
	store    string
	dbPath   string
	logLevel string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:           "tsevolvectl",
		Short:         "Evolve time series toward a target shape",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&c.store, "store", storage.DefaultStoreKind(), "store backend: memory|badger|sqlite")
	flags.StringVar(&c.dbPath, "db-path", "", "store path (defaults per backend)")
	flags.StringVar(&c.logLevel, "log-level", "warn", "log level: debug|info|warn|error")

	root.AddCommand(
		c.initCmd(),
		c.resetCmd(),
		c.configCmd(),
		c.runCmd(),
		c.runsCmd(),
		c.fitnessCmd(),
		c.diagnosticsCmd(),
		c.exportCmd(),
		c.animateCmd(),
	)
	return root
}

func (c *cli) logger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(c.logLevel))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", c.logLevel)
	}
	return slog.New(slog.NewTextHandler(c.stderr, &slog.HandlerOptions{Level: level})), nil
}

func (c *cli) client() (*tsevolve.Client, error) {
	logger, err := c.logger()
	if err != nil {
		return nil, err
	}
	return tsevolve.New(tsevolve.Options{
		StoreKind: c.store,
		DBPath:    c.dbPath,
		Logger:    logger,
	})
}

// withClient opens a client for the duration of fn.
func (c *cli) withClient(fn func(*tsevolve.Client) error) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	return fn(client)
}

// terminal reports whether w is an interactive terminal.
func terminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
