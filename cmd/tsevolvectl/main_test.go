package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t      *testing.T
	dbPath string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{t: t, dbPath: filepath.Join(t.TempDir(), "runs.badger")}
}

func (h *harness) exec(args ...string) (string, error) {
	h.t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(append([]string{"--store", "badger", "--db-path", h.dbPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func (h *harness) mustExec(args ...string) string {
	h.t.Helper()
	out, err := h.exec(args...)
	require.NoError(h.t, err, "tsevolvectl %s", strings.Join(args, " "))
	return out
}

func smallRunArgs(runID string) []string {
	return []string{
		"run",
		"--run-id", runID,
		"--seed", "5",
		"--population", "10",
		"--generations", "4",
		"--threshold", "1e12",
	}
}

func TestInitAndReset(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, "initialized store=badger\n", h.mustExec("init"))

	h.mustExec(smallRunArgs("r1")...)
	assert.Contains(t, h.mustExec("runs"), "r1")

	assert.Equal(t, "reset store=badger\n", h.mustExec("reset"))
	assert.Empty(t, h.mustExec("runs"))
}

func TestRunPrintsPlainSummary(t *testing.T) {
	h := newHarness(t)
	out := h.mustExec(smallRunArgs("plain")...)

	assert.True(t, strings.HasPrefix(out, "run_id=plain state=exhausted generations=4 "), out)
	assert.Contains(t, out, "seed=5")
	assert.Equal(t, 6, strings.Count(out, "\nbest "), "one line per target point")
}

func TestRunFromConfigFileWithOverrides(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "run.yaml")
	doc := `
run_id: from-file
seed: 3
population: 8
max_generations: 50
threshold: 1e12
selection: roulette
time_format: "%H:%M"
target:
  - {time: "09:00", value: 0}
  - {time: "09:30", value: 4}
  - {time: "10:00", value: 0}
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	out := h.mustExec("run", "--config", path, "--generations", "2")
	assert.Contains(t, out, "run_id=from-file")
	assert.Contains(t, out, "generations=2")
	assert.Equal(t, 3, strings.Count(out, "\nbest "))
}

func TestRunRejectsInvalidFlags(t *testing.T) {
	h := newHarness(t)
	_, err := h.exec("run", "--selection", "elite")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Selection")

	_, err = h.exec("--log-level", "loud", "runs")
	require.EqualError(t, err, `invalid log level "loud"`)
}

func TestRunWritesMetricsFile(t *testing.T) {
	h := newHarness(t)
	metricsPath := filepath.Join(t.TempDir(), "tsevolve.prom")
	h.mustExec(append(smallRunArgs("metrics"), "--metrics-file", metricsPath)...)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `tsevolve_runs_total{state="exhausted"} 1`)
	assert.Contains(t, string(data), "tsevolve_generations_total 4")
}

func TestFitnessAndDiagnostics(t *testing.T) {
	h := newHarness(t)
	h.mustExec(smallRunArgs("fit")...)

	out := h.mustExec("fitness", "--latest", "--step", "2")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "0\t"))
	assert.True(t, strings.HasPrefix(lines[1], "2\t"))

	h.mustExec(smallRunArgs("fit-2")...)
	out = h.mustExec("fitness", "--average", "2")
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 4)

	out = h.mustExec("diagnostics", "--run-id", "fit", "--limit", "3")
	lines = strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "generation,best_fitness,mean_fitness,min_fitness", lines[0])

	_, err := h.exec("fitness")
	require.EqualError(t, err, "fitness history requires run id or latest")
}

func TestExportCSV(t *testing.T) {
	h := newHarness(t)
	h.mustExec(smallRunArgs("exp")...)

	outDir := t.TempDir()
	out := h.mustExec("export", "--latest", "--out", outDir)
	assert.Contains(t, out, "exported run=exp file="+filepath.Join(outDir, "exp", "best_series.csv"))

	data, err := os.ReadFile(filepath.Join(outDir, "exp", "best_series.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "2019-01-01")
}

func TestAnimateRendersStaticCanvasOffTerminal(t *testing.T) {
	h := newHarness(t)
	h.mustExec(smallRunArgs("anim")...)

	out := h.mustExec("animate", "--run-id", "anim", "--width", "30", "--height", "8")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 9)
	assert.True(t, strings.HasPrefix(lines[8], "Generation 3"), lines[8])
	assert.Contains(t, out, "*")
}

func TestConfigPrintsDefaults(t *testing.T) {
	h := newHarness(t)
	out := h.mustExec("config")
	assert.Contains(t, out, "population: 100")
	assert.Contains(t, out, "selection: tournament")
	assert.Contains(t, out, "time_format:")
	assert.Contains(t, out, "%Y-%m-%d %H:%M")
}

func TestSaveImages(t *testing.T) {
	h := newHarness(t)
	h.mustExec(smallRunArgs("img")...)

	dir := t.TempDir()
	frame := filepath.Join(dir, "frame.png")
	assert.Equal(t, "saved "+frame+"\n", h.mustExec("animate", "--run-id", "img", "--save", frame))
	assert.FileExists(t, frame)

	curve := filepath.Join(dir, "fitness.svg")
	assert.Equal(t, "saved "+curve+"\n", h.mustExec("fitness", "--latest", "--save", curve))
	data, err := os.ReadFile(curve)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")
}
