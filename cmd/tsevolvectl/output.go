package main

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"tsevolve/pkg/tsevolve"
)

var (
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	convergedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	exhaustedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	boxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func formatFitness(v float64) string {
	if math.IsInf(v, 1) {
		return "+Inf"
	}
	return humanize.Ftoa(v)
}

// printRunSummary writes key=value lines, or a styled box on a terminal.
func printRunSummary(w io.Writer, s tsevolve.RunSummary, styled bool) {
	if !styled {
		fmt.Fprintf(w, "run_id=%s state=%s generations=%d best_generation=%d best_fitness=%s seed=%d elapsed=%s\n",
			s.RunID, s.State, s.Generations, s.BestGeneration, formatFitness(s.BestFitness), s.Seed, s.Elapsed)
		for _, p := range s.Best.Points() {
			fmt.Fprintf(w, "best %s\n", p)
		}
		return
	}

	state := exhaustedStyle.Render(s.State)
	if s.State == "converged" {
		state = convergedStyle.Render(s.State)
	}
	rows := []string{
		labelStyle.Render("run      ") + s.RunID,
		labelStyle.Render("state    ") + state,
		labelStyle.Render("gens     ") + humanize.Comma(int64(s.Generations)),
		labelStyle.Render("best     ") + fmt.Sprintf("%s (generation %s)", formatFitness(s.BestFitness), humanize.Comma(int64(s.BestGeneration))),
		labelStyle.Render("seed     ") + fmt.Sprintf("%d", s.Seed),
		labelStyle.Render("elapsed  ") + s.Elapsed.String(),
	}
	fmt.Fprintln(w, boxStyle.Render(strings.Join(rows, "\n")))
}

func printRuns(w io.Writer, runs []tsevolve.RunItem, styled bool) {
	for _, run := range runs {
		created := run.CreatedAt.Format("2006-01-02T15:04:05Z")
		if styled {
			created = humanize.Time(run.CreatedAt)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\tpopulation=%s\tgenerations=%s\tbest=%s\tseed=%d\n",
			run.RunID,
			created,
			run.State,
			humanize.Comma(int64(run.Population)),
			humanize.Comma(int64(run.Generations)),
			formatFitness(run.BestFitness),
			run.Seed,
		)
	}
}
