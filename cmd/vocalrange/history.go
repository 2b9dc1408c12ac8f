package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/vocalrange/internal/corpus"
	"github.com/verte-zerg/vocalrange/internal/model"
	"github.com/verte-zerg/vocalrange/internal/stats"
	"github.com/verte-zerg/vocalrange/internal/statsui"
	"github.com/verte-zerg/vocalrange/internal/store"
)

const defaultHistoryLimit = 20

var (
	historyLimit  int
	historySystem string

	viewRun int64
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored analysis runs",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().IntVar(&historyLimit, "limit", defaultHistoryLimit, "number of runs to list (0 = all)")
	cmd.Flags().StringVar(&historySystem, "system", "", "show one system's summary across runs")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	out := cmd.OutOrStdout()
	if historySystem != "" {
		system, sums, runs, err := systemHistory(cmd.Context(), st, historySystem)
		if err != nil {
			return err
		}
		if err := writeSystemHistory(out, system, sums, runs); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	runs, err := st.ListRuns(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		logErrln("No runs stored yet. Run: vocalrange analyze <root>")
		return nil
	}
	if err := writeRuns(out, runs); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// systemHistory looks up a system by its normalised label so that any
// Unicode spelling of a directory name finds the stored runs.
func systemHistory(ctx context.Context, st *store.Store, name string) (string, []model.SystemSummary, []model.RunInfo, error) {
	system := corpus.NormalizeLabel(name)
	sums, runs, err := st.SystemHistory(ctx, system)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to load history: %w", err)
	}
	if len(sums) == 0 {
		return "", nil, nil, fmt.Errorf("no stored runs contain system %q", system)
	}
	return system, sums, runs, nil
}

func writeRuns(w io.Writer, runs []model.RunInfo) error {
	if _, err := fmt.Fprintf(w, "%-6s  %-16s  %6s  %7s  %7s  %s\n", "Run", "Time", "Files", "Skipped", "Systems", "Root"); err != nil {
		return err
	}
	for _, r := range runs {
		if _, err := fmt.Fprintf(w, "%-6d  %-16s  %6d  %7d  %7d  %s\n",
			r.RunID, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Processed, r.Skipped, r.Systems, r.Root); err != nil {
			return err
		}
	}
	return nil
}

func writeSystemHistory(w io.Writer, system string, sums []model.SystemSummary, runs []model.RunInfo) error {
	if _, err := fmt.Fprintf(w, "System %s\n", system); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%-6s  %-16s  %5s  %7s  %7s  %4s  %4s\n", "Run", "Time", "Count", "Mean", "Std", "Min", "Max"); err != nil {
		return err
	}
	means := make([]float64, len(sums))
	labels := make([]string, len(sums))
	for i, s := range sums {
		means[i] = s.Mean
		labels[i] = strconv.FormatInt(runs[i].RunID, 10)
		if _, err := fmt.Fprintf(w, "%-6d  %-16s  %5d  %7.2f  %7s  %4d  %4d\n",
			runs[i].RunID, runs[i].CreatedAt.Local().Format("2006-01-02 15:04"),
			s.Count, s.Mean, stats.FormatStd(s.Std), s.Min, s.Max); err != nil {
			return err
		}
	}
	if len(sums) < 2 {
		return nil
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	return stats.PlotSeries(w, "Mean range per run (semitones)",
		[]stats.Series{{Name: system, Values: means}}, labels)
}

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Browse a stored run",
		Args:  cobra.NoArgs,
		RunE:  runViewCmd,
	}
	cmd.Flags().Int64Var(&viewRun, "run", 0, "run id (default: latest)")
	return cmd
}

func runViewCmd(cmd *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	if _, err := st.LatestRunID(cmd.Context()); err != nil {
		if errors.Is(err, store.ErrNoRuns) {
			return fmt.Errorf("%w; run: vocalrange analyze <root>", err)
		}
		return err
	}

	viewer := statsui.NewModel(st, viewRun)
	program := tea.NewProgram(viewer, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run viewer: %w", err)
	}
	return nil
}
