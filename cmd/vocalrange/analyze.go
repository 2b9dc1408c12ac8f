package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/verte-zerg/vocalrange/internal/contour"
	"github.com/verte-zerg/vocalrange/internal/corpus"
	"github.com/verte-zerg/vocalrange/internal/model"
	"github.com/verte-zerg/vocalrange/internal/pitch"
	"github.com/verte-zerg/vocalrange/internal/stats"
)

const (
	defaultPattern      = corpus.DefaultPattern
	defaultPersistence  = pitch.DefaultPersistenceFrames
	defaultContextFrame = 10
)

var (
	analyzePattern     string
	analyzePersistence int
	analyzeCSV         string
	analyzeSummaryCSV  string
	analyzeNoStore     bool
	analyzeBins        int

	inspectContext int
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <root>",
		Short: "Compute vocal ranges per file and per system",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyzeCmd,
	}
	cmd.Flags().StringVar(&analyzePattern, "pattern", defaultPattern, "contour file name pattern")
	cmd.Flags().IntVar(&analyzePersistence, "persistence", defaultPersistence, "frames a note must hold to count")
	cmd.Flags().StringVar(&analyzeCSV, "csv", "", "write per-file ranges to this CSV file")
	cmd.Flags().StringVar(&analyzeSummaryCSV, "summary-csv", "", "write per-system summaries to this CSV file")
	cmd.Flags().BoolVar(&analyzeNoStore, "no-store", false, "do not save the run to the database")
	cmd.Flags().IntVar(&analyzeBins, "bins", 0, "histogram bins (0 = one per semitone)")
	return cmd
}

func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	fileCfg, logger, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	fc := fileCfg.Analyze
	applyStringConfig(cmd, "pattern", &analyzePattern, fc.Pattern)
	applyIntConfig(cmd, "persistence", &analyzePersistence, fc.Persistence)
	applyIntConfig(cmd, "bins", &analyzeBins, fc.Bins)
	applyBoolConfig(cmd, "no-store", &analyzeNoStore, fc.NoStore)

	cfg := model.AnalyzeConfig{
		Root:              args[0],
		Pattern:           analyzePattern,
		PersistenceFrames: analyzePersistence,
		CSVPath:           analyzeCSV,
		SummaryCSVPath:    analyzeSummaryCSV,
		NoStore:           analyzeNoStore,
		PlotBins:          analyzeBins,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if info, err := os.Stat(cfg.Root); err != nil {
		return fmt.Errorf("failed to read corpus root: %w", err)
	} else if !info.IsDir() {
		return fmt.Errorf("%w: corpus root %s is not a directory", model.ErrInvalidConfig, cfg.Root)
	}

	analysis, err := corpus.New(cfg, logger).Run(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := writeAnalysis(out, analysis, cfg.PlotBins); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if cfg.CSVPath != "" {
		if err := stats.WriteCSVFile(cfg.CSVPath, func(w io.Writer) error {
			return stats.WriteTracksCSV(w, analysis.Tracks)
		}); err != nil {
			return fmt.Errorf("failed to write %s: %w", cfg.CSVPath, err)
		}
		logErrf("Wrote %s\n", cfg.CSVPath)
	}
	if cfg.SummaryCSVPath != "" {
		if err := stats.WriteCSVFile(cfg.SummaryCSVPath, func(w io.Writer) error {
			return stats.WriteSummaryCSV(w, analysis.Systems)
		}); err != nil {
			return fmt.Errorf("failed to write %s: %w", cfg.SummaryCSVPath, err)
		}
		logErrf("Wrote %s\n", cfg.SummaryCSVPath)
	}

	if cfg.NoStore {
		return nil
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)
	runID, err := st.SaveAnalysis(cmd.Context(), analysis)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	logger.Info("run saved", zap.Int64("run_id", runID))
	return nil
}

func writeAnalysis(w io.Writer, a model.Analysis, bins int) error {
	if err := stats.RenderTracks(w, a.Tracks); err != nil {
		return err
	}
	if err := stats.RenderSystems(w, a.Systems); err != nil {
		return err
	}
	width, useColor := 0, false
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if tw, _, err := term.GetSize(int(f.Fd())); err == nil {
			width = tw
		}
		useColor = true
	}
	if err := stats.RenderDistribution(w, a.Tracks, bins, width, useColor); err != nil {
		return err
	}
	if err := stats.RenderSkipped(w, a.Skipped); err != nil {
		return err
	}
	return stats.RenderCounts(w, a)
}

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <contour-file>...",
		Short: "Show the highest and lowest frames of contour files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runInspectCmd,
	}
	cmd.Flags().IntVar(&inspectContext, "context", defaultContextFrame, "frames of context around each extreme")
	return cmd
}

func runInspectCmd(cmd *cobra.Command, args []string) error {
	if inspectContext < 0 {
		return fmt.Errorf("%w: --context must be >= 0", model.ErrInvalidConfig)
	}
	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range args {
		freqs, err := contour.Load(path)
		if err != nil {
			var pe *contour.ParseError
			if errors.As(err, &pe) {
				logErrf("%s: line %d: invalid value %q\n", path, pe.Line, pe.Text)
			} else {
				logErrf("%s: %v\n", path, err)
			}
			failed++
			continue
		}
		hi, lo, ok := pitch.Extremes(freqs, inspectContext)
		if !ok {
			logErrf("%s: no voiced frames\n", path)
			failed++
			continue
		}
		if err := stats.RenderExtremes(out, path, hi, lo); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	if failed == len(args) {
		return fmt.Errorf("no contour could be inspected")
	}
	return nil
}
