package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/verte-zerg/vocalrange/internal/audio"
	"github.com/verte-zerg/vocalrange/internal/estimator"
	"github.com/verte-zerg/vocalrange/internal/inference"
	"github.com/verte-zerg/vocalrange/internal/model"
)

const (
	defaultInputSuffix  = ".Vocals.mp3"
	defaultOutputSuffix = ".txt"
	defaultChunkSeconds = inference.DefaultChunkSeconds
	defaultHop          = 160
	defaultSampleRate   = 16000
	defaultEstimator    = "yin"
	defaultDevice       = "cpu"
	defaultThreshold    = 0.03
	defaultFFmpeg       = "ffmpeg"
)

var (
	extractInputSuffix  string
	extractOutputSuffix string
	extractChunkSeconds float64
	extractHop          int
	extractSampleRate   int
	extractEstimator    string
	extractDevice       string
	extractThreshold    float64
	extractSmoothing    bool
	extractSkipExisting bool
	extractFFmpeg       string
	extractCommand      string
	extractCommandArgs  []string
	extractNoProgress   bool
)

func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <input-dir> <output-dir>",
		Short: "Extract F0 contours from vocal stems",
		Args:  cobra.ExactArgs(2),
		RunE:  runExtractCmd,
	}
	cmd.Flags().StringVar(&extractInputSuffix, "input-suffix", defaultInputSuffix, "suffix of vocal stems to process")
	cmd.Flags().StringVar(&extractOutputSuffix, "output-suffix", defaultOutputSuffix, "suffix of written contour files")
	cmd.Flags().Float64Var(&extractChunkSeconds, "chunk-seconds", defaultChunkSeconds, "seconds of audio per estimator call")
	cmd.Flags().IntVar(&extractHop, "hop", defaultHop, "samples between frames")
	cmd.Flags().IntVar(&extractSampleRate, "sample-rate", defaultSampleRate, "decode sample rate through ffmpeg (0 = native)")
	cmd.Flags().StringVar(&extractEstimator, "estimator", defaultEstimator, "pitch estimator (yin or command)")
	cmd.Flags().StringVar(&extractDevice, "device", defaultDevice, "device passed to external estimators")
	cmd.Flags().Float64Var(&extractThreshold, "threshold", defaultThreshold, "minimum voicing confidence (0-1)")
	cmd.Flags().BoolVar(&extractSmoothing, "smoothing", true, "median-smooth voiced frames")
	cmd.Flags().BoolVar(&extractSkipExisting, "skip-existing", false, "keep contours that already exist")
	cmd.Flags().StringVar(&extractFFmpeg, "ffmpeg", defaultFFmpeg, "ffmpeg binary for non-WAV input")
	cmd.Flags().StringVar(&extractCommand, "command", "", "binary for the command estimator")
	cmd.Flags().StringArrayVar(&extractCommandArgs, "command-arg", nil, "argument for the command estimator (repeatable)")
	cmd.Flags().BoolVar(&extractNoProgress, "no-progress", false, "disable the progress bar")
	return cmd
}

func runExtractCmd(cmd *cobra.Command, args []string) error {
	fileCfg, logger, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	fc := fileCfg.Extract
	applyStringConfig(cmd, "input-suffix", &extractInputSuffix, fc.InputSuffix)
	applyStringConfig(cmd, "output-suffix", &extractOutputSuffix, fc.OutputSuffix)
	applyFloatConfig(cmd, "chunk-seconds", &extractChunkSeconds, fc.ChunkSeconds)
	applyIntConfig(cmd, "hop", &extractHop, fc.HopLength)
	applyIntConfig(cmd, "sample-rate", &extractSampleRate, fc.SampleRate)
	applyStringConfig(cmd, "estimator", &extractEstimator, fc.Estimator)
	applyStringConfig(cmd, "device", &extractDevice, fc.Device)
	applyFloatConfig(cmd, "threshold", &extractThreshold, fc.Threshold)
	applyBoolConfig(cmd, "smoothing", &extractSmoothing, fc.Smoothing)
	applyBoolConfig(cmd, "skip-existing", &extractSkipExisting, fc.SkipExisting)
	applyStringConfig(cmd, "ffmpeg", &extractFFmpeg, fc.FFmpeg)
	applyStringConfig(cmd, "command", &extractCommand, fc.Command)
	applyStringSliceConfig(cmd, "command-arg", &extractCommandArgs, fc.CommandArgs)

	cfg := model.ExtractConfig{
		InputDir:         args[0],
		OutputDir:        args[1],
		InputSuffix:      extractInputSuffix,
		OutputSuffix:     extractOutputSuffix,
		ChunkSeconds:     extractChunkSeconds,
		HopLength:        extractHop,
		SampleRate:       extractSampleRate,
		Estimator:        extractEstimator,
		Device:           extractDevice,
		VoicingThreshold: extractThreshold,
		Smoothing:        extractSmoothing,
		SkipExisting:     extractSkipExisting,
		FFmpegBin:        extractFFmpeg,
		Command:          extractCommand,
		CommandArgs:      extractCommandArgs,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	est, err := estimator.New(cfg)
	if err != nil {
		return err
	}

	tracks, err := inference.FindTracks(cfg.InputDir, cfg.OutputDir, cfg.InputSuffix, cfg.OutputSuffix)
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		logErrf("No files ending in %q under %s\n", cfg.InputSuffix, cfg.InputDir)
	}
	logger.Info("starting extraction",
		zap.String("input", cfg.InputDir),
		zap.String("output", cfg.OutputDir),
		zap.Int("tracks", len(tracks)),
		zap.String("estimator", cfg.Estimator),
		zap.Float64("chunk_seconds", cfg.ChunkSeconds),
	)

	openOpts := audio.OpenOptions{FFmpegBin: cfg.FFmpegBin, SampleRate: cfg.SampleRate}
	batch := &inference.Batch{
		Driver: &inference.Driver{
			Estimator:    est,
			ChunkSeconds: cfg.ChunkSeconds,
			Options: estimator.Options{
				Device:           cfg.Device,
				VoicingThreshold: cfg.VoicingThreshold,
				Smoothing:        cfg.Smoothing,
			},
		},
		Open: func(ctx context.Context, path string) (audio.Source, error) {
			return audio.Open(ctx, path, openOpts)
		},
		Logger:       logger,
		SkipExisting: cfg.SkipExisting,
	}
	if !extractNoProgress && term.IsTerminal(int(os.Stderr.Fd())) {
		batch.Progress = os.Stderr
	}

	summary, runErr := batch.Run(cmd.Context(), tracks)
	if err := writeExtractSummary(cmd.OutOrStdout(), summary); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return fmt.Errorf("extraction interrupted: %w", runErr)
		}
		return runErr
	}
	if summary.Failed > 0 && summary.Processed == 0 {
		return fmt.Errorf("all %d tracks failed", summary.Failed)
	}
	return nil
}

func writeExtractSummary(w io.Writer, s inference.BatchSummary) error {
	if _, err := fmt.Fprintf(w, "Processed: %d  Failed: %d  Skipped: %d\n", s.Processed, s.Failed, s.Skipped); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Inference time: %.2fs  Audio: %.2fs  Avg RTF: %.3f\n",
		s.InferTime.Seconds(), s.AudioSeconds, s.RTF()); err != nil {
		return err
	}
	for _, f := range s.Failures {
		if _, err := fmt.Fprintf(w, "  failed: %s: %s\n", f.File, f.Reason); err != nil {
			return err
		}
	}
	return nil
}
