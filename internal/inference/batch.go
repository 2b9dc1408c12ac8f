package inference

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"go.uber.org/zap"

	"github.com/verte-zerg/vocalrange/internal/audio"
	"github.com/verte-zerg/vocalrange/internal/contour"
	"github.com/verte-zerg/vocalrange/internal/model"
)

// Track maps one waveform to the contour file it produces.
type Track struct {
	Input  string
	Output string
	Rel    string
}

// FindTracks lists files under inputDir ending in inSuffix, sorted by path,
// and maps each to outputDir with the suffix replaced by outSuffix.
func FindTracks(inputDir, outputDir, inSuffix, outSuffix string) ([]Track, error) {
	var tracks []Track
	err := filepath.WalkDir(inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), inSuffix) {
			return nil
		}
		rel, err := filepath.Rel(inputDir, path)
		if err != nil {
			return err
		}
		tracks = append(tracks, Track{
			Input:  path,
			Output: filepath.Join(outputDir, strings.TrimSuffix(rel, inSuffix)+outSuffix),
			Rel:    filepath.ToSlash(rel),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", inputDir, err)
	}
	sort.Slice(tracks, func(i, j int) bool {
		return tracks[i].Rel < tracks[j].Rel
	})
	return tracks, nil
}

// OpenFunc opens a waveform for the driver.
type OpenFunc func(ctx context.Context, path string) (audio.Source, error)

// BatchSummary totals a batch extraction.
type BatchSummary struct {
	Processed    int
	Failed       int
	Skipped      int
	InferTime    time.Duration
	AudioSeconds float64
	Failures     []model.SkippedFile
}

// RTF returns the average real-time factor over processed tracks.
func (s BatchSummary) RTF() float64 {
	if s.AudioSeconds <= 0 {
		return 0
	}
	return s.InferTime.Seconds() / s.AudioSeconds
}

// Batch extracts contours for many tracks, one at a time.
type Batch struct {
	Driver       *Driver
	Open         OpenFunc
	Logger       *zap.Logger
	SkipExisting bool
	// Progress receives a progress bar when non-nil.
	Progress io.Writer
}

// Run processes tracks in order. A failing track is logged and counted; the
// batch only stops early when ctx is cancelled.
func (b *Batch) Run(ctx context.Context, tracks []Track) (BatchSummary, error) {
	logger := b.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var summary BatchSummary

	var progress *mpb.Progress
	var bar *mpb.Bar
	if b.Progress != nil && len(tracks) > 0 {
		progress = mpb.New(mpb.WithOutput(b.Progress), mpb.WithWidth(64))
		bar = progress.AddBar(int64(len(tracks)),
			mpb.PrependDecorators(
				decor.Name("Extracting: "),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(
				decor.Percentage(),
				decor.Name(" "),
				decor.Elapsed(decor.ET_STYLE_GO),
			),
		)
		defer func() {
			if !bar.Completed() {
				bar.Abort(false)
			}
			progress.Wait()
		}()
	}

	for _, tr := range tracks {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if b.SkipExisting {
			if _, err := os.Stat(tr.Output); err == nil {
				logger.Debug("contour exists, skipping", zap.String("file", tr.Rel))
				summary.Skipped++
				if bar != nil {
					bar.Increment()
				}
				continue
			}
		}

		res, err := b.ProcessTrack(ctx, tr)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return summary, err
			}
			logger.Warn("track failed", zap.String("file", tr.Rel), zap.Error(err))
			summary.Failed++
			summary.Failures = append(summary.Failures, model.SkippedFile{File: tr.Rel, Reason: err.Error()})
		} else {
			logger.Info("track processed",
				zap.String("file", tr.Rel),
				zap.Int("frames", len(res.Frames)),
				zap.Duration("infer_time", res.InferTime),
				zap.Float64("rtf", res.RTF()),
			)
			summary.Processed++
			summary.InferTime += res.InferTime
			summary.AudioSeconds += res.AudioSeconds
		}
		if bar != nil {
			bar.Increment()
		}
	}
	return summary, nil
}

// ProcessTrack extracts one contour and writes its voiced frames. Nothing is
// written when any step fails.
func (b *Batch) ProcessTrack(ctx context.Context, tr Track) (Result, error) {
	src, err := b.Open(ctx, tr.Input)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil && b.Logger != nil {
			b.Logger.Debug("failed to close audio", zap.String("file", tr.Rel), zap.Error(cerr))
		}
	}()

	res, err := b.Driver.Run(ctx, src)
	if err != nil {
		return Result{}, err
	}
	if err := contour.Save(tr.Output, contour.Voiced(res.Frames)); err != nil {
		return Result{}, err
	}
	return res, nil
}
