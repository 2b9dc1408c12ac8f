// Package corpus walks a tree of contour files and aggregates vocal ranges
// per system.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/verte-zerg/vocalrange/internal/contour"
	"github.com/verte-zerg/vocalrange/internal/model"
	"github.com/verte-zerg/vocalrange/internal/pitch"
	"github.com/verte-zerg/vocalrange/internal/stats"
)

// DefaultPattern matches contour files.
const DefaultPattern = "*.txt"

// Skip reasons recorded in model.SkippedFile.
const (
	ReasonNoLabel   = "no system label"
	ReasonNoNotes   = "no persistent notes"
	reasonMalformed = "malformed contour"
)

// Aggregator computes per-file ranges and per-system summaries for every
// contour under Root.
type Aggregator struct {
	Root    string
	Pattern string
	// PersistenceFrames must be > 0; Run rejects anything else with
	// model.ErrInvalidConfig before reading a file.
	PersistenceFrames int
	Logger            *zap.Logger
	// Now stamps the analysis; time.Now when nil.
	Now func() time.Time
}

// New builds an Aggregator from a validated config.
func New(cfg model.AnalyzeConfig, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		Root:              cfg.Root,
		Pattern:           cfg.Pattern,
		PersistenceFrames: cfg.PersistenceFrames,
		Logger:            logger,
	}
}

// Run scans Root in lexicographic path order. Unreadable directories, files
// that cannot be parsed and files with no persistent note are recorded as
// skipped; only an invalid setting, an unreadable Root or a cancelled ctx
// aborts the run.
func (a *Aggregator) Run(ctx context.Context) (model.Analysis, error) {
	logger := a.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pattern := a.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return model.Analysis{}, fmt.Errorf("%w: bad pattern %q: %v", model.ErrInvalidConfig, pattern, err)
	}
	threshold := a.PersistenceFrames
	if threshold <= 0 {
		return model.Analysis{}, fmt.Errorf("%w: persistence must be > 0, got %d", model.ErrInvalidConfig, threshold)
	}
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}

	files, unreadable, err := findContours(a.Root, pattern)
	if err != nil {
		return model.Analysis{}, err
	}

	analysis := model.Analysis{Root: a.Root, CreatedAt: now()}
	for _, sk := range unreadable {
		logger.Warn("skipping unreadable directory", zap.String("dir", sk.File), zap.String("error", sk.Reason))
	}
	analysis.Skipped = append(analysis.Skipped, unreadable...)
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return model.Analysis{}, err
		}
		system, ok := SystemLabel(rel)
		if !ok {
			logger.Warn("contour outside any system directory", zap.String("file", rel))
			analysis.Skipped = append(analysis.Skipped, model.SkippedFile{File: rel, Reason: ReasonNoLabel})
			continue
		}

		freqs, err := contour.Load(filepath.Join(a.Root, filepath.FromSlash(rel)))
		if err != nil {
			logger.Warn("skipping unreadable contour", zap.String("file", rel), zap.Error(err))
			analysis.Skipped = append(analysis.Skipped, model.SkippedFile{File: rel, Reason: skipReason(err)})
			continue
		}

		r, err := pitch.TrackRange(freqs, threshold)
		if errors.Is(err, pitch.ErrNoPersistentNotes) {
			logger.Info("no persistent notes", zap.String("file", rel), zap.Int("frames", len(freqs)))
			analysis.Skipped = append(analysis.Skipped, model.SkippedFile{File: rel, Reason: ReasonNoNotes})
			continue
		}
		if err != nil {
			return model.Analysis{}, err
		}
		analysis.Tracks = append(analysis.Tracks, model.TrackRange{File: rel, System: system, NoteRange: r})
	}
	analysis.Systems = stats.Summarize(analysis.Tracks)

	logger.Info("corpus analysed",
		zap.String("root", a.Root),
		zap.Int("processed", analysis.Processed()),
		zap.Int("skipped", len(analysis.Skipped)),
		zap.Int("systems", len(analysis.Systems)),
	)
	return analysis, nil
}

// SystemLabel returns the first directory of a slash-separated relative
// path, NFC-normalised. ok is false for files directly under the root.
func SystemLabel(rel string) (string, bool) {
	first, rest, found := strings.Cut(rel, "/")
	if !found || first == "" || rest == "" {
		return "", false
	}
	return NormalizeLabel(first), true
}

// NormalizeLabel returns the NFC form of a system label, the form stored
// with every run.
func NormalizeLabel(label string) string {
	return norm.NFC.String(label)
}

func skipReason(err error) string {
	var pe *contour.ParseError
	if errors.As(err, &pe) {
		return fmt.Sprintf("%s: line %d", reasonMalformed, pe.Line)
	}
	return err.Error()
}

// findContours lists files whose base name matches pattern as slash
// separated paths relative to root, sorted. Unreadable directories below
// root are returned as skipped entries; only a failure on root itself is an
// error.
func findContours(root, pattern string) ([]string, []model.SkippedFile, error) {
	var files []string
	var skipped []model.SkippedFile
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			rel, rerr := filepath.Rel(root, p)
			if rerr != nil {
				return err
			}
			skipped = append(skipped, model.SkippedFile{File: filepath.ToSlash(rel), Reason: err.Error()})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if ok, _ := path.Match(pattern, d.Name()); !ok {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	sort.Strings(files)
	return files, skipped, nil
}
