// Package model defines shared data structures.
package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrInvalidConfig marks configuration errors that must stop a run before any work starts.
var ErrInvalidConfig = errors.New("invalid configuration")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// ExtractConfig defines contour extraction settings.
type ExtractConfig struct {
	InputDir         string
	OutputDir        string
	InputSuffix      string
	OutputSuffix     string
	ChunkSeconds     float64
	HopLength        int
	SampleRate       int
	Estimator        string
	Device           string
	VoicingThreshold float64
	Smoothing        bool
	SkipExisting     bool
	FFmpegBin        string
	Command          string
	CommandArgs      []string
}

// Validate checks extraction settings.
func (c ExtractConfig) Validate() error {
	if strings.TrimSpace(c.InputDir) == "" {
		return invalidf("input directory must not be empty")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return invalidf("output directory must not be empty")
	}
	if c.InputSuffix == "" {
		return invalidf("--input-suffix must not be empty")
	}
	if c.OutputSuffix == "" {
		return invalidf("--output-suffix must not be empty")
	}
	if c.InputSuffix == c.OutputSuffix {
		return invalidf("--input-suffix and --output-suffix must differ")
	}
	if !(c.ChunkSeconds > 0) || math.IsInf(c.ChunkSeconds, 0) {
		return invalidf("--chunk-seconds must be > 0")
	}
	if c.HopLength <= 0 {
		return invalidf("--hop must be > 0")
	}
	if c.SampleRate < 0 {
		return invalidf("--sample-rate must be >= 0")
	}
	if c.VoicingThreshold < 0 || c.VoicingThreshold > 1 {
		return invalidf("--threshold must be between 0 and 1")
	}
	if c.Estimator == "" {
		return invalidf("--estimator must not be empty")
	}
	return nil
}

// AnalyzeConfig defines corpus analysis settings.
type AnalyzeConfig struct {
	Root              string
	Pattern           string
	PersistenceFrames int
	CSVPath           string
	SummaryCSVPath    string
	NoStore           bool
	PlotBins          int
}

// Validate checks analysis settings.
func (c AnalyzeConfig) Validate() error {
	if strings.TrimSpace(c.Root) == "" {
		return invalidf("corpus root must not be empty")
	}
	if c.Pattern == "" {
		return invalidf("--pattern must not be empty")
	}
	if c.PersistenceFrames <= 0 {
		return invalidf("--persistence must be > 0")
	}
	if c.PlotBins < 0 {
		return invalidf("--bins must be >= 0")
	}
	return nil
}

// NoteRange is the pitch span of one track in MIDI note numbers.
type NoteRange struct {
	MinNote        int
	MaxNote        int
	RangeSemitones int
}

// TrackRange is one analysed contour file.
type TrackRange struct {
	File   string
	System string
	NoteRange
}

// SystemSummary aggregates ranges for one system label.
// Std is NaN when Count < 2.
type SystemSummary struct {
	System string
	Count  int
	Mean   float64
	Std    float64
	Min    int
	Max    int
}

// SkippedFile records a contour file that did not produce a range.
type SkippedFile struct {
	File   string
	Reason string
}

// Analysis is the full result of one corpus analysis run.
type Analysis struct {
	Root      string
	CreatedAt time.Time
	Tracks    []TrackRange
	Systems   []SystemSummary
	Skipped   []SkippedFile
}

// Processed returns the number of files that produced a range.
func (a Analysis) Processed() int {
	return len(a.Tracks)
}

// RunInfo summarizes a stored analysis run.
type RunInfo struct {
	RunID     int64
	CreatedAt time.Time
	Root      string
	Processed int
	Skipped   int
	Systems   int
}
