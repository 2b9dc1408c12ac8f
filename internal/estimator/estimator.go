// Package estimator provides pitch estimators for the inference driver.
package estimator

import (
	"context"
	"fmt"

	"github.com/verte-zerg/vocalrange/internal/model"
)

// Options are passed to every Infer call.
type Options struct {
	Device           string
	VoicingThreshold float64
	Smoothing        bool
}

// Estimator turns one chunk of mono samples into per-frame F0 values in Hz.
// Unvoiced frames are reported as 0. Implementations are not required to be
// safe for concurrent use.
type Estimator interface {
	Infer(ctx context.Context, chunk []float64, sampleRate int, opts Options) ([]float64, error)
}

// Func adapts a function to the Estimator interface.
type Func func(ctx context.Context, chunk []float64, sampleRate int, opts Options) ([]float64, error)

// Infer implements Estimator.
func (f Func) Infer(ctx context.Context, chunk []float64, sampleRate int, opts Options) ([]float64, error) {
	return f(ctx, chunk, sampleRate, opts)
}

// Names lists the estimators New understands.
var Names = []string{"yin", "command"}

// New builds the estimator named in cfg.
func New(cfg model.ExtractConfig) (Estimator, error) {
	switch cfg.Estimator {
	case "yin":
		return NewYIN(cfg.HopLength), nil
	case "command":
		if cfg.Command == "" {
			return nil, fmt.Errorf("%w: --command is required for the command estimator", model.ErrInvalidConfig)
		}
		return &Command{Bin: cfg.Command, Args: cfg.CommandArgs, HopLength: cfg.HopLength}, nil
	default:
		return nil, fmt.Errorf("%w: unknown estimator %q (available: yin, command)", model.ErrInvalidConfig, cfg.Estimator)
	}
}
