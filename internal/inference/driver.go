// Package inference runs a pitch estimator over long audio in fixed chunks.
package inference

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/verte-zerg/vocalrange/internal/audio"
	"github.com/verte-zerg/vocalrange/internal/estimator"
	"github.com/verte-zerg/vocalrange/internal/model"
)

// DefaultChunkSeconds is the inference window length.
const DefaultChunkSeconds = 10.0

// InferenceError reports an estimator failure on one chunk. The whole track
// is abandoned when it occurs.
type InferenceError struct {
	Chunk int
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed on chunk %d: %v", e.Chunk, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// Result is the stitched contour of one waveform.
type Result struct {
	// Frames holds every estimator frame in chunk order, including unvoiced zeros.
	Frames []float64
	Chunks int
	// AudioSeconds is the padded waveform duration.
	AudioSeconds float64
	InferTime    time.Duration
}

// RTF returns inference time divided by audio duration.
func (r Result) RTF() float64 {
	if r.AudioSeconds <= 0 {
		return 0
	}
	return r.InferTime.Seconds() / r.AudioSeconds
}

// Driver feeds a waveform to an estimator one chunk at a time.
type Driver struct {
	Estimator    estimator.Estimator
	ChunkSeconds float64
	Options      estimator.Options
}

// ChunkSamples returns the chunk length in samples for a sample rate.
func (d *Driver) ChunkSamples(sampleRate int) int {
	return int(math.Round(d.ChunkSeconds * float64(sampleRate)))
}

// Run reads src to the end, zero-padding the last chunk to full length, and
// calls the estimator once per chunk in order. Chunks never overlap and
// frames are appended as returned.
func (d *Driver) Run(ctx context.Context, src audio.Source) (Result, error) {
	if d.Estimator == nil {
		return Result{}, fmt.Errorf("%w: no estimator configured", model.ErrInvalidConfig)
	}
	if !(d.ChunkSeconds > 0) {
		return Result{}, fmt.Errorf("%w: chunk duration must be > 0", model.ErrInvalidConfig)
	}
	rate := src.SampleRate()
	if rate <= 0 {
		return Result{}, fmt.Errorf("%w: sample rate must be > 0", model.ErrInvalidConfig)
	}
	size := d.ChunkSamples(rate)
	if size <= 0 {
		return Result{}, fmt.Errorf("%w: chunk of %.3fs is shorter than one sample", model.ErrInvalidConfig, d.ChunkSeconds)
	}

	var res Result
	chunk := make([]float64, size)
	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		n, err := readFull(src, chunk)
		if err != nil {
			return Result{}, fmt.Errorf("failed to read audio: %w", err)
		}
		if n == 0 {
			break
		}
		for i := n; i < size; i++ {
			chunk[i] = 0
		}

		start := time.Now()
		frames, err := d.Estimator.Infer(ctx, chunk, rate, d.Options)
		res.InferTime += time.Since(start)
		if err != nil {
			return Result{}, &InferenceError{Chunk: res.Chunks, Err: err}
		}
		res.Frames = append(res.Frames, frames...)
		res.Chunks++
		if n < size {
			break
		}
	}
	res.AudioSeconds = float64(res.Chunks*size) / float64(rate)
	return res, nil
}

// readFull fills buf from src and returns the number of samples read.
// A short count with a nil error means the source is exhausted.
func readFull(src audio.Source, buf []float64) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := src.Read(buf[n:])
		n += m
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if m == 0 {
			return n, nil
		}
	}
	return n, nil
}
