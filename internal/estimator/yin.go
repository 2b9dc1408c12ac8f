package estimator

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	defaultYINFrame     = 2048
	defaultYINThreshold = 0.15
	defaultMinHz        = 50
	defaultMaxHz        = 1100
	silenceRMS          = 1e-3
)

// YIN is a pure Go implementation of the YIN pitch tracker.
// It emits one frame per Hop samples, centred on the hop position.
type YIN struct {
	Hop       int
	FrameSize int
	// Threshold is the aperiodicity cut-off on the normalised difference.
	Threshold float64
	MinHz     float64
	MaxHz     float64
}

// NewYIN returns a YIN tracker with vocal-range defaults.
func NewYIN(hop int) *YIN {
	return &YIN{
		Hop:       hop,
		FrameSize: defaultYINFrame,
		Threshold: defaultYINThreshold,
		MinHz:     defaultMinHz,
		MaxHz:     defaultMaxHz,
	}
}

// FrameCount returns the number of frames Infer produces for n samples.
func (y *YIN) FrameCount(n int) int {
	if n <= 0 || y.Hop <= 0 {
		return 0
	}
	return (n + y.Hop - 1) / y.Hop
}

// Infer implements Estimator. A frame is voiced when the normalised
// difference dips below Threshold and 1-d' reaches opts.VoicingThreshold.
func (y *YIN) Infer(ctx context.Context, chunk []float64, sampleRate int, opts Options) ([]float64, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("yin: sample rate must be > 0")
	}
	if y.Hop <= 0 || y.FrameSize < 4 {
		return nil, fmt.Errorf("yin: invalid hop %d or frame size %d", y.Hop, y.FrameSize)
	}
	t := newYINTracker(y, sampleRate)
	out := make([]float64, y.FrameCount(len(chunk)))
	window := make([]float64, y.FrameSize)
	for i := range out {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		start := i*y.Hop - y.FrameSize/2
		for j := range window {
			k := start + j
			if k < 0 || k >= len(chunk) {
				window[j] = 0
				continue
			}
			window[j] = chunk[k]
		}
		out[i] = t.pitch(window, opts.VoicingThreshold)
	}
	if opts.Smoothing {
		out = medianSmooth(out)
	}
	return out, nil
}

type yinTracker struct {
	y      *YIN
	rate   float64
	minTau int
	maxTau int
	fft    *fourier.FFT
	a, b   []float64
	diff   []float64
	cmnd   []float64
}

func newYINTracker(y *YIN, sampleRate int) *yinTracker {
	half := y.FrameSize / 2
	maxTau := half
	if y.MinHz > 0 {
		if t := int(float64(sampleRate) / y.MinHz); t < maxTau {
			maxTau = t
		}
	}
	minTau := 2
	if y.MaxHz > 0 {
		if t := int(float64(sampleRate) / y.MaxHz); t > minTau {
			minTau = t
		}
	}
	n := 2 * y.FrameSize
	return &yinTracker{
		y:      y,
		rate:   float64(sampleRate),
		minTau: minTau,
		maxTau: maxTau,
		fft:    fourier.NewFFT(n),
		a:      make([]float64, n),
		b:      make([]float64, n),
		diff:   make([]float64, maxTau+1),
		cmnd:   make([]float64, maxTau+1),
	}
}

func (t *yinTracker) pitch(frame []float64, voicing float64) float64 {
	if rms(frame) < silenceRMS || t.maxTau <= t.minTau {
		return 0
	}
	t.difference(frame)

	t.cmnd[0] = 1
	running := 0.0
	for tau := 1; tau <= t.maxTau; tau++ {
		running += t.diff[tau]
		if running == 0 {
			t.cmnd[tau] = 1
			continue
		}
		t.cmnd[tau] = t.diff[tau] * float64(tau) / running
	}

	tau := -1
	for k := t.minTau; k < t.maxTau; k++ {
		if t.cmnd[k] < t.y.Threshold {
			for k+1 < t.maxTau && t.cmnd[k+1] < t.cmnd[k] {
				k++
			}
			tau = k
			break
		}
	}
	if tau < 0 {
		return 0
	}
	if 1-t.cmnd[tau] < voicing {
		return 0
	}

	period := float64(tau)
	if tau > 1 && tau < t.maxTau {
		s0, s1, s2 := t.cmnd[tau-1], t.cmnd[tau], t.cmnd[tau+1]
		den := 2 * (s0 - 2*s1 + s2)
		if den != 0 {
			period += (s0 - s2) / den
		}
	}
	if period <= 0 {
		return 0
	}
	hz := t.rate / period
	if hz < t.y.MinHz || (t.y.MaxHz > 0 && hz > t.y.MaxHz) {
		return 0
	}
	return hz
}

// difference fills diff[tau] = sum_j (x_j - x_{j+tau})^2 over the first half
// of the frame, using an FFT cross-correlation for the product term.
func (t *yinTracker) difference(frame []float64) {
	half := len(frame) / 2
	for i := range t.a {
		t.a[i] = 0
		t.b[i] = 0
	}
	copy(t.a, frame[:half])
	copy(t.b, frame)

	fa := t.fft.Coefficients(nil, t.a)
	fb := t.fft.Coefficients(nil, t.b)
	for i := range fa {
		re, im := real(fa[i]), -imag(fa[i])
		fa[i] = complex(re, im) * fb[i]
	}
	corr := t.fft.Sequence(nil, fa)
	scale := 1 / float64(len(t.a))

	prefix := make([]float64, len(frame)+1)
	for i, v := range frame {
		prefix[i+1] = prefix[i] + v*v
	}
	head := prefix[half]
	t.diff[0] = 0
	for tau := 1; tau <= t.maxTau; tau++ {
		tail := prefix[tau+half] - prefix[tau]
		d := head + tail - 2*corr[tau]*scale
		if d < 0 {
			d = 0
		}
		t.diff[tau] = d
	}
}

func rms(frame []float64) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, v := range frame {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(frame)))
}

// medianSmooth replaces each voiced frame with the median of itself and its
// voiced neighbours. Unvoiced frames are left untouched.
func medianSmooth(f0 []float64) []float64 {
	out := make([]float64, len(f0))
	copy(out, f0)
	window := make([]float64, 0, 3)
	for i := 1; i+1 < len(f0); i++ {
		if f0[i-1] <= 0 || f0[i] <= 0 || f0[i+1] <= 0 {
			continue
		}
		window = append(window[:0], f0[i-1], f0[i], f0[i+1])
		sort.Float64s(window)
		out[i] = window[1]
	}
	return out
}
