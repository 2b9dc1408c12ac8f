package estimator

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/verte-zerg/vocalrange/internal/audio"
)

// Command runs an external pitch tracker once per chunk. The chunk is written
// to a temporary 16-bit WAV and the tool's stdout is read as one frame per
// line, taking the last numeric field as Hz (the aubio pitch layout).
//
// Args may reference {input}, {rate}, {hop}, {device}, {threshold} and
// {smoothing}. Without {input} the WAV path is appended as the last argument.
type Command struct {
	Bin       string
	Args      []string
	HopLength int
}

// Infer implements Estimator.
func (c *Command) Infer(ctx context.Context, chunk []float64, sampleRate int, opts Options) ([]float64, error) {
	if _, err := exec.LookPath(c.Bin); err != nil {
		return nil, fmt.Errorf("%s not found: %w", c.Bin, err)
	}
	dir, err := os.MkdirTemp("", "vocalrange-chunk-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(dir)
	}()
	input := filepath.Join(dir, "chunk.wav")
	if err := audio.WriteWAV(input, chunk, sampleRate); err != nil {
		return nil, err
	}

	args := c.expandArgs(input, sampleRate, opts)
	cmd := exec.CommandContext(ctx, c.Bin, args...)
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("%s failed: %w", c.Bin, err)
		}
		return nil, fmt.Errorf("%s failed: %w: %s", c.Bin, err, msg)
	}
	return parseFrames(stdout.Bytes()), nil
}

func (c *Command) expandArgs(input string, sampleRate int, opts Options) []string {
	replacer := strings.NewReplacer(
		"{input}", input,
		"{rate}", strconv.Itoa(sampleRate),
		"{hop}", strconv.Itoa(c.HopLength),
		"{device}", opts.Device,
		"{threshold}", strconv.FormatFloat(opts.VoicingThreshold, 'f', -1, 64),
		"{smoothing}", strconv.FormatBool(opts.Smoothing),
	)
	args := make([]string, 0, len(c.Args)+1)
	hasInput := false
	for _, a := range c.Args {
		if strings.Contains(a, "{input}") {
			hasInput = true
		}
		args = append(args, replacer.Replace(a))
	}
	if !hasInput {
		args = append(args, input)
	}
	return args
}

func parseFrames(out []byte) []float64 {
	var frames []float64
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(fields[len(fields)-1], 64)
		if err != nil {
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			v = 0
		}
		frames = append(frames, v)
	}
	return frames
}
