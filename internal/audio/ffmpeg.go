package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// OpenOptions controls how non-WAV inputs are decoded.
type OpenOptions struct {
	// FFmpegBin decodes containers other than PCM WAV.
	FFmpegBin string
	// SampleRate resamples through ffmpeg when > 0; 0 keeps the native rate.
	SampleRate int
}

// Open returns a mono Source for an audio file. Integer PCM WAV at the
// requested rate is streamed directly; everything else, float WAV included,
// goes through ffmpeg into a temporary WAV that is removed on Close.
func Open(ctx context.Context, path string, opts OpenOptions) (Source, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		src, err := OpenWAV(path)
		if err == nil && (opts.SampleRate <= 0 || src.SampleRate() == opts.SampleRate) {
			return src, nil
		}
		if err == nil {
			_ = src.Close()
		}
	}
	return decodeWithFFmpeg(ctx, path, opts)
}

func decodeWithFFmpeg(ctx context.Context, path string, opts OpenOptions) (Source, error) {
	bin := opts.FFmpegBin
	if bin == "" {
		bin = "ffmpeg"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("ffmpeg not found (%s): %w", bin, err)
	}
	tmpFile, err := os.CreateTemp("", "vocalrange-*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp wav: %w", err)
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	args := []string{"-hide_banner", "-nostdin", "-v", "error", "-y", "-i", path, "-vn", "-ac", "1"}
	if opts.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(opts.SampleRate))
	}
	args = append(args, "-c:a", "pcm_s16le", "-f", "wav", tmpPath)

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	out, err := cmd.CombinedOutput()
	if err != nil {
		_ = os.Remove(tmpPath)
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return nil, fmt.Errorf("ffmpeg decode failed: %w", err)
		}
		return nil, fmt.Errorf("ffmpeg decode failed: %w: %s", err, msg)
	}

	src, err := OpenWAV(tmpPath)
	if err != nil {
		_ = os.Remove(tmpPath)
		return nil, err
	}
	src.onClose = func() error {
		if err := os.Remove(tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	return src, nil
}
