// Package contour reads and writes persisted F0 contours.
//
// A contour file holds one frequency in Hz per line with two decimals.
// Only voiced (strictly positive) frames are written, in frame order.
package contour

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ParseError reports a line that is not a number.
type ParseError struct {
	Path string
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("line %d: invalid frequency %q: %v", e.Line, e.Text, e.Err)
	}
	return fmt.Sprintf("%s:%d: invalid frequency %q: %v", e.Path, e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Voiced returns the strictly positive frames of a contour in order.
func Voiced(frames []float64) []float64 {
	out := make([]float64, 0, len(frames))
	for _, f := range frames {
		if f > 0 {
			out = append(out, f)
		}
	}
	return out
}

// Parse reads one frequency per line. Blank lines are ignored.
func Parse(r io.Reader) ([]float64, error) {
	var freqs []float64
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Text: line, Err: err}
		}
		freqs = append(freqs, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return freqs, nil
}

// Load reads a contour file.
func Load(path string) ([]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only contour.
			_ = cerr
		}
	}()

	freqs, err := Parse(file)
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.Path = path
		}
		return nil, err
	}
	return freqs, nil
}

// Encode writes the voiced frames of a contour, one per line.
func Encode(w io.Writer, frames []float64) error {
	writer := bufio.NewWriter(w)
	for _, f := range frames {
		if !(f > 0) {
			continue
		}
		if _, err := writer.WriteString(strconv.FormatFloat(f, 'f', 2, 64)); err != nil {
			return err
		}
		if err := writer.WriteByte('\n'); err != nil {
			return err
		}
	}
	return writer.Flush()
}

// Save writes a contour to path atomically, creating parent directories.
// A failed write leaves no file behind.
func Save(path string, frames []float64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create contour dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".contour-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp contour: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if err := Encode(tmpFile, frames); err != nil {
		return fmt.Errorf("failed to write contour: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close contour: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write contour: %w", err)
	}
	return nil
}
