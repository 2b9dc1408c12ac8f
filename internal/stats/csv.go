package stats

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/verte-zerg/vocalrange/internal/model"
)

// WriteTracksCSV writes file,system,min_note,max_note,range_semitones rows.
func WriteTracksCSV(w io.Writer, tracks []model.TrackRange) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"file", "system", "min_note", "max_note", "range_semitones"}); err != nil {
		return err
	}
	for _, tr := range tracks {
		if err := cw.Write([]string{
			tr.File,
			tr.System,
			strconv.Itoa(tr.MinNote),
			strconv.Itoa(tr.MaxNote),
			strconv.Itoa(tr.RangeSemitones),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaryCSV writes one row per system. An undefined std is left empty.
func WriteSummaryCSV(w io.Writer, systems []model.SystemSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"system", "count", "mean", "std", "min", "max"}); err != nil {
		return err
	}
	for _, s := range systems {
		std := ""
		if !math.IsNaN(s.Std) {
			std = strconv.FormatFloat(s.Std, 'f', 2, 64)
		}
		if err := cw.Write([]string{
			s.System,
			strconv.Itoa(s.Count),
			strconv.FormatFloat(s.Mean, 'f', 2, 64),
			std,
			strconv.Itoa(s.Min),
			strconv.Itoa(s.Max),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes a CSV through write into path atomically.
func WriteCSVFile(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".vocalrange-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// Best-effort cleanup; the file is gone after a successful rename.
		_ = os.Remove(tmpName)
	}()
	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
