// Package stats contains range statistics and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/verte-zerg/vocalrange/internal/model"
	"github.com/verte-zerg/vocalrange/internal/pitch"
)

// Summarize groups tracks by system and computes count, mean, sample
// standard deviation, min and max of the range in semitones. Mean and Std
// are rounded to two decimals; Std is NaN for a single track. Systems are
// sorted by label.
func Summarize(tracks []model.TrackRange) []model.SystemSummary {
	bySystem := map[string][]float64{}
	for _, tr := range tracks {
		bySystem[tr.System] = append(bySystem[tr.System], float64(tr.RangeSemitones))
	}
	labels := make([]string, 0, len(bySystem))
	for label := range bySystem {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	out := make([]model.SystemSummary, 0, len(labels))
	for _, label := range labels {
		values := bySystem[label]
		sum := model.SystemSummary{
			System: label,
			Count:  len(values),
			Mean:   Round2(stat.Mean(values, nil)),
			Std:    math.NaN(),
			Min:    int(floats.Min(values)),
			Max:    int(floats.Max(values)),
		}
		if len(values) > 1 {
			sum.Std = Round2(stat.StdDev(values, nil))
		}
		out = append(out, sum)
	}
	return out
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatStd renders a standard deviation, or "-" when it is undefined.
func FormatStd(std float64) string {
	if math.IsNaN(std) {
		return "-"
	}
	return strconv.FormatFloat(std, 'f', 2, 64)
}

// Histogram counts range_semitones per system over shared bins starting at 0.
// bins <= 0 uses one bin per semitone. The returned labels name each bin.
func Histogram(tracks []model.TrackRange, bins int) ([]Series, []string) {
	if len(tracks) == 0 {
		return nil, nil
	}
	maxRange := 0
	for _, tr := range tracks {
		if tr.RangeSemitones > maxRange {
			maxRange = tr.RangeSemitones
		}
	}
	span := maxRange + 1
	if bins <= 0 || bins > span {
		bins = span
	}
	width := int(math.Ceil(float64(span) / float64(bins)))
	bins = int(math.Ceil(float64(span) / float64(width)))

	labels := make([]string, bins)
	for i := range labels {
		lo := i * width
		hi := lo + width - 1
		if width == 1 {
			labels[i] = strconv.Itoa(lo)
		} else {
			labels[i] = fmt.Sprintf("%d-%d", lo, hi)
		}
	}

	summaries := Summarize(tracks)
	index := make(map[string]int, len(summaries))
	series := make([]Series, len(summaries))
	for i, s := range summaries {
		index[s.System] = i
		series[i] = Series{Name: s.System, Values: make([]float64, bins)}
	}
	for _, tr := range tracks {
		series[index[tr.System]].Values[tr.RangeSemitones/width]++
	}
	return series, labels
}

// RenderTracks prints the per-file range table.
func RenderTracks(w io.Writer, tracks []model.TrackRange) error {
	if len(tracks) == 0 {
		_, err := fmt.Fprintln(w, "No tracks with a persistent range.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Tracks"); err != nil {
		return err
	}
	headers := []string{"File", "System", "Min", "Max", "Range"}
	rows := make([][]string, 0, len(tracks))
	for _, tr := range tracks {
		rows = append(rows, []string{
			tr.File,
			tr.System,
			fmt.Sprintf("%d %s", tr.MinNote, pitch.NoteName(tr.MinNote)),
			fmt.Sprintf("%d %s", tr.MaxNote, pitch.NoteName(tr.MaxNote)),
			strconv.Itoa(tr.RangeSemitones),
		})
	}
	return writeTable(w, headers, rows, map[int]bool{2: true, 3: true, 4: true})
}

// RenderSystems prints the per-system summary table.
func RenderSystems(w io.Writer, systems []model.SystemSummary) error {
	if len(systems) == 0 {
		_, err := fmt.Fprintln(w, "No systems found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Systems (range in semitones)"); err != nil {
		return err
	}
	headers := []string{"System", "Count", "Mean", "Std", "Min", "Max"}
	rows := make([][]string, 0, len(systems))
	for _, s := range systems {
		rows = append(rows, []string{
			s.System,
			strconv.Itoa(s.Count),
			strconv.FormatFloat(s.Mean, 'f', 2, 64),
			FormatStd(s.Std),
			strconv.Itoa(s.Min),
			strconv.Itoa(s.Max),
		})
	}
	return writeTable(w, headers, rows, map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true})
}

// RenderSkipped prints files that produced no range and why.
func RenderSkipped(w io.Writer, skipped []model.SkippedFile) error {
	if len(skipped) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Skipped"); err != nil {
		return err
	}
	rows := make([][]string, 0, len(skipped))
	for _, s := range skipped {
		rows = append(rows, []string{s.File, s.Reason})
	}
	return writeTable(w, []string{"File", "Reason"}, rows, nil)
}

// RenderCounts prints the processed/skipped line.
func RenderCounts(w io.Writer, a model.Analysis) error {
	_, err := fmt.Fprintf(w, "Processed: %d  Skipped: %d\n", a.Processed(), len(a.Skipped))
	return err
}

// RenderDistribution plots range_semitones per system on a shared scale.
func RenderDistribution(w io.Writer, tracks []model.TrackRange, bins, totalWidth int, useColor bool) error {
	series, labels := Histogram(tracks, bins)
	if len(series) == 0 {
		return nil
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return Plot(w, Chart{
		Title:   "Range distribution (tracks per semitone span)",
		Series:  series,
		XLabels: labels,
		Width:   width,
		Color:   useColor,
	})
}

// RenderExtremes prints the highest and lowest frames of one contour with
// their surrounding frames.
func RenderExtremes(w io.Writer, file string, hi, lo pitch.Extreme) error {
	if _, err := fmt.Fprintln(w, file); err != nil {
		return err
	}
	for _, e := range []struct {
		label string
		ext   pitch.Extreme
	}{{"Max", hi}, {"Min", lo}} {
		note := "-"
		if e.ext.HasNote {
			note = pitch.NoteName(e.ext.Note)
		}
		if _, err := fmt.Fprintf(w, "  %s F0: %.2f Hz (%s) at frame %d\n", e.label, e.ext.Hz, note, e.ext.Index); err != nil {
			return err
		}
		rows := make([][]string, 0, len(e.ext.Context))
		for i, hz := range e.ext.Context {
			idx := e.ext.Start + i
			marker := ""
			if idx == e.ext.Index {
				marker = "<"
			}
			name := "-"
			if note, ok := pitch.NoteFor(hz); ok {
				name = pitch.NoteName(note)
			}
			rows = append(rows, []string{
				strconv.Itoa(idx),
				strconv.FormatFloat(hz, 'f', 2, 64),
				name,
				marker,
			})
		}
		for _, line := range formatTable([]string{"    Frame", "Hz", "Note", ""}, rows, map[int]bool{0: true, 1: true}) {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

func writeTable(w io.Writer, headers []string, rows [][]string, rightAlign map[int]bool) error {
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
