package stats

import (
	"bytes"
	"strings"
	"testing"
)

func TestPlotSharedScale(t *testing.T) {
	var buf bytes.Buffer
	err := Plot(&buf, Chart{
		Title: "Test Plot",
		Series: []Series{
			{Name: "A", Values: []float64{1, 2, 3, 2, 1, 0, 0, 1, 2, 3}},
			{Name: "B", Values: []float64{0, 0, 1, 4, 0, 0, 0, 0, 0, 0}},
		},
		XLabels: []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"},
		Width:   10,
		Height:  4,
	})
	if err != nil {
		t.Fatalf("Plot failed: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	// title, 4 rows, x axis, legend
	if len(lines) != 7 {
		t.Fatalf("expected 7 lines, got %d:\n%s", len(lines), buf.String())
	}
	if lines[0] != "Test Plot" {
		t.Fatalf("expected title first, got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "    4 │ ") {
		t.Fatalf("expected shared maximum on the top row, got %q", lines[1])
	}
	if !strings.HasPrefix(lines[4], "    0 │ ") {
		t.Fatalf("expected zero on the bottom row, got %q", lines[4])
	}
	if !strings.Contains(lines[5], "0") || !strings.HasSuffix(lines[5], "9") {
		t.Fatalf("unexpected x axis: %q", lines[5])
	}
	if !strings.HasPrefix(lines[6], "Legend: ") || !strings.Contains(lines[6], "A (solid)") || !strings.Contains(lines[6], "B (dashed)") {
		t.Fatalf("unexpected legend: %q", lines[6])
	}
}

func TestPlotSkipsEmptySeries(t *testing.T) {
	var buf bytes.Buffer
	if err := PlotSeries(&buf, "Empty", []Series{{Name: "A"}}, nil); err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestResampleKeepsPeaks(t *testing.T) {
	got := resampleSeries([]float64{0, 5, 0, 0, 1, 0}, 3)
	want := []float64{5, 0, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: expected %v, got %v", i, want[i], got)
		}
	}
}
