package stats

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/verte-zerg/vocalrange/internal/model"
	"github.com/verte-zerg/vocalrange/internal/pitch"
)

func track(file, system string, lo, hi int) model.TrackRange {
	return model.TrackRange{File: file, System: system, NoteRange: model.NoteRange{MinNote: lo, MaxNote: hi, RangeSemitones: hi - lo}}
}

func TestSummarizeTwoSystems(t *testing.T) {
	got := Summarize([]model.TrackRange{
		track("SysB/y.txt", "SysB", 60, 67),
		track("SysA/x.txt", "SysA", 57, 69),
	})
	if len(got) != 2 {
		t.Fatalf("expected 2 systems, got %d", len(got))
	}
	if got[0].System != "SysA" || got[0].Count != 1 || got[0].Mean != 12 || got[0].Min != 12 || got[0].Max != 12 {
		t.Fatalf("unexpected SysA summary: %+v", got[0])
	}
	if !math.IsNaN(got[0].Std) {
		t.Fatalf("expected undefined std for one track, got %v", got[0].Std)
	}
	if got[1].System != "SysB" || got[1].Mean != 7 {
		t.Fatalf("unexpected SysB summary: %+v", got[1])
	}
}

func TestSummarizeSampleStd(t *testing.T) {
	got := Summarize([]model.TrackRange{
		track("S/a.txt", "S", 60, 66),
		track("S/b.txt", "S", 60, 67),
		track("S/c.txt", "S", 60, 69),
	})
	// ranges 6, 7, 9: mean 7.33, sample std 1.53
	if got[0].Mean != 7.33 || got[0].Std != 1.53 || got[0].Min != 6 || got[0].Max != 9 {
		t.Fatalf("unexpected summary: %+v", got[0])
	}
}

func TestRound2(t *testing.T) {
	cases := map[float64]float64{1.005001: 1.01, 2.344: 2.34, -1.255001: -1.26, 3: 3}
	for in, want := range cases {
		if got := Round2(in); got != want {
			t.Fatalf("Round2(%v): expected %v, got %v", in, want, got)
		}
	}
	if FormatStd(math.NaN()) != "-" || FormatStd(1.5) != "1.50" {
		t.Fatalf("unexpected std formatting")
	}
}

func TestHistogram(t *testing.T) {
	tracks := []model.TrackRange{
		track("A/1.txt", "A", 60, 60),
		track("A/2.txt", "A", 60, 64),
		track("B/1.txt", "B", 60, 64),
		track("B/2.txt", "B", 60, 65),
	}
	series, labels := Histogram(tracks, 0)
	if len(labels) != 6 || labels[0] != "0" || labels[5] != "5" {
		t.Fatalf("unexpected labels: %v", labels)
	}
	if len(series) != 2 || series[0].Name != "A" || series[1].Name != "B" {
		t.Fatalf("unexpected series: %+v", series)
	}
	if series[0].Values[0] != 1 || series[0].Values[4] != 1 || series[1].Values[4] != 1 || series[1].Values[5] != 1 {
		t.Fatalf("unexpected counts: %+v", series)
	}

	series, labels = Histogram(tracks, 3)
	if len(labels) != 3 || labels[0] != "0-1" || labels[2] != "4-5" {
		t.Fatalf("unexpected binned labels: %v", labels)
	}
	if series[1].Values[2] != 2 {
		t.Fatalf("expected both B tracks in the last bin, got %v", series[1].Values)
	}

	if s, l := Histogram(nil, 0); s != nil || l != nil {
		t.Fatalf("expected nothing for no tracks")
	}
}

func TestWidestTracks(t *testing.T) {
	tracks := []model.TrackRange{
		track("b.txt", "S", 60, 65),
		track("a.txt", "S", 60, 65),
		track("c.txt", "S", 50, 70),
	}
	top := WidestTracks(tracks, 2)
	if len(top) != 2 || top[0].File != "c.txt" || top[1].File != "a.txt" {
		t.Fatalf("unexpected order: %+v", top)
	}
	if WidestTracks(tracks, 0) != nil {
		t.Fatalf("expected nil for n=0")
	}
}

func TestRenderTablesAndCSV(t *testing.T) {
	tracks := []model.TrackRange{track("SysA/x.txt", "SysA", 57, 69)}
	systems := Summarize(tracks)

	var buf bytes.Buffer
	if err := RenderTracks(&buf, tracks); err != nil {
		t.Fatalf("RenderTracks: %v", err)
	}
	if !strings.Contains(buf.String(), "57 A3") || !strings.Contains(buf.String(), "69 A4") {
		t.Fatalf("expected note names in track table:\n%s", buf.String())
	}

	buf.Reset()
	if err := RenderSystems(&buf, systems); err != nil {
		t.Fatalf("RenderSystems: %v", err)
	}
	if !strings.Contains(buf.String(), "12.00") || !strings.Contains(buf.String(), " - ") {
		t.Fatalf("expected mean and undefined std:\n%s", buf.String())
	}

	buf.Reset()
	if err := WriteTracksCSV(&buf, tracks); err != nil {
		t.Fatalf("WriteTracksCSV: %v", err)
	}
	if buf.String() != "file,system,min_note,max_note,range_semitones\nSysA/x.txt,SysA,57,69,12\n" {
		t.Fatalf("unexpected tracks csv: %q", buf.String())
	}

	buf.Reset()
	if err := WriteSummaryCSV(&buf, systems); err != nil {
		t.Fatalf("WriteSummaryCSV: %v", err)
	}
	if buf.String() != "system,count,mean,std,min,max\nSysA,1,12.00,,12,12\n" {
		t.Fatalf("unexpected summary csv: %q", buf.String())
	}
}

func TestRenderCounts(t *testing.T) {
	var buf bytes.Buffer
	a := model.Analysis{
		Tracks:  []model.TrackRange{track("S/a.txt", "S", 60, 62)},
		Skipped: []model.SkippedFile{{File: "b.txt", Reason: "no system label"}, {File: "S/c.txt", Reason: "no persistent notes"}},
	}
	if err := RenderCounts(&buf, a); err != nil {
		t.Fatalf("RenderCounts: %v", err)
	}
	if buf.String() != "Processed: 1  Skipped: 2\n" {
		t.Fatalf("unexpected counts line: %q", buf.String())
	}
}

func TestRenderExtremes(t *testing.T) {
	freqs := []float64{220, 440, 880, 440}
	hi, lo, ok := pitch.Extremes(freqs, 1)
	if !ok {
		t.Fatalf("expected extremes")
	}
	var buf bytes.Buffer
	if err := RenderExtremes(&buf, "x.txt", hi, lo); err != nil {
		t.Fatalf("RenderExtremes: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Max F0: 880.00 Hz (A5) at frame 2") || !strings.Contains(out, "Min F0: 220.00 Hz (A3) at frame 0") {
		t.Fatalf("unexpected extremes output:\n%s", out)
	}

	_, lo, _ = pitch.Extremes([]float64{220, 0, 440}, 1)
	buf.Reset()
	if err := RenderExtremes(&buf, "y.txt", hi, lo); err != nil {
		t.Fatalf("RenderExtremes: %v", err)
	}
	if !strings.Contains(buf.String(), "Min F0: 0.00 Hz (-) at frame 1") {
		t.Fatalf("unpitched minimum should have no note name:\n%s", buf.String())
	}
}
