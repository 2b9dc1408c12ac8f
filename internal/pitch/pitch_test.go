package pitch

import (
	"errors"
	"testing"
)

const a4 = 440.0

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestFreqToMIDI(t *testing.T) {
	cases := []struct {
		hz   float64
		note int
		ok   bool
	}{
		{hz: 440, note: 69, ok: true},
		{hz: 880, note: 81, ok: true},
		{hz: 261.63, note: 60, ok: true},
		{hz: 0, ok: false},
		{hz: -12.5, ok: false},
	}
	for _, tc := range cases {
		note, ok := NoteFor(tc.hz)
		if ok != tc.ok {
			t.Fatalf("NoteFor(%v) ok=%v, want %v", tc.hz, ok, tc.ok)
		}
		if ok && note != tc.note {
			t.Fatalf("NoteFor(%v) = %d, want %d", tc.hz, note, tc.note)
		}
	}
}

func TestNoteForTreatsNearbyFrequenciesAsSameNote(t *testing.T) {
	a, _ := NoteFor(438.0)
	b, _ := NoteFor(443.5)
	if a != 69 || b != 69 {
		t.Fatalf("expected both to round to 69, got %d and %d", a, b)
	}
}

func TestNoteName(t *testing.T) {
	cases := map[int]string{69: "A4", 60: "C4", 61: "C#4", 0: "C-1", 127: "G9", -1: "B-2"}
	for note, want := range cases {
		if got := NoteName(note); got != want {
			t.Fatalf("NoteName(%d) = %q, want %q", note, got, want)
		}
	}
}

func TestPersistentNotesThreshold(t *testing.T) {
	if got := PersistentNotes(repeat(a4, 4), 4); len(got) != 1 || got[0] != 69 {
		t.Fatalf("exact threshold: expected [69], got %v", got)
	}
	if got := PersistentNotes(repeat(a4, 3), 4); len(got) != 0 {
		t.Fatalf("below threshold: expected none, got %v", got)
	}
	if got := PersistentNotes(repeat(a4, 8), 4); len(got) != 1 {
		t.Fatalf("long run: expected one emission, got %v", got)
	}
}

func TestPersistentNotesUnvoicedResetsRun(t *testing.T) {
	freqs := []float64{a4, a4, a4, 0, a4, a4, a4, a4}
	got := PersistentNotes(freqs, 4)
	if len(got) != 1 || got[0] != 69 {
		t.Fatalf("expected one note from the second run, got %v", got)
	}
	freqs = []float64{a4, a4, a4, 0, a4, a4, a4}
	if got := PersistentNotes(freqs, 4); len(got) != 0 {
		t.Fatalf("expected no notes, got %v", got)
	}
}

func TestPersistentNotesResumedRunEmitsAgain(t *testing.T) {
	freqs := append(repeat(a4, 4), 0)
	freqs = append(freqs, repeat(a4, 5)...)
	got := PersistentNotes(freqs, 4)
	if len(got) != 2 {
		t.Fatalf("expected two emissions, got %v", got)
	}
}

func TestPersistentNotesNoteChangeRestartsCount(t *testing.T) {
	c5 := 523.25
	freqs := []float64{a4, a4, a4, c5, c5, c5, c5, a4, a4, a4, a4}
	got := PersistentNotes(freqs, 4)
	if len(got) != 2 || got[0] != 72 || got[1] != 69 {
		t.Fatalf("expected [72 69], got %v", got)
	}
}

func TestPersistentNotesShortInput(t *testing.T) {
	if got := PersistentNotes(nil, 4); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
	if got := PersistentNotes([]float64{a4}, 1); len(got) != 1 {
		t.Fatalf("threshold 1 should confirm on first frame, got %v", got)
	}
}

func TestExtractRange(t *testing.T) {
	if _, ok := ExtractRange(nil); ok {
		t.Fatalf("expected no result for empty notes")
	}
	r, ok := ExtractRange([]int{64, 57, 69, 60})
	if !ok {
		t.Fatalf("expected a result")
	}
	if r.MinNote != 57 || r.MaxNote != 69 || r.RangeSemitones != 12 {
		t.Fatalf("unexpected range: %+v", r)
	}
	r, _ = ExtractRange([]int{69})
	if r.RangeSemitones != 0 {
		t.Fatalf("single note should have zero range, got %d", r.RangeSemitones)
	}
}

func TestTrackRangeEmpty(t *testing.T) {
	_, err := TrackRange([]float64{a4, a4}, 4)
	if !errors.Is(err, ErrNoPersistentNotes) {
		t.Fatalf("expected ErrNoPersistentNotes, got %v", err)
	}
}

func TestExtremes(t *testing.T) {
	freqs := []float64{200, 210, 440, 220, 100, 230}
	hi, lo, ok := Extremes(freqs, 1)
	if !ok {
		t.Fatalf("expected extremes")
	}
	if hi.Index != 2 || hi.Note != 69 || !hi.HasNote || hi.Start != 1 || len(hi.Context) != 3 {
		t.Fatalf("unexpected max: %+v", hi)
	}
	if lo.Index != 4 || lo.Start != 3 || len(lo.Context) != 3 {
		t.Fatalf("unexpected min: %+v", lo)
	}
	hi, _, _ = Extremes([]float64{500, 100}, 10)
	if hi.Start != 0 || len(hi.Context) != 2 {
		t.Fatalf("context should be clipped to the contour: %+v", hi)
	}
	_, lo, _ = Extremes([]float64{220, 0, 440}, 1)
	if lo.Index != 1 || lo.HasNote {
		t.Fatalf("a 0 Hz frame has no note: %+v", lo)
	}
	if _, _, ok := Extremes(nil, 3); ok {
		t.Fatalf("expected no extremes for empty contour")
	}
}
