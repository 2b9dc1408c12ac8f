package contour

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "track.txt")
	frames := []float64{0, 440, 0, 0, 220.5, 261.63, 0}

	if err := Save(path, frames); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := []float64{440, 220.5, 261.63}
	if len(got) != len(want) {
		t.Fatalf("expected %d frames, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("frame %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestEncodeFormatsTwoDecimals(t *testing.T) {
	var b strings.Builder
	if err := Encode(&b, []float64{440, 0, 123.456, -3}); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if b.String() != "440.00\n123.46\n" {
		t.Fatalf("unexpected encoding: %q", b.String())
	}
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.txt")
	if err := os.WriteFile(path, []byte("440.00\n\nabc\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Load(path)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if pe.Line != 3 || pe.Path != path || pe.Text != "abc" {
		t.Fatalf("unexpected parse error: %+v", pe)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := Save(path, []float64{100}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "a.txt" {
		t.Fatalf("unexpected directory contents: %v", entries)
	}
}

func TestVoiced(t *testing.T) {
	got := Voiced([]float64{0, 1, -1, 2, 0})
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("unexpected voiced frames: %v", got)
	}
}
