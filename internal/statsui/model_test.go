package statsui

import (
	"context"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/vocalrange/internal/model"
	"github.com/verte-zerg/vocalrange/internal/store"
)

func seedStore(t *testing.T, runs int) (*store.Store, []int64) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "vocalrange.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	var ids []int64
	for i := 0; i < runs; i++ {
		a := model.Analysis{
			Root:      "/corpus",
			CreatedAt: time.Unix(int64(i)*3600, 0),
			Tracks: []model.TrackRange{
				{File: "SysA/a.txt", System: "SysA", NoteRange: model.NoteRange{MinNote: 57, MaxNote: 69 + i, RangeSemitones: 12 + i}},
				{File: "SysB/b.txt", System: "SysB", NoteRange: model.NoteRange{MinNote: 60, MaxNote: 67, RangeSemitones: 7}},
			},
			Systems: []model.SystemSummary{
				{System: "SysA", Count: 1, Mean: float64(12 + i), Std: math.NaN(), Min: 12 + i, Max: 12 + i},
				{System: "SysB", Count: 1, Mean: 7, Std: math.NaN(), Min: 7, Max: 7},
			},
		}
		id, err := st.SaveAnalysis(context.Background(), a)
		if err != nil {
			t.Fatalf("save: %v", err)
		}
		ids = append(ids, id)
	}
	return st, ids
}

func sized(m *Model) *Model {
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m
}

func TestViewShowsLatestRun(t *testing.T) {
	st, ids := seedStore(t, 2)
	m := sized(NewModel(st, 0))
	if m.report.RunID != ids[1] {
		t.Fatalf("expected latest run %d, got %d", ids[1], m.report.RunID)
	}
	view := m.View()
	for _, want := range []string{"Summary", "Tracks", "Distribution", "Processed", "SysA", "Widest"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected view to contain %q:\n%s", want, view)
		}
	}
	if lines := strings.Split(view, "\n"); len(lines) != 30 {
		t.Fatalf("expected 30 lines, got %d", len(lines))
	}
}

func TestRunSelectionAndNavigation(t *testing.T) {
	st, ids := seedStore(t, 3)
	m := sized(NewModel(st, ids[0]))
	if m.report.RunID != ids[0] || m.errMsg != "" {
		t.Fatalf("expected run %d without error, got %d (%q)", ids[0], m.report.RunID, m.errMsg)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{']'}})
	if m.report.RunID != ids[1] {
		t.Fatalf("expected newer run %d, got %d", ids[1], m.report.RunID)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'['}})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'['}})
	if m.report.RunID != ids[0] {
		t.Fatalf("expected to stop at oldest run %d, got %d", ids[0], m.report.RunID)
	}

	missing := sized(NewModel(st, 999))
	if missing.report.RunID != ids[2] || !strings.Contains(missing.errMsg, "999") {
		t.Fatalf("expected fallback to latest with notice, got %d (%q)", missing.report.RunID, missing.errMsg)
	}
}

func TestTabsAndSystemFilter(t *testing.T) {
	st, _ := seedStore(t, 1)
	m := sized(NewModel(st, 0))

	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.activeTab != tabTracks {
		t.Fatalf("expected tracks tab, got %d", m.activeTab)
	}
	if view := m.View(); !strings.Contains(view, "SysA/a.txt") || !strings.Contains(view, "SysB/b.txt") {
		t.Fatalf("expected both tracks in table:\n%s", view)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	if !m.filterMode {
		t.Fatalf("expected filter mode")
	}
	m.filterInput.SetValue("SysB")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.filterMode || m.system != "SysB" {
		t.Fatalf("expected SysB filter applied, got %q (mode %v)", m.system, m.filterMode)
	}
	if rows := m.trackTable.Rows(); len(rows) != 1 || rows[0][0] != "SysB/b.txt" {
		t.Fatalf("unexpected filtered rows: %+v", rows)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.activeTab != tabDistribution {
		t.Fatalf("expected distribution tab, got %d", m.activeTab)
	}
	if view := m.View(); !strings.Contains(view, "Tracks per range") {
		t.Fatalf("expected histogram title:\n%s", view)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.activeTab != tabSummary {
		t.Fatalf("expected tabs to wrap, got %d", m.activeTab)
	}
}

func TestEmptyStore(t *testing.T) {
	st, _ := seedStore(t, 0)
	m := sized(NewModel(st, 0))
	if view := m.View(); !strings.Contains(view, "No runs stored") {
		t.Fatalf("expected empty notice:\n%s", view)
	}
}

func TestFitLinesAndTruncate(t *testing.T) {
	got := fitLines("ab\ncd\nef", 4, 2)
	if got != "ab  \ncd  " {
		t.Fatalf("unexpected fitLines output: %q", got)
	}
	if got := fitLines("x", 2, 3); got != "x \n  \n  " {
		t.Fatalf("unexpected padding: %q", got)
	}
	if got := truncateLine("abcdefgh", 6); got != "abc..." {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := truncateLine("short", 10); got != "short" {
		t.Fatalf("unexpected truncation of short line: %q", got)
	}
}
