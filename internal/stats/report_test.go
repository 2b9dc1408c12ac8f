package stats

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/vocalrange/internal/model"
	"github.com/verte-zerg/vocalrange/internal/store"
)

func TestBuildReport(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "vocalrange.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	if _, err := BuildReport(ctx, st, 0); !errors.Is(err, store.ErrNoRuns) {
		t.Fatalf("expected ErrNoRuns, got %v", err)
	}

	var ids []int64
	for i := 0; i < 3; i++ {
		tracks := []model.TrackRange{
			{File: "SysA/a.txt", System: "SysA", NoteRange: model.NoteRange{MinNote: 60, MaxNote: 60 + i, RangeSemitones: i}},
			{File: "SysA/b.txt", System: "SysA", NoteRange: model.NoteRange{MinNote: 50, MaxNote: 70, RangeSemitones: 20}},
		}
		id, err := st.SaveAnalysis(ctx, model.Analysis{
			Root:      "/corpus",
			CreatedAt: time.Unix(int64(i)*60, 0),
			Tracks:    tracks,
			Systems:   Summarize(tracks),
		})
		if err != nil {
			t.Fatalf("save analysis: %v", err)
		}
		ids = append(ids, id)
	}

	report, err := BuildReport(ctx, st, 0)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if report.RunID != ids[2] {
		t.Fatalf("expected latest run %d, got %d", ids[2], report.RunID)
	}
	if len(report.Widest) != 2 || report.Widest[0].File != "SysA/b.txt" {
		t.Fatalf("unexpected widest tracks: %+v", report.Widest)
	}

	first, err := BuildReport(ctx, st, ids[0])
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if first.Analysis.Tracks[0].RangeSemitones != 0 {
		t.Fatalf("expected first run data, got %+v", first.Analysis.Tracks)
	}
}
