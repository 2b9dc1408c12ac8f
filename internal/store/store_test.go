package store

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/vocalrange/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "vocalrange.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func sampleAnalysis(root string, created time.Time) model.Analysis {
	return model.Analysis{
		Root:      root,
		CreatedAt: created,
		Tracks: []model.TrackRange{
			{File: "SysA/a.txt", System: "SysA", NoteRange: model.NoteRange{MinNote: 57, MaxNote: 69, RangeSemitones: 12}},
			{File: "SysB/b.txt", System: "SysB", NoteRange: model.NoteRange{MinNote: 60, MaxNote: 67, RangeSemitones: 7}},
		},
		Systems: []model.SystemSummary{
			{System: "SysA", Count: 1, Mean: 12, Std: math.NaN(), Min: 12, Max: 12},
			{System: "SysB", Count: 3, Mean: 7.33, Std: 1.53, Min: 6, Max: 9},
		},
		Skipped: []model.SkippedFile{{File: "root.txt", Reason: "no system label"}},
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if _, err := st.LatestRunID(ctx); !errors.Is(err, ErrNoRuns) {
		t.Fatalf("expected ErrNoRuns on empty store, got %v", err)
	}

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	id, err := st.SaveAnalysis(ctx, sampleAnalysis("/corpus", created))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	latest, err := st.LatestRunID(ctx)
	if err != nil || latest != id {
		t.Fatalf("expected latest run %d, got %d (%v)", id, latest, err)
	}

	got, err := st.LoadRun(ctx, id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Root != "/corpus" || !got.CreatedAt.Equal(created) {
		t.Fatalf("unexpected run header: %+v", got)
	}
	if len(got.Tracks) != 2 || got.Tracks[0].File != "SysA/a.txt" || got.Tracks[0].RangeSemitones != 12 {
		t.Fatalf("unexpected tracks: %+v", got.Tracks)
	}
	if len(got.Systems) != 2 {
		t.Fatalf("expected 2 systems, got %d", len(got.Systems))
	}
	if !math.IsNaN(got.Systems[0].Std) {
		t.Fatalf("expected NULL std to load as NaN, got %v", got.Systems[0].Std)
	}
	if got.Systems[1].Std != 1.53 || got.Systems[1].Mean != 7.33 {
		t.Fatalf("unexpected summary: %+v", got.Systems[1])
	}
	if len(got.Skipped) != 1 || got.Skipped[0].Reason != "no system label" {
		t.Fatalf("unexpected skipped: %+v", got.Skipped)
	}

	if _, err := st.LoadRun(ctx, id+100); err == nil {
		t.Fatalf("expected error for missing run")
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := st.SaveAnalysis(ctx, sampleAnalysis("/corpus", time.Unix(int64(i)*60, 0)))
		if err != nil {
			t.Fatalf("save: %v", err)
		}
		ids = append(ids, id)
	}

	runs, err := st.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != ids[2] || runs[1].RunID != ids[1] {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	if runs[0].Processed != 2 || runs[0].Skipped != 1 || runs[0].Systems != 2 {
		t.Fatalf("unexpected counts: %+v", runs[0])
	}

	all, err := st.ListRuns(ctx, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected all 3 runs, got %d (%v)", len(all), err)
	}
}

func TestSystemHistory(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := st.SaveAnalysis(ctx, sampleAnalysis("/corpus", time.Unix(int64(i), 0))); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	sums, runs, err := st.SystemHistory(ctx, "SysB")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(sums) != 2 || len(runs) != 2 || runs[0].RunID >= runs[1].RunID {
		t.Fatalf("unexpected history: %+v %+v", sums, runs)
	}
	if sums[0].Count != 3 || sums[0].System != "SysB" {
		t.Fatalf("unexpected summary: %+v", sums[0])
	}
	if sums, _, err := st.SystemHistory(ctx, "Unknown"); err != nil || len(sums) != 0 {
		t.Fatalf("expected empty history, got %+v (%v)", sums, err)
	}
}
