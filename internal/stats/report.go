package stats

import (
	"context"

	"github.com/verte-zerg/vocalrange/internal/model"
	"github.com/verte-zerg/vocalrange/internal/store"
)

// Report contains a stored run prepared for rendering.
type Report struct {
	RunID    int64
	Analysis model.Analysis
	Widest   []model.TrackRange
}

// widestCount is the number of tracks listed in the widest-range panel.
const widestCount = 10

// BuildReport loads a stored run. runID <= 0 selects the latest run.
func BuildReport(ctx context.Context, st *store.Store, runID int64) (Report, error) {
	if runID <= 0 {
		latest, err := st.LatestRunID(ctx)
		if err != nil {
			return Report{}, err
		}
		runID = latest
	}
	analysis, err := st.LoadRun(ctx, runID)
	if err != nil {
		return Report{}, err
	}
	return Report{
		RunID:    runID,
		Analysis: analysis,
		Widest:   WidestTracks(analysis.Tracks, widestCount),
	}, nil
}
