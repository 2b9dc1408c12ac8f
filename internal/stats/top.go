package stats

import (
	"sort"

	"github.com/verte-zerg/vocalrange/internal/model"
)

// WidestTracks returns up to n tracks with the largest range, widest first.
// Ties keep file order.
func WidestTracks(tracks []model.TrackRange, n int) []model.TrackRange {
	if n <= 0 || len(tracks) == 0 {
		return nil
	}
	items := make([]model.TrackRange, len(tracks))
	copy(items, tracks)
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].RangeSemitones == items[j].RangeSemitones {
			return items[i].File < items[j].File
		}
		return items[i].RangeSemitones > items[j].RangeSemitones
	})
	if n > len(items) {
		n = len(items)
	}
	return items[:n]
}
