package pitch

import (
	"errors"

	"github.com/verte-zerg/vocalrange/internal/model"
)

// DefaultPersistenceFrames is the run length that confirms a note.
const DefaultPersistenceFrames = 4

// ErrNoPersistentNotes reports a contour with no stable note.
var ErrNoPersistentNotes = errors.New("no persistent notes")

// PersistentNotes scans a contour and emits a note once per run of at least
// persistenceFrames consecutive frames that round to the same MIDI note.
// Unvoiced frames (<= 0 Hz) break the current run.
func PersistentNotes(freqs []float64, persistenceFrames int) []int {
	if persistenceFrames <= 0 || len(freqs) < persistenceFrames {
		return nil
	}
	var notes []int
	current, count := 0, 0
	hasCurrent := false
	for _, hz := range freqs {
		note, ok := NoteFor(hz)
		if !ok {
			hasCurrent = false
			count = 0
			continue
		}
		if hasCurrent && note == current {
			count++
			if count == persistenceFrames {
				notes = append(notes, note)
			}
			continue
		}
		current = note
		hasCurrent = true
		count = 1
		// A threshold of one confirms the note on its first frame.
		if count == persistenceFrames {
			notes = append(notes, note)
		}
	}
	return notes
}

// ExtractRange returns the span of a persistent note sequence.
// ok is false for an empty sequence.
func ExtractRange(notes []int) (model.NoteRange, bool) {
	if len(notes) == 0 {
		return model.NoteRange{}, false
	}
	lo, hi := notes[0], notes[0]
	for _, n := range notes[1:] {
		if n < lo {
			lo = n
		}
		if n > hi {
			hi = n
		}
	}
	return model.NoteRange{MinNote: lo, MaxNote: hi, RangeSemitones: hi - lo}, true
}

// TrackRange runs the persistence filter and range extraction on one contour.
func TrackRange(freqs []float64, persistenceFrames int) (model.NoteRange, error) {
	r, ok := ExtractRange(PersistentNotes(freqs, persistenceFrames))
	if !ok {
		return model.NoteRange{}, ErrNoPersistentNotes
	}
	return r, nil
}
