// Package pitch converts F0 contours into notes and ranges.
package pitch

import (
	"fmt"
	"math"
)

const (
	referenceHz   = 440.0
	referenceNote = 69
)

var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// FreqToMIDI returns the fractional MIDI number for a frequency.
// ok is false for non-positive frequencies, which have no note.
func FreqToMIDI(hz float64) (midi float64, ok bool) {
	if !(hz > 0) || math.IsInf(hz, 0) {
		return 0, false
	}
	return referenceNote + 12*math.Log2(hz/referenceHz), true
}

// NoteFor returns the nearest MIDI note number for a frequency.
func NoteFor(hz float64) (int, bool) {
	midi, ok := FreqToMIDI(hz)
	if !ok {
		return 0, false
	}
	return int(math.Round(midi)), true
}

// NoteName formats a MIDI note number as scientific pitch notation, e.g. 69 -> "A4".
func NoteName(note int) string {
	pc := ((note % 12) + 12) % 12
	octave := floorDiv(note, 12) - 1
	return fmt.Sprintf("%s%d", noteNames[pc], octave)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
