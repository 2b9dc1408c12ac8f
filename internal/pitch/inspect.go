package pitch

// Extreme locates one frame of a contour with the frames around it.
type Extreme struct {
	Index   int
	Hz      float64
	Note    int
	// HasNote is false for frames with no pitch (0 Hz or below).
	HasNote bool
	Start   int
	Context []float64
}

// Extremes returns the highest and lowest frames of a contour with up to
// contextFrames neighbours on each side. The first occurrence wins on ties.
// ok is false for an empty contour.
func Extremes(freqs []float64, contextFrames int) (hi, lo Extreme, ok bool) {
	if len(freqs) == 0 {
		return Extreme{}, Extreme{}, false
	}
	if contextFrames < 0 {
		contextFrames = 0
	}
	maxIdx, minIdx := 0, 0
	for i, v := range freqs {
		if v > freqs[maxIdx] {
			maxIdx = i
		}
		if v < freqs[minIdx] {
			minIdx = i
		}
	}
	return extremeAt(freqs, maxIdx, contextFrames), extremeAt(freqs, minIdx, contextFrames), true
}

func extremeAt(freqs []float64, idx, contextFrames int) Extreme {
	start := idx - contextFrames
	if start < 0 {
		start = 0
	}
	end := idx + contextFrames + 1
	if end > len(freqs) {
		end = len(freqs)
	}
	ctx := make([]float64, end-start)
	copy(ctx, freqs[start:end])
	note, ok := NoteFor(freqs[idx])
	return Extreme{
		Index:   idx,
		Hz:      freqs[idx],
		Note:    note,
		HasNote: ok,
		Start:   start,
		Context: ctx,
	}
}
