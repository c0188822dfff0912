package tuning

import "math"

const (
	// DefaultRootFrequency is C0 in Hz. Because of the octave-1 convention in
	// ExpandToPitches it is the frequency of the second generated octave.
	DefaultRootFrequency = 16.0352

	MinOctave = 0
	MaxOctave = 8
)

// Pitch is a Tone placed in an octave.
type Pitch struct {
	Octave    int
	Frequency float64
	Tone      *Tone
}

// ExpandToPitches lays tones out over octaveCount octaves, octave-major.
// The index of a pitch in the result is what sequences store, so the
// ordering must not change.
func ExpandToPitches(rootFrequency float64, lowestOctave, octaveCount int, tones []Tone) []Pitch {
	if octaveCount < 1 || len(tones) == 0 {
		return nil
	}
	pitches := make([]Pitch, 0, octaveCount*len(tones))
	for octave := 0; octave < octaveCount; octave++ {
		base := rootFrequency * math.Pow(2, float64(octave-1))
		for i := range tones {
			pitches = append(pitches, Pitch{
				Octave:    lowestOctave + octave,
				Frequency: base * tones[i].RootMultiplier,
				Tone:      &tones[i],
			})
		}
	}
	return pitches
}

// rangeOctaves is the nominal octave span plus one extra octave, so the
// boundary note at the top of the highest octave exists in the range.
func rangeOctaves() int {
	return MaxOctave - MinOctave + 2
}

// PitchRange expands tones over the full playable range starting at rootFrequency.
func PitchRange(rootFrequency float64, tones []Tone) []Pitch {
	return ExpandToPitches(rootFrequency, MinOctave, rangeOctaves(), tones)
}

// PitchCount is the number of pitches PitchRange yields for an n-EDO tuning.
func PitchCount(n int) int {
	if n < 1 {
		return 0
	}
	return n * rangeOctaves()
}

// KeyboardOctaves is how many octaves the on-screen keyboard shows for n-EDO.
func KeyboardOctaves(n int) int {
	switch {
	case n <= 10:
		return 4
	case n <= 15:
		return 3
	case n <= 21:
		return 2
	default:
		return 1
	}
}

// DefaultKeyboardOffset starts the keyboard window at the fifth generated octave.
func DefaultKeyboardOffset(n int) int {
	return 4 * n
}

// KeyboardWindow returns the contiguous pitches shown on the keyboard starting at
// offset: KeyboardOctaves(n) octaves plus the closing root note.
func KeyboardWindow(pitches []Pitch, offset, n int) []Pitch {
	if offset < 0 {
		offset = 0
	}
	if offset > len(pitches) {
		offset = len(pitches)
	}
	end := offset + KeyboardOctaves(n)*n + 1
	if end > len(pitches) {
		end = len(pitches)
	}
	return pitches[offset:end]
}

// MaxKeyboardOffset is the largest offset that still shows a full window.
func MaxKeyboardOffset(pitchCount, n int) int {
	m := pitchCount - (KeyboardOctaves(n)*n + 1)
	if m < 0 {
		return 0
	}
	return m
}
