package tuning

import (
	"math"
	"testing"
)

func TestExpandToPitchesOrderingAndFrequencies(t *testing.T) {
	tones := EqualOctaveSubdivisions(12)
	pitches := ExpandToPitches(100, 3, 3, tones)
	if len(pitches) != 36 {
		t.Fatalf("got %d pitches, want 36", len(pitches))
	}
	// The first octave sits one octave below the root frequency.
	if math.Abs(pitches[0].Frequency-50) > 1e-9 {
		t.Fatalf("first frequency = %v, want 50", pitches[0].Frequency)
	}
	if math.Abs(pitches[12].Frequency-100) > 1e-9 {
		t.Fatalf("second octave root = %v, want 100", pitches[12].Frequency)
	}
	if pitches[0].Octave != 3 || pitches[35].Octave != 5 {
		t.Fatalf("octave labels = %d..%d, want 3..5", pitches[0].Octave, pitches[35].Octave)
	}
	for i := 1; i < len(pitches); i++ {
		if pitches[i].Frequency <= pitches[i-1].Frequency {
			t.Fatalf("frequencies not increasing at %d", i)
		}
	}
	if pitches[13].Tone != &tones[1] {
		t.Fatalf("pitch should reference its tone")
	}
}

func TestPitchRangeIncludesTopBoundary(t *testing.T) {
	for n := MinSubdivisions; n <= MaxSubdivisions; n++ {
		tones := EqualOctaveSubdivisions(n)
		pitches := PitchRange(DefaultRootFrequency, tones)
		if len(pitches) != PitchCount(n) {
			t.Fatalf("n=%d: %d pitches, PitchCount=%d", n, len(pitches), PitchCount(n))
		}
		top := pitches[len(pitches)-n]
		if top.Octave != MaxOctave+1 || top.Tone.RootMultiplier != 1 {
			t.Fatalf("n=%d: top boundary root missing (octave %d)", n, top.Octave)
		}
	}
}

func TestKeyboardWindow(t *testing.T) {
	cases := []struct {
		n       int
		octaves int
	}{
		{5, 4}, {10, 4}, {12, 3}, {15, 3}, {19, 2}, {21, 2}, {22, 1}, {31, 1},
	}
	for _, tc := range cases {
		if got := KeyboardOctaves(tc.n); got != tc.octaves {
			t.Fatalf("n=%d: octaves %d, want %d", tc.n, got, tc.octaves)
		}
		pitches := PitchRange(DefaultRootFrequency, EqualOctaveSubdivisions(tc.n))
		window := KeyboardWindow(pitches, DefaultKeyboardOffset(tc.n), tc.n)
		if len(window) != tc.octaves*tc.n+1 {
			t.Fatalf("n=%d: window has %d pitches", tc.n, len(window))
		}
		if window[0].Tone.RootMultiplier != 1 || window[len(window)-1].Tone.RootMultiplier != 1 {
			t.Fatalf("n=%d: window should start and end on the root", tc.n)
		}
	}
}

func TestKeyboardWindowClampsAtEnd(t *testing.T) {
	pitches := PitchRange(DefaultRootFrequency, EqualOctaveSubdivisions(12))
	window := KeyboardWindow(pitches, len(pitches)-3, 12)
	if len(window) != 3 {
		t.Fatalf("clamped window has %d pitches, want 3", len(window))
	}
	if got := MaxKeyboardOffset(len(pitches), 12); got != len(pitches)-37 {
		t.Fatalf("max offset = %d", got)
	}
}
