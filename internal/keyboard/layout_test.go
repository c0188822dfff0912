package keyboard

import (
	"math"
	"testing"

	"github.com/tuningbox/edoseq/internal/tuning"
)

const eps = 1e-9

func octaveWindow(n int) []tuning.Pitch {
	tones := tuning.EqualOctaveSubdivisions(n)
	pitches := tuning.PitchRange(tuning.DefaultRootFrequency, tones)
	return pitches[4*n : 5*n]
}

func pitchesForClasses(classes ...int) []tuning.Pitch {
	tones := make([]tuning.Tone, len(classes))
	pitches := make([]tuning.Pitch, len(classes))
	for i, c := range classes {
		tones[i] = tuning.Tone{NearestTwelveTone: c, NearestOfTwelveTone: -1}
		pitches[i] = tuning.Pitch{Octave: 4, Frequency: float64(100 + i), Tone: &tones[i]}
	}
	return pitches
}

func TestLayoutTwelveEDOOctave(t *testing.T) {
	keys := Layout(octaveWindow(12))
	if len(keys) != 12 {
		t.Fatalf("got %d keys, want 12", len(keys))
	}
	short, tall := 0, 0
	for _, k := range keys {
		if k.IsShort {
			short++
		} else {
			tall++
		}
	}
	if short != 5 || tall != 7 {
		t.Fatalf("short=%d tall=%d, want 5/7", short, tall)
	}
	for i, k := range keys {
		if !k.IsShort {
			continue
		}
		prev, next := keys[i-1], keys[i+1]
		if prev.IsShort || next.IsShort {
			t.Fatalf("key %d: 12-TET short keys should sit between tall keys", i)
		}
		center := k.X + k.Width/2
		if !(center > prev.X && center < next.X+next.Width) {
			t.Fatalf("key %d: center %v outside [%v, %v]", i, center, prev.X, next.X+next.Width)
		}
		if math.Abs(center-(prev.X+prev.Width)) > eps || math.Abs(center-next.X) > eps {
			t.Fatalf("key %d: center %v not on boundary %v/%v", i, center, prev.X+prev.Width, next.X)
		}
	}
	for i := 1; i < len(keys); i++ {
		if keys[i].IsShort {
			continue
		}
		j := i - 1
		for j >= 0 && keys[j].IsShort {
			j--
		}
		if j >= 0 && math.Abs(keys[j].X+keys[j].Width-keys[i].X) > eps {
			t.Fatalf("tall keys %d and %d overlap or leave a gap", j, i)
		}
	}
}

func TestLayoutCentresLongShortRun(t *testing.T) {
	keys := Layout(pitchesForClasses(0, 1, 1, 1, 2))
	first, last := keys[0], keys[4]
	if math.Abs(first.Width-1.5) > eps || math.Abs(last.Width-1.5) > eps {
		t.Fatalf("tall widths = %v, %v, want 1.5 each", first.Width, last.Width)
	}
	if math.Abs(last.X-1.5) > eps {
		t.Fatalf("last tall x = %v, want 1.5", last.X)
	}
	runStart := keys[1].X
	runEnd := keys[3].X + keys[3].Width
	boundary := first.X + first.Width
	if math.Abs((runStart+runEnd)/2-boundary) > eps {
		t.Fatalf("run [%v, %v] not centred on %v", runStart, runEnd, boundary)
	}
}

func TestLayoutLeadingShortRun(t *testing.T) {
	keys := Layout(pitchesForClasses(1, 1, 2))
	if keys[0].X != -0.25 {
		t.Fatalf("leading short key x = %v, want -0.25", keys[0].X)
	}
	if math.Abs(keys[2].Width-1.25) > eps {
		t.Fatalf("tall width = %v, want 1.25", keys[2].Width)
	}
}

func TestLayoutColorsAndChars(t *testing.T) {
	keys := Layout(octaveWindow(12))
	for i, k := range keys {
		if k.Char != Chars[i] {
			t.Fatalf("key %d char %q, want %q", i, k.Char, Chars[i])
		}
		want := 1.0
		if k.IsShort {
			want = 0
		}
		if math.Abs(k.Color-want) > eps {
			t.Fatalf("key %d color %v, want %v", i, k.Color, want)
		}
	}

	tones := tuning.EqualOctaveSubdivisions(31)
	pitches := tuning.PitchRange(tuning.DefaultRootFrequency, tones)
	wide := Layout(pitches[31 : 31+40])
	if wide[len(Chars)].Char != "" {
		t.Fatalf("keys past the alphabet should have no char")
	}
	for i, k := range wide {
		if k.Color < 0 || k.Color > 1 {
			t.Fatalf("key %d color %v outside [0,1]", i, k.Color)
		}
	}
}

func TestLayoutShadesWithToneColor(t *testing.T) {
	tones := tuning.EqualOctaveSubdivisions(19)
	pitches := tuning.PitchRange(tuning.DefaultRootFrequency, tones)
	for i, k := range Layout(pitches[19 : 19+19]) {
		if want := k.Pitch.Tone.Color(!k.IsShort); k.Color != want {
			t.Fatalf("key %d color %v, want %v", i, k.Color, want)
		}
	}
}

func TestLayoutClipsColorForFiveEDO(t *testing.T) {
	for _, k := range Layout(octaveWindow(5)) {
		if k.Color < 0 || k.Color > 1 {
			t.Fatalf("color %v outside [0,1]", k.Color)
		}
	}
}
