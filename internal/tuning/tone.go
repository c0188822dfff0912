package tuning

import (
	"fmt"
	"math"
)

const (
	MinSubdivisions = 5
	MaxSubdivisions = 31
)

// ValidSubdivisions reports whether n is a tuning the keyboard and sequencer support.
func ValidSubdivisions(n int) bool {
	return n >= MinSubdivisions && n <= MaxSubdivisions
}

// Tone is one pitch class of an equal division of the octave.
type Tone struct {
	RootMultiplier float64
	Cents          float64
	// NearestTwelveTone is the closest 12-TET semitone class (0-11).
	NearestTwelveTone int
	// CentsOffset is the signed distance from NearestTwelveTone, measured
	// before a rounded 12 is folded back to 0.
	CentsOffset float64
	// NearestOfTwelveTone is the 12-TET class this tone represents, or -1.
	NearestOfTwelveTone int
}

// HasNearestOfTwelveTone reports whether the tone is the closest tone of the
// tuning to some 12-TET semitone.
func (t Tone) HasNearestOfTwelveTone() bool {
	return t.NearestOfTwelveTone >= 0
}

// Color maps the distance from 12-TET to a 0..1 shade with gamma 1/2.2.
// startFromWhite inverts the scale so a pure semitone is 1.
func (t Tone) Color(startFromWhite bool) float64 {
	x := math.Min(math.Abs(t.CentsOffset)/100, 1)
	if startFromWhite {
		x = 1 - x
	}
	return math.Pow(x, 1/2.2)
}

// DiffText formats the offset from 12-TET, e.g. "+ 14¢". Pure semitones yield "".
func (t Tone) DiffText() string {
	switch {
	case t.CentsOffset == 0:
		return ""
	case t.CentsOffset < 0:
		return fmt.Sprintf("− %.0f¢", math.Abs(t.CentsOffset))
	default:
		return fmt.Sprintf("+ %.0f¢", t.CentsOffset)
	}
}

func toneFromSubdivision(i, n int) Tone {
	fraction := float64(i) / float64(n)
	cents := 1200 * fraction
	nearest := int(math.Floor(cents/100 + 0.5))
	offset := cents - 100*float64(nearest)
	if nearest == 12 {
		nearest = 0
	}
	return Tone{
		RootMultiplier:      math.Pow(2, fraction),
		Cents:               cents,
		NearestTwelveTone:   nearest,
		CentsOffset:         offset,
		NearestOfTwelveTone: -1,
	}
}

// EqualOctaveSubdivisions returns the n tones of n-EDO in ascending order.
// For every 12-TET class, the tone rounding to it with the smallest absolute
// offset is marked as that class's representative.
func EqualOctaveSubdivisions(n int) []Tone {
	if n < 1 {
		return nil
	}
	tones := make([]Tone, n)
	var best [12]int
	for c := range best {
		best[c] = -1
	}
	for i := range tones {
		t := toneFromSubdivision(i, n)
		tones[i] = t
		c := t.NearestTwelveTone
		if best[c] < 0 || math.Abs(tones[best[c]].CentsOffset) > math.Abs(t.CentsOffset) {
			best[c] = i
		}
	}
	for c, i := range best {
		if i >= 0 {
			tones[i].NearestOfTwelveTone = c
		}
	}
	return tones
}
