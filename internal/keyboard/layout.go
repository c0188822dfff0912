package keyboard

import (
	"github.com/tuningbox/edoseq/internal/tuning"
)

const (
	TallKeyWidth  = 1.0
	ShortKeyWidth = 0.5
)

// Chars is the physical key bound to each on-screen key, left to right.
var Chars = []string{
	"q", "w", "e", "r", "t", "y", "u", "i", "o", "p", "[", "]", "\\",
	"a", "s", "d", "f", "g", "h", "j", "k", "l", ";", "'",
	"z", "x", "c", "v", "b", "n", "m", ",", ".", "/",
}

var charIndex = func() map[string]int {
	m := make(map[string]int, len(Chars))
	for i, c := range Chars {
		m[c] = i
	}
	return m
}()

// CharIndex returns the key index a physical character plays.
func CharIndex(char string) (int, bool) {
	i, ok := charIndex[char]
	return i, ok
}

// Key is one key of the generated keyboard. Its position in the Layout
// result is the key index used for note on/off.
type Key struct {
	X       float64
	Width   float64
	IsShort bool
	// Color is 0..1; short and tall keys shade with opposite polarity.
	Color float64
	// Char is "" for keys past the end of Chars.
	Char  string
	Pitch tuning.Pitch
}

// IsShortClass reports whether a 12-TET class is a black key on a piano.
func IsShortClass(class int) bool {
	switch class {
	case 1, 3, 6, 8, 10:
		return true
	}
	return false
}

// Layout packs a contiguous window of pitches into keys. Runs of short keys
// are centred between the tall keys around them; the tall keys on both sides
// of a run longer than one share the extra width.
func Layout(pitches []tuning.Pitch) []Key {
	keys := make([]Key, 0, len(pitches))
	shortRun := 0
	x := 0.0
	for i, p := range pitches {
		short := IsShortClass(p.Tone.NearestTwelveTone)
		base := TallKeyWidth
		if short {
			base = ShortKeyWidth
		}
		k := Key{
			X:       x,
			Width:   base,
			IsShort: short,
			Color:   p.Tone.Color(!short),
			Pitch:   p,
		}
		if i < len(Chars) {
			k.Char = Chars[i]
		}

		if short {
			if shortRun == 0 {
				x -= ShortKeyWidth / 2
				k.X = x
			}
		} else if shortRun > 0 {
			extra := float64(shortRun-1) * ShortKeyWidth
			x -= ShortKeyWidth / 2
			k.X = x - extra/2
			k.Width += extra / 2
			// A run at the start of the window has no tall key before it.
			if prev := len(keys) - 1 - shortRun; prev >= 0 {
				keys[prev].Width += extra / 2
			}
		}

		keys = append(keys, k)
		if short {
			shortRun++
		} else {
			shortRun = 0
		}
		x += base
	}
	return keys
}
