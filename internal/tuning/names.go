package tuning

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Accidental selects how the black keys of 12-TET are spelled.
type Accidental int

const (
	Sharp Accidental = iota
	Flat
)

var ErrUnknownAccidental = errors.New("unknown accidental")

var noteNames = [2][12]string{
	{"C", "C♯", "D", "D♯", "E", "F", "F♯", "G", "G♯", "A", "A♯", "B"},
	{"C", "D♭", "D", "E♭", "E", "F", "G♭", "G", "A♭", "A", "B♭", "B"},
}

func (a Accidental) String() string {
	switch a {
	case Sharp:
		return "sharp"
	case Flat:
		return "flat"
	default:
		return fmt.Sprintf("Accidental(%d)", int(a))
	}
}

// ParseAccidental accepts "sharp" or "flat", case-insensitively.
func ParseAccidental(s string) (Accidental, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sharp", "#":
		return Sharp, nil
	case "flat", "b":
		return Flat, nil
	default:
		return Sharp, fmt.Errorf("%w: %q", ErrUnknownAccidental, s)
	}
}

// Name returns the 12-TET note name of class (0-11) spelled with a.
func (a Accidental) Name(class int) string {
	if a != Flat {
		a = Sharp
	}
	return noteNames[a][((class%12)+12)%12]
}

// PitchName formats a pitch like "C♯4 + 14¢".
func PitchName(p Pitch, a Accidental) string {
	name := fmt.Sprintf("%s%d", a.Name(p.Tone.NearestTwelveTone), p.Octave)
	if diff := p.Tone.DiffText(); diff != "" {
		name += " " + diff
	}
	return name
}

// Interval is a named 12-TET interval.
type Interval struct {
	ShortName string
	LongName  string
}

var Intervals = [13]Interval{
	{"P1", "perfect unison"},
	{"m2", "minor 2nd"},
	{"M2", "major 2nd"},
	{"m3", "minor 3rd"},
	{"M3", "major 3rd"},
	{"P4", "perfect 4th"},
	{"TT", "tritone (augmented 4th / diminished 5th)"},
	{"P5", "perfect 5th"},
	{"m6", "minor 6th"},
	{"M6", "major 6th"},
	{"m7", "minor 7th"},
	{"M7", "major 7th"},
	{"P8", "perfect octave"},
}

// NearestInterval returns the 12-TET interval from the root closest to t.
// Unlike NearestTwelveTone it keeps 12 as the octave.
func NearestInterval(t Tone) Interval {
	i := int(math.Floor(t.Cents/100 + 0.5))
	if i < 0 {
		i = 0
	}
	if i > 12 {
		i = 12
	}
	return Intervals[i]
}
