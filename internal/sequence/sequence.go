package sequence

import (
	"errors"
	"fmt"
	"math"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

const (
	DefaultTracks         = 4
	DefaultSteps          = 16
	DefaultSecondsPerStep = 0.125

	MinSteps  = 1
	MaxSteps  = 256
	MaxTracks = 16

	// StepsPerBeat converts between seconds per step and BPM.
	StepsPerBeat = 4
	MinBPM       = 40
	MaxBPM       = 200
)

var (
	ErrIndexOutOfRange      = errors.New("sequence index out of range")
	ErrPitchIndexOutOfRange = errors.New("pitch index out of range")
	ErrMalformed            = errors.New("malformed sequence")
)

type StepKind int

const (
	KindEmpty StepKind = iota
	KindPitch
	KindHold
)

// Step is one cell of the grid. PitchIndex is only meaningful for KindPitch.
type Step struct {
	Kind       StepKind
	PitchIndex int
}

var (
	EmptyStep = Step{Kind: KindEmpty}
	HoldStep  = Step{Kind: KindHold}
)

func PitchStep(pitchIndex int) Step {
	return Step{Kind: KindPitch, PitchIndex: pitchIndex}
}

func (s Step) String() string {
	switch s.Kind {
	case KindEmpty:
		return "_"
	case KindHold:
		return "hold"
	case KindPitch:
		return fmt.Sprintf("#%d", s.PitchIndex)
	default:
		return fmt.Sprintf("Step(%d)", int(s.Kind))
	}
}

// Index addresses one cell.
type Index struct {
	Step  int
	Track int
}

// Sequence is a fixed-width step grid. Values are treated as immutable:
// every mutator returns a new Sequence and never writes into shared rows.
type Sequence struct {
	NumberOfTracks int
	Steps          [][]Step
	SecondsPerStep float64
}

func emptyRow(tracks int) []Step {
	return make([]Step, tracks)
}

// New returns an all-empty sequence.
func New(tracks, steps int, secondsPerStep float64) Sequence {
	rows := make([][]Step, steps)
	for i := range rows {
		rows[i] = emptyRow(tracks)
	}
	return Sequence{NumberOfTracks: tracks, Steps: rows, SecondsPerStep: secondsPerStep}
}

// Empty is the 4-track, 16-step sequence at 120 BPM a new project starts with.
func Empty() Sequence {
	return New(DefaultTracks, DefaultSteps, DefaultSecondsPerStep)
}

func (s Sequence) Len() int { return len(s.Steps) }

// LoopLength is the duration of one pass in seconds.
func (s Sequence) LoopLength() float64 {
	return s.SecondsPerStep * float64(len(s.Steps))
}

func (s Sequence) Contains(i Index) bool {
	return i.Step >= 0 && i.Step < len(s.Steps) && i.Track >= 0 && i.Track < s.NumberOfTracks
}

func outOfRange(i Index, s Sequence) error {
	return fault.Wrap(ErrIndexOutOfRange,
		fmsg.With(fmt.Sprintf("step %d track %d in %dx%d grid", i.Step, i.Track, len(s.Steps), s.NumberOfTracks)),
		ftag.With(ftag.InvalidArgument),
	)
}

// At returns the cell at i.
func (s Sequence) At(i Index) (Step, error) {
	if !s.Contains(i) {
		return Step{}, outOfRange(i, s)
	}
	return s.Steps[i.Step][i.Track], nil
}

// Validate checks that every row has exactly NumberOfTracks cells and the tempo is positive.
func (s Sequence) Validate() error {
	if s.NumberOfTracks < 1 || s.NumberOfTracks > MaxTracks {
		return fault.Wrap(ErrMalformed, fmsg.With(fmt.Sprintf("%d tracks", s.NumberOfTracks)), ftag.With(ftag.InvalidArgument))
	}
	if !(s.SecondsPerStep > 0) {
		return fault.Wrap(ErrMalformed, fmsg.With(fmt.Sprintf("seconds per step %v", s.SecondsPerStep)), ftag.With(ftag.InvalidArgument))
	}
	for i, row := range s.Steps {
		if len(row) != s.NumberOfTracks {
			return fault.Wrap(ErrMalformed,
				fmsg.With(fmt.Sprintf("row %d has %d cells, want %d", i, len(row), s.NumberOfTracks)),
				ftag.With(ftag.InvalidArgument),
			)
		}
	}
	return nil
}

// SetStep replaces exactly one cell. An index outside the grid is an error and
// seq is returned unchanged.
func SetStep(i Index, step Step, seq Sequence) (Sequence, error) {
	if !seq.Contains(i) {
		return seq, outOfRange(i, seq)
	}
	rows := make([][]Step, len(seq.Steps))
	copy(rows, seq.Steps)
	row := make([]Step, len(seq.Steps[i.Step]))
	copy(row, seq.Steps[i.Step])
	row[i.Track] = step
	rows[i.Step] = row
	seq.Steps = rows
	return seq, nil
}

// Resize truncates or pads with empty rows. Lengths outside [MinSteps,
// MaxSteps] are ignored and seq is returned as is.
func Resize(n int, seq Sequence) Sequence {
	if n < MinSteps || n > MaxSteps {
		return seq
	}
	rows := make([][]Step, n)
	copy(rows, seq.Steps)
	for i := len(seq.Steps); i < n; i++ {
		rows[i] = emptyRow(seq.NumberOfTracks)
	}
	seq.Steps = rows
	return seq
}

// WithSecondsPerStep changes the tempo. Non-positive values are ignored.
func WithSecondsPerStep(seq Sequence, secondsPerStep float64) Sequence {
	if !(secondsPerStep > 0) || math.IsInf(secondsPerStep, 0) {
		return seq
	}
	seq.SecondsPerStep = secondsPerStep
	return seq
}

// BPM is the tempo with StepsPerBeat steps to a beat.
func (s Sequence) BPM() float64 {
	if s.SecondsPerStep <= 0 {
		return 0
	}
	return 60 / (StepsPerBeat * s.SecondsPerStep)
}

// SecondsPerStepForBPM rounds bpm and clamps it to [MinBPM, MaxBPM].
func SecondsPerStepForBPM(bpm float64) float64 {
	b := math.Round(bpm)
	if b < MinBPM {
		b = MinBPM
	}
	if b > MaxBPM {
		b = MaxBPM
	}
	return 60 / b / StepsPerBeat
}

// Move offsets a selection. Moves that would leave the grid are rejected.
func (i Index) Move(d Index, seq Sequence) (Index, bool) {
	next := Index{Step: i.Step + d.Step, Track: i.Track + d.Track}
	if !seq.Contains(next) {
		return i, false
	}
	return next, true
}

// Equal compares two sequences cell by cell.
func Equal(a, b Sequence) bool {
	if a.NumberOfTracks != b.NumberOfTracks || a.SecondsPerStep != b.SecondsPerStep || len(a.Steps) != len(b.Steps) {
		return false
	}
	for i := range a.Steps {
		if len(a.Steps[i]) != len(b.Steps[i]) {
			return false
		}
		for j := range a.Steps[i] {
			if a.Steps[i][j] != b.Steps[i][j] {
				return false
			}
		}
	}
	return true
}
