package edoseq

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tuningbox/edoseq/internal/playback"
	"github.com/tuningbox/edoseq/internal/project"
	"github.com/tuningbox/edoseq/internal/sequence"
	"github.com/tuningbox/edoseq/internal/synth"
	"github.com/tuningbox/edoseq/internal/transport"
	"github.com/tuningbox/edoseq/internal/tuning"
)

var ErrNegativeLoops = errors.New("loop count must not be negative")

// ScheduledNote is one note the sequencer would hand to its instrument.
type ScheduledNote struct {
	Time       float64
	Step       int
	PitchIndex int
	Frequency  float64
	Duration   float64
}

type timelineInstrument struct {
	mu    sync.Mutex
	notes []ScheduledNote
}

func (in *timelineInstrument) TriggerAttack(float64)  {}
func (in *timelineInstrument) TriggerRelease(float64) {}
func (in *timelineInstrument) ReleaseAll()            {}
func (in *timelineInstrument) Set(synth.Settings)     {}

func (in *timelineInstrument) TriggerAttackRelease(frequency, duration, at float64) {
	in.mu.Lock()
	in.notes = append(in.notes, ScheduledNote{Time: at, Frequency: frequency, Duration: duration})
	in.mu.Unlock()
}

// RenderTimeline plays p for the given number of loops on a simulated clock
// and returns every note in trigger order.
func RenderTimeline(p project.Project, loops int) ([]ScheduledNote, error) {
	if loops < 0 {
		return nil, ErrNegativeLoops
	}
	pitches := tuning.PitchRange(tuning.DefaultRootFrequency, tuning.EqualOctaveSubdivisions(p.Subdivisions))
	seq := p.Sequence
	events, err := sequence.CompileEvents(pitches, seq)
	if err != nil {
		return nil, err
	}
	if loops == 0 {
		return []ScheduledNote{}, nil
	}

	quiet := logrus.New()
	quiet.SetLevel(logrus.PanicLevel)
	clock := &transport.ManualClock{}
	tr := transport.New(clock, transport.WithLogger(quiet))
	inst := &timelineInstrument{}
	engine := playback.NewEngine(tr, inst, quiet)

	var fired []int
	st, err := engine.Start(seq, pitches, func(step int) { fired = append(fired, step) })
	if err != nil {
		return nil, err
	}
	// Stop half a step before the next loop would begin.
	end := seq.LoopLength()*float64(loops) - seq.SecondsPerStep/2
	clock.Set(end)
	tr.Advance(end)
	engine.Stop(st)

	notes := inst.notes
	i := 0
	for _, step := range fired {
		for _, ev := range events[step] {
			notes[i].Step = step
			notes[i].PitchIndex = ev.PitchIndex
			i++
		}
	}
	return notes, nil
}
