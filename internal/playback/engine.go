package playback

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/tuningbox/edoseq/internal/sequence"
	"github.com/tuningbox/edoseq/internal/synth"
	"github.com/tuningbox/edoseq/internal/transport"
	"github.com/tuningbox/edoseq/internal/tuning"
)

// StepFunc is called from the transport goroutine at every step boundary.
// It must not block and must not stop playback itself.
type StepFunc func(step int)

// State is one playback run. The compiled events can be swapped while the
// transport is running; callbacks always see a complete compilation.
type State struct {
	events  atomic.Pointer[[][]sequence.StepEvent]
	current atomic.Int64
	stopped atomic.Bool
	onStep  StepFunc
}

// CurrentStep is the last step the transport reported.
func (s *State) CurrentStep() int {
	return int(s.current.Load())
}

// Events returns the compilation the transport is reading from.
func (s *State) Events() [][]sequence.StepEvent {
	if p := s.events.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *State) Stopped() bool { return s.stopped.Load() }

// Engine loops a sequence on a transport and plays it on an instrument.
type Engine struct {
	transport  *transport.Transport
	instrument synth.Instrument
	log        logrus.FieldLogger
}

func NewEngine(tr *transport.Transport, instrument synth.Instrument, log logrus.FieldLogger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{transport: tr, instrument: instrument, log: log}
}

func (e *Engine) Instrument() synth.Instrument { return e.instrument }

// Start compiles seq once and loops it from the first step.
func (e *Engine) Start(seq sequence.Sequence, pitches []tuning.Pitch, onStep StepFunc) (*State, error) {
	return e.start(seq, pitches, onStep, 0)
}

func (e *Engine) start(seq sequence.Sequence, pitches []tuning.Pitch, onStep StepFunc, fromStep int) (*State, error) {
	events, err := sequence.CompileEvents(pitches, seq)
	if err != nil {
		return nil, err
	}
	if fromStep < 0 || fromStep >= seq.Len() {
		fromStep = 0
	}
	st := &State{onStep: onStep}
	st.events.Store(&events)
	st.current.Store(int64(fromStep))

	times := sequence.CompileStepTimes(seq)
	part := transport.Part{
		Events:    make([]transport.Event, len(times)),
		Callback:  e.stepCallback(st),
		LoopStart: 0,
		LoopEnd:   seq.LoopLength(),
		Loop:      true,
	}
	for i, t := range times {
		part.Events[i] = transport.Event{Time: t.Time, Payload: t.Step}
	}

	e.transport.Stop()
	e.transport.Cancel()
	if err := e.transport.Schedule(part, seq.SecondsPerStep*float64(fromStep)); err != nil {
		st.stopped.Store(true)
		return nil, err
	}
	e.transport.Start()
	e.log.WithFields(logrus.Fields{
		"steps":            seq.Len(),
		"seconds_per_step": seq.SecondsPerStep,
		"step":             fromStep,
	}).Info("playback started")
	return st, nil
}

func (e *Engine) stepCallback(st *State) transport.Callback {
	return func(at float64, step int) {
		if st.stopped.Load() {
			return
		}
		events := st.Events()
		if step < 0 || step >= len(events) {
			return
		}
		for _, ev := range events[step] {
			e.instrument.TriggerAttackRelease(ev.Frequency, ev.Duration, at)
		}
		st.current.Store(int64(step))
		if st.onStep != nil {
			st.onStep(step)
		}
	}
}

// LiveEdit recompiles seq and swaps it in without touching the transport.
// Steps that have not fired yet play the new content.
func (e *Engine) LiveEdit(st *State, seq sequence.Sequence, pitches []tuning.Pitch) error {
	events, err := sequence.CompileEvents(pitches, seq)
	if err != nil {
		return err
	}
	st.events.Store(&events)
	e.log.Debug("playback events replaced")
	return nil
}

// Restart stops st and starts seq at the step st was on, or at the first
// step when that no longer exists. A nil onStep reuses the one st had.
func (e *Engine) Restart(st *State, seq sequence.Sequence, pitches []tuning.Pitch, onStep StepFunc) (*State, error) {
	from := 0
	if st != nil {
		from = st.CurrentStep()
		if onStep == nil {
			onStep = st.onStep
		}
	}
	e.Stop(st)
	return e.start(seq, pitches, onStep, from)
}

// Stop silences playback. It is safe to call more than once and with a nil
// state.
func (e *Engine) Stop(st *State) {
	if st != nil {
		st.stopped.Store(true)
	}
	e.transport.Stop()
	e.transport.Cancel()
	e.instrument.ReleaseAll()
	if st != nil {
		e.log.WithField("step", st.CurrentStep()).Debug("playback stopped")
	}
}
