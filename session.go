package edoseq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/sirupsen/logrus"

	"github.com/tuningbox/edoseq/internal/keyboard"
	"github.com/tuningbox/edoseq/internal/playback"
	"github.com/tuningbox/edoseq/internal/project"
	"github.com/tuningbox/edoseq/internal/sequence"
	"github.com/tuningbox/edoseq/internal/synth"
	"github.com/tuningbox/edoseq/internal/transport"
	"github.com/tuningbox/edoseq/internal/tuning"
)

var ErrInvalidSubdivisions = errors.New("subdivisions out of range")

// PlaybackEvent carries step notifications from Watch().
type PlaybackEvent struct {
	Kind int // EventStep, EventLoopCompleted, or EventPlaybackEnded
	Step int
}

const (
	EventStep int = iota
	EventLoopCompleted
	EventPlaybackEnded
)

type SessionOption func(*sessionConfig)

type sessionConfig struct {
	keyboard      synth.Instrument
	playback      synth.Instrument
	transport     *transport.Transport
	log           logrus.FieldLogger
	rootFrequency float64
	tickInterval  time.Duration
	lookAhead     float64
}

func defaultSessionConfig() sessionConfig {
	return sessionConfig{
		log:           logrus.StandardLogger(),
		rootFrequency: tuning.DefaultRootFrequency,
		tickInterval:  10 * time.Millisecond,
	}
}

// WithInstrument sets the instrument the keyboard plays.
func WithInstrument(in synth.Instrument) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.keyboard = in
	}
}

// WithPlaybackInstrument sets the instrument the sequencer plays.
func WithPlaybackInstrument(in synth.Instrument) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.playback = in
	}
}

// WithTransport supplies the transport. The caller is then responsible for
// advancing it; otherwise the session runs a wall-clock transport itself.
func WithTransport(tr *transport.Transport) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.transport = tr
	}
}

func WithLogger(log logrus.FieldLogger) SessionOption {
	return func(cfg *sessionConfig) {
		if log != nil {
			cfg.log = log
		}
	}
}

func WithRootFrequency(hz float64) SessionOption {
	return func(cfg *sessionConfig) {
		if hz > 0 {
			cfg.rootFrequency = hz
		}
	}
}

// WithTick sets how often the built-in transport polls the clock and how far
// ahead it hands notes to the instrument.
func WithTick(interval time.Duration, lookAhead float64) SessionOption {
	return func(cfg *sessionConfig) {
		if interval > 0 {
			cfg.tickInterval = interval
		}
		if lookAhead >= 0 {
			cfg.lookAhead = lookAhead
		}
	}
}

// Session is the state of one keyboard and sequencer: tuning, keyboard
// window, the sequence being edited and its playback. All methods are safe
// for concurrent use.
type Session struct {
	mu            sync.Mutex
	log           logrus.FieldLogger
	rootFrequency float64
	keyboard      synth.Instrument
	engine        *playback.Engine
	stopRun       context.CancelFunc
	runDone       chan struct{}

	project        project.Project
	tones          []tuning.Tone
	pitches        []tuning.Pitch
	keys           []keyboard.Key
	keyboardOffset int
	pressed        map[int]bool
	selection      *sequence.Index
	playback       *playback.State

	eventCh   chan PlaybackEvent
	eventChMu sync.Mutex
}

func NewSession(opts ...SessionOption) (*Session, error) {
	return NewSessionFromProject(project.Empty(), opts...)
}

// NewSessionFromProject opens p, typically the result of project.Decode.
func NewSessionFromProject(p project.Project, opts ...SessionOption) (*Session, error) {
	if !tuning.ValidSubdivisions(p.Subdivisions) {
		return nil, invalidSubdivisions(p.Subdivisions)
	}
	if err := p.Sequence.Validate(); err != nil {
		return nil, err
	}
	cfg := defaultSessionConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.keyboard == nil {
		cfg.keyboard = synth.NewLogInstrument(cfg.log.WithField("instrument", "keyboard"), p.Instrument)
	}
	if cfg.playback == nil {
		cfg.playback = synth.NewLogInstrument(cfg.log.WithField("instrument", "sequencer"), p.Instrument)
	}
	s := &Session{
		log:           cfg.log,
		rootFrequency: cfg.rootFrequency,
		keyboard:      cfg.keyboard,
		project:       p,
		pressed:       make(map[int]bool),
	}
	tr := cfg.transport
	if tr == nil {
		tr = transport.New(transport.NewWallClock(),
			transport.WithLookAhead(cfg.lookAhead),
			transport.WithLogger(cfg.log),
		)
		ctx, cancel := context.WithCancel(context.Background())
		s.stopRun = cancel
		s.runDone = make(chan struct{})
		go func() {
			defer close(s.runDone)
			_ = tr.Run(ctx, cfg.tickInterval)
		}()
	}
	s.engine = playback.NewEngine(tr, cfg.playback, cfg.log)
	s.retune(p.Subdivisions, tuning.DefaultKeyboardOffset(p.Subdivisions))
	return s, nil
}

func invalidSubdivisions(n int) error {
	return fault.Wrap(ErrInvalidSubdivisions,
		fmsg.With(fmt.Sprintf("%d not in %d..%d", n, tuning.MinSubdivisions, tuning.MaxSubdivisions)),
		ftag.With(ftag.InvalidArgument),
	)
}

// retune recomputes tones, pitches and keys. Callers hold mu.
func (s *Session) retune(n, offset int) {
	s.tones = tuning.EqualOctaveSubdivisions(n)
	s.pitches = tuning.PitchRange(s.rootFrequency, s.tones)
	s.setOffsetLocked(offset)
}

func (s *Session) setOffsetLocked(offset int) {
	n := s.project.Subdivisions
	offset = max(0, min(offset, tuning.MaxKeyboardOffset(len(s.pitches), n)))
	s.keyboardOffset = offset
	s.keys = keyboard.Layout(tuning.KeyboardWindow(s.pitches, offset, n))
}

// SetSubdivisions switches to n-EDO. Playback stops, held notes are released
// and the sequence is cleared, since its pitch indices belong to the old tuning.
func (s *Session) SetSubdivisions(n int) error {
	if !tuning.ValidSubdivisions(n) {
		return invalidSubdivisions(n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.releaseKeysLocked()
	s.project.Subdivisions = n
	s.project.Sequence = sequence.Empty()
	if s.selection != nil && !s.project.Sequence.Contains(*s.selection) {
		s.selection = nil
	}
	s.retune(n, tuning.DefaultKeyboardOffset(n))
	s.log.WithField("subdivisions", n).Info("tuning changed")
	return nil
}

func (s *Session) Subdivisions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project.Subdivisions
}

func (s *Session) SetAccidental(a tuning.Accidental) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project.Accidental = a
}

func (s *Session) Accidental() tuning.Accidental {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project.Accidental
}

// SetKeyboardOffset moves the keyboard window to start at pitch index offset,
// clamped so the window stays full.
func (s *Session) SetKeyboardOffset(offset int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseKeysLocked()
	s.setOffsetLocked(offset)
}

func (s *Session) KeyboardOffset() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keyboardOffset
}

func (s *Session) Keys() []keyboard.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]keyboard.Key(nil), s.keys...)
}

func (s *Session) Tones() []tuning.Tone {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tuning.Tone(nil), s.tones...)
}

func (s *Session) Pitches() []tuning.Pitch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tuning.Pitch(nil), s.pitches...)
}

// NoteOn plays key keyIndex. Unknown and already pressed keys are ignored.
// With a selection, the key's pitch is also written into the selected step.
func (s *Session) NoteOn(keyIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if keyIndex < 0 || keyIndex >= len(s.keys) || s.pressed[keyIndex] {
		return
	}
	s.keyboard.TriggerAttack(s.keys[keyIndex].Pitch.Frequency)
	s.pressed[keyIndex] = true
	if s.selection != nil {
		if err := s.setSelectedStepLocked(sequence.PitchStep(keyIndex + s.keyboardOffset)); err != nil {
			s.log.WithError(err).Warn("cannot record note")
		}
	}
}

// NoteOff releases key keyIndex if it is pressed.
func (s *Session) NoteOff(keyIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if keyIndex < 0 || keyIndex >= len(s.keys) || !s.pressed[keyIndex] {
		return
	}
	s.keyboard.TriggerRelease(s.keys[keyIndex].Pitch.Frequency)
	delete(s.pressed, keyIndex)
}

func (s *Session) releaseKeysLocked() {
	for i := range s.pressed {
		if i < len(s.keys) {
			s.keyboard.TriggerRelease(s.keys[i].Pitch.Frequency)
		}
	}
	clear(s.pressed)
}

// SetSelection selects a step, or clears the selection when idx is nil.
func (s *Session) SetSelection(idx *sequence.Index) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx == nil {
		s.selection = nil
		return nil
	}
	if !s.project.Sequence.Contains(*idx) {
		return fault.Wrap(sequence.ErrIndexOutOfRange,
			fmsg.With(fmt.Sprintf("step %d track %d", idx.Step, idx.Track)),
			ftag.With(ftag.InvalidArgument),
		)
	}
	sel := *idx
	s.selection = &sel
	return nil
}

func (s *Session) Selection() (sequence.Index, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection == nil {
		return sequence.Index{}, false
	}
	return *s.selection, true
}

// MoveSelection moves the selection by the given amounts. Without a
// selection the first step of the first track is selected instead. Moves
// off the grid are ignored.
func (s *Session) MoveSelection(dStep, dTrack int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection == nil {
		s.selection = &sequence.Index{}
		return
	}
	next, _ := s.selection.Move(sequence.Index{Step: dStep, Track: dTrack}, s.project.Sequence)
	s.selection = &next
}

// SetSelectedStep writes step into the selected cell. Running playback
// picks up the change without restarting.
func (s *Session) SetSelectedStep(step sequence.Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setSelectedStepLocked(step)
}

func (s *Session) setSelectedStepLocked(step sequence.Step) error {
	if s.selection == nil {
		return nil
	}
	if step.Kind == sequence.KindPitch && (step.PitchIndex < 0 || step.PitchIndex >= len(s.pitches)) {
		return fault.Wrap(sequence.ErrPitchIndexOutOfRange,
			fmsg.With(fmt.Sprintf("pitch %d of %d", step.PitchIndex, len(s.pitches))),
			ftag.With(ftag.InvalidArgument),
		)
	}
	seq, err := sequence.SetStep(*s.selection, step, s.project.Sequence)
	if err != nil {
		return err
	}
	s.project.Sequence = seq
	if s.playback != nil {
		return s.engine.LiveEdit(s.playback, seq, s.pitches)
	}
	return nil
}

func (s *Session) Sequence() sequence.Sequence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project.Sequence
}

// ResizeSteps changes the number of steps; see sequence.Resize for the
// accepted range. Running playback restarts at the same step.
func (s *Session) ResizeSteps(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project.Sequence = sequence.Resize(n, s.project.Sequence)
	if s.selection != nil && !s.project.Sequence.Contains(*s.selection) {
		s.selection = nil
	}
	return s.restartLocked()
}

// SetSecondsPerStep changes the tempo. Non-positive values are ignored.
func (s *Session) SetSecondsPerStep(secondsPerStep float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project.Sequence = sequence.WithSecondsPerStep(s.project.Sequence, secondsPerStep)
	return s.restartLocked()
}

// SetBPM sets the tempo in beats of four steps, clamped to the slider range.
func (s *Session) SetBPM(bpm float64) error {
	return s.SetSecondsPerStep(sequence.SecondsPerStepForBPM(bpm))
}

func (s *Session) restartLocked() error {
	if s.playback == nil {
		return nil
	}
	st, err := s.engine.Restart(s.playback, s.project.Sequence, s.pitches, s.stepReporter())
	if err != nil {
		s.playback = nil
		s.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded})
		return err
	}
	s.playback = st
	return nil
}

// TogglePlaying starts playback from the first step, or stops it.
func (s *Session) TogglePlaying() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playback != nil {
		s.stopLocked()
		return nil
	}
	st, err := s.engine.Start(s.project.Sequence, s.pitches, s.stepReporter())
	if err != nil {
		return err
	}
	s.playback = st
	return nil
}

// stepReporter forwards step boundaries to Watch. It runs on the transport
// goroutine and only touches the event channel. A loop has completed when
// the step index does not move forward; each (re)start gets a fresh reporter
// so its first step never counts as a wrap.
func (s *Session) stepReporter() playback.StepFunc {
	last := -1
	return func(step int) {
		if last >= 0 && step <= last {
			s.sendEvent(PlaybackEvent{Kind: EventLoopCompleted, Step: step})
		}
		last = step
		s.sendEvent(PlaybackEvent{Kind: EventStep, Step: step})
	}
}

func (s *Session) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playback != nil
}

// CurrentStep is the step playback last reached.
func (s *Session) CurrentStep() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playback == nil {
		return 0, false
	}
	return s.playback.CurrentStep(), true
}

// Stop ends playback if it is running.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Session) stopLocked() {
	if s.playback == nil {
		return
	}
	s.engine.Stop(s.playback)
	s.playback = nil
	s.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded})
}

// SetInstrument applies a partial settings change to the project and to both
// instruments.
func (s *Session) SetInstrument(c synth.Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project.Instrument = synth.Update(s.project.Instrument, c)
	s.keyboard.Set(s.project.Instrument)
	s.engine.Instrument().Set(s.project.Instrument)
}

func (s *Session) Instrument() synth.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project.Instrument
}

func (s *Session) Project() project.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project
}

// Share encodes the current project as a share hash.
func (s *Session) Share() (string, error) {
	return project.Encode(s.Project())
}

func (s *Session) sendEvent(ev PlaybackEvent) {
	s.eventChMu.Lock()
	ch := s.eventCh
	s.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Receiver is behind; drop.
		}
	}
}

// Watch returns a channel that receives playback events:
//   - EventStep: a step boundary was reached (Step set)
//   - EventLoopCompleted: playback wrapped to the first step
//   - EventPlaybackEnded: playback stopped
//
// The channel is buffered (cap 16); events are dropped rather than blocking
// the transport. Only the most recent Watch() channel receives events.
func (s *Session) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 16)
	s.eventChMu.Lock()
	s.eventCh = ch
	s.eventChMu.Unlock()
	return ch
}

// Close stops playback, releases held keys and stops the built-in transport.
func (s *Session) Close() error {
	s.mu.Lock()
	s.stopLocked()
	s.releaseKeysLocked()
	stop, done := s.stopRun, s.runDone
	s.stopRun = nil
	s.mu.Unlock()
	if stop != nil {
		stop()
		<-done
	}
	return nil
}
