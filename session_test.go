package edoseq

import (
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/Southclaws/fault/ftag"
	"github.com/sirupsen/logrus"

	"github.com/tuningbox/edoseq/internal/project"
	"github.com/tuningbox/edoseq/internal/sequence"
	"github.com/tuningbox/edoseq/internal/synth"
	"github.com/tuningbox/edoseq/internal/transport"
	"github.com/tuningbox/edoseq/internal/tuning"
)

type countingInstrument struct {
	mu          sync.Mutex
	attacks     []float64
	releases    []float64
	scheduled   int
	releaseAlls int
	settings    synth.Settings
}

func (c *countingInstrument) TriggerAttack(f float64) {
	c.mu.Lock()
	c.attacks = append(c.attacks, f)
	c.mu.Unlock()
}

func (c *countingInstrument) TriggerRelease(f float64) {
	c.mu.Lock()
	c.releases = append(c.releases, f)
	c.mu.Unlock()
}

func (c *countingInstrument) TriggerAttackRelease(float64, float64, float64) {
	c.mu.Lock()
	c.scheduled++
	c.mu.Unlock()
}

func (c *countingInstrument) ReleaseAll() {
	c.mu.Lock()
	c.releaseAlls++
	c.mu.Unlock()
}

func (c *countingInstrument) Set(s synth.Settings) {
	c.mu.Lock()
	c.settings = s
	c.mu.Unlock()
}

type sessionFixture struct {
	s     *Session
	clock *transport.ManualClock
	tr    *transport.Transport
	keys  *countingInstrument
	seq   *countingInstrument
}

func newSessionFixture(t *testing.T, p project.Project) *sessionFixture {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	f := &sessionFixture{
		clock: &transport.ManualClock{},
		keys:  &countingInstrument{},
		seq:   &countingInstrument{},
	}
	f.tr = transport.New(f.clock, transport.WithLogger(log))
	s, err := NewSessionFromProject(p,
		WithInstrument(f.keys),
		WithPlaybackInstrument(f.seq),
		WithTransport(f.tr),
		WithLogger(log),
	)
	if err != nil {
		t.Fatalf("NewSessionFromProject: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	f.s = s
	return f
}

func (f *sessionFixture) advanceTo(t float64) {
	f.clock.Set(t)
	f.tr.Advance(t)
}

func TestNewSessionDefaults(t *testing.T) {
	f := newSessionFixture(t, project.Empty())
	s := f.s
	if s.Subdivisions() != 12 || s.KeyboardOffset() != 48 {
		t.Fatalf("subdivisions=%d offset=%d", s.Subdivisions(), s.KeyboardOffset())
	}
	if len(s.Tones()) != 12 || len(s.Pitches()) != tuning.PitchCount(12) {
		t.Fatalf("tones=%d pitches=%d", len(s.Tones()), len(s.Pitches()))
	}
	if got := len(s.Keys()); got != 3*12+1 {
		t.Fatalf("keys = %d, want 37", got)
	}
	if s.Keys()[0].Pitch.Frequency != s.Pitches()[48].Frequency {
		t.Fatalf("keyboard does not start at the offset")
	}
}

func TestNewSessionRejectsBadProject(t *testing.T) {
	p := project.Empty()
	p.Subdivisions = 4
	_, err := NewSessionFromProject(p)
	if !errors.Is(err, ErrInvalidSubdivisions) || ftag.Get(err) != ftag.InvalidArgument {
		t.Fatalf("err = %v", err)
	}
}

func TestSetSubdivisionsResetsState(t *testing.T) {
	f := newSessionFixture(t, project.Empty())
	s := f.s
	if err := s.SetSelection(&sequence.Index{Step: 2, Track: 1}); err != nil {
		t.Fatalf("SetSelection: %v", err)
	}
	if err := s.SetSelectedStep(sequence.PitchStep(50)); err != nil {
		t.Fatalf("SetSelectedStep: %v", err)
	}
	if err := s.TogglePlaying(); err != nil {
		t.Fatalf("TogglePlaying: %v", err)
	}
	s.NoteOn(0)
	if err := s.SetSubdivisions(19); err != nil {
		t.Fatalf("SetSubdivisions: %v", err)
	}
	if s.Playing() {
		t.Fatalf("playback survived a tuning change")
	}
	if s.KeyboardOffset() != 4*19 || len(s.Tones()) != 19 {
		t.Fatalf("offset=%d tones=%d", s.KeyboardOffset(), len(s.Tones()))
	}
	if !sequence.Equal(s.Sequence(), sequence.Empty()) {
		t.Fatalf("sequence not cleared")
	}
	if len(f.keys.releases) != 1 {
		t.Fatalf("held key not released: %v", f.keys.releases)
	}
	if err := s.SetSubdivisions(32); !errors.Is(err, ErrInvalidSubdivisions) {
		t.Fatalf("err = %v", err)
	}
}

func TestNoteOnOffAndRecording(t *testing.T) {
	f := newSessionFixture(t, project.Empty())
	s := f.s
	s.NoteOn(3)
	s.NoteOn(3)
	s.NoteOn(999)
	if len(f.keys.attacks) != 1 {
		t.Fatalf("attacks = %v, want one", f.keys.attacks)
	}
	s.NoteOff(3)
	s.NoteOff(3)
	if len(f.keys.releases) != 1 {
		t.Fatalf("releases = %v, want one", f.keys.releases)
	}
	if !sequence.Equal(s.Sequence(), sequence.Empty()) {
		t.Fatalf("note recorded without a selection")
	}

	s.MoveSelection(1, 1)
	if sel, ok := s.Selection(); !ok || sel != (sequence.Index{}) {
		t.Fatalf("first move should select (0,0), got %+v %v", sel, ok)
	}
	s.MoveSelection(1, 0)
	s.NoteOn(5)
	got, _ := s.Sequence().At(sequence.Index{Step: 1})
	if got != sequence.PitchStep(5+s.KeyboardOffset()) {
		t.Fatalf("recorded %v, want pitch %d", got, 5+s.KeyboardOffset())
	}
}

func TestMoveSelectionStaysOnGrid(t *testing.T) {
	f := newSessionFixture(t, project.Empty())
	s := f.s
	s.MoveSelection(0, 0)
	s.MoveSelection(-1, 0)
	s.MoveSelection(0, -1)
	if sel, _ := s.Selection(); sel != (sequence.Index{}) {
		t.Fatalf("selection left the grid: %+v", sel)
	}
	if err := s.SetSelection(&sequence.Index{Step: 16}); !errors.Is(err, sequence.ErrIndexOutOfRange) {
		t.Fatalf("err = %v", err)
	}
	_ = s.SetSelection(nil)
	if _, ok := s.Selection(); ok {
		t.Fatalf("selection not cleared")
	}
}

func TestKeyboardOffsetIsClamped(t *testing.T) {
	f := newSessionFixture(t, project.Empty())
	s := f.s
	s.SetKeyboardOffset(-5)
	if s.KeyboardOffset() != 0 {
		t.Fatalf("offset = %d, want 0", s.KeyboardOffset())
	}
	s.SetKeyboardOffset(1 << 20)
	limit := tuning.MaxKeyboardOffset(tuning.PitchCount(12), 12)
	if s.KeyboardOffset() != limit || len(s.Keys()) != 37 {
		t.Fatalf("offset = %d keys = %d, want %d and 37", s.KeyboardOffset(), len(s.Keys()), limit)
	}
}

func TestPlaybackEventsAndLiveEdit(t *testing.T) {
	p := project.Empty()
	p.Sequence = sequence.New(1, 4, 1)
	f := newSessionFixture(t, p)
	s := f.s
	events := s.Watch()
	if err := s.TogglePlaying(); err != nil {
		t.Fatalf("TogglePlaying: %v", err)
	}
	f.advanceTo(0)
	_ = s.SetSelection(&sequence.Index{Step: 2})
	if err := s.SetSelectedStep(sequence.PitchStep(60)); err != nil {
		t.Fatalf("SetSelectedStep: %v", err)
	}
	for i := 1; i <= 4; i++ {
		f.advanceTo(float64(i))
	}
	if f.seq.scheduled != 1 {
		t.Fatalf("scheduled = %d, want the live-edited note once", f.seq.scheduled)
	}
	if step, ok := s.CurrentStep(); !ok || step != 0 {
		t.Fatalf("current step = %d %v", step, ok)
	}
	s.Stop()
	var kinds []int
	for len(events) > 0 {
		kinds = append(kinds, (<-events).Kind)
	}
	want := []int{EventStep, EventStep, EventStep, EventStep, EventLoopCompleted, EventStep, EventPlaybackEnded}
	if len(kinds) != len(want) {
		t.Fatalf("events = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("events = %v, want %v", kinds, want)
		}
	}
}

func drainKinds(events <-chan PlaybackEvent) []int {
	var kinds []int
	for len(events) > 0 {
		kinds = append(kinds, (<-events).Kind)
	}
	return kinds
}

func TestSingleStepSequenceCompletesLoops(t *testing.T) {
	p := project.Empty()
	p.Sequence = sequence.New(1, 1, 1)
	f := newSessionFixture(t, p)
	s := f.s
	events := s.Watch()
	if err := s.TogglePlaying(); err != nil {
		t.Fatalf("TogglePlaying: %v", err)
	}
	for i := 0; i < 4; i++ {
		f.advanceTo(float64(i))
	}
	s.Stop()
	kinds := drainKinds(events)
	want := []int{EventStep, EventLoopCompleted, EventStep, EventLoopCompleted, EventStep,
		EventLoopCompleted, EventStep, EventPlaybackEnded}
	if len(kinds) != len(want) {
		t.Fatalf("events = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("events = %v, want %v", kinds, want)
		}
	}
}

func TestRestartAtFirstStepIsNotALoop(t *testing.T) {
	p := project.Empty()
	p.Sequence = sequence.New(1, 8, 1)
	f := newSessionFixture(t, p)
	s := f.s
	events := s.Watch()
	_ = s.TogglePlaying()
	for i := 0; i <= 5; i++ {
		f.advanceTo(float64(i))
	}
	if err := s.ResizeSteps(4); err != nil {
		t.Fatalf("ResizeSteps: %v", err)
	}
	f.advanceTo(5)
	for _, k := range drainKinds(events) {
		if k == EventLoopCompleted {
			t.Fatalf("restart at step 0 reported a completed loop")
		}
	}
	if step, _ := s.CurrentStep(); step != 0 {
		t.Fatalf("current step = %d, want 0", step)
	}
}

func TestTempoAndResizeRestartAtSameStep(t *testing.T) {
	p := project.Empty()
	p.Sequence = sequence.New(1, 8, 1)
	f := newSessionFixture(t, p)
	s := f.s
	_ = s.TogglePlaying()
	for i := 0; i <= 5; i++ {
		f.advanceTo(float64(i))
	}
	if err := s.SetBPM(60); err != nil {
		t.Fatalf("SetBPM: %v", err)
	}
	if s.Sequence().SecondsPerStep != 0.25 {
		t.Fatalf("seconds per step = %v", s.Sequence().SecondsPerStep)
	}
	if step, _ := s.CurrentStep(); step != 5 {
		t.Fatalf("tempo change restarted at %d, want 5", step)
	}
	if err := s.ResizeSteps(4); err != nil {
		t.Fatalf("ResizeSteps: %v", err)
	}
	if step, _ := s.CurrentStep(); step != 0 {
		t.Fatalf("shrinking past the current step should restart at 0, got %d", step)
	}
	if !s.Playing() {
		t.Fatalf("resize stopped playback")
	}
	if err := s.ResizeSteps(0); err != nil || s.Sequence().Len() != 4 {
		t.Fatalf("resize to 0 should be ignored")
	}
	_ = s.TogglePlaying()
	if s.Playing() || f.seq.releaseAlls == 0 {
		t.Fatalf("toggle did not stop and release")
	}
}

func TestSetInstrumentForwardsToBothInstruments(t *testing.T) {
	f := newSessionFixture(t, project.Empty())
	saw := synth.Sawtooth
	f.s.SetInstrument(synth.Change{Synth: &synth.OscillatorChange{Waveform: &saw}})
	if f.s.Instrument().Synth.Waveform != synth.Sawtooth {
		t.Fatalf("project instrument not updated")
	}
	if f.keys.settings.Synth.Waveform != synth.Sawtooth || f.seq.settings.Synth.Waveform != synth.Sawtooth {
		t.Fatalf("instruments not updated")
	}
}

func TestShareRoundTrip(t *testing.T) {
	f := newSessionFixture(t, project.Empty())
	s := f.s
	s.SetAccidental(tuning.Flat)
	_ = s.SetSelection(&sequence.Index{Step: 7, Track: 3})
	_ = s.SetSelectedStep(sequence.HoldStep)
	hash, err := s.Share()
	if err != nil {
		t.Fatalf("Share: %v", err)
	}
	if !strings.HasPrefix(hash, project.HashPrefix) {
		t.Fatalf("hash = %q", hash)
	}
	p, err := project.Decode(hash)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !project.Equal(p, s.Project()) {
		t.Fatalf("shared project differs")
	}
}

func TestCloseWithBuiltInTransport(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	s, err := NewSession(WithLogger(log), WithTick(0, 0))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := s.TogglePlaying(); err != nil {
		t.Fatalf("TogglePlaying: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s.Playing() {
		t.Fatalf("still playing after Close")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
