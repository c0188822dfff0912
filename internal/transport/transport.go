package transport

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var ErrInvalidPart = errors.New("invalid part")

// Event is one scheduled payload at a part-local time.
type Event struct {
	Time    float64
	Payload int
}

// Callback receives the clock time an event is due at and its payload.
type Callback func(at float64, payload int)

// Part is a list of events sharing a callback. A looping part repeats the
// region [LoopStart, LoopEnd) forever; events outside it never fire.
type Part struct {
	Events    []Event
	Callback  Callback
	LoopStart float64
	LoopEnd   float64
	Loop      bool
}

type scheduled struct {
	part   Part
	offset float64
}

type occurrence struct {
	t       float64
	payload int
	cb      Callback
}

type Option func(*Transport)

// WithLookAhead dispatches events up to d seconds before they are due.
func WithLookAhead(d float64) Option {
	return func(t *Transport) {
		if d > 0 {
			t.lookAhead = d
		}
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(t *Transport) {
		if log != nil {
			t.log = log
		}
	}
}

// Transport fires the events of its parts as a clock advances.
type Transport struct {
	clock     Clock
	lookAhead float64
	log       logrus.FieldLogger

	mu      sync.Mutex
	running bool
	origin  float64
	horizon float64
	parts   []scheduled

	// dispatch is held for the whole of an Advance so Stop can wait for
	// in-flight callbacks.
	dispatch sync.Mutex
}

func New(clock Clock, opts ...Option) *Transport {
	if clock == nil {
		clock = NewWallClock()
	}
	t := &Transport{
		clock: clock,
		log:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Schedule adds a part. offset is the part-local time that coincides with the
// transport start, so a looping part can resume mid-loop.
func (t *Transport) Schedule(p Part, offset float64) error {
	if p.Callback == nil {
		return fmt.Errorf("%w: nil callback", ErrInvalidPart)
	}
	if p.Loop && !(p.LoopEnd > p.LoopStart) {
		return fmt.Errorf("%w: empty loop region", ErrInvalidPart)
	}
	t.mu.Lock()
	t.parts = append(t.parts, scheduled{part: p, offset: offset})
	t.mu.Unlock()
	return nil
}

// Cancel drops every scheduled part.
func (t *Transport) Cancel() {
	t.mu.Lock()
	t.parts = nil
	t.mu.Unlock()
}

func (t *Transport) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.origin = t.clock.Now()
	t.horizon = math.Inf(-1)
	t.log.WithField("origin", t.origin).Debug("transport started")
}

// Stop halts dispatch. Once it returns no callback is running or will run
// until the next Start. It must not be called from a callback.
func (t *Transport) Stop() {
	t.mu.Lock()
	was := t.running
	t.running = false
	t.mu.Unlock()

	t.dispatch.Lock()
	t.dispatch.Unlock()
	if was {
		t.log.Debug("transport stopped")
	}
}

func (t *Transport) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Advance fires, in time order, every event due at or before now plus the
// look-ahead that has not fired yet. Events at the start position fire on
// the first Advance after Start.
func (t *Transport) Advance(now float64) {
	t.dispatch.Lock()
	defer t.dispatch.Unlock()

	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	from := t.horizon
	to := now - t.origin + t.lookAhead
	if to <= from {
		t.mu.Unlock()
		return
	}
	t.horizon = to
	origin := t.origin
	var due []occurrence
	for _, s := range t.parts {
		due = s.collect(from, to, due)
	}
	t.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].t < due[j].t })
	for _, o := range due {
		if !t.Running() {
			return
		}
		o.cb(origin+o.t, o.payload)
	}
}

// collect appends the occurrences of s with transport time in (from, to].
// Occurrence times are always computed as base + k*length so consecutive
// windows partition them exactly.
func (s scheduled) collect(from, to float64, out []occurrence) []occurrence {
	p := s.part
	in := func(at float64) bool { return at >= 0 && at > from && at <= to }
	if !p.Loop {
		for _, ev := range p.Events {
			if at := ev.Time - s.offset; in(at) {
				out = append(out, occurrence{t: at, payload: ev.Payload, cb: p.Callback})
			}
		}
		return out
	}
	length := p.LoopEnd - p.LoopStart
	// Offsets outside the region wrap into it.
	offset := p.LoopStart + math.Mod(s.offset-p.LoopStart, length)
	if offset < p.LoopStart {
		offset += length
	}
	for _, ev := range p.Events {
		if ev.Time < p.LoopStart || ev.Time >= p.LoopEnd {
			continue
		}
		base := ev.Time - offset
		k := math.Floor((from - base) / length)
		if k < 0 || math.IsInf(k, 0) {
			k = 0
		}
		for ; ; k++ {
			at := base + k*length
			if at > to {
				break
			}
			if in(at) {
				out = append(out, occurrence{t: at, payload: ev.Payload, cb: p.Callback})
			}
		}
	}
	return out
}

// Run advances the transport from its clock every interval until ctx is done.
func (t *Transport) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			t.Advance(t.clock.Now())
		}
	}
}
