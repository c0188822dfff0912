package synth

import (
	"errors"
	"fmt"
)

var ErrUnknownWaveform = errors.New("unknown waveform")

type Waveform int

const (
	Triangle Waveform = iota
	Sawtooth
	Square
	Sine
	Sine3
)

// Waveforms lists every waveform in menu order. Settings persist the name,
// not the position, see MarshalText.
var Waveforms = []Waveform{Triangle, Sawtooth, Square, Sine, Sine3}

var waveformNames = [...]string{"triangle", "sawtooth", "square", "sine", "sine3"}

func (w Waveform) String() string {
	if w < 0 || int(w) >= len(waveformNames) {
		return fmt.Sprintf("Waveform(%d)", int(w))
	}
	return waveformNames[w]
}

func ParseWaveform(s string) (Waveform, error) {
	for i, name := range waveformNames {
		if name == s {
			return Waveform(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownWaveform, s)
}

func (w Waveform) MarshalText() ([]byte, error) {
	if w < 0 || int(w) >= len(waveformNames) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownWaveform, int(w))
	}
	return []byte(waveformNames[w]), nil
}

func (w *Waveform) UnmarshalText(b []byte) error {
	v, err := ParseWaveform(string(b))
	if err != nil {
		return err
	}
	*w = v
	return nil
}

// Oscillator and amplitude envelope. Volume is in dB, envelope times in
// seconds, Sustain is a level in 0..1.
type Oscillator struct {
	Volume   float64  `json:"volume"`
	Waveform Waveform `json:"waveform"`
	Attack   float64  `json:"attack"`
	Decay    float64  `json:"decay"`
	Sustain  float64  `json:"sustain"`
	Release  float64  `json:"release"`
}

type LowPassFilter struct {
	Frequency float64 `json:"frequency"`
}

type Reverb struct {
	Wet   float64 `json:"wet"`
	Decay float64 `json:"decay"`
}

// Settings is the persisted instrument of a project.
type Settings struct {
	Synth         Oscillator    `json:"synth"`
	LowPassFilter LowPassFilter `json:"lowPassFilter"`
	Reverb        Reverb        `json:"reverb"`
}

func DefaultSettings() Settings {
	return Settings{
		Synth: Oscillator{
			Volume:   -6,
			Waveform: Triangle,
			Attack:   0.01,
			Decay:    0.1,
			Sustain:  0.2,
			Release:  0.2,
		},
		LowPassFilter: LowPassFilter{Frequency: 12800},
		Reverb:        Reverb{Wet: 0.1, Decay: 1.5},
	}
}

// OscillatorChange holds the oscillator fields to overwrite; nil fields are kept.
type OscillatorChange struct {
	Volume   *float64
	Waveform *Waveform
	Attack   *float64
	Decay    *float64
	Sustain  *float64
	Release  *float64
}

type LowPassFilterChange struct {
	Frequency *float64
}

type ReverbChange struct {
	Wet   *float64
	Decay *float64
}

// Change is a partial update to Settings.
type Change struct {
	Synth         *OscillatorChange
	LowPassFilter *LowPassFilterChange
	Reverb        *ReverbChange
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Update returns s with every non-nil field of c applied.
func Update(s Settings, c Change) Settings {
	if o := c.Synth; o != nil {
		setIf(&s.Synth.Volume, o.Volume)
		setIf(&s.Synth.Waveform, o.Waveform)
		setIf(&s.Synth.Attack, o.Attack)
		setIf(&s.Synth.Decay, o.Decay)
		setIf(&s.Synth.Sustain, o.Sustain)
		setIf(&s.Synth.Release, o.Release)
	}
	if f := c.LowPassFilter; f != nil {
		setIf(&s.LowPassFilter.Frequency, f.Frequency)
	}
	if r := c.Reverb; r != nil {
		setIf(&s.Reverb.Wet, r.Wet)
		setIf(&s.Reverb.Decay, r.Decay)
	}
	return s
}
