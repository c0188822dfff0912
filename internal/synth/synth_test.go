package synth

import (
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestWaveformNames(t *testing.T) {
	for i, w := range Waveforms {
		if int(w) != i {
			t.Fatalf("Waveforms[%d] = %d", i, w)
		}
		got, err := ParseWaveform(w.String())
		if err != nil || got != w {
			t.Fatalf("ParseWaveform(%q) = %v, %v", w.String(), got, err)
		}
	}
	if _, err := ParseWaveform("noise"); !errors.Is(err, ErrUnknownWaveform) {
		t.Fatalf("err = %v, want ErrUnknownWaveform", err)
	}
	if Waveform(9).String() != "Waveform(9)" {
		t.Fatalf("unexpected name for out of range waveform")
	}
}

func TestSettingsJSON(t *testing.T) {
	b, err := json.Marshal(DefaultSettings())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if raw["synth"]["waveform"] != "triangle" {
		t.Fatalf("waveform encoded as %v", raw["synth"]["waveform"])
	}
	var back Settings
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != DefaultSettings() {
		t.Fatalf("got %+v", back)
	}
	if err := json.Unmarshal([]byte(`{"synth":{"waveform":"organ"}}`), &back); !errors.Is(err, ErrUnknownWaveform) {
		t.Fatalf("err = %v, want ErrUnknownWaveform", err)
	}
}

func TestUpdateMergesPartialChange(t *testing.T) {
	saw := Sawtooth
	release := 1.25
	wet := 0.5
	s := Update(DefaultSettings(), Change{
		Synth:  &OscillatorChange{Waveform: &saw, Release: &release},
		Reverb: &ReverbChange{Wet: &wet},
	})
	want := DefaultSettings()
	want.Synth.Waveform = Sawtooth
	want.Synth.Release = 1.25
	want.Reverb.Wet = 0.5
	if s != want {
		t.Fatalf("got %+v, want %+v", s, want)
	}
	if Update(s, Change{}) != s {
		t.Fatalf("empty change should be a no-op")
	}
}

func TestLogInstrumentTracksHeldNotes(t *testing.T) {
	in := NewLogInstrument(quietLogger(), DefaultSettings())
	in.TriggerAttack(440)
	in.TriggerAttack(220)
	in.TriggerAttack(440)
	in.TriggerRelease(440)
	if got := in.Held(); len(got) != 2 || got[0] != 220 || got[1] != 440 {
		t.Fatalf("held = %v", got)
	}
	in.TriggerAttackRelease(330, 0.5, 1)
	if in.Triggers() != 4 {
		t.Fatalf("triggers = %d, want 4", in.Triggers())
	}
	in.ReleaseAll()
	if len(in.Held()) != 0 {
		t.Fatalf("notes still held after ReleaseAll")
	}
	s := DefaultSettings()
	s.Synth.Volume = -12
	in.Set(s)
	if in.Settings().Synth.Volume != -12 {
		t.Fatalf("settings not applied")
	}
}
