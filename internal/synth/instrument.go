package synth

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Instrument is the sound source driven by the keyboard and the sequencer.
// Frequencies are in Hz; durations and times are in transport seconds.
type Instrument interface {
	TriggerAttack(frequency float64)
	TriggerRelease(frequency float64)
	TriggerAttackRelease(frequency, duration, at float64)
	ReleaseAll()
	Set(Settings)
}

// LogInstrument is an Instrument without audio output. It tracks which
// frequencies are held and logs every trigger.
type LogInstrument struct {
	mu       sync.Mutex
	log      logrus.FieldLogger
	settings Settings
	held     map[float64]int
	triggers int
}

func NewLogInstrument(log logrus.FieldLogger, s Settings) *LogInstrument {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LogInstrument{
		log:      log,
		settings: s,
		held:     make(map[float64]int),
	}
}

func (in *LogInstrument) TriggerAttack(frequency float64) {
	in.mu.Lock()
	in.held[frequency]++
	in.triggers++
	in.mu.Unlock()
	in.log.WithField("frequency", frequency).Debug("attack")
}

func (in *LogInstrument) TriggerRelease(frequency float64) {
	in.mu.Lock()
	if n := in.held[frequency]; n > 1 {
		in.held[frequency] = n - 1
	} else {
		delete(in.held, frequency)
	}
	in.mu.Unlock()
	in.log.WithField("frequency", frequency).Debug("release")
}

func (in *LogInstrument) TriggerAttackRelease(frequency, duration, at float64) {
	in.mu.Lock()
	in.triggers++
	in.mu.Unlock()
	in.log.WithFields(logrus.Fields{
		"frequency": frequency,
		"duration":  duration,
		"at":        at,
	}).Info("note")
}

func (in *LogInstrument) ReleaseAll() {
	in.mu.Lock()
	n := len(in.held)
	clear(in.held)
	in.mu.Unlock()
	if n > 0 {
		in.log.WithField("notes", n).Debug("release all")
	}
}

func (in *LogInstrument) Set(s Settings) {
	in.mu.Lock()
	in.settings = s
	in.mu.Unlock()
	in.log.WithFields(logrus.Fields{
		"waveform": s.Synth.Waveform.String(),
		"volume":   s.Synth.Volume,
	}).Debug("instrument settings")
}

func (in *LogInstrument) Settings() Settings {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.settings
}

// Held returns the frequencies currently held by TriggerAttack, ascending.
func (in *LogInstrument) Held() []float64 {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make([]float64, 0, len(in.held))
	for f := range in.held {
		out = append(out, f)
	}
	sort.Float64s(out)
	return out
}

// Triggers counts every attack, including scheduled notes.
func (in *LogInstrument) Triggers() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.triggers
}
