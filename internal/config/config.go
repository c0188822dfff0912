package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/sirupsen/logrus"

	"github.com/tuningbox/edoseq/internal/sequence"
	"github.com/tuningbox/edoseq/internal/tuning"
)

// Config holds user defaults. Zero or invalid fields fall back to Default.
type Config struct {
	RootFrequency float64 `json:"rootFrequency,omitempty"`
	Subdivisions  int     `json:"subdivisions,omitempty"`
	Accidental    string  `json:"accidental,omitempty"`
	BPM           int     `json:"bpm,omitempty"`
	LogLevel      string  `json:"logLevel,omitempty"`
	// TickMillis is how often the transport polls its clock.
	TickMillis int `json:"tickMillis,omitempty"`
	// LookAhead is how early, in seconds, notes are handed to the instrument.
	LookAhead float64 `json:"lookAhead,omitempty"`
}

func Default() *Config {
	return &Config{
		RootFrequency: tuning.DefaultRootFrequency,
		Subdivisions:  12,
		Accidental:    tuning.Sharp.String(),
		BPM:           120,
		LogLevel:      logrus.InfoLevel.String(),
		TickMillis:    10,
		LookAhead:     0.05,
	}
}

// Dir returns $XDG_CONFIG_HOME/edoseq, or the platform equivalent.
func Dir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "edoseq"), nil
}

func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the user config, or returns defaults if there is none.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return Default(), nil
	}
	return LoadFrom(path)
}

func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fault.Wrap(err, fmsg.With("cannot read config"))
	}
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fault.Wrap(err, fmsg.With("invalid config file"), ftag.With(ftag.InvalidArgument))
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	d := Default()
	if !(c.RootFrequency > 0) {
		c.RootFrequency = d.RootFrequency
	}
	if !tuning.ValidSubdivisions(c.Subdivisions) {
		c.Subdivisions = d.Subdivisions
	}
	if _, err := tuning.ParseAccidental(c.Accidental); err != nil {
		c.Accidental = d.Accidental
	}
	if c.BPM < sequence.MinBPM || c.BPM > sequence.MaxBPM {
		c.BPM = d.BPM
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		c.LogLevel = d.LogLevel
	}
	if c.TickMillis <= 0 {
		c.TickMillis = d.TickMillis
	}
	if c.LookAhead < 0 {
		c.LookAhead = d.LookAhead
	}
}

// Save writes the config to Path.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fault.Wrap(err, fmsg.With("cannot create config directory"))
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fault.Wrap(err, fmsg.With("cannot write config"))
	}
	return nil
}

func (c *Config) AccidentalValue() tuning.Accidental {
	a, err := tuning.ParseAccidental(c.Accidental)
	if err != nil {
		return tuning.Sharp
	}
	return a
}

func (c *Config) Level() logrus.Level {
	l, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return l
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickMillis) * time.Millisecond
}

func (c *Config) SecondsPerStep() float64 {
	return sequence.SecondsPerStepForBPM(float64(c.BPM))
}
