package project

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"

	"github.com/tuningbox/edoseq/internal/sequence"
	"github.com/tuningbox/edoseq/internal/synth"
	"github.com/tuningbox/edoseq/internal/tuning"
)

// DefaultSubdivisions is the tuning a new project starts in.
const DefaultSubdivisions = 12

var ErrNotFound = errors.New("project file not found")

// Project is everything a share link carries.
type Project struct {
	Instrument   synth.Settings
	Subdivisions int
	Accidental   tuning.Accidental
	Sequence     sequence.Sequence
}

// Empty is a 12-EDO project with the default instrument and an empty sequence.
func Empty() Project {
	return Project{
		Instrument:   synth.DefaultSettings(),
		Subdivisions: DefaultSubdivisions,
		Accidental:   tuning.Sharp,
		Sequence:     sequence.Empty(),
	}
}

// Equal reports whether a and b would encode to the same hash.
func Equal(a, b Project) bool {
	return a.Instrument == b.Instrument &&
		a.Subdivisions == b.Subdivisions &&
		a.Accidental == b.Accidental &&
		sequence.Equal(a.Sequence, b.Sequence)
}

// Save writes the encoded project to path.
func Save(path string, p Project) error {
	hash, err := Encode(p)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(hash+"\n"), 0o644); err != nil {
		return fault.Wrap(err, fmsg.With("cannot write project file"))
	}
	return nil
}

// Load reads a project saved with Save, or any file holding a share hash.
func Load(path string) (Project, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Project{}, fault.Wrap(ErrNotFound, fmsg.With(fmt.Sprintf("no project at %s", path)), ftag.With(ftag.NotFound))
	}
	if err != nil {
		return Project{}, fault.Wrap(err, fmsg.With("cannot read project file"))
	}
	return Decode(strings.TrimSpace(string(b)))
}
