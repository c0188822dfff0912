package project

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"

	"github.com/tuningbox/edoseq/internal/sequence"
	"github.com/tuningbox/edoseq/internal/synth"
	"github.com/tuningbox/edoseq/internal/tuning"
)

// HashPrefix marks version 1 of the share format.
const HashPrefix = "#sequence/1="

const holdCode = -1

var (
	ErrDecode = errors.New("cannot decode project")
	// ErrUnshareable is returned by Encode for a project Decode would reject.
	ErrUnshareable = errors.New("project cannot be shared")
)

type exportedProject struct {
	Instrument   synth.Settings     `json:"sy"`
	Accidental   int                `json:"ac"`
	Subdivisions int                `json:"ns"`
	Sequences    []exportedSequence `json:"s"`
}

type exportedSequence struct {
	Steps          int      `json:"ns"`
	Tracks         int      `json:"nt"`
	SecondsPerStep float64  `json:"ss"`
	Events         [][2]int `json:"e"`
}

// stride is the offset distance between two steps. It is the step count,
// widened to the track count so sequences with more tracks than steps stay
// unambiguous.
func stride(steps, tracks int) int {
	return max(steps, tracks)
}

// checkHeader returns why a project header cannot round-trip, or "".
func checkHeader(accidental, subdivisions, steps, tracks int, secondsPerStep float64) string {
	switch {
	case accidental != int(tuning.Sharp) && accidental != int(tuning.Flat):
		return fmt.Sprintf("invalid accidental index %d", accidental)
	case !tuning.ValidSubdivisions(subdivisions):
		return fmt.Sprintf("subdivisions %d outside %d..%d", subdivisions, tuning.MinSubdivisions, tuning.MaxSubdivisions)
	case steps < sequence.MinSteps || steps > sequence.MaxSteps:
		return fmt.Sprintf("%d steps outside %d..%d", steps, sequence.MinSteps, sequence.MaxSteps)
	case tracks < 1 || tracks > sequence.MaxTracks:
		return fmt.Sprintf("%d tracks outside 1..%d", tracks, sequence.MaxTracks)
	case !(secondsPerStep > 0):
		return fmt.Sprintf("seconds per step %v", secondsPerStep)
	}
	return ""
}

func unshareable(reason string, cause error) error {
	err := ErrUnshareable
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrUnshareable, cause)
	}
	return fault.Wrap(err, fmsg.With(reason), ftag.With(ftag.InvalidArgument))
}

// Encode serialises p to a share hash. Empty cells are omitted. A project
// whose hash Decode would reject is an ErrUnshareable.
func Encode(p Project) (string, error) {
	seq := p.Sequence
	if reason := checkHeader(int(p.Accidental), p.Subdivisions, seq.Len(), seq.NumberOfTracks, seq.SecondsPerStep); reason != "" {
		return "", unshareable(reason, nil)
	}
	if err := seq.Validate(); err != nil {
		return "", unshareable("malformed sequence", err)
	}
	pitchCount := tuning.PitchCount(p.Subdivisions)
	n := stride(seq.Len(), seq.NumberOfTracks)
	events := [][2]int{}
	for i, row := range seq.Steps {
		for track, step := range row {
			switch step.Kind {
			case sequence.KindPitch:
				if step.PitchIndex < 0 || step.PitchIndex >= pitchCount {
					return "", unshareable(fmt.Sprintf("pitch index %d at step %d track %d out of range", step.PitchIndex, i, track), nil)
				}
				events = append(events, [2]int{n*i + track, step.PitchIndex})
			case sequence.KindHold:
				events = append(events, [2]int{n*i + track, holdCode})
			}
		}
	}
	exported := exportedProject{
		Instrument:   p.Instrument,
		Accidental:   int(p.Accidental),
		Subdivisions: p.Subdivisions,
		Sequences: []exportedSequence{{
			Steps:          seq.Len(),
			Tracks:         seq.NumberOfTracks,
			SecondsPerStep: seq.SecondsPerStep,
			Events:         events,
		}},
	}
	b, err := json.Marshal(exported)
	if err != nil {
		return "", fault.Wrap(err, fmsg.With("cannot encode project"))
	}
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(b); err != nil {
		return "", fault.Wrap(err, fmsg.With("cannot compress project"))
	}
	if err := zw.Close(); err != nil {
		return "", fault.Wrap(err, fmsg.With("cannot compress project"))
	}
	return HashPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func decodeError(reason string, cause error) error {
	err := ErrDecode
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrDecode, cause)
	}
	return fault.Wrap(err, fmsg.With(reason), ftag.With(ftag.InvalidArgument))
}

// Decode parses a share hash. Every malformed input is an ErrDecode.
func Decode(hash string) (Project, error) {
	payload, ok := strings.CutPrefix(hash, HashPrefix)
	if !ok {
		return Project{}, decodeError("missing "+HashPrefix+" prefix", nil)
	}
	compressed, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Project{}, decodeError("invalid base64", err)
	}
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return Project{}, decodeError("invalid zlib stream", err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		return Project{}, decodeError("invalid zlib stream", err)
	}
	var exported exportedProject
	if err := json.Unmarshal(raw, &exported); err != nil {
		return Project{}, decodeError("invalid project json", err)
	}
	return importProject(exported)
}

func importProject(e exportedProject) (Project, error) {
	if len(e.Sequences) == 0 {
		return Project{}, decodeError("no sequence found", nil)
	}
	es := e.Sequences[0]
	// Checked before sequence.New allocates steps x tracks cells.
	if reason := checkHeader(e.Accidental, e.Subdivisions, es.Steps, es.Tracks, es.SecondsPerStep); reason != "" {
		return Project{}, decodeError(reason, nil)
	}
	accidental := tuning.Accidental(e.Accidental)

	seq := sequence.New(es.Tracks, es.Steps, es.SecondsPerStep)
	n := stride(es.Steps, es.Tracks)
	pitchCount := tuning.PitchCount(e.Subdivisions)
	for _, ev := range es.Events {
		offset, code := ev[0], ev[1]
		step, track := offset/n, offset%n
		if offset < 0 || step >= es.Steps || track >= es.Tracks {
			return Project{}, decodeError(fmt.Sprintf("step offset %d out of range", offset), nil)
		}
		switch {
		case code == holdCode:
			seq.Steps[step][track] = sequence.HoldStep
		case code >= 0 && code < pitchCount:
			seq.Steps[step][track] = sequence.PitchStep(code)
		default:
			return Project{}, decodeError(fmt.Sprintf("pitch index %d out of range", code), nil)
		}
	}
	return Project{
		Instrument:   e.Instrument,
		Subdivisions: e.Subdivisions,
		Accidental:   accidental,
		Sequence:     seq,
	}, nil
}
