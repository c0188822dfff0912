package sequence

import (
	"fmt"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"

	"github.com/tuningbox/edoseq/internal/tuning"
)

// StepEvent is a note that starts on a step. Duration covers any Hold steps
// that follow it on the same track.
type StepEvent struct {
	Duration   float64
	Frequency  float64
	PitchIndex int
}

// StepTime marks the start of a step within one loop.
type StepTime struct {
	Time float64
	Step int
}

// CompileEvents turns the grid into per-step note starts. The result has one
// entry per step; each entry lists the notes beginning on that step, in
// track order.
func CompileEvents(pitches []tuning.Pitch, seq Sequence) ([][]StepEvent, error) {
	if err := seq.Validate(); err != nil {
		return nil, err
	}
	events := make([][]StepEvent, len(seq.Steps))
	for track := 0; track < seq.NumberOfTracks; track++ {
		// open is the step whose last event is still sounding on this track.
		open := -1
		for i, row := range seq.Steps {
			step := row[track]
			switch step.Kind {
			case KindPitch:
				if step.PitchIndex < 0 || step.PitchIndex >= len(pitches) {
					return nil, fault.Wrap(ErrPitchIndexOutOfRange,
						fmsg.With(fmt.Sprintf("step %d track %d: pitch %d of %d", i, track, step.PitchIndex, len(pitches))),
						ftag.With(ftag.InvalidArgument),
					)
				}
				events[i] = append(events[i], StepEvent{
					Duration:   seq.SecondsPerStep,
					Frequency:  pitches[step.PitchIndex].Frequency,
					PitchIndex: step.PitchIndex,
				})
				open = i
			case KindHold:
				if open >= 0 {
					last := len(events[open]) - 1
					events[open][last].Duration += seq.SecondsPerStep
				}
			default:
				open = -1
			}
		}
	}
	return events, nil
}

// CompileStepTimes returns the start time of every step within one loop.
func CompileStepTimes(seq Sequence) []StepTime {
	times := make([]StepTime, len(seq.Steps))
	for i := range times {
		times[i] = StepTime{Time: seq.SecondsPerStep * float64(i), Step: i}
	}
	return times
}
