package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tuningbox/edoseq"
	"github.com/tuningbox/edoseq/internal/tuning"
)

var renderFlags struct {
	loops int
}

var renderCmd = &cobra.Command{
	Use:   "render [HASH]",
	Short: "List every note a project plays, without audio",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := resolveProject(args)
		if err != nil {
			return err
		}
		notes, err := edoseq.RenderTimeline(p, renderFlags.loops)
		if err != nil {
			return err
		}
		pitches := tuning.PitchRange(tuning.DefaultRootFrequency, tuning.EqualOctaveSubdivisions(p.Subdivisions))
		rows := make([][]string, len(notes))
		for i, n := range notes {
			rows[i] = []string{
				fmt.Sprintf("%.3f", n.Time),
				strconv.Itoa(n.Step),
				strconv.Itoa(n.PitchIndex),
				tuning.PitchName(pitches[n.PitchIndex], p.Accidental),
				fmt.Sprintf("%.3f", n.Frequency),
				fmt.Sprintf("%.3f", n.Duration),
			}
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, renderTable(
			[]string{"Time", "Step", "Pitch", "Name", "Hz", "Duration"},
			rows,
			func(row int) bool { return notes[row].Step == 0 },
		))
		fmt.Fprintf(out, "%d notes over %d loops (%.2fs)\n",
			len(notes), renderFlags.loops, p.Sequence.LoopLength()*float64(renderFlags.loops))
		return nil
	},
}

func init() {
	addProjectFlags(renderCmd)
	renderCmd.Flags().IntVarP(&renderFlags.loops, "loops", "n", 1, "Number of loops to render")
}
