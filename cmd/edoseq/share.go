package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tuningbox/edoseq/internal/project"
	"github.com/tuningbox/edoseq/internal/sequence"
)

var shareFlags struct {
	steps int
	bpm   float64
	save  string
}

var shareCmd = &cobra.Command{
	Use:   "share [HASH]",
	Short: "Print the share hash of a project",
	Long: `Share re-encodes a project after applying --steps and --bpm, and prints
its hash. With --save the hash is also written to a file that --file can
read back.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := resolveProject(args)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("steps") {
			p.Sequence = sequence.Resize(shareFlags.steps, p.Sequence)
		}
		if cmd.Flags().Changed("bpm") {
			p.Sequence = sequence.WithSecondsPerStep(p.Sequence, sequence.SecondsPerStepForBPM(shareFlags.bpm))
		}
		hash, err := project.Encode(p)
		if err != nil {
			return err
		}
		if shareFlags.save != "" {
			if err := project.Save(shareFlags.save, p); err != nil {
				return err
			}
			log.WithField("path", shareFlags.save).Info("project saved")
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	addProjectFlags(shareCmd)
	shareCmd.Flags().IntVar(&shareFlags.steps, "steps", sequence.DefaultSteps,
		"Resize the sequence to this many steps (1-256)")
	shareCmd.Flags().Float64Var(&shareFlags.bpm, "bpm", 120,
		"Set the tempo (40-200 BPM)")
	shareCmd.Flags().StringVar(&shareFlags.save, "save", "",
		"Also write the project to this file")
}
