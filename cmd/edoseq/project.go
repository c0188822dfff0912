package main

import (
	"github.com/spf13/cobra"

	"github.com/tuningbox/edoseq/internal/project"
	"github.com/tuningbox/edoseq/internal/sequence"
	"github.com/tuningbox/edoseq/internal/tuning"
)

var projectFile string

func addProjectFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&projectFile, "file", "f", "",
		"Read the project from a file holding a share hash")
}

// resolveProject picks the project from a hash argument, the --file flag, or
// a new project using the configured defaults, in that order.
func resolveProject(args []string) (project.Project, error) {
	switch {
	case len(args) > 0:
		return project.Decode(args[0])
	case projectFile != "":
		return project.Load(projectFile)
	default:
		return defaultProject(), nil
	}
}

func defaultProject() project.Project {
	p := project.Empty()
	if tuning.ValidSubdivisions(cfg.Subdivisions) {
		p.Subdivisions = cfg.Subdivisions
	}
	p.Accidental = cfg.AccidentalValue()
	p.Sequence = sequence.WithSecondsPerStep(p.Sequence, cfg.SecondsPerStep())
	return p
}
