package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tuningbox/edoseq/internal/tuning"
)

var tonesFlags struct {
	accidental string
}

var tonesCmd = &cobra.Command{
	Use:   "tones N",
	Short: "List the tones of N-EDO and their nearest 12-TET notes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := parseSubdivisions(args[0])
		if err != nil {
			return err
		}
		acc, err := accidentalFlag(tonesFlags.accidental)
		if err != nil {
			return err
		}
		tones := tuning.EqualOctaveSubdivisions(n)
		rows := make([][]string, len(tones))
		for i, t := range tones {
			rows[i] = []string{
				strconv.Itoa(i),
				fmt.Sprintf("%.2f", t.Cents),
				acc.Name(t.NearestTwelveTone),
				t.DiffText(),
				tuning.NearestInterval(t).ShortName,
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable(
			[]string{"#", "Cents", "Note", "Offset", "Interval"},
			rows,
			func(row int) bool { return tones[row].HasNearestOfTwelveTone() },
		))
		return nil
	},
}

func init() {
	tonesCmd.Flags().StringVar(&tonesFlags.accidental, "accidental", "",
		"Spell black keys as sharp or flat (default from config)")
}

func parseSubdivisions(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid N %q: %w", s, err)
	}
	if !tuning.ValidSubdivisions(n) {
		return 0, fmt.Errorf("N must be between %d and %d, got %d", tuning.MinSubdivisions, tuning.MaxSubdivisions, n)
	}
	return n, nil
}

func accidentalFlag(s string) (tuning.Accidental, error) {
	if s == "" {
		return cfg.AccidentalValue(), nil
	}
	return tuning.ParseAccidental(s)
}
