package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tuningbox/edoseq/internal/keyboard"
	"github.com/tuningbox/edoseq/internal/tuning"
)

var keysFlags struct {
	offset     int
	accidental string
}

var keysCmd = &cobra.Command{
	Use:   "keys N",
	Short: "Show the on-screen keyboard layout for N-EDO",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := parseSubdivisions(args[0])
		if err != nil {
			return err
		}
		acc, err := accidentalFlag(keysFlags.accidental)
		if err != nil {
			return err
		}
		pitches := tuning.PitchRange(cfg.RootFrequency, tuning.EqualOctaveSubdivisions(n))
		offset := tuning.DefaultKeyboardOffset(n)
		if cmd.Flags().Changed("offset") {
			offset = keysFlags.offset
		}
		offset = max(0, min(offset, tuning.MaxKeyboardOffset(len(pitches), n)))
		keys := keyboard.Layout(tuning.KeyboardWindow(pitches, offset, n))

		rows := make([][]string, len(keys))
		for i, k := range keys {
			kind := "tall"
			if k.IsShort {
				kind = "short"
			}
			rows[i] = []string{
				strconv.Itoa(i),
				k.Char,
				strconv.Itoa(offset + i),
				tuning.PitchName(k.Pitch, acc),
				fmt.Sprintf("%.3f", k.Pitch.Frequency),
				kind,
				fmt.Sprintf("%.2f", k.X),
				fmt.Sprintf("%.2f", k.Width),
				fmt.Sprintf("%.2f", k.Color),
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable(
			[]string{"Key", "Char", "Pitch", "Name", "Hz", "Kind", "X", "Width", "Color"},
			rows,
			func(row int) bool { return keys[row].IsShort },
		))
		return nil
	},
}

func init() {
	keysCmd.Flags().IntVar(&keysFlags.offset, "offset", 0,
		"Index of the first pitch on the keyboard (default 4*N)")
	keysCmd.Flags().StringVar(&keysFlags.accidental, "accidental", "",
		"Spell black keys as sharp or flat (default from config)")
}
