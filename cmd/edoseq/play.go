package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tuningbox/edoseq"
	"github.com/tuningbox/edoseq/internal/synth"
)

var playFlags struct {
	loops int
}

var playCmd = &cobra.Command{
	Use:   "play [HASH]",
	Short: "Play a project's sequence, logging each note",
	Long: `Play loops the sequence of a project given as a share hash, a file, or
the configured defaults. Notes are logged at info level. Playback stops
after --loops loops, or on interrupt when --loops is 0.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := resolveProject(args)
		if err != nil {
			return err
		}
		s, err := edoseq.NewSessionFromProject(p,
			edoseq.WithLogger(log),
			edoseq.WithRootFrequency(cfg.RootFrequency),
			edoseq.WithTick(cfg.TickInterval(), cfg.LookAhead),
			edoseq.WithPlaybackInstrument(synth.NewLogInstrument(log.WithField("instrument", "sequencer"), p.Instrument)),
		)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		events := s.Watch()
		if err := s.TogglePlaying(); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "playing %d steps x %d tracks at %.0f BPM in %d-EDO\n",
			p.Sequence.Len(), p.Sequence.NumberOfTracks, p.Sequence.BPM(), p.Subdivisions)

		loops := 0
		for {
			select {
			case <-ctx.Done():
				s.Stop()
				fmt.Fprintln(out, "stopped")
				return nil
			case ev := <-events:
				switch ev.Kind {
				case edoseq.EventLoopCompleted:
					loops++
					fmt.Fprintf(out, "loop %d completed\n", loops)
					if playFlags.loops > 0 && loops >= playFlags.loops {
						s.Stop()
						return nil
					}
				case edoseq.EventPlaybackEnded:
					fmt.Fprintln(out, "playback ended")
					return nil
				}
			}
		}
	},
}

func init() {
	addProjectFlags(playCmd)
	playCmd.Flags().IntVarP(&playFlags.loops, "loops", "n", 1,
		"Stop after N loops (0 plays until interrupted)")
}
