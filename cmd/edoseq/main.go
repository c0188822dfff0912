package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tuningbox/edoseq/internal/config"
)

var (
	Version = "dev"

	flags struct {
		logFile  string
		logLevel string
	}

	cfg *config.Config
	log = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "edoseq",
	Short: "Microtonal keyboard and step sequencer for equal divisions of the octave",
	Long: `edoseq explores n-EDO tunings (5 to 31 equal divisions of the octave):
list tones and keyboard layouts, play and render step sequences, and
encode projects as share hashes.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flags.logFile, "log", "l", "",
		"Write logs to the specified file (empty logs to stderr)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "",
		"Log level: panic|fatal|error|warn|info|debug|trace (default from config)")

	rootCmd.AddCommand(tonesCmd, keysCmd, playCmd, shareCmd, renderCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}
	level := cfg.Level()
	if flags.logLevel != "" {
		if level, err = logrus.ParseLevel(flags.logLevel); err != nil {
			return err
		}
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)
	if flags.logFile != "" {
		f, err := os.OpenFile(flags.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		log.SetOutput(f)
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	log.WithField("config", cfg).Debug("configuration loaded")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
