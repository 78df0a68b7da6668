// SPDX-License-Identifier: MIT
// Package cmd implements the eq command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"equalizer/internal/config"
	"equalizer/internal/equalizer"
	"equalizer/internal/log"
	"equalizer/pkg/build"
)

var logger = log.Named("cmd")

// app carries the state shared by every subcommand.
type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	buildInfo := build.GetBuildFlags()

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: a.load,
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "",
		"Configuration file. Defaults to ./config.yaml, then the user config directory")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "",
		"Log level (debug, info, warn, error), overriding the configuration")

	rootCmd.AddCommand(
		newProcessCommand(a),
		newAnalyzeCommand(a),
		newLiveCommand(a),
		newDevicesCommand(a),
		newTableCommand(a),
	)
	return rootCmd
}

// Execute runs the command line until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}

func (a *app) load(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	log.SetLevel(cfg.Level())

	if a.logLevel != "" {
		level, ok := log.ParseLevel(a.logLevel)
		if !ok {
			return fmt.Errorf("unknown log level %q", a.logLevel)
		}
		log.SetLevel(level)
	}

	a.cfg = cfg
	return nil
}

// pipeline builds the configured pipeline. Non-empty gainsDB replaces the
// configured band gains.
func (a *app) pipeline(gainsDB []float64) (*equalizer.Pipeline, error) {
	eq := a.cfg.Equalizer
	if len(gainsDB) > 0 {
		eq.GainsDB = gainsDB
	}
	pc, err := eq.Pipeline(a.cfg.Audio.SampleRate)
	if err != nil {
		return nil, err
	}
	p, err := equalizer.New(pc)
	if err != nil {
		return nil, err
	}
	logger.Debugf("pipeline: %d bands, %d samples per block, gains %v", p.NumBands(), p.BlockSize(), p.Gains())
	return p, nil
}

func bandNames(p *equalizer.Pipeline) []string {
	names := make([]string, p.NumBands())
	for i, b := range p.Bands() {
		names[i] = b.Name
	}
	return names
}

func printLevels(w io.Writer, names []string, levels []float64) {
	for i, name := range names {
		fmt.Fprintf(w, "  %-10s %7.1f dBFS\n", name, levels[i])
	}
}
