// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"equalizer/internal/analysis"
	"equalizer/internal/audio"
	"equalizer/internal/transport"
)

// fileMeterSmoothing averages band levels over roughly ten blocks.
const fileMeterSmoothing = 0.9

func newProcessCommand(a *app) *cobra.Command {
	var gains []float64

	cmd := &cobra.Command{
		Use:   "process IN.wav OUT.wav",
		Short: "Equalize a WAV file",
		Long: "Equalize a PCM WAV file into a 16-bit mono WAV file. Multi-channel input is\n" +
			"downmixed; the input must run at the configured sample rate.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.pipeline(gains)
			if err != nil {
				return err
			}

			names := bandNames(p)
			meter := analysis.NewBandMeter(names, p.Headroom(), analysis.WithSmoothing(fileMeterSmoothing))
			clip := analysis.NewClipDetector(transport.NewLoggingTransport(), 0)
			clip.Start()
			defer clip.Close()

			blocks, err := audio.ProcessFile(cmd.Context(), p, audio.FileJob{
				In:         args[0],
				Out:        args[1],
				SampleRate: int(a.cfg.Audio.SampleRate),
				Observer:   meter.Observe,
				Wrap:       clip.Sink,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d blocks of %d samples\n", args[1], blocks, p.BlockSize())
			printLevels(out, names, meter.Levels())
			if n := clip.ClippedSamples(); n > 0 {
				fmt.Fprintf(out, "clipped: %d samples in %d blocks\n", n, clip.ClippedBlocks())
			}
			return nil
		},
	}

	cmd.Flags().Float64SliceVarP(&gains, "gains", "g", nil,
		"Per-band gains in dB, overriding the configuration (e.g. -g 0,3,3,0,-2,-6)")
	return cmd
}
