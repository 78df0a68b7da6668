// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"equalizer/internal/analysis"
	"equalizer/internal/audio"
	"equalizer/internal/equalizer"
	"equalizer/pkg/fixed"
	"equalizer/pkg/utils"
)

const defaultAnalyzeBlocks = 32

func newAnalyzeCommand(a *app) *cobra.Command {
	var (
		gains  []float64
		blocks int
	)

	cmd := &cobra.Command{
		Use:   "analyze [IN.wav]",
		Short: "Report band levels and spectrum peaks",
		Long: "Run a WAV file, or the built-in test signal when no file is given, through the\n" +
			"equalizer without writing output, and report the per-band levels and the\n" +
			"strongest spectral component before and after equalization.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.pipeline(gains)
			if err != nil {
				return err
			}
			rate := a.cfg.Audio.SampleRate

			window, err := analysis.ParseWindowFunc(a.cfg.Audio.FFTWindow)
			if err != nil {
				return err
			}
			// Blocks of other sizes are zero-padded up to the transform size.
			size := fixed.NextPowerOfTwo(p.BlockSize())
			inSpec, err := analysis.NewSpectrum(size, rate, window)
			if err != nil {
				return err
			}
			outSpec, err := analysis.NewSpectrum(size, rate, window)
			if err != nil {
				return err
			}

			var src equalizer.Source
			if len(args) == 1 {
				wav, err := audio.OpenWAV(args[0])
				if err != nil {
					return err
				}
				defer wav.Close()
				if float64(wav.SampleRate()) != rate {
					return fmt.Errorf("%w: %s is %d Hz, the equalizer runs at %g Hz", audio.ErrWAVFormat, args[0], wav.SampleRate(), rate)
				}
				src = wav
			} else {
				src = samplesSource(utils.GenerateTestSignal(blocks*p.BlockSize(), rate))
			}

			names := bandNames(p)
			meter := analysis.NewBandMeter(names, p.Headroom(), analysis.WithSmoothing(fileMeterSmoothing))
			r := equalizer.NewRunner(p, fullBlocks(src, inSpec), fullBlockSink(outSpec, p.BlockSize()))
			r.SetObserver(meter.Observe)
			if err := r.Run(cmd.Context()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d blocks of %d samples at %g Hz\n", r.Blocks(), p.BlockSize(), rate)
			printLevels(out, names, meter.Levels())
			printPeak(out, "input", inSpec)
			printPeak(out, "output", outSpec)
			return nil
		},
	}

	cmd.Flags().Float64SliceVarP(&gains, "gains", "g", nil,
		"Per-band gains in dB, overriding the configuration")
	cmd.Flags().IntVarP(&blocks, "blocks", "n", defaultAnalyzeBlocks,
		"Length of the test signal in blocks")
	return cmd
}

func samplesSource(samples []int16) equalizer.Source {
	return equalizer.SourceFunc(func(block []int16) (int, error) {
		if len(samples) == 0 {
			return 0, io.EOF
		}
		n := copy(block, samples)
		samples = samples[n:]
		return n, nil
	})
}

// fullBlocks passes every complete input block to p on its way through.
func fullBlocks(src equalizer.Source, p analysis.BlockProcessor) equalizer.Source {
	return equalizer.SourceFunc(func(block []int16) (int, error) {
		n, err := src.Fill(block)
		if n == len(block) {
			p.Process(block)
		}
		return n, err
	})
}

// fullBlockSink analyzes output blocks of blockSize samples and discards
// every block.
func fullBlockSink(p analysis.BlockProcessor, blockSize int) equalizer.Sink {
	return equalizer.SinkFunc(func(block []int16) error {
		if len(block) == blockSize {
			p.Process(block)
		}
		return nil
	})
}

func printPeak(w io.Writer, label string, s *analysis.Spectrum) {
	bin, mag := s.Peak()
	fmt.Fprintf(w, "%s peak: %.1f Hz at %.3f of full scale\n", label, s.FrequencyForBin(bin), mag)
}
