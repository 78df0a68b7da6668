// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"equalizer/internal/analysis"
	"equalizer/internal/audio"
	"equalizer/internal/transport"
	"equalizer/internal/transport/udp"
	"equalizer/internal/tui"
)

const (
	liveMeterSmoothing = 0.8
	clipHoldoffBlocks  = 16
)

type liveOptions struct {
	gains  []float64
	tui    bool
	record bool
	bypass bool
}

func newLiveCommand(a *app) *cobra.Command {
	var opts liveOptions

	cmd := &cobra.Command{
		Use:   "live",
		Short: "Equalize the configured input device to the output device",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLive(cmd.Context(), opts)
		},
	}

	cmd.Flags().Float64SliceVarP(&opts.gains, "gains", "g", nil,
		"Per-band gains in dB, overriding the configuration")
	cmd.Flags().BoolVarP(&opts.tui, "tui", "t", false,
		"Show the interactive equalizer panel")
	cmd.Flags().BoolVarP(&opts.record, "record", "r", false,
		"Record the equalized output to the recording directory")
	cmd.Flags().BoolVar(&opts.bypass, "bypass", false,
		"Start with the equalizer bypassed")
	return cmd
}

func (a *app) runLive(ctx context.Context, opts liveOptions) error {
	cfg := a.cfg
	if opts.bypass {
		cfg.Audio.Bypass = true
	}

	p, err := a.pipeline(opts.gains)
	if err != nil {
		return err
	}

	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	// Shut down in reverse order of creation: the engine stops feeding the
	// meter before the transports go away.
	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warnf("shutdown: %v", err)
			}
		}
	}()

	sinks := transport.Multi{transport.NewLoggingTransport()}
	if cfg.Transport.WebSocketEnabled {
		sinks = append(sinks, transport.NewWebSocketTransport(cfg.Transport.WebSocketAddr))
	}
	closers = append(closers, sinks.Close)

	engine, err := audio.NewEngine(cfg, p)
	if err != nil {
		return err
	}

	every := blocksPer(cfg.Transport.UDPSendInterval, p.BlockSize(), cfg.Audio.SampleRate)
	meter := analysis.NewBandMeter(engine.BandNames(), p.Headroom(),
		analysis.WithSmoothing(liveMeterSmoothing),
		analysis.WithTransport(sinks, every))
	engine.SetObserver(meter.Observe)
	meter.Start()
	closers = append(closers, meter.Close)

	clip := analysis.NewClipDetector(sinks, clipHoldoffBlocks)
	engine.AddProcessor(clip)
	clip.Start()
	closers = append(closers, clip.Close)

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return err
		}
		closers = append(closers, sender.Close)

		pub, err := udp.NewPublisher(cfg.Transport.UDPSendInterval, sender, meter)
		if err != nil {
			return err
		}
		pub.Start()
		closers = append(closers, pub.Close)
	}

	if err := engine.Start(); err != nil {
		return err
	}
	closers = append(closers, engine.Close)

	if opts.record || cfg.Recording.Enabled {
		if err := os.MkdirAll(cfg.Recording.OutputDir, 0o755); err != nil {
			return err
		}
		name := "eq-" + time.Now().Format("20060102-150405") + "." + cfg.Recording.Format
		if err := engine.StartRecording(filepath.Join(cfg.Recording.OutputDir, name)); err != nil {
			return err
		}
	}

	if opts.tui {
		return tui.RunEQ(engine, meter)
	}

	logger.Infof("running, press Ctrl+C to stop")
	<-ctx.Done()
	logger.Infof("stopping after %d blocks", engine.Blocks())
	return nil
}

// blocksPer converts an interval into a whole number of blocks, at least 1.
func blocksPer(interval time.Duration, blockSize int, sampleRate float64) uint64 {
	blocks := uint64(interval.Seconds() * sampleRate / float64(blockSize))
	return max(blocks, 1)
}
