// SPDX-License-Identifier: MIT
package equalizer

import (
	"context"
	"errors"
	"io"

	"equalizer/internal/log"
)

var logger = log.Named("runner")

// Runner moves blocks from a Source through a Pipeline into a Sink.
type Runner struct {
	pipeline *Pipeline
	source   Source
	sink     Sink
	observer Observer

	in     []int16
	out    []int16
	blocks uint64
}

// NewRunner returns a runner. A nil source produces silence and a nil sink
// discards the output.
func NewRunner(p *Pipeline, source Source, sink Sink) *Runner {
	if source == nil {
		source = silence{}
	}
	if sink == nil {
		sink = discard{}
	}
	return &Runner{
		pipeline: p,
		source:   source,
		sink:     sink,
		in:       make([]int16, p.BlockSize()),
		out:      make([]int16, p.BlockSize()),
	}
}

// SetObserver installs a per-block observer, typically a level meter.
func (r *Runner) SetObserver(o Observer) { r.observer = o }

// Blocks returns the number of blocks processed so far.
func (r *Runner) Blocks() uint64 { return r.blocks }

// Step processes one block. A short final block is zero-padded for
// processing and emitted at its original length. Step returns io.EOF once
// the source is exhausted.
func (r *Runner) Step() error {
	n, err := r.source.Fill(r.in)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if n == 0 && err != nil {
		return err
	}
	n = min(n, len(r.in))
	clear(r.in[n:])

	if perr := r.pipeline.Run(r.out, r.in); perr != nil {
		return perr
	}
	if r.observer != nil {
		r.observer(r.blocks, r.pipeline.BandOutputs())
	}
	r.blocks++

	if serr := r.sink.Emit(r.out[:n]); serr != nil {
		return serr
	}
	return err
}

// Run steps until the source ends, an error occurs or ctx is done. The end
// of the source is not an error.
func (r *Runner) Run(ctx context.Context) error {
	logger.Debugf("starting: %d bands, %d samples per block", r.pipeline.NumBands(), r.pipeline.BlockSize())
	defer func() { logger.Debugf("stopped after %d blocks", r.blocks) }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := r.Step(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
