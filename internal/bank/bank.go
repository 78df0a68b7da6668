// SPDX-License-Identifier: MIT
// Package bank splits a block of wide samples into frequency bands by running
// it through one biquad cascade per band.
package bank

import (
	"errors"
	"fmt"

	"equalizer/internal/biquad"
	"equalizer/internal/coeffs"
	"equalizer/pkg/fixed"
)

var (
	ErrBlockSize = errors.New("bank: block size must be positive")
	ErrBandIndex = errors.New("bank: band index out of range")
)

// Band is one frequency band of the bank.
type Band struct {
	Index   int
	Name    string
	LowHz   float64 // lower edge, 0 when unknown
	HighHz  float64 // upper edge, 0 when unknown
	Cascade *biquad.Cascade
}

// FilterBank owns one cascade and one output buffer per band.
type FilterBank struct {
	bands     []Band
	outputs   [][]int32
	blockSize int
}

type bankConfig struct {
	precisions []biquad.Precision
	err        error
}

// Option configures a FilterBank.
type Option func(*bankConfig)

// WithPrecisions sets the precision of every band, in band order. The slice
// must have one entry per band.
func WithPrecisions(p []biquad.Precision) Option {
	return func(cfg *bankConfig) {
		if len(p) != len(cfg.precisions) {
			cfg.err = fmt.Errorf("%w: %d precisions for %d bands", ErrBandIndex, len(p), len(cfg.precisions))
			return
		}
		copy(cfg.precisions, p)
	}
}

// WithPrecision sets the precision of a single band.
func WithPrecision(band int, p biquad.Precision) Option {
	return func(cfg *bankConfig) {
		if band < 0 || band >= len(cfg.precisions) {
			cfg.err = fmt.Errorf("%w: %d", ErrBandIndex, band)
			return
		}
		cfg.precisions[band] = p
	}
}

// New builds a bank from a validated coefficient table. Every band defaults
// to standard precision. The table's coefficient slices are bound, not
// copied.
func New(table *coeffs.Table, blockSize int, opts ...Option) (*FilterBank, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	if blockSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrBlockSize, blockSize)
	}

	cfg := bankConfig{precisions: make([]biquad.Precision, table.NumBands())}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.err != nil {
		return nil, cfg.err
	}

	fb := &FilterBank{
		bands:     make([]Band, table.NumBands()),
		outputs:   make([][]int32, table.NumBands()),
		blockSize: blockSize,
	}
	for i, b := range table.Bands {
		c, err := biquad.NewCascade(cfg.precisions[i], table.Stages, b.Values, table.PostShift)
		if err != nil {
			return nil, fmt.Errorf("band %d: %w", i, err)
		}
		fb.bands[i] = Band{
			Index:   i,
			Name:    b.Name,
			LowHz:   b.LowHz,
			HighHz:  b.HighHz,
			Cascade: c,
		}
		fb.outputs[i] = make([]int32, blockSize)
	}
	return fb, nil
}

// Process filters src through every band in band order. The returned slices
// are owned by the bank and overwritten by the next call.
func (fb *FilterBank) Process(src []int32) ([][]int32, error) {
	if len(src) != fb.blockSize {
		return nil, fixed.ErrBlockLength
	}
	for i := range fb.bands {
		if err := fb.bands[i].Cascade.Process(fb.outputs[i], src); err != nil {
			return nil, err
		}
	}
	return fb.outputs, nil
}

// Reset zeroes every band's filter state.
func (fb *FilterBank) Reset() {
	for i := range fb.bands {
		fb.bands[i].Cascade.Reset()
	}
}

// Outputs returns the band outputs of the last Process call.
func (fb *FilterBank) Outputs() [][]int32 { return fb.outputs }

func (fb *FilterBank) Bands() []Band  { return fb.bands }
func (fb *FilterBank) NumBands() int  { return len(fb.bands) }
func (fb *FilterBank) BlockSize() int { return fb.blockSize }
