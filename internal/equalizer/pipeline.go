// SPDX-License-Identifier: MIT
/*
Package equalizer wires the fixed-point stages into a block equalizer:

	Q15 in -> widen -> attenuate -> filter bank -> gain + sum -> restore -> narrow -> Q15 out

A Pipeline owns every buffer it needs; Run does not allocate. The Runner
drives a Pipeline from a Source to a Sink one block at a time.
*/
package equalizer

import (
	"errors"
	"fmt"

	"equalizer/internal/bank"
	"equalizer/internal/biquad"
	"equalizer/internal/coeffs"
	"equalizer/internal/mixer"
	"equalizer/pkg/fixed"
)

var (
	ErrNoTable        = errors.New("equalizer: no coefficient table")
	ErrBlockSize      = errors.New("equalizer: block size must be positive")
	ErrPrecisionCount = errors.New("equalizer: precision count does not match band count")
	ErrGainCount      = errors.New("equalizer: gain count does not match band count")
)

const (
	DefaultBlockSize = 256
	DefaultHeadroom  = 3
)

// Config describes a pipeline. Precisions and Gains may be nil, meaning
// standard precision and unity gain for every band.
type Config struct {
	Table       *coeffs.Table
	BlockSize   int
	WideShift   uint
	Attenuation uint
	Restoration uint
	Precisions  []biquad.Precision
	Gains       []fixed.Gain
}

// DefaultConfig is the six-band octave equalizer at 16 kHz. The three
// lowest bands use extended precision.
func DefaultConfig() Config {
	return Config{
		Table:       coeffs.Default(),
		BlockSize:   DefaultBlockSize,
		WideShift:   fixed.MaxWideShift,
		Attenuation: DefaultHeadroom,
		Restoration: DefaultHeadroom,
		Precisions: []biquad.Precision{
			biquad.Extended, biquad.Extended, biquad.Extended,
			biquad.Standard, biquad.Standard, biquad.Standard,
		},
	}
}

// Validate reports the first configuration error. Headroom errors wrap the
// mixer's sentinels.
func (c Config) Validate() error {
	if c.Table == nil {
		return ErrNoTable
	}
	if err := c.Table.Validate(); err != nil {
		return err
	}
	if c.BlockSize <= 0 {
		return fmt.Errorf("%w: %d", ErrBlockSize, c.BlockSize)
	}
	if _, err := fixed.NewConverter(c.WideShift); err != nil {
		return err
	}
	bands := c.Table.NumBands()
	if c.Precisions != nil && len(c.Precisions) != bands {
		return fmt.Errorf("%w: %d for %d bands", ErrPrecisionCount, len(c.Precisions), bands)
	}
	if c.Gains != nil && len(c.Gains) != bands {
		return fmt.Errorf("%w: %d for %d bands", ErrGainCount, len(c.Gains), bands)
	}
	for i, g := range c.Gains {
		if err := g.Validate(); err != nil {
			return fmt.Errorf("band %d: %w", i, err)
		}
	}
	if c.Attenuation != c.Restoration {
		return fmt.Errorf("%w: >>%d then <<%d", mixer.ErrHeadroomMismatch, c.Attenuation, c.Restoration)
	}
	if need := fixed.HeadroomBits(bands); c.Attenuation < need {
		return fmt.Errorf("%w: %d bands need %d bits, have %d", mixer.ErrInsufficientHeadroom, bands, need, c.Attenuation)
	}
	return nil
}

// Pipeline is a block equalizer. It is not safe for concurrent use.
type Pipeline struct {
	conv      fixed.Converter
	bank      *bank.FilterBank
	mixer     *mixer.Mixer
	blockSize int

	wide []int32 // widened, attenuated input
	sum  []int32 // mixed and restored output
}

// New builds a pipeline, refusing any configuration Validate rejects.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	conv, err := fixed.NewConverter(cfg.WideShift)
	if err != nil {
		return nil, err
	}

	var opts []bank.Option
	if cfg.Precisions != nil {
		opts = append(opts, bank.WithPrecisions(cfg.Precisions))
	}
	fb, err := bank.New(cfg.Table, cfg.BlockSize, opts...)
	if err != nil {
		return nil, err
	}

	mx, err := mixer.New(fb.NumBands(), cfg.Attenuation, cfg.Restoration)
	if err != nil {
		return nil, err
	}
	for i, g := range cfg.Gains {
		if err := mx.SetGain(i, g); err != nil {
			return nil, err
		}
	}

	return &Pipeline{
		conv:      conv,
		bank:      fb,
		mixer:     mx,
		blockSize: cfg.BlockSize,
		wide:      make([]int32, cfg.BlockSize),
		sum:       make([]int32, cfg.BlockSize),
	}, nil
}

// Run equalizes one block. Both slices must hold exactly BlockSize samples;
// dst may be src.
func (p *Pipeline) Run(dst, src []int16) error {
	if len(src) != p.blockSize || len(dst) != p.blockSize {
		return fixed.ErrBlockLength
	}

	if err := p.conv.Widen(p.wide, src); err != nil {
		return err
	}
	if err := p.mixer.Attenuate(p.wide, p.wide); err != nil {
		return err
	}
	bands, err := p.bank.Process(p.wide)
	if err != nil {
		return err
	}
	if err := p.mixer.Mix(p.sum, bands); err != nil {
		return err
	}
	if err := p.mixer.Restore(p.sum, p.sum); err != nil {
		return err
	}
	return p.conv.Narrow(dst, p.sum)
}

// Reset clears all filter state, as if no block had been processed.
func (p *Pipeline) Reset() {
	p.bank.Reset()
}

// SetGain changes the gain of one band; it takes effect on the next Run.
func (p *Pipeline) SetGain(band int, g fixed.Gain) error {
	return p.mixer.SetGain(band, g)
}

func (p *Pipeline) Gain(band int) fixed.Gain { return p.mixer.Gain(band) }
func (p *Pipeline) Gains() []fixed.Gain      { return p.mixer.Gains() }

// BandOutputs returns the per-band signals of the last Run, in the
// attenuated Q31 domain and before band gains. The slices are overwritten
// by the next Run.
func (p *Pipeline) BandOutputs() [][]int32 { return p.bank.Outputs() }

func (p *Pipeline) Bands() []bank.Band { return p.bank.Bands() }
func (p *Pipeline) NumBands() int      { return p.bank.NumBands() }
func (p *Pipeline) BlockSize() int     { return p.blockSize }

// Headroom returns the attenuation applied ahead of the bank.
func (p *Pipeline) Headroom() uint { return p.mixer.Attenuation() }
