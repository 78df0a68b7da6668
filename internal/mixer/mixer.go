// SPDX-License-Identifier: MIT
/*
Package mixer recombines filter-bank outputs into a single signal.

Summing N bands can grow the signal by up to log2(N) bits, so the input is
attenuated before it enters the bank and the sum is restored afterwards:

	x  -> Attenuate(>> a) -> bank -> gain -> saturating sum -> Restore(<< r)

The two shifts must be equal for unity passthrough, and a must cover the
bit growth of the band count.
*/
package mixer

import (
	"errors"
	"fmt"

	"equalizer/pkg/fixed"
)

var (
	ErrHeadroomMismatch     = errors.New("mixer: attenuation and restoration shifts differ")
	ErrInsufficientHeadroom = errors.New("mixer: attenuation does not cover band sum growth")
	ErrBandCount            = errors.New("mixer: band count mismatch")
	ErrBandIndex            = errors.New("mixer: band index out of range")
	ErrShiftRange           = errors.New("mixer: shift out of range")
)

// MaxShift is the largest attenuation or restoration shift.
const MaxShift = 31

// Mixer holds per-band gains and the headroom shifts. It is not safe for
// concurrent use.
type Mixer struct {
	bands       int
	attenuation uint
	restoration uint
	gains       []fixed.Gain
}

// New returns a mixer for the given band count with every gain at unity.
func New(bands int, attenuation, restoration uint) (*Mixer, error) {
	if bands < 1 {
		return nil, fmt.Errorf("%w: %d bands", ErrBandCount, bands)
	}
	if attenuation > MaxShift || restoration > MaxShift {
		return nil, fmt.Errorf("%w: %d/%d", ErrShiftRange, attenuation, restoration)
	}
	if attenuation != restoration {
		return nil, fmt.Errorf("%w: >>%d then <<%d", ErrHeadroomMismatch, attenuation, restoration)
	}
	if need := fixed.HeadroomBits(bands); attenuation < need {
		return nil, fmt.Errorf("%w: %d bands need %d bits, have %d", ErrInsufficientHeadroom, bands, need, attenuation)
	}

	return &Mixer{
		bands:       bands,
		attenuation: attenuation,
		restoration: restoration,
		gains:       make([]fixed.Gain, bands),
	}, nil
}

// Attenuate arithmetic-shifts src right by the attenuation into dst.
func (m *Mixer) Attenuate(dst, src []int32) error {
	return fixed.ShiftRightBlock(dst, src, m.attenuation)
}

// Mix applies each band's gain and sums the bands into dst with saturation.
// Bands are summed in index order.
func (m *Mixer) Mix(dst []int32, bands [][]int32) error {
	if len(bands) != m.bands {
		return ErrBandCount
	}
	for _, b := range bands {
		if len(b) != len(dst) {
			return fixed.ErrBlockLength
		}
	}

	clear(dst)
	for i, b := range bands {
		g := m.gains[i]
		if g.IsUnity() {
			for n, v := range b {
				dst[n] = fixed.AddSat32(dst[n], v)
			}
			continue
		}
		for n, v := range b {
			dst[n] = fixed.AddSat32(dst[n], g.Apply(v))
		}
	}
	return nil
}

// Restore shifts src left by the restoration with saturation into dst.
func (m *Mixer) Restore(dst, src []int32) error {
	return fixed.ShiftLeftSatBlock(dst, src, m.restoration)
}

// SetGain sets the gain of one band.
func (m *Mixer) SetGain(band int, g fixed.Gain) error {
	if band < 0 || band >= m.bands {
		return fmt.Errorf("%w: %d", ErrBandIndex, band)
	}
	if err := g.Validate(); err != nil {
		return err
	}
	m.gains[band] = g
	return nil
}

// Gain returns the gain of one band; out-of-range bands report unity.
func (m *Mixer) Gain(band int) fixed.Gain {
	if band < 0 || band >= m.bands {
		return fixed.Unity
	}
	return m.gains[band]
}

// Gains returns a copy of all band gains.
func (m *Mixer) Gains() []fixed.Gain {
	out := make([]fixed.Gain, len(m.gains))
	copy(out, m.gains)
	return out
}

func (m *Mixer) NumBands() int     { return m.bands }
func (m *Mixer) Attenuation() uint { return m.attenuation }
func (m *Mixer) Restoration() uint { return m.restoration }
