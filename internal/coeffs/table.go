// SPDX-License-Identifier: MIT
/*
Package coeffs holds the precomputed biquad coefficient tables consumed by
the filter bank.

Tables are produced offline by the coefficient-design tool; this package
never derives coefficients. It only stores them, checks their structure and
moves them between the flat wire format and YAML files.

Per stage the five values are, in order:

	b0, b1, b2, a1, a2

with the feedback coefficients already negated (y[n] = ... + a1*y[n-1] +
a2*y[n-2]) and every value scaled by 2^-PostShift before quantisation to
Q31. The filter must right-shift its accumulator by the same PostShift.
*/
package coeffs

import (
	"errors"
	"fmt"
	"slices"
)

// ValuesPerStage is the number of coefficients of one second-order section.
const ValuesPerStage = 5

// MaxPostShift keeps 31-PostShift a valid, positive accumulator shift.
const MaxPostShift = 30

var (
	ErrNoBands          = errors.New("coeffs: table has no bands")
	ErrStageCount       = errors.New("coeffs: stage count must be positive")
	ErrCoefficientCount = errors.New("coeffs: coefficient count does not match stage count")
	ErrPostShift        = errors.New("coeffs: post shift out of range")
	ErrBandEdges        = errors.New("coeffs: band edges are not ordered")
	ErrDuplicateBand    = errors.New("coeffs: duplicate band coefficients")
)

// BandCoefficients is the coefficient sub-table of one frequency band.
type BandCoefficients struct {
	Name   string  `yaml:"name"`
	LowHz  float64 `yaml:"low_hz"`
	HighHz float64 `yaml:"high_hz"`
	Values []int32 `yaml:"values"` // Stages * ValuesPerStage entries.
}

// Table is an immutable set of per-band biquad cascades sharing one stage
// count and post shift.
type Table struct {
	SampleRate float64            `yaml:"sample_rate"`
	PostShift  uint               `yaml:"post_shift"`
	Stages     int                `yaml:"stages"`
	Bands      []BandCoefficients `yaml:"bands"`
}

// NumBands returns the number of bands in the table.
func (t *Table) NumBands() int { return len(t.Bands) }

// Band returns the coefficients of band i.
func (t *Table) Band(i int) []int32 { return t.Bands[i].Values }

// Validate checks the table structure. A table that fails validation must
// not be used: it would filter with the wrong response instead of failing.
func (t *Table) Validate() error {
	if len(t.Bands) == 0 {
		return ErrNoBands
	}
	if t.Stages <= 0 {
		return fmt.Errorf("%w: %d", ErrStageCount, t.Stages)
	}
	if t.PostShift > MaxPostShift {
		return fmt.Errorf("%w: %d > %d", ErrPostShift, t.PostShift, MaxPostShift)
	}

	want := t.Stages * ValuesPerStage
	for i, b := range t.Bands {
		if len(b.Values) != want {
			return fmt.Errorf("%w: band %d has %d values, want %d", ErrCoefficientCount, i, len(b.Values), want)
		}
		// Edges are metadata; tables built from a flat sequence carry none.
		hasEdges := b.LowHz != 0 || b.HighHz != 0
		if hasEdges && (b.LowHz < 0 || b.HighHz <= b.LowHz) {
			return fmt.Errorf("%w: band %d spans %.1f-%.1f Hz", ErrBandEdges, i, b.LowHz, b.HighHz)
		}
		if t.SampleRate > 0 && b.HighHz > t.SampleRate/2 {
			return fmt.Errorf("%w: band %d upper edge %.1f Hz is above Nyquist", ErrBandEdges, i, b.HighHz)
		}
		for j := range i {
			if slices.Equal(t.Bands[j].Values, b.Values) {
				return fmt.Errorf("%w: band %d repeats band %d", ErrDuplicateBand, i, j)
			}
		}
	}
	return nil
}

// Flat returns the coefficients as one bands*stages*5 sequence, the layout
// emitted by the coefficient-design tool.
func (t *Table) Flat() []int32 {
	flat := make([]int32, 0, len(t.Bands)*t.Stages*ValuesPerStage)
	for _, b := range t.Bands {
		flat = append(flat, b.Values...)
	}
	return flat
}

// FromFlat splits a flat coefficient sequence into bands. Band names and
// edges are left empty; callers that know them should fill them in before
// validating.
func FromFlat(flat []int32, bands, stages int, postShift uint) (*Table, error) {
	if bands <= 0 {
		return nil, ErrNoBands
	}
	if stages <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrStageCount, stages)
	}
	per := stages * ValuesPerStage
	if len(flat) != bands*per {
		return nil, fmt.Errorf("%w: got %d values, want %d bands x %d", ErrCoefficientCount, len(flat), bands, per)
	}

	t := &Table{PostShift: postShift, Stages: stages, Bands: make([]BandCoefficients, bands)}
	for i := range t.Bands {
		t.Bands[i].Name = fmt.Sprintf("band %d", i+1)
		t.Bands[i].Values = slices.Clone(flat[i*per : (i+1)*per])
	}
	return t, nil
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	c := *t
	c.Bands = make([]BandCoefficients, len(t.Bands))
	for i, b := range t.Bands {
		c.Bands[i] = b
		c.Bands[i].Values = slices.Clone(b.Values)
	}
	return &c
}
