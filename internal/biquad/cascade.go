// SPDX-License-Identifier: MIT
/*
Package biquad implements fixed-point cascades of second-order IIR sections
in direct form I.

Each stage computes, with a 64-bit accumulator,

	acc = b0*x[n] + b1*x[n-1] + b2*x[n-2] + a1*y[n-1] + a2*y[n-2]

using coefficients scaled by 2^-postShift, and emits sat32(acc >> (31-postShift)).
The output of stage k is the input of stage k+1.

Two precisions are provided. Standard keeps the output history as the
saturated Q31 stage output. Extended keeps it as the full accumulator in
Q63 and feeds it back through a 64x32 multiply, which removes most of the
feedback quantisation noise of narrow low-frequency sections.

Both precisions run through the same kernel; they differ only in how the
output history is stored and multiplied.
*/
package biquad

import (
	"errors"
	"fmt"
	"strings"

	"equalizer/internal/coeffs"
	"equalizer/pkg/fixed"
)

var (
	ErrStageCount       = errors.New("biquad: stage count must be positive")
	ErrCoefficientCount = errors.New("biquad: coefficient count must be 5 per stage")
	ErrPostShift        = errors.New("biquad: post shift out of range")
	ErrPrecision        = errors.New("biquad: unknown precision")
)

// Precision selects the output-history representation of a cascade.
type Precision int

const (
	Standard Precision = iota // 32-bit output history
	Extended                  // 64-bit output history
)

func (p Precision) String() string {
	switch p {
	case Standard:
		return "standard"
	case Extended:
		return "extended"
	default:
		return fmt.Sprintf("Precision(%d)", int(p))
	}
}

// ParsePrecision accepts "standard"/"std"/"32" and "extended"/"ext"/"64".
func ParsePrecision(s string) (Precision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standard", "std", "32":
		return Standard, nil
	case "extended", "ext", "64":
		return Extended, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrPrecision, s)
}

// MarshalText implements encoding.TextMarshaler so precisions read naturally
// in YAML configs.
func (p Precision) MarshalText() ([]byte, error) {
	if p != Standard && p != Extended {
		return nil, fmt.Errorf("%w: %d", ErrPrecision, int(p))
	}
	return []byte(p.String()), nil
}

func (p *Precision) UnmarshalText(text []byte) error {
	v, err := ParsePrecision(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// StateWords is the number of state words one stage keeps: x[n-1], x[n-2],
// y[n-1] and y[n-2], in that order.
const StateWords = 4

// Cascade is a chain of biquad stages with its own filter state. A Cascade
// is not safe for concurrent use.
type Cascade struct {
	precision Precision
	stages    int
	postShift uint
	coeffs    []int32

	// Exactly one of these is allocated, depending on precision.
	state32 []int32
	state64 []int64
}

// NewCascade binds a cascade to coeffs, which holds five values per stage
// and must not be modified while the cascade is in use. The state starts
// zeroed.
func NewCascade(p Precision, stages int, coeffs []int32, postShift uint) (*Cascade, error) {
	if stages < 1 {
		return nil, fmt.Errorf("%w: %d", ErrStageCount, stages)
	}
	if len(coeffs) != stages*coeffsPerStage {
		return nil, fmt.Errorf("%w: got %d values for %d stages", ErrCoefficientCount, len(coeffs), stages)
	}
	if postShift > maxPostShift {
		return nil, fmt.Errorf("%w: %d", ErrPostShift, postShift)
	}

	c := &Cascade{
		precision: p,
		stages:    stages,
		postShift: postShift,
		coeffs:    coeffs,
	}
	switch p {
	case Standard:
		c.state32 = make([]int32, StateWords*stages)
	case Extended:
		c.state64 = make([]int64, StateWords*stages)
	default:
		return nil, fmt.Errorf("%w: %d", ErrPrecision, int(p))
	}
	return c, nil
}

const (
	coeffsPerStage = coeffs.ValuesPerStage
	maxPostShift   = coeffs.MaxPostShift
)

// Process filters src into dst. Both must have the same length; dst may be
// src. State carries over between calls so consecutive blocks form one
// continuous stream.
func (c *Cascade) Process(dst, src []int32) error {
	if len(dst) != len(src) {
		return fixed.ErrBlockLength
	}
	if len(src) == 0 {
		return nil
	}
	if c.precision == Extended {
		filter[int64, extendedPolicy](c.coeffs, c.state64, c.postShift, dst, src)
	} else {
		filter[int32, standardPolicy](c.coeffs, c.state32, c.postShift, dst, src)
	}
	return nil
}

// Reset zeroes the filter state.
func (c *Cascade) Reset() {
	clear(c.state32)
	clear(c.state64)
}

func (c *Cascade) Stages() int          { return c.stages }
func (c *Cascade) PostShift() uint      { return c.postShift }
func (c *Cascade) Precision() Precision { return c.precision }

// State returns a copy of the filter state, widened to 64 bits, laid out as
// StateWords values per stage.
func (c *Cascade) State() []int64 {
	out := make([]int64, StateWords*c.stages)
	if c.precision == Extended {
		copy(out, c.state64)
		return out
	}
	for i, v := range c.state32 {
		out[i] = int64(v)
	}
	return out
}

type word interface{ ~int32 | ~int64 }

// policy decides how a stage stores and multiplies its output history.
type policy[W word] interface {
	feedback(y W, a int32) int64
	history(acc int64, postShift uint) W
}

type standardPolicy struct{}

func (standardPolicy) feedback(y int32, a int32) int64 { return int64(y) * int64(a) }

func (standardPolicy) history(acc int64, postShift uint) int32 {
	return fixed.Sat32(acc >> (31 - postShift))
}

type extendedPolicy struct{}

func (extendedPolicy) feedback(y int64, a int32) int64 { return mul64x32(y, a) }

// history keeps the accumulator as Q63. The shift may wrap for outputs far
// outside Q31 range; those only occur for unstable coefficient sets.
func (extendedPolicy) history(acc int64, postShift uint) int64 {
	return acc << (postShift + 1)
}

// mul64x32 returns floor(y*a / 2^32) without a 96-bit intermediate.
func mul64x32(y int64, a int32) int64 {
	lo := int64(uint64(y)&0xFFFFFFFF) * int64(a)
	return lo>>32 + (y>>32)*int64(a)
}

// filter runs every stage over the whole block before moving to the next
// one. The first stage reads src, later stages work in place on dst.
func filter[W word, P policy[W]](cs []int32, state []W, postShift uint, dst, src []int32) {
	var p P
	shift := 31 - postShift
	in := src

	for s := 0; s < len(cs)/coeffsPerStage; s++ {
		k := cs[s*coeffsPerStage : (s+1)*coeffsPerStage : (s+1)*coeffsPerStage]
		b0, b1, b2 := int64(k[0]), int64(k[1]), int64(k[2])
		a1, a2 := k[3], k[4]

		st := state[s*StateWords : (s+1)*StateWords : (s+1)*StateWords]
		x1, x2, y1, y2 := st[0], st[1], st[2], st[3]

		for n, x := range in {
			acc := b0*int64(x) + b1*int64(x1) + b2*int64(x2) +
				p.feedback(y1, a1) + p.feedback(y2, a2)

			x2, x1 = x1, W(x)
			y2, y1 = y1, p.history(acc, postShift)
			dst[n] = fixed.Sat32(acc >> shift)
		}

		st[0], st[1], st[2], st[3] = x1, x2, y1, y2
		in = dst
	}
}
