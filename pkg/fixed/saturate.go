// SPDX-License-Identifier: MIT
/*
Package fixed provides the fixed-point primitives used by the equalizer:
Q15/Q31 block conversion, saturating arithmetic, power-of-two headroom
helpers and per-band gain.

Design Principles:
- Zero Allocations: every block operation writes into caller-owned slices
- Saturate, Never Wrap: values leaving a format's range clip to its limits
- Deterministic: integer-only arithmetic, identical results on every platform

Usage:

	conv := fixed.Q15ToQ31
	wide := make([]int32, 256)
	_ = conv.Widen(wide, pcm)

	// 1/8 attenuation before summing six bands.
	shift := fixed.HeadroomBits(6) // 3

----------------------------------------------------------------------

Formats:

	Q15  int16, one sign bit, 15 fractional bits. Range [-1, 1 - 2^-15].
	Q31  int32, one sign bit, 31 fractional bits. Range [-1, 1 - 2^-31].

	Widening a Q15 sample by 16 bits produces the Q31 sample with the
	same value; the extra bits are the precision the filters work in.
*/
package fixed

import "math"

// Sat32 clips a 64-bit intermediate to the int32 range.
func Sat32(v int64) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int32(v)
}

// Sat16 clips a 32-bit value to the int16 range.
func Sat16(v int32) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// AddSat32 adds two Q31 values, clipping instead of wrapping.
func AddSat32(a, b int32) int32 {
	return Sat32(int64(a) + int64(b))
}

// ShiftSat32 scales v by 2^shift. A positive shift moves left and
// saturates; a negative shift is an arithmetic right shift.
func ShiftSat32(v int32, shift int) int32 {
	switch {
	case shift > 0:
		if shift > 32 {
			shift = 32
		}
		return Sat32(int64(v) << uint(shift))
	case shift < 0:
		if shift < -31 {
			shift = -31
		}
		return v >> uint(-shift)
	default:
		return v
	}
}

// ShiftRightBlock applies an arithmetic right shift to every sample.
// dst and src may be the same slice.
func ShiftRightBlock(dst, src []int32, shift uint) error {
	if len(dst) != len(src) {
		return ErrBlockLength
	}
	for i, v := range src {
		dst[i] = v >> shift
	}
	return nil
}

// ShiftLeftSatBlock applies a saturating left shift to every sample.
// dst and src may be the same slice.
func ShiftLeftSatBlock(dst, src []int32, shift uint) error {
	if len(dst) != len(src) {
		return ErrBlockLength
	}
	for i, v := range src {
		dst[i] = Sat32(int64(v) << shift)
	}
	return nil
}

// AddSatBlock accumulates src into dst with saturating addition.
func AddSatBlock(dst, src []int32) error {
	if len(dst) != len(src) {
		return ErrBlockLength
	}
	for i, v := range src {
		dst[i] = Sat32(int64(dst[i]) + int64(v))
	}
	return nil
}
