// SPDX-License-Identifier: MIT
package fixed

import (
	"errors"
	"fmt"
)

// ErrBlockLength is returned when source and destination blocks differ in
// length. It indicates a wiring mistake, not a data error.
var ErrBlockLength = errors.New("fixed: block length mismatch")

// ErrShiftRange is returned for a widening shift above MaxWideShift.
var ErrShiftRange = errors.New("fixed: shift out of range")

// MaxWideShift is the largest widening shift; beyond it an int16 no longer
// fits in an int32 after shifting.
const MaxWideShift = 16

// Converter moves blocks between the narrow int16 I/O format and the
// wide int32 working format. The zero value performs no shift.
type Converter struct {
	shift uint
}

// Q15ToQ31 is the converter used by the default pipeline: Q15 samples
// become Q31 samples with the same value.
var Q15ToQ31 = Converter{shift: MaxWideShift}

// NewConverter returns a converter that widens by shift bits.
func NewConverter(shift uint) (Converter, error) {
	if shift > MaxWideShift {
		return Converter{}, fmt.Errorf("%w: widening by %d exceeds %d", ErrShiftRange, shift, MaxWideShift)
	}
	return Converter{shift: shift}, nil
}

// Shift returns the number of bits between the narrow and wide formats.
func (c Converter) Shift() uint { return c.shift }

// Widen expands src into dst. The conversion is lossless.
func (c Converter) Widen(dst []int32, src []int16) error {
	if len(dst) != len(src) {
		return ErrBlockLength
	}
	for i, v := range src {
		dst[i] = int32(v) << c.shift
	}
	return nil
}

// Narrow compresses src into dst. The extra precision is truncated toward
// negative infinity and values outside the int16 range are clipped.
func (c Converter) Narrow(dst []int16, src []int32) error {
	if len(dst) != len(src) {
		return ErrBlockLength
	}
	for i, v := range src {
		dst[i] = Sat16(v >> c.shift)
	}
	return nil
}
