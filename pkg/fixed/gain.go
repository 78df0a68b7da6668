// SPDX-License-Identifier: MIT
package fixed

import (
	"errors"
	"fmt"
	"math"
)

// ErrGainRange is returned by Validate for gains Apply cannot evaluate.
var ErrGainRange = errors.New("fixed: gain out of range")

// Gain limits. The range keeps every intermediate of Apply inside int64.
const (
	MaxGainShift = 31
	MinGainDB    = -96.0
	MaxGainDB    = 24.0
)

// Gain scales a Q31 sample by Fract * 2^Shift, where Fract is a Q31
// mantissa. A zero Fract selects an exact power of two, so the zero Gain
// is unity and leaves samples untouched.
type Gain struct {
	Fract int32 `yaml:"fract"`
	Shift int   `yaml:"shift"`
}

// Unity is the no-op gain.
var Unity = Gain{}

// ShiftGain returns the exact gain 2^shift.
func ShiftGain(shift int) Gain {
	return Gain{Shift: shift}
}

// GainFromDB converts a decibel value into the nearest representable gain.
// Values are clamped to [MinGainDB, MaxGainDB]; exact powers of two are
// represented without a mantissa.
func GainFromDB(db float64) Gain {
	if math.IsNaN(db) {
		return Unity
	}
	db = math.Max(MinGainDB, math.Min(MaxGainDB, db))

	frac, exp := math.Frexp(math.Pow(10, db/20))
	if frac == 0.5 {
		return Gain{Shift: exp - 1}
	}

	fract := math.Round(frac * (1 << 31))
	if fract > math.MaxInt32 {
		fract = math.MaxInt32
	}
	return Gain{Fract: int32(fract), Shift: exp}
}

// IsUnity reports whether the gain leaves samples unchanged.
func (g Gain) IsUnity() bool {
	return g.Fract == 0 && g.Shift == 0
}

// Validate reports gains that Apply cannot evaluate safely.
func (g Gain) Validate() error {
	if g.Fract < 0 {
		return fmt.Errorf("%w: mantissa %d is negative", ErrGainRange, g.Fract)
	}
	if g.Shift > MaxGainShift || g.Shift < -MaxGainShift {
		return fmt.Errorf("%w: shift %d outside ±%d", ErrGainRange, g.Shift, MaxGainShift)
	}
	return nil
}

// Linear returns the gain as a floating point factor.
func (g Gain) Linear() float64 {
	scale := math.Ldexp(1, g.Shift)
	if g.Fract == 0 {
		return scale
	}
	return float64(g.Fract) / (1 << 31) * scale
}

// DB returns the gain in decibels.
func (g Gain) DB() float64 {
	return 20 * math.Log10(g.Linear())
}

func (g Gain) String() string {
	return fmt.Sprintf("%+.2f dB", g.DB())
}

// Apply scales one sample, saturating on overflow.
func (g Gain) Apply(v int32) int32 {
	p := int64(v)
	if g.Fract != 0 {
		p = (p * int64(g.Fract)) >> 31
	}
	switch {
	case g.Shift > 0:
		p <<= uint(g.Shift)
	case g.Shift < 0:
		p >>= uint(-g.Shift)
	}
	return Sat32(p)
}

// ApplyBlock scales src into dst. Unity gains copy without arithmetic.
func (g Gain) ApplyBlock(dst, src []int32) error {
	if len(dst) != len(src) {
		return ErrBlockLength
	}
	if g.IsUnity() {
		copy(dst, src)
		return nil
	}
	for i, v := range src {
		dst[i] = g.Apply(v)
	}
	return nil
}
