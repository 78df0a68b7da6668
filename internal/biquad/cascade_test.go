// SPDX-License-Identifier: MIT
package biquad

import (
	"errors"
	"math"
	"math/big"
	"slices"
	"testing"

	"equalizer/internal/coeffs"
	"equalizer/pkg/fixed"
)

// 282.8 Hz to 565.7 Hz band of the default table.
func lowMid() []int32 { return coeffs.Default().Band(2) }

func newCascade(t testing.TB, p Precision, band int) *Cascade {
	t.Helper()
	table := coeffs.Default()
	c, err := NewCascade(p, table.Stages, table.Band(band), table.PostShift)
	if err != nil {
		t.Fatalf("NewCascade: %v", err)
	}
	return c
}

func sine(n int, freq, amp float64) []int32 {
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(math.Round(amp * math.Sin(2*math.Pi*freq*float64(i)/coeffs.DefaultSampleRate)))
	}
	return out
}

func TestImpulseResponseGolden(t *testing.T) {
	tests := []struct {
		precision Precision
		want      []int32
	}{
		{Standard, []int32{
			20635, 117759, 328633, 629798, 970270, 1300735, 1576563, 1760292,
			1823504, 1748042, 1526556, 1162406, 668969, 68433, -609828, -1331181,
		}},
		{Extended, []int32{
			20635, 117759, 328637, 629810, 970293, 1300773, 1576616, 1760360,
			1823588, 1748141, 1526666, 1162524, 669092, 68556, -609708, -1331066,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.precision.String(), func(t *testing.T) {
			c, err := NewCascade(tt.precision, 3, lowMid(), 4)
			if err != nil {
				t.Fatalf("NewCascade: %v", err)
			}
			src := make([]int32, len(tt.want))
			src[0] = 1 << 27
			dst := make([]int32, len(src))

			if err := c.Process(dst, src); err != nil {
				t.Fatalf("Process: %v", err)
			}
			if !slices.Equal(dst, tt.want) {
				t.Errorf("impulse response mismatch\n got %v\nwant %v", dst, tt.want)
			}
		})
	}
}

func TestZeroInputGivesZeroOutput(t *testing.T) {
	for _, p := range []Precision{Standard, Extended} {
		c := newCascade(t, p, 0)
		dst := make([]int32, 256)
		for i := range dst {
			dst[i] = -1
		}
		if err := c.Process(dst, make([]int32, 256)); err != nil {
			t.Fatalf("Process: %v", err)
		}
		for i, v := range dst {
			if v != 0 {
				t.Fatalf("%v: sample %d = %d, want 0", p, i, v)
			}
		}
	}
}

func TestResetRestoresInitialBehaviour(t *testing.T) {
	src := sine(300, 440, 1<<26)

	for _, p := range []Precision{Standard, Extended} {
		c := newCascade(t, p, 3)
		first := make([]int32, len(src))
		second := make([]int32, len(src))

		_ = c.Process(first, src)
		c.Reset()
		for _, v := range c.State() {
			if v != 0 {
				t.Fatalf("%v: state not cleared by Reset", p)
			}
		}
		_ = c.Process(second, src)

		if !slices.Equal(first, second) {
			t.Errorf("%v: output differs after Reset", p)
		}
	}
}

func TestBlockSplittingIsSeamless(t *testing.T) {
	src := sine(1000, 180, 1<<27)

	for _, p := range []Precision{Standard, Extended} {
		whole := make([]int32, len(src))
		_ = newCascade(t, p, 1).Process(whole, src)

		c := newCascade(t, p, 1)
		split := make([]int32, len(src))
		for off := 0; off < len(src); off += 96 {
			end := min(off+96, len(src))
			if err := c.Process(split[off:end], src[off:end]); err != nil {
				t.Fatalf("Process: %v", err)
			}
		}

		if !slices.Equal(whole, split) {
			t.Errorf("%v: block-wise output differs from single-call output", p)
		}
	}
}

func TestInPlaceProcessing(t *testing.T) {
	src := sine(256, 900, 1<<27)

	for _, p := range []Precision{Standard, Extended} {
		want := make([]int32, len(src))
		_ = newCascade(t, p, 3).Process(want, src)

		buf := slices.Clone(src)
		if err := newCascade(t, p, 3).Process(buf, buf); err != nil {
			t.Fatalf("Process: %v", err)
		}
		if !slices.Equal(buf, want) {
			t.Errorf("%v: in-place output differs", p)
		}
	}
}

// floatCascade is the unquantised direct-form-I reference of a cascade.
func floatCascade(cs []int32, postShift uint, src []int32) []float64 {
	scale := math.Ldexp(1, int(postShift)-31)
	buf := make([]float64, len(src))
	for i, v := range src {
		buf[i] = float64(v)
	}
	for s := 0; s < len(cs)/5; s++ {
		b0, b1, b2 := float64(cs[5*s])*scale, float64(cs[5*s+1])*scale, float64(cs[5*s+2])*scale
		a1, a2 := float64(cs[5*s+3])*scale, float64(cs[5*s+4])*scale
		var x1, x2, y1, y2 float64
		for i, x := range buf {
			y := b0*x + b1*x1 + b2*x2 + a1*y1 + a2*y2
			x2, x1 = x1, x
			y2, y1 = y1, y
			buf[i] = y
		}
	}
	return buf
}

func rmsError(got []int32, want []float64) float64 {
	var sum float64
	for i := range got {
		d := float64(got[i]) - want[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(got)))
}

func TestExtendedPrecisionTracksReference(t *testing.T) {
	// The lowest band has poles closest to the unit circle, where the
	// quantised feedback of the standard form hurts most.
	table := coeffs.Default()
	src := sine(2048, 100, 1<<27)
	ref := floatCascade(table.Band(0), table.PostShift, src)

	errs := map[Precision]float64{}
	for _, p := range []Precision{Standard, Extended} {
		out := make([]int32, len(src))
		_ = newCascade(t, p, 0).Process(out, src)
		errs[p] = rmsError(out, ref)
	}

	if errs[Extended]*10 > errs[Standard] {
		t.Errorf("extended rms error %.1f not well below standard %.1f", errs[Extended], errs[Standard])
	}
	if errs[Extended] > 64 {
		t.Errorf("extended rms error %.1f too large", errs[Extended])
	}
}

func TestNewCascadeErrors(t *testing.T) {
	valid := lowMid()

	tests := []struct {
		desc      string
		precision Precision
		stages    int
		coeffs    []int32
		postShift uint
		want      error
	}{
		{"Zero stages", Standard, 0, nil, 4, ErrStageCount},
		{"Short coefficients", Standard, 3, valid[:14], 4, ErrCoefficientCount},
		{"Extra coefficients", Extended, 2, valid, 4, ErrCoefficientCount},
		{"Post shift too large", Standard, 3, valid, 31, ErrPostShift},
		{"Unknown precision", Precision(7), 3, valid, 4, ErrPrecision},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			_, err := NewCascade(tt.precision, tt.stages, tt.coeffs, tt.postShift)
			if !errors.Is(err, tt.want) {
				t.Errorf("NewCascade() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestProcessLengthMismatch(t *testing.T) {
	c := newCascade(t, Standard, 0)
	if err := c.Process(make([]int32, 10), make([]int32, 11)); !errors.Is(err, fixed.ErrBlockLength) {
		t.Errorf("Process() = %v, want ErrBlockLength", err)
	}
	if err := c.Process(nil, nil); err != nil {
		t.Errorf("empty block: %v", err)
	}
}

func TestStateLayout(t *testing.T) {
	for _, p := range []Precision{Standard, Extended} {
		c := newCascade(t, p, 2)
		if got := len(c.State()); got != StateWords*3 {
			t.Errorf("%v: state has %d words, want %d", p, got, StateWords*3)
		}

		src := []int32{1 << 20, 2 << 20, 3 << 20}
		_ = c.Process(make([]int32, 3), src)
		st := c.State()
		// First stage sees the raw input.
		if st[0] != 3<<20 || st[1] != 2<<20 {
			t.Errorf("%v: stage 0 input history = %d, %d", p, st[0], st[1])
		}

		st[0] = 0
		if c.State()[0] == 0 {
			t.Errorf("%v: State() must return a copy", p)
		}
	}
}

func TestMul64x32(t *testing.T) {
	tests := []struct {
		y int64
		a int32
	}{
		{1 << 40, 3},
		{-(1 << 40), 3},
		{math.MaxInt64, math.MaxInt32},
		{math.MinInt64, math.MaxInt32},
		{123456789012345, -98765432},
		{-1, 1},
		{0xFFFFFFFF, math.MinInt32},
	}

	for _, tt := range tests {
		want := new(big.Int).Mul(big.NewInt(tt.y), big.NewInt(int64(tt.a)))
		want.Rsh(want, 32)
		if got := mul64x32(tt.y, tt.a); got != want.Int64() {
			t.Errorf("mul64x32(%d, %d) = %d, want %d", tt.y, tt.a, got, want.Int64())
		}
	}
}

func TestParsePrecision(t *testing.T) {
	tests := []struct {
		in      string
		want    Precision
		wantErr bool
	}{
		{"standard", Standard, false},
		{"STD", Standard, false},
		{"32", Standard, false},
		{" extended ", Extended, false},
		{"64", Extended, false},
		{"double", 0, true},
	}

	for _, tt := range tests {
		got, err := ParsePrecision(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParsePrecision(%q) = %v, %v", tt.in, got, err)
		}
	}

	var p Precision
	if err := p.UnmarshalText([]byte("ext")); err != nil || p != Extended {
		t.Errorf("UnmarshalText(ext) = %v, %v", p, err)
	}
	if text, err := Extended.MarshalText(); err != nil || string(text) != "extended" {
		t.Errorf("MarshalText = %q, %v", text, err)
	}
}

func TestProcessDoesNotAllocate(t *testing.T) {
	src := sine(256, 1000, 1<<26)
	dst := make([]int32, len(src))

	for _, p := range []Precision{Standard, Extended} {
		c := newCascade(t, p, 4)
		allocs := testing.AllocsPerRun(100, func() {
			_ = c.Process(dst, src)
		})
		if allocs != 0 {
			t.Errorf("%v: expected 0 allocations, got %f", p, allocs)
		}
	}
}

func BenchmarkCascade(b *testing.B) {
	src := sine(256, 1000, 1<<26)
	dst := make([]int32, len(src))

	for _, p := range []Precision{Standard, Extended} {
		b.Run(p.String(), func(b *testing.B) {
			c := newCascade(b, p, 2)
			b.ReportAllocs()
			for b.Loop() {
				_ = c.Process(dst, src)
			}
		})
	}
}
