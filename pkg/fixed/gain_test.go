// SPDX-License-Identifier: MIT
package fixed

import (
	"math"
	"testing"
)

func TestGainZeroValueIsUnity(t *testing.T) {
	var g Gain
	if !g.IsUnity() {
		t.Fatal("zero Gain should be unity")
	}

	src := []int32{0, 1, -1, math.MaxInt32, math.MinInt32, 123456789}
	dst := make([]int32, len(src))
	if err := g.ApplyBlock(dst, src); err != nil {
		t.Fatalf("ApplyBlock: %v", err)
	}
	for i := range src {
		if dst[i] != src[i] {
			t.Errorf("unity gain changed %d to %d", src[i], dst[i])
		}
	}
}

func TestShiftGainIsExact(t *testing.T) {
	tests := []struct {
		shift int
		in    int32
		want  int32
	}{
		{1, 1000, 2000},
		{-1, 1000, 500},
		{3, -7, -56},
		{-3, -56, -7},
		{2, 1 << 30, math.MaxInt32},
	}

	for _, tt := range tests {
		if got := ShiftGain(tt.shift).Apply(tt.in); got != tt.want {
			t.Errorf("ShiftGain(%d).Apply(%d) = %d, want %d", tt.shift, tt.in, got, tt.want)
		}
	}
}

func TestGainFromDB(t *testing.T) {
	tests := []struct {
		db       float64
		wantUnit bool
	}{
		{0, true},
		{-6, false},
		{3, false},
		{12, false},
		{-40, false},
	}

	for _, tt := range tests {
		g := GainFromDB(tt.db)
		if g.IsUnity() != tt.wantUnit {
			t.Errorf("GainFromDB(%v).IsUnity() = %v, want %v", tt.db, g.IsUnity(), tt.wantUnit)
		}
		if err := g.Validate(); err != nil {
			t.Errorf("GainFromDB(%v) invalid: %v", tt.db, err)
		}
		if math.Abs(g.DB()-tt.db) > 1e-6 {
			t.Errorf("GainFromDB(%v).DB() = %v", tt.db, g.DB())
		}
	}
}

func TestGainFromDBPowerOfTwo(t *testing.T) {
	g := GainFromDB(20 * math.Log10(4))
	// Pow(10, log10(4)) may not be exactly 4; either form must be within an LSB.
	in := int32(1 << 20)
	if got := g.Apply(in); math.Abs(float64(got)-4*float64(in)) > 4 {
		t.Errorf("+12.04 dB applied to %d = %d, want about %d", in, got, 4*in)
	}
}

func TestGainFromDBClamps(t *testing.T) {
	if got := GainFromDB(200).DB(); math.Abs(got-MaxGainDB) > 1e-6 {
		t.Errorf("GainFromDB(200) = %v dB, want %v", got, MaxGainDB)
	}
	if got := GainFromDB(-500).DB(); math.Abs(got-MinGainDB) > 1e-6 {
		t.Errorf("GainFromDB(-500) = %v dB, want %v", got, MinGainDB)
	}
	if !GainFromDB(math.NaN()).IsUnity() {
		t.Error("GainFromDB(NaN) should be unity")
	}
}

func TestGainApplyMatchesLinear(t *testing.T) {
	gains := []float64{-18, -6.5, -1, 1, 4.5, 9}
	inputs := []int32{1 << 24, -(1 << 24), 1 << 26, 12345678}

	for _, db := range gains {
		g := GainFromDB(db)
		// Truncation error is below one LSB before the power-of-two shift.
		tolerance := math.Ldexp(1, max(g.Shift, 0))
		for _, in := range inputs {
			want := float64(in) * g.Linear()
			got := g.Apply(in)
			if math.Abs(float64(got)-want) > tolerance {
				t.Errorf("%v dB applied to %d = %d, want %.1f", db, in, got, want)
			}
		}
	}
}

func TestGainApplySaturates(t *testing.T) {
	g := GainFromDB(12)
	if got := g.Apply(math.MaxInt32 / 2); got != math.MaxInt32 {
		t.Errorf("positive overflow: got %d, want %d", got, int32(math.MaxInt32))
	}
	if got := g.Apply(math.MinInt32 / 2); got != math.MinInt32 {
		t.Errorf("negative overflow: got %d, want %d", got, int32(math.MinInt32))
	}
}

func TestGainValidate(t *testing.T) {
	tests := []struct {
		desc    string
		g       Gain
		wantErr bool
	}{
		{"Unity", Unity, false},
		{"Max shift", ShiftGain(MaxGainShift), false},
		{"Shift too large", ShiftGain(MaxGainShift + 1), true},
		{"Shift too small", ShiftGain(-MaxGainShift - 1), true},
		{"Negative mantissa", Gain{Fract: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			err := tt.g.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func BenchmarkGainApplyBlock(b *testing.B) {
	g := GainFromDB(-3)
	src := make([]int32, 256)
	dst := make([]int32, 256)
	for i := range src {
		src[i] = int32(i) << 20
	}

	b.ReportAllocs()
	for b.Loop() {
		_ = g.ApplyBlock(dst, src)
	}
}
