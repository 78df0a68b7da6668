// SPDX-License-Identifier: MIT
package fixed

import (
	"errors"
	"math"
	"testing"
)

func TestConverterRoundTripAllQ15(t *testing.T) {
	src := make([]int16, 1<<16)
	for i := range src {
		src[i] = int16(i + math.MinInt16)
	}
	wide := make([]int32, len(src))
	back := make([]int16, len(src))

	if err := Q15ToQ31.Widen(wide, src); err != nil {
		t.Fatalf("Widen: %v", err)
	}
	if err := Q15ToQ31.Narrow(back, wide); err != nil {
		t.Fatalf("Narrow: %v", err)
	}

	for i := range src {
		if back[i] != src[i] {
			t.Fatalf("round trip of %d returned %d", src[i], back[i])
		}
	}
}

func TestConverterWidenPreservesValue(t *testing.T) {
	tests := []struct {
		in   int16
		want int32
	}{
		{0, 0},
		{1, 1 << 16},
		{-1, -1 << 16},
		{math.MaxInt16, math.MaxInt16 << 16},
		{math.MinInt16, math.MinInt32},
	}

	dst := make([]int32, 1)
	for _, tt := range tests {
		if err := Q15ToQ31.Widen(dst, []int16{tt.in}); err != nil {
			t.Fatalf("Widen: %v", err)
		}
		if dst[0] != tt.want {
			t.Errorf("Widen(%d) = %d, want %d", tt.in, dst[0], tt.want)
		}
	}
}

func TestConverterNarrowSaturates(t *testing.T) {
	// A 12-bit widening leaves four bits of headroom above the int16 range.
	conv, err := NewConverter(12)
	if err != nil {
		t.Fatalf("NewConverter: %v", err)
	}

	tests := []struct {
		desc string
		in   int32
		want int16
	}{
		{"In range positive", 1000 << 12, 1000},
		{"In range negative", -1000 << 12, -1000},
		{"Exactly max", math.MaxInt16 << 12, math.MaxInt16},
		{"Just above max", (math.MaxInt16 + 1) << 12, math.MaxInt16},
		{"Far above max", math.MaxInt32, math.MaxInt16},
		{"Just below min", (math.MinInt16 - 1) << 12, math.MinInt16},
		{"Far below min", math.MinInt32, math.MinInt16},
	}

	dst := make([]int16, 1)
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if err := conv.Narrow(dst, []int32{tt.in}); err != nil {
				t.Fatalf("Narrow: %v", err)
			}
			if dst[0] != tt.want {
				t.Errorf("Narrow(%d) = %d, want %d", tt.in, dst[0], tt.want)
			}
			if (tt.in < 0) != (dst[0] < 0) {
				t.Errorf("Narrow(%d) changed sign to %d", tt.in, dst[0])
			}
		})
	}
}

func TestConverterNarrowTruncatesFraction(t *testing.T) {
	dst := make([]int16, 2)
	src := []int32{(5 << 16) + 0xFFFF, (-5 << 16) + 1}

	if err := Q15ToQ31.Narrow(dst, src); err != nil {
		t.Fatalf("Narrow: %v", err)
	}
	if dst[0] != 5 || dst[1] != -5 {
		t.Errorf("Narrow truncation = %v, want [5 -5]", dst)
	}
}

func TestConverterBlockLengthMismatch(t *testing.T) {
	if err := Q15ToQ31.Widen(make([]int32, 3), make([]int16, 4)); !errors.Is(err, ErrBlockLength) {
		t.Errorf("Widen mismatch: got %v, want ErrBlockLength", err)
	}
	if err := Q15ToQ31.Narrow(make([]int16, 4), make([]int32, 3)); !errors.Is(err, ErrBlockLength) {
		t.Errorf("Narrow mismatch: got %v, want ErrBlockLength", err)
	}
}

func TestNewConverterRejectsLargeShift(t *testing.T) {
	if _, err := NewConverter(MaxWideShift + 1); err == nil {
		t.Error("expected error for shift above MaxWideShift")
	}
	conv, err := NewConverter(MaxWideShift)
	if err != nil {
		t.Fatalf("NewConverter(%d): %v", MaxWideShift, err)
	}
	if conv != Q15ToQ31 {
		t.Errorf("NewConverter(%d) = %+v, want Q15ToQ31", MaxWideShift, conv)
	}
}

func TestConverterNoAllocsHotPath(t *testing.T) {
	src := make([]int16, 256)
	wide := make([]int32, 256)
	dst := make([]int16, 256)
	for i := range src {
		src[i] = int16(i * 97)
	}

	allocs := testing.AllocsPerRun(100, func() {
		_ = Q15ToQ31.Widen(wide, src)
		_ = Q15ToQ31.Narrow(dst, wide)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in conversion hot path, got %.1f", allocs)
	}
}

func BenchmarkConverterRoundTrip(b *testing.B) {
	src := make([]int16, 256)
	wide := make([]int32, 256)
	dst := make([]int16, 256)

	b.ReportAllocs()
	for b.Loop() {
		_ = Q15ToQ31.Widen(wide, src)
		_ = Q15ToQ31.Narrow(dst, wide)
	}
}
