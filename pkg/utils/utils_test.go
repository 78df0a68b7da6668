// SPDX-License-Identifier: MIT
package utils

import (
	"errors"
	"math"
	"os"
	"testing"
)

const (
	testSize       = 1024
	testSampleRate = 16000
)

var testMagnitudes []float64

func TestMain(m *testing.M) {
	testMagnitudes = make([]float64, testSize)

	// A "hill" with its peak at testSize/4.
	for i := range testMagnitudes {
		testMagnitudes[i] = math.Exp(-0.01 * math.Pow(float64(i-testSize/4), 2))
	}

	os.Exit(m.Run())
}

func TestMockTransport(t *testing.T) {
	mt := &MockTransport{}
	if mt.Last() != nil {
		t.Error("Last() on an empty mock should be nil")
	}

	data := []float64{0.1, 0.2, 0.3}
	if err := mt.Send(data); err != nil {
		t.Fatalf("Send: %v", err)
	}
	data[0] = 999.999
	if got := mt.Last().([]float64); got[0] != 0.1 {
		t.Error("MockTransport stored a reference instead of a copy")
	}

	mt.Err = errors.New("unplugged")
	if err := mt.Send("event"); !errors.Is(err, mt.Err) {
		t.Errorf("Send() = %v, want configured error", err)
	}
	if n := len(mt.Messages()); n != 2 {
		t.Errorf("recorded %d messages, want 2", n)
	}
	if mt.Last() != "event" {
		t.Errorf("Last() = %v", mt.Last())
	}

	_ = mt.Close()
	if !mt.Closed() {
		t.Error("Close not recorded")
	}
}

func TestGenerateTone(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		frequency float64
		amplitude float64
	}{
		{"Low", 1600, 100, 10000},
		{"Mid", 1600, 1000, 20000},
		{"Clamped", 1600, 500, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GenerateTone(tt.size, 0, testSampleRate, tt.frequency, tt.amplitude)
			if len(result) != tt.size {
				t.Fatalf("buffer size = %d, want %d", len(result), tt.size)
			}

			crossings := 0
			for i := 1; i < len(result); i++ {
				if (result[i-1] < 0) != (result[i] < 0) {
					crossings++
				}
			}
			want := 2 * tt.frequency * float64(tt.size) / testSampleRate
			if math.Abs(float64(crossings)-want) > 0.2*want {
				t.Errorf("zero crossings = %d, expected about %.0f", crossings, want)
			}

			peak := 0
			for _, v := range result {
				peak = max(peak, int(v), -int(v))
			}
			if want := min(tt.amplitude, math.MaxInt16); math.Abs(float64(peak)-want) > 0.01*want+1 {
				t.Errorf("peak = %d, want about %.0f", peak, want)
			}
		})
	}
}

func TestGenerateToneContinues(t *testing.T) {
	whole := GenerateTone(512, 0, testSampleRate, 440, 8000)
	second := GenerateTone(256, 256, testSampleRate, 440, 8000)
	for i, v := range second {
		if whole[256+i] != v {
			t.Fatalf("sample %d: %d != %d", i, v, whole[256+i])
		}
	}
}

func TestGenerateSineWave(t *testing.T) {
	result := GenerateSineWave(testSize, testSampleRate, 440)
	if rms := RMS(result); math.Abs(rms-0.9*math.MaxInt16/math.Sqrt2) > 300 {
		t.Errorf("RMS = %.0f", rms)
	}
}

func TestGenerateTestSignal(t *testing.T) {
	result := GenerateTestSignal(8000, testSampleRate)
	peak := 0
	for _, v := range result {
		peak = max(peak, int(v), -int(v))
	}
	if peak > int(math.Floor(0.75*math.MaxInt16))+1 || peak < int(math.Floor(0.6*math.MaxInt16)) {
		t.Errorf("peak = %d", peak)
	}
	// sin + 0.25 sin has a power of (1 + 1/16) / 2 in units of the base tone.
	scale := 0.75 * math.MaxInt16 / 1.25
	if rms, want := RMS(result), scale*math.Sqrt(17.0/32); math.Abs(rms-want) > 0.01*want {
		t.Errorf("RMS = %.0f, want %.0f", rms, want)
	}
}

func TestGenerateImpulse(t *testing.T) {
	imp := GenerateImpulse(4, 1000)
	if imp[0] != 1000 || imp[1] != 0 || imp[3] != 0 {
		t.Errorf("impulse = %v", imp)
	}
	if len(GenerateImpulse(0, 1)) != 0 {
		t.Error("empty impulse")
	}
}

func TestRMS(t *testing.T) {
	if RMS(nil) != 0 {
		t.Error("RMS(nil) != 0")
	}
	if got := RMS([]int16{3, -3, 3, -3}); got != 3 {
		t.Errorf("RMS = %v, want 3", got)
	}
}

func TestFindPeakBin(t *testing.T) {
	tests := []struct {
		name     string
		mags     []float64
		start    int
		end      int
		expected int
	}{
		{"Full Range", testMagnitudes, 0, testSize - 1, testSize / 4},
		{"Partial Range Start", testMagnitudes, testSize / 8, testSize - 1, testSize / 4},
		{"Partial Range End", testMagnitudes, 0, testSize / 3, testSize / 4},
		{"Negative Start", testMagnitudes, -10, testSize - 1, testSize / 4},
		{"Out of Range End", testMagnitudes, 0, testSize * 2, testSize / 4},
		{"Empty Slice", []float64{}, 0, 10, 0},
		{"Single Value", []float64{1.0}, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindPeakBin(tt.mags, tt.start, tt.end); got != tt.expected {
				t.Errorf("FindPeakBin() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestFindPeakBinDoesNotAllocate(t *testing.T) {
	allocs := testing.AllocsPerRun(100, func() {
		FindPeakBin(testMagnitudes, 0, len(testMagnitudes)-1)
	})
	if allocs > 0 {
		t.Errorf("FindPeakBin allocated memory: got %.1f allocs, want 0", allocs)
	}
}

func BenchmarkGenerateTestSignal(b *testing.B) {
	benchmarks := []struct {
		name string
		size int
	}{
		{"Small", 64},
		{"Standard", 256},
		{"Large", 8192},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				GenerateTestSignal(bm.size, testSampleRate)
			}
		})
	}
}
