// SPDX-License-Identifier: MIT
package utils

import "math"

// Test signal made of a base tone with a weaker high tone on top.
const (
	TestSignalBaseHz  = 80.0
	TestSignalNoiseHz = 2000.0
	TestSignalNoise   = 0.25
	testSignalPeak    = 0.75 // of Q15 full scale
)

// GenerateTone returns size Q15 samples of a sine with the given peak
// amplitude. offset is the index of the first sample, so consecutive
// blocks continue without a phase jump.
func GenerateTone(size, offset int, sampleRate, frequency, amplitude float64) []int16 {
	buffer := make([]int16, size)
	for i := range buffer {
		t := float64(offset+i) / sampleRate
		buffer[i] = toQ15(amplitude * math.Sin(2*math.Pi*frequency*t))
	}
	return buffer
}

// GenerateSineWave returns a sine at 90% of full scale.
func GenerateSineWave(size int, sampleRate, frequency float64) []int16 {
	return GenerateTone(size, 0, sampleRate, frequency, 0.9*math.MaxInt16)
}

// GenerateTestSignal returns the equalizer test signal: an 80 Hz sine with a
// quarter-amplitude 2 kHz sine added, peaking at 75% of full scale.
func GenerateTestSignal(size int, sampleRate float64) []int16 {
	scale := testSignalPeak * math.MaxInt16 / (1 + TestSignalNoise)
	buffer := make([]int16, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		v := math.Sin(2*math.Pi*TestSignalBaseHz*t) +
			TestSignalNoise*math.Sin(2*math.Pi*TestSignalNoiseHz*t)
		buffer[i] = toQ15(scale * v)
	}
	return buffer
}

// GenerateImpulse returns a unit impulse of the given height at sample 0.
func GenerateImpulse(size int, height int16) []int16 {
	buffer := make([]int16, size)
	if size > 0 {
		buffer[0] = height
	}
	return buffer
}

func toQ15(v float64) int16 {
	return int16(math.Max(math.MinInt16, math.Min(math.MaxInt16, math.Round(v))))
}

// RMS returns the root mean square of a Q15 block in sample units.
func RMS(block []int16) float64 {
	if len(block) == 0 {
		return 0
	}
	var sum float64
	for _, v := range block {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(block)))
}

// FindPeakBin returns the index of the largest magnitude in
// magnitudes[startBin:endBin+1], clamping the range to the slice.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
