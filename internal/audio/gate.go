// SPDX-License-Identifier: MIT
package audio

import "math"

// defaultGateThreshold is about -60 dBFS.
const defaultGateThreshold = math.MaxInt16 / 1000

// Bypass routes the input straight to the output, skipping the equalizer.
func (e *Engine) Bypass(on bool) { e.bypass.Store(on) }

func (e *Engine) Bypassed() bool { return e.bypass.Load() }

// EnableGate mutes blocks whose input peak is below the gate threshold.
func (e *Engine) EnableGate() {
	e.gateEnabled.Store(true)
}

func (e *Engine) DisableGate() {
	e.gateEnabled.Store(false)
}

// SetGateThreshold adjusts the noise gate threshold.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (e *Engine) SetGateThreshold(threshold float64) {
	threshold = math.Max(0, math.Min(threshold, 1))
	e.gateThreshold.Store(int32(threshold * (math.MaxInt16 + 1)))
}

// GetGateThreshold returns the current noise gate threshold as a float64.
func (e *Engine) GetGateThreshold() float64 {
	return float64(e.gateThreshold.Load()) / (math.MaxInt16 + 1)
}

// peakAbs returns the largest absolute sample without branching.
func peakAbs(block []int16) int32 {
	var peak int32
	for _, v := range block {
		sample := int32(v)
		mask := sample >> 31
		amplitude := (sample ^ mask) - mask
		diff := amplitude - peak
		peak += (diff & (diff >> 31)) ^ diff
	}
	return peak
}
