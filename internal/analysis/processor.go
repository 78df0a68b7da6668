// SPDX-License-Identifier: MIT
package analysis

// BlockProcessor analyzes blocks of Q15 samples. Implementations are called
// from the processing loop and must not block.
type BlockProcessor interface {
	Process(block []int16)
}

// SpectrumProvider gives readers on other goroutines access to the latest
// magnitude spectrum.
type SpectrumProvider interface {
	MagnitudesInto(dst []float64) error
	FrequencyForBin(bin int) float64
	Bins() int
}

// LevelProvider gives readers on other goroutines access to the latest band
// levels, in dBFS.
type LevelProvider interface {
	NumBands() int
	LevelsInto(dst []float64) error
}
