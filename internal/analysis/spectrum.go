// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	vecmath "github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"

	"equalizer/internal/log"
	"equalizer/pkg/fixed"
)

var logger = log.Named("analysis")

var (
	ErrSpectrumSize = errors.New("analysis: spectrum size must be a power of two")
	ErrSampleRate   = errors.New("analysis: sample rate must be positive")
	ErrLength       = errors.New("analysis: destination length mismatch")
)

// WindowFunc selects the analysis window.
type WindowFunc int

const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
	Rectangular
)

var windowNames = [...]string{"bartletthann", "blackman", "blackmannuttall", "hann", "hamming", "lanczos", "nuttall", "rectangular"}

func (w WindowFunc) String() string {
	if w < 0 || int(w) >= len(windowNames) {
		return fmt.Sprintf("WindowFunc(%d)", int(w))
	}
	return windowNames[w]
}

// ParseWindowFunc converts a name (case-insensitive) to a WindowFunc. It
// returns Hann and an error if the name is unknown.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	case "rectangular", "none":
		return Rectangular, nil
	default:
		return Hann, fmt.Errorf("unknown window function %q", name)
	}
}

// windowCoefficients fills coeffs with the selected window.
func windowCoefficients(coeffs []float64, w WindowFunc) {
	for i := range coeffs {
		coeffs[i] = 1
	}
	switch w {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	case Rectangular:
	default:
		window.Hann(coeffs)
	}
}

// Spectrum computes the windowed magnitude spectrum of the most recent
// block. Magnitudes are scaled so a full scale sine centred on a bin reads
// 1.0. Process and the readers may run on different goroutines.
type Spectrum struct {
	fft        *fourier.FFT
	size       int
	sampleRate float64
	window     []float64
	scale      float64 // 2 / sum(window)

	input  []float64
	coeffs []complex128
	re, im []float64

	mu        sync.RWMutex
	magnitude []float64
}

var (
	_ BlockProcessor   = (*Spectrum)(nil)
	_ SpectrumProvider = (*Spectrum)(nil)
)

// NewSpectrum creates an analyzer for blocks of up to size samples.
func NewSpectrum(size int, sampleRate float64, w WindowFunc) (*Spectrum, error) {
	if size < 2 || !fixed.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("%w, got %d", ErrSpectrumSize, size)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w, got %g", ErrSampleRate, sampleRate)
	}

	win := make([]float64, size)
	windowCoefficients(win, w)
	bins := size/2 + 1

	logger.Debugf("spectrum: %d points at %.0f Hz, %v window", size, sampleRate, w)
	return &Spectrum{
		fft:        fourier.NewFFT(size),
		size:       size,
		sampleRate: sampleRate,
		window:     win,
		scale:      2 / floats.Sum(win),
		input:      make([]float64, size),
		coeffs:     make([]complex128, bins),
		re:         make([]float64, bins),
		im:         make([]float64, bins),
		magnitude:  make([]float64, bins),
	}, nil
}

// Process analyzes a Q15 block. Shorter blocks are zero-padded and longer
// ones truncated.
func (s *Spectrum) Process(block []int16) {
	const norm = 1.0 / (1 << 15)
	n := min(len(block), s.size)
	for i, v := range block[:n] {
		s.input[i] = float64(v) * norm
	}
	clear(s.input[n:])
	s.transform()
}

// ProcessWide analyzes a Q31 block.
func (s *Spectrum) ProcessWide(block []int32) {
	const norm = 1.0 / (1 << 31)
	n := min(len(block), s.size)
	for i, v := range block[:n] {
		s.input[i] = float64(v) * norm
	}
	clear(s.input[n:])
	s.transform()
}

func (s *Spectrum) transform() {
	vecmath.MulBlockInPlace(s.input, s.window)
	s.fft.Coefficients(s.coeffs, s.input)
	for i, c := range s.coeffs {
		s.re[i] = real(c)
		s.im[i] = imag(c)
	}

	s.mu.Lock()
	vecmath.Magnitude(s.magnitude, s.re, s.im)
	floats.Scale(s.scale, s.magnitude)
	s.mu.Unlock()
}

// MagnitudesInto copies the latest magnitudes into dst, which must hold
// Bins() values.
func (s *Spectrum) MagnitudesInto(dst []float64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(dst) != len(s.magnitude) {
		return fmt.Errorf("%w: %d, want %d", ErrLength, len(dst), len(s.magnitude))
	}
	copy(dst, s.magnitude)
	return nil
}

// Magnitudes returns a copy of the latest magnitudes.
func (s *Spectrum) Magnitudes() []float64 {
	dst := make([]float64, s.Bins())
	_ = s.MagnitudesInto(dst)
	return dst
}

// Peak returns the strongest bin above DC and its magnitude.
func (s *Spectrum) Peak() (bin int, magnitude float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bin = floats.MaxIdx(s.magnitude[1:]) + 1
	return bin, s.magnitude[bin]
}

// FrequencyForBin returns the centre frequency of bin in Hz, or 0 when the
// bin is out of range.
func (s *Spectrum) FrequencyForBin(bin int) float64 {
	if bin < 0 || bin >= len(s.coeffs) {
		return 0
	}
	return s.fft.Freq(bin) * s.sampleRate
}

func (s *Spectrum) Bins() int           { return s.size/2 + 1 }
func (s *Spectrum) Size() int           { return s.size }
func (s *Spectrum) SampleRate() float64 { return s.sampleRate }
