// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"gonum.org/v1/gonum/floats"

	"equalizer/internal/transport"
)

// MinLevelDB is the level reported for silence.
const MinLevelDB = -120.0

// MeterOption configures a BandMeter.
type MeterOption func(*BandMeter)

// WithSmoothing sets the one-pole smoothing factor applied to levels in the
// dB domain. 0 disables smoothing; values approaching 1 react slowly.
func WithSmoothing(factor float64) MeterOption {
	return func(m *BandMeter) {
		m.smoothing = math.Max(0, math.Min(factor, 0.999))
	}
}

// WithTransport publishes a LevelFrame every `every` blocks. Frames are sent
// from the goroutine launched by Start, never from Observe.
func WithTransport(t transport.Transport, every uint64) MeterOption {
	return func(m *BandMeter) {
		m.transport = t
		m.every = max(every, 1)
		m.pending = make(chan uint64, 1)
	}
}

// BandMeter turns the per-band outputs of the filter bank into RMS levels
// in dBFS. Observe matches the equalizer's Observer hook and runs on the
// processing goroutine; the readers may run anywhere.
type BandMeter struct {
	names      []string
	headroomDB float64
	smoothing  float64
	transport  transport.Transport
	every      uint64
	pending    chan uint64 // block number of the next frame to publish

	done chan struct{}
	wg   sync.WaitGroup

	scratch []float64
	primed  bool

	mu     sync.RWMutex
	levels []float64
}

var _ LevelProvider = (*BandMeter)(nil)

// NewBandMeter creates a meter for the named bands. headroom is the
// attenuation the bank outputs carry, which the meter adds back so that a
// full scale input sine reads about -3 dBFS.
func NewBandMeter(names []string, headroom uint, opts ...MeterOption) *BandMeter {
	m := &BandMeter{
		names:      slices.Clone(names),
		headroomDB: 20 * math.Log10(2) * float64(headroom),
		levels:     make([]float64, len(names)),
	}
	for _, opt := range opts {
		opt(m)
	}
	for i := range m.levels {
		m.levels[i] = MinLevelDB
	}
	return m
}

// Observe measures one block of band outputs.
func (m *BandMeter) Observe(block uint64, bands [][]int32) {
	n := min(len(bands), len(m.levels))

	m.mu.Lock()
	for i, b := range bands[:n] {
		level := m.level(b)
		if m.primed && m.smoothing > 0 {
			level = m.smoothing*m.levels[i] + (1-m.smoothing)*level
		}
		m.levels[i] = level
	}
	m.primed = true
	m.mu.Unlock()

	if m.pending != nil && (block+1)%m.every == 0 {
		// Drop the frame while the previous one is still being sent.
		select {
		case m.pending <- block:
		default:
		}
	}
}

// Start launches the goroutine that publishes level frames. It is a no-op
// without a transport or when already running.
func (m *BandMeter) Start() {
	if m.pending == nil || m.done != nil {
		return
	}
	m.done = make(chan struct{})
	done := m.done

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case block := <-m.pending:
				m.publish(block)
			case <-done:
				return
			}
		}
	}()
}

// Close stops the publishing goroutine and waits for it to exit.
func (m *BandMeter) Close() error {
	if m.done == nil {
		return nil
	}
	close(m.done)
	m.wg.Wait()
	m.done = nil
	return nil
}

func (m *BandMeter) publish(block uint64) {
	frame := transport.LevelFrame{
		Type:   transport.TypeLevels,
		Block:  block,
		Bands:  m.names,
		Levels: m.Levels(),
	}
	if err := m.transport.Send(frame); err != nil {
		logger.Warnf("publishing levels: %v", err)
	}
}

// level returns the RMS level of one Q31 band block in dBFS.
func (m *BandMeter) level(band []int32) float64 {
	if len(band) == 0 {
		return MinLevelDB
	}
	if cap(m.scratch) < len(band) {
		m.scratch = make([]float64, len(band))
	}
	s := m.scratch[:len(band)]
	for i, v := range band {
		s[i] = float64(v) / (1 << 31)
	}

	ms := floats.Dot(s, s) / float64(len(s))
	if ms == 0 {
		return MinLevelDB
	}
	return math.Max(MinLevelDB, 10*math.Log10(ms)+m.headroomDB)
}

// LevelsInto copies the current levels into dst, which must hold NumBands()
// values.
func (m *BandMeter) LevelsInto(dst []float64) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(dst) != len(m.levels) {
		return fmt.Errorf("%w: %d, want %d", ErrLength, len(dst), len(m.levels))
	}
	copy(dst, m.levels)
	return nil
}

// Levels returns a copy of the current levels.
func (m *BandMeter) Levels() []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.levels)
}

// Reset returns every band to MinLevelDB.
func (m *BandMeter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.levels {
		m.levels[i] = MinLevelDB
	}
	m.primed = false
}

func (m *BandMeter) NumBands() int   { return len(m.levels) }
func (m *BandMeter) Names() []string { return m.names }
