// SPDX-License-Identifier: MIT
/*
Package audio connects the equalizer to the outside world: WAV files for
offline runs and a PortAudio duplex stream for live use.

Live processing runs inside the PortAudio callback:

  - the callback thread is locked to its OS thread
  - buffers are allocated up front; the hot path does not allocate
  - gain changes arrive through a buffered channel and are applied between
    blocks, so the pipeline is only ever touched by the callback
  - bypass, gate and recording state are atomics
*/
package audio

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"equalizer/internal/analysis"
	"equalizer/internal/config"
	"equalizer/internal/equalizer"
	"equalizer/internal/log"
	"equalizer/internal/mixer"
	"equalizer/pkg/fixed"
)

var logger = log.Named("engine")

// gainQueueSize bounds the gain updates waiting for the next block.
const gainQueueSize = 64

var (
	ErrGainQueueFull = errors.New("audio: gain update queue is full")
	ErrNotRunning    = errors.New("audio: stream is not running")
)

type gainUpdate struct {
	band int
	gain fixed.Gain
}

// Engine runs a Pipeline on a live duplex stream.
type Engine struct {
	pipeline   *equalizer.Pipeline
	sampleRate float64

	inputDevice   *portaudio.DeviceInfo
	outputDevice  *portaudio.DeviceInfo
	inputLatency  time.Duration
	outputLatency time.Duration
	inChannels    int
	outChannels   int
	stream        *portaudio.Stream

	mono []int16
	out  []int16

	observer   equalizer.Observer
	processors []analysis.BlockProcessor
	blocks     atomic.Uint64

	gainQueue chan gainUpdate
	gainsMu   sync.Mutex
	gains     []fixed.Gain // gains as last requested, for readers

	bypass        atomic.Bool
	gateEnabled   atomic.Bool
	gateThreshold atomic.Int32 // absolute Q15 amplitude

	recMu       sync.Mutex
	isRecording atomic.Bool
	recorder    *WAVSink
	recLimit    int // samples, 0 for unlimited
}

// NewEngine opens the configured devices. PortAudio must be initialized.
func NewEngine(cfg *config.Config, p *equalizer.Pipeline) (*Engine, error) {
	in, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, fmt.Errorf("input device: %w", err)
	}
	out, err := OutputDevice(cfg.Audio.OutputDevice)
	if err != nil {
		return nil, fmt.Errorf("output device: %w", err)
	}

	e := newEngine(p, cfg.Audio.SampleRate, cfg.Audio.InputChannels, cfg.Audio.OutputChannels)
	e.inputDevice, e.outputDevice = in, out
	if cfg.Audio.LowLatency {
		e.inputLatency = in.DefaultLowInputLatency
		e.outputLatency = out.DefaultLowOutputLatency
	} else {
		e.inputLatency = in.DefaultHighInputLatency
		e.outputLatency = out.DefaultHighOutputLatency
	}
	e.bypass.Store(cfg.Audio.Bypass)
	if cfg.Recording.MaxDuration > 0 {
		e.recLimit = cfg.Recording.MaxDuration * int(cfg.Audio.SampleRate)
	}

	logger.Infof("input %q, output %q, %.0f Hz, %d samples per block",
		in.Name, out.Name, e.sampleRate, p.BlockSize())
	return e, nil
}

// newEngine builds an engine without touching PortAudio.
func newEngine(p *equalizer.Pipeline, sampleRate float64, inChannels, outChannels int) *Engine {
	e := &Engine{
		pipeline:    p,
		sampleRate:  sampleRate,
		inChannels:  max(inChannels, 1),
		outChannels: max(outChannels, 1),
		mono:        make([]int16, p.BlockSize()),
		out:         make([]int16, p.BlockSize()),
		gainQueue:   make(chan gainUpdate, gainQueueSize),
		gains:       p.Gains(),
	}
	e.gateThreshold.Store(defaultGateThreshold)
	return e
}

// SetObserver installs a band observer, typically a level meter. It must
// be called before Start.
func (e *Engine) SetObserver(o equalizer.Observer) { e.observer = o }

// AddProcessor adds an analyzer of the output blocks. It must be called
// before Start.
func (e *Engine) AddProcessor(p analysis.BlockProcessor) {
	e.processors = append(e.processors, p)
}

// Start opens and starts the duplex stream.
func (e *Engine) Start() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.inChannels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: e.outChannels,
			Device:   e.outputDevice,
			Latency:  e.outputLatency,
		},
		FramesPerBuffer: e.pipeline.BlockSize(),
		SampleRate:      e.sampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processStream)
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return err
	}
	e.stream = stream
	return nil
}

// Stop stops and closes the stream.
func (e *Engine) Stop() error {
	if e.stream == nil {
		return nil
	}
	if err := e.stream.Stop(); err != nil {
		return err
	}
	if err := e.stream.Close(); err != nil {
		return err
	}
	e.stream = nil
	return nil
}

// processStream is the PortAudio callback. Buffers are interleaved.
func (e *Engine) processStream(in, out []int16) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	e.processBlock(in, out)
}

// processBlock equalizes one interleaved block. Hot path: no allocations.
func (e *Engine) processBlock(in, out []int16) {
	e.applyGains()
	downmix(e.mono, in, e.inChannels)

	if e.bypass.Load() {
		copy(e.out, e.mono)
	} else {
		if err := e.pipeline.Run(e.out, e.mono); err != nil {
			// Block sizes are fixed when the stream opens.
			clear(e.out)
		}
		if e.observer != nil {
			e.observer(e.blocks.Load(), e.pipeline.BandOutputs())
		}
	}

	if e.gateEnabled.Load() && peakAbs(e.mono) < e.gateThreshold.Load() {
		clear(e.out)
	}

	for _, p := range e.processors {
		p.Process(e.out)
	}
	if e.isRecording.Load() {
		e.record(e.out)
	}

	upmix(out, e.out, e.outChannels)
	e.blocks.Add(1)
}

// applyGains drains pending gain updates without blocking.
func (e *Engine) applyGains() {
	for {
		select {
		case u := <-e.gainQueue:
			_ = e.pipeline.SetGain(u.band, u.gain) // validated by SetGain
		default:
			return
		}
	}
}

// SetGain queues a gain change for the next block. It is safe to call from
// any goroutine.
func (e *Engine) SetGain(band int, g fixed.Gain) error {
	if band < 0 || band >= e.pipeline.NumBands() {
		return fmt.Errorf("%w: %d", mixer.ErrBandIndex, band)
	}
	if err := g.Validate(); err != nil {
		return err
	}

	e.gainsMu.Lock()
	defer e.gainsMu.Unlock()
	select {
	case e.gainQueue <- gainUpdate{band: band, gain: g}:
		e.gains[band] = g
		return nil
	default:
		return ErrGainQueueFull
	}
}

// Gain returns the last gain requested for band.
func (e *Engine) Gain(band int) fixed.Gain {
	e.gainsMu.Lock()
	defer e.gainsMu.Unlock()
	if band < 0 || band >= len(e.gains) {
		return fixed.Unity
	}
	return e.gains[band]
}

// Blocks returns the number of blocks processed.
func (e *Engine) Blocks() uint64 { return e.blocks.Load() }

func (e *Engine) NumBands() int { return e.pipeline.NumBands() }

// BandNames returns the names of the pipeline bands.
func (e *Engine) BandNames() []string {
	bands := e.pipeline.Bands()
	names := make([]string, len(bands))
	for i, b := range bands {
		names[i] = b.Name
	}
	return names
}

// Close stops recording and the stream.
func (e *Engine) Close() error {
	return errors.Join(e.StopRecording(), e.Stop())
}

// downmix averages interleaved frames into mono.
func downmix(dst, src []int16, channels int) {
	if channels == 1 {
		n := copy(dst, src)
		clear(dst[n:])
		return
	}
	frames := min(len(dst), len(src)/channels)
	for i := range frames {
		var sum int32
		for _, v := range src[i*channels : (i+1)*channels] {
			sum += int32(v)
		}
		dst[i] = int16(sum / int32(channels))
	}
	clear(dst[frames:])
}

// upmix copies mono samples into every channel of an interleaved buffer.
func upmix(dst, src []int16, channels int) {
	if channels == 1 {
		copy(dst, src)
		return
	}
	frames := min(len(src), len(dst)/channels)
	for i, v := range src[:frames] {
		for c := range channels {
			dst[i*channels+c] = v
		}
	}
}
