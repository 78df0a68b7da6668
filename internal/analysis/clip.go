// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"sync"
	"sync/atomic"

	"equalizer/internal/equalizer"
	"equalizer/internal/transport"
)

// ClipDetector counts output samples pinned at the Q15 limits, which is
// where the narrowing stage saturates. After a clipping block it reports a
// ClipEvent, then stays quiet for holdoff blocks. Events are queued by
// Process and sent by the goroutine launched by Start.
type ClipDetector struct {
	transport transport.Transport
	holdoff   uint64
	events    chan transport.ClipEvent

	done chan struct{}
	wg   sync.WaitGroup

	block     uint64
	lastEvent uint64
	reported  bool

	samples atomic.Uint64
	blocks  atomic.Uint64
}

var _ BlockProcessor = (*ClipDetector)(nil)

// clipQueue is the number of events that may wait for the transport.
const clipQueue = 16

// NewClipDetector creates a detector. t may be nil.
func NewClipDetector(t transport.Transport, holdoff uint64) *ClipDetector {
	c := &ClipDetector{transport: t, holdoff: holdoff}
	if t != nil {
		c.events = make(chan transport.ClipEvent, clipQueue)
	}
	return c
}

// Process inspects one output block.
func (c *ClipDetector) Process(block []int16) {
	defer func() { c.block++ }()

	var clipped int
	for _, v := range block {
		if v == math.MaxInt16 || v == math.MinInt16 {
			clipped++
		}
	}
	if clipped == 0 {
		return
	}

	c.samples.Add(uint64(clipped))
	c.blocks.Add(1)

	if c.reported && c.block-c.lastEvent <= c.holdoff {
		return
	}
	c.reported = true
	c.lastEvent = c.block
	if c.events == nil {
		return
	}
	select {
	case c.events <- transport.ClipEvent{Type: transport.TypeClip, Block: c.block, Samples: clipped}:
	default:
	}
}

// Start launches the goroutine that sends clip events. It is a no-op
// without a transport or when already running.
func (c *ClipDetector) Start() {
	if c.events == nil || c.done != nil {
		return
	}
	c.done = make(chan struct{})
	done := c.done

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case ev := <-c.events:
				c.send(ev)
			case <-done:
				return
			}
		}
	}()
}

// Close stops the sending goroutine, then sends any events still queued.
// Process must not be called concurrently with Close.
func (c *ClipDetector) Close() error {
	if c.done != nil {
		close(c.done)
		c.wg.Wait()
		c.done = nil
	}
	for {
		select {
		case ev := <-c.events:
			c.send(ev)
		default:
			return nil
		}
	}
}

func (c *ClipDetector) send(ev transport.ClipEvent) {
	if err := c.transport.Send(ev); err != nil {
		logger.Warnf("sending clip event: %v", err)
	}
}

// Sink wraps next so that every emitted block is inspected first.
func (c *ClipDetector) Sink(next equalizer.Sink) equalizer.Sink {
	return equalizer.SinkFunc(func(block []int16) error {
		c.Process(block)
		if next == nil {
			return nil
		}
		return next.Emit(block)
	})
}

// ClippedSamples returns the number of clipped samples seen so far.
func (c *ClipDetector) ClippedSamples() uint64 { return c.samples.Load() }

// ClippedBlocks returns the number of blocks with at least one clipped
// sample.
func (c *ClipDetector) ClippedBlocks() uint64 { return c.blocks.Load() }
