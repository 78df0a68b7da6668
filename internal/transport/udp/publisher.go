// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// LevelSource provides the current band levels, in dBFS.
type LevelSource interface {
	NumBands() int
	LevelsInto(dst []float64) error
}

/*
Packet layout, big endian:

	+-----------------+----------+-------+--------------------------+
	| Field           | Type     | Bytes | Description              |
	+-----------------+----------+-------+--------------------------+
	| Sequence number | uint32   | 4     | Monotonically increasing |
	| Timestamp       | int64    | 8     | Nanoseconds since epoch  |
	| Band count      | uint16   | 2     | Number of levels (N)     |
	| Levels          | float32  | N * 4 | Band levels in dBFS      |
	+-----------------+----------+-------+--------------------------+
*/
const headerSize = 4 + 8 + 2

// ErrShortPacket is returned by DecodePacket for truncated packets.
var ErrShortPacket = errors.New("udp: short packet")

// Packet is a decoded level packet.
type Packet struct {
	Sequence  uint32
	Timestamp time.Time
	Levels    []float32
}

// DecodePacket parses a packet written by Publisher.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < headerSize {
		return Packet{}, ErrShortPacket
	}
	n := int(binary.BigEndian.Uint16(b[12:14]))
	if len(b) != headerSize+4*n {
		return Packet{}, fmt.Errorf("%w: %d bytes for %d levels", ErrShortPacket, len(b), n)
	}

	p := Packet{
		Sequence:  binary.BigEndian.Uint32(b[0:4]),
		Timestamp: time.Unix(0, int64(binary.BigEndian.Uint64(b[4:12]))),
		Levels:    make([]float32, n),
	}
	for i := range p.Levels {
		off := headerSize + 4*i
		p.Levels[i] = math.Float32frombits(binary.BigEndian.Uint32(b[off : off+4]))
	}
	return p, nil
}

// Publisher periodically packs the band levels of a LevelSource and sends
// them through a Sender.
type Publisher struct {
	sender   *Sender
	source   LevelSource
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex // protects ticker and doneChan

	sequenceNum uint32
	levels      []float64
	levels32    []float32
	packet      *bytes.Buffer
}

// NewPublisher creates a publisher. An interval <= 0 defaults to 33ms.
func NewPublisher(interval time.Duration, sender *Sender, source LevelSource) (*Publisher, error) {
	if sender == nil {
		return nil, errors.New("udp: sender cannot be nil")
	}
	if source == nil {
		return nil, errors.New("udp: level source cannot be nil")
	}
	if interval <= 0 {
		interval = 33 * time.Millisecond
		logger.Warnf("invalid interval, defaulting to %s", interval)
	}

	n := source.NumBands()
	return &Publisher{
		sender:   sender,
		source:   source,
		interval: interval,
		levels:   make([]float64, n),
		levels32: make([]float32, n),
		packet:   bytes.NewBuffer(make([]byte, 0, headerSize+4*n)),
	}, nil
}

// Start launches the publishing goroutine. Calling Start on a running
// publisher is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		logger.Warnf("Start called but already running")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	ticker, done := p.ticker, p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		logger.Infof("publishing every %s", p.interval)
		for {
			select {
			case <-ticker.C:
				if err := p.Publish(); err != nil {
					logger.Debugf("publish: %v", err)
				}
			case <-done:
				return
			}
		}
	}()
}

// Stop ends the publishing goroutine and waits for it to exit.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	close(p.doneChan)
	p.ticker.Stop()
	p.ticker = nil
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

// Publish sends one packet with the current levels. It is called by the
// publishing goroutine and must not run concurrently with it.
func (p *Publisher) Publish() error {
	if err := p.source.LevelsInto(p.levels); err != nil {
		return fmt.Errorf("failed to read levels: %w", err)
	}
	for i, v := range p.levels {
		p.levels32[i] = float32(v)
	}

	p.sequenceNum++
	p.packet.Reset()
	var hdr [headerSize]byte
	binary.BigEndian.PutUint32(hdr[0:4], p.sequenceNum)
	binary.BigEndian.PutUint64(hdr[4:12], uint64(time.Now().UnixNano()))
	binary.BigEndian.PutUint16(hdr[12:14], uint16(len(p.levels32)))
	p.packet.Write(hdr[:])
	if err := binary.Write(p.packet, binary.BigEndian, p.levels32); err != nil {
		return fmt.Errorf("failed to pack levels: %w", err)
	}

	if err := p.sender.Send(p.packet.Bytes()); err != nil {
		return err
	}
	logger.Debugf("sent packet %d (%d bytes)", p.sequenceNum, p.packet.Len())
	return nil
}

// Close stops the publisher.
func (p *Publisher) Close() error {
	return p.Stop()
}
