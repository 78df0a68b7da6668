// SPDX-License-Identifier: MIT
package equalizer

// Source supplies input blocks. Fill writes up to len(block) samples and
// returns how many it wrote. Returning io.EOF ends the stream; samples
// written in the same call are still processed.
type Source interface {
	Fill(block []int16) (int, error)
}

// Sink receives equalized blocks. The slice is reused after Emit returns.
type Sink interface {
	Emit(block []int16) error
}

// SourceFunc adapts a function to a Source.
type SourceFunc func(block []int16) (int, error)

func (f SourceFunc) Fill(block []int16) (int, error) { return f(block) }

// SinkFunc adapts a function to a Sink.
type SinkFunc func(block []int16) error

func (f SinkFunc) Emit(block []int16) error { return f(block) }

// Observer is called after every block with the block number and the band
// outputs of that block. It runs on the processing goroutine and must not
// retain the slices.
type Observer func(block uint64, bands [][]int32)

type silence struct{}

func (silence) Fill(block []int16) (int, error) {
	clear(block)
	return len(block), nil
}

type discard struct{}

func (discard) Emit([]int16) error { return nil }
