// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"equalizer/internal/equalizer"
)

// WAV format codes accepted by WAVSource.
const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

var (
	ErrNotWAV    = errors.New("audio: not a WAV file")
	ErrWAVFormat = errors.New("audio: unsupported WAV format")
)

// WAVSource reads a PCM WAV stream as Q15 mono blocks. Multi-channel input
// is downmixed by averaging the channels; other bit depths are scaled to
// 16 bits.
type WAVSource struct {
	dec      *wav.Decoder
	closer   io.Closer
	channels int
	depth    int
	buf      *audio.IntBuffer
}

var _ equalizer.Source = (*WAVSource)(nil)

// OpenWAV opens a WAV file as a Source.
func OpenWAV(path string) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	s, err := NewWAVSource(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.closer = f
	return s, nil
}

// NewWAVSource reads the header from r.
func NewWAVSource(r io.ReadSeeker) (*WAVSource, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrNotWAV
	}
	if dec.WavAudioFormat != wavFormatPCM && dec.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("%w: format code %d", ErrWAVFormat, dec.WavAudioFormat)
	}
	switch dec.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d bits", ErrWAVFormat, dec.BitDepth)
	}
	if dec.NumChans == 0 {
		return nil, fmt.Errorf("%w: no channels", ErrWAVFormat)
	}

	return &WAVSource{
		dec:      dec,
		channels: int(dec.NumChans),
		depth:    int(dec.BitDepth),
		buf:      &audio.IntBuffer{},
	}, nil
}

// Fill reads up to len(block) frames.
func (s *WAVSource) Fill(block []int16) (int, error) {
	want := len(block) * s.channels
	if cap(s.buf.Data) < want {
		s.buf.Data = make([]int, want)
	}
	s.buf.Data = s.buf.Data[:want]

	n, err := s.dec.PCMBuffer(s.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}
	frames := n / s.channels
	if frames == 0 {
		return 0, io.EOF
	}

	for i := range frames {
		var sum int
		for _, v := range s.buf.Data[i*s.channels : (i+1)*s.channels] {
			sum += s.toQ15(v)
		}
		block[i] = int16(sum / s.channels)
	}
	return frames, nil
}

func (s *WAVSource) toQ15(v int) int {
	switch s.depth {
	case 8:
		return (v - 128) << 8 // 8-bit WAV is unsigned
	case 24:
		return v >> 8
	case 32:
		return v >> 16
	}
	return v
}

func (s *WAVSource) SampleRate() int { return int(s.dec.SampleRate) }
func (s *WAVSource) Channels() int   { return s.channels }
func (s *WAVSource) BitDepth() int   { return s.depth }

// Close closes the underlying file when the source was opened by OpenWAV.
func (s *WAVSource) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}

// WAVSink writes Q15 mono blocks as a 16-bit PCM WAV stream.
type WAVSink struct {
	enc    *wav.Encoder
	closer io.Closer
	buf    *audio.IntBuffer
	frames int
}

var _ equalizer.Sink = (*WAVSink)(nil)

// CreateWAV creates (or truncates) a WAV file as a Sink.
func CreateWAV(path string, sampleRate int) (*WAVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	s := NewWAVSink(f, sampleRate)
	s.closer = f
	return s, nil
}

// NewWAVSink writes to w. The header is completed by Close.
func NewWAVSink(w io.WriteSeeker, sampleRate int) *WAVSink {
	return &WAVSink{
		enc: wav.NewEncoder(w, sampleRate, 16, 1, wavFormatPCM),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
			SourceBitDepth: 16,
		},
	}
}

// Emit appends block to the stream.
func (s *WAVSink) Emit(block []int16) error {
	if cap(s.buf.Data) < len(block) {
		s.buf.Data = make([]int, len(block))
	}
	s.buf.Data = s.buf.Data[:len(block)]
	for i, v := range block {
		s.buf.Data[i] = int(v)
	}
	if err := s.enc.Write(s.buf); err != nil {
		return fmt.Errorf("failed to write WAV data: %w", err)
	}
	s.frames += len(block)
	return nil
}

// Frames returns the number of samples written so far.
func (s *WAVSink) Frames() int { return s.frames }

// Close finalizes the header and closes the file when the sink was created
// by CreateWAV.
func (s *WAVSink) Close() error {
	err := s.enc.Close()
	if s.closer != nil {
		err = errors.Join(err, s.closer.Close())
		s.closer = nil
	}
	return err
}

// FileJob describes one offline run of ProcessFile.
type FileJob struct {
	In, Out    string
	SampleRate int                                 // rate the equalizer was designed for
	Observer   equalizer.Observer                  // optional, e.g. a band meter
	Wrap       func(equalizer.Sink) equalizer.Sink // optional, e.g. a clip detector
}

// ProcessFile equalizes the WAV file job.In into a 16-bit mono WAV file at
// job.Out and returns the number of blocks processed.
func ProcessFile(ctx context.Context, p *equalizer.Pipeline, job FileJob) (uint64, error) {
	src, err := OpenWAV(job.In)
	if err != nil {
		return 0, err
	}
	defer src.Close()
	if src.SampleRate() != job.SampleRate {
		return 0, fmt.Errorf("%w: %s is %d Hz, the equalizer runs at %d Hz", ErrWAVFormat, job.In, src.SampleRate(), job.SampleRate)
	}

	dst, err := CreateWAV(job.Out, job.SampleRate)
	if err != nil {
		return 0, err
	}

	var out equalizer.Sink = dst
	if job.Wrap != nil {
		out = job.Wrap(out)
	}
	r := equalizer.NewRunner(p, src, out)
	r.SetObserver(job.Observer)

	runErr := r.Run(ctx)
	if err := dst.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return r.Blocks(), runErr
}
