// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"equalizer/internal/equalizer"
	"equalizer/pkg/utils"
)

func readWAV(t *testing.T, path string) []int16 {
	t.Helper()
	src, err := OpenWAV(path)
	if err != nil {
		t.Fatalf("OpenWAV: %v", err)
	}
	defer src.Close()

	var all []int16
	block := make([]int16, 100)
	for {
		n, err := src.Fill(block)
		all = append(all, block[:n]...)
		if errors.Is(err, io.EOF) {
			return all
		}
		if err != nil {
			t.Fatalf("Fill: %v", err)
		}
	}
}

func writeWAV(t *testing.T, path string, rate int, samples []int16) {
	t.Helper()
	sink, err := CreateWAV(path, rate)
	if err != nil {
		t.Fatalf("CreateWAV: %v", err)
	}
	if err := sink.Emit(samples); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	want := utils.GenerateTestSignal(777, testSampleRate)
	writeWAV(t, path, testSampleRate, want)

	src, err := OpenWAV(path)
	if err != nil {
		t.Fatalf("OpenWAV: %v", err)
	}
	if src.SampleRate() != testSampleRate || src.Channels() != 1 || src.BitDepth() != 16 {
		t.Errorf("header: %d Hz, %d channels, %d bits", src.SampleRate(), src.Channels(), src.BitDepth())
	}
	src.Close()

	if got := readWAV(t, path); !slices.Equal(got, want) {
		t.Errorf("read back %d samples that differ from the %d written", len(got), len(want))
	}
}

func TestWAVSourceDownmixes24Bit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo24.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := wav.NewEncoder(f, testSampleRate, 24, 2, wavFormatPCM)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: testSampleRate},
		SourceBitDepth: 24,
		Data: []int{
			1000 << 8, 3000 << 8,
			-2000 << 8, -4000 << 8,
			30000 << 8, 30000 << 8,
		},
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("encoder Close: %v", err)
	}
	f.Close()

	if got := readWAV(t, path); !slices.Equal(got, []int16{2000, -3000, 30000}) {
		t.Errorf("downmixed = %v", got)
	}
}

func TestWAVSourceRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.wav")
	if err := os.WriteFile(path, []byte("this is not a RIFF file at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenWAV(path); !errors.Is(err, ErrNotWAV) {
		t.Errorf("OpenWAV = %v, want ErrNotWAV", err)
	}
}

func TestProcessFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	out := filepath.Join(dir, "out.wav")
	signal := utils.GenerateTestSignal(600, testSampleRate)
	writeWAV(t, in, testSampleRate, signal)

	var observed, emitted int
	blocks, err := ProcessFile(context.Background(), newTestPipeline(t), FileJob{
		In:         in,
		Out:        out,
		SampleRate: testSampleRate,
		Observer:   func(uint64, [][]int32) { observed++ },
		Wrap: func(next equalizer.Sink) equalizer.Sink {
			return equalizer.SinkFunc(func(block []int16) error {
				emitted += len(block)
				return next.Emit(block)
			})
		},
	})
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if blocks != 3 || observed != 3 || emitted != 600 {
		t.Errorf("%d blocks, %d observed, %d samples emitted", blocks, observed, emitted)
	}

	// Same as running the pipeline over zero-padded blocks.
	p := newTestPipeline(t)
	var want []int16
	block := make([]int16, testBlock)
	for off := 0; off < len(signal); off += testBlock {
		clear(block)
		n := copy(block, signal[off:])
		_ = p.Run(block, block)
		want = append(want, block[:n]...)
	}
	if got := readWAV(t, out); !slices.Equal(got, want) {
		t.Error("file output differs from direct pipeline output")
	}
}

func TestProcessFileSampleRateMismatch(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in48k.wav")
	writeWAV(t, in, 48000, utils.GenerateSineWave(480, 48000, 1000))

	_, err := ProcessFile(context.Background(), newTestPipeline(t), FileJob{
		In:         in,
		Out:        filepath.Join(dir, "out.wav"),
		SampleRate: testSampleRate,
	})
	if !errors.Is(err, ErrWAVFormat) {
		t.Errorf("ProcessFile = %v, want ErrWAVFormat", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "out.wav")); !os.IsNotExist(err) {
		t.Error("output file created for a rejected input")
	}
}
