// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
)

// ErrRecording is returned by StartRecording while a recording is active.
var ErrRecording = errors.New("audio: already recording")

// StartRecording writes the equalized output to a 16-bit mono WAV file.
func (e *Engine) StartRecording(filename string) error {
	e.recMu.Lock()
	defer e.recMu.Unlock()

	if e.recorder != nil {
		return ErrRecording
	}
	sink, err := CreateWAV(filename, int(e.sampleRate))
	if err != nil {
		return err
	}
	e.recorder = sink
	e.isRecording.Store(true)
	logger.Infof("recording to %s", filename)
	return nil
}

// record runs on the callback. It stops writing once the length limit is
// reached; the file stays open until StopRecording.
func (e *Engine) record(block []int16) {
	e.recMu.Lock()
	defer e.recMu.Unlock()

	if e.recorder == nil {
		return
	}
	if e.recLimit > 0 && e.recorder.Frames()+len(block) > e.recLimit {
		block = block[:max(e.recLimit-e.recorder.Frames(), 0)]
		e.isRecording.Store(false)
	}
	if err := e.recorder.Emit(block); err != nil {
		logger.Errorf("writing recording: %v", err)
		e.isRecording.Store(false)
	}
}

// Recording reports whether output is being written.
func (e *Engine) Recording() bool { return e.isRecording.Load() }

// StopRecording finalizes the recording, if any.
func (e *Engine) StopRecording() error {
	e.isRecording.Store(false)

	e.recMu.Lock()
	defer e.recMu.Unlock()

	if e.recorder == nil {
		return nil
	}
	err := e.recorder.Close()
	logger.Infof("recorded %d samples", e.recorder.Frames())
	e.recorder = nil
	return err
}
