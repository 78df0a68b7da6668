// SPDX-License-Identifier: MIT
package transport

import "errors"

// Transport defines a generic interface for sending analysis results or
// events. Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// Message types carried in the Type field.
const (
	TypeLevels = "levels"
	TypeClip   = "clip"
)

// LevelFrame carries the smoothed band levels of the equalizer, in dBFS.
type LevelFrame struct {
	Type   string    `json:"type"`
	Block  uint64    `json:"block"`
	Bands  []string  `json:"bands"`
	Levels []float64 `json:"levels_db"`
}

// ClipEvent reports output samples that hit the Q15 limits.
type ClipEvent struct {
	Type    string `json:"type"`
	Block   uint64 `json:"block"`
	Samples int    `json:"samples"`
}

// Multi fans every message out to all of its transports.
type Multi []Transport

func (m Multi) Send(data any) error {
	var errs []error
	for _, t := range m {
		if err := t.Send(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, t := range m {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Transport = Multi(nil)
