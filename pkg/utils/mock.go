// SPDX-License-Identifier: MIT
package utils

import (
	"slices"
	"sync"
)

// MockTransport records everything sent through it instead of transmitting.
// It is safe for concurrent use.
type MockTransport struct {
	mu       sync.Mutex
	messages []any
	closed   bool
	Err      error // returned by Send when set
}

// Send stores data for later inspection. Float slices are copied so the
// caller may reuse them.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := data.([]float64); ok {
		data = slices.Clone(v)
	}
	m.messages = append(m.messages, data)
	return m.Err
}

func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Messages returns a copy of everything sent so far.
func (m *MockTransport) Messages() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.messages)
}

// Last returns the most recent message, or nil.
func (m *MockTransport) Last() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return nil
	}
	return m.messages[len(m.messages)-1]
}

func (m *MockTransport) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
