// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"

	"equalizer/internal/log"
)

var logger = log.Named("transport")

// LoggingTransport writes every message to the debug log as JSON.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	logger.Infof("using logging transport")
	return &LoggingTransport{}
}

// Send logs data when debug logging is on. It never fails.
func (lt *LoggingTransport) Send(data any) error {
	if !log.Enabled(log.LevelDebug) {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		logger.Debugf("%T: %+v", data, data)
		return nil
	}
	logger.Debugf("%s", b)
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
