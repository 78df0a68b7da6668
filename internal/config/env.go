// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"strconv"
	"time"
)

// applyEnvOverrides replaces file values with ENV_* variables. Values that
// fail to parse are logged and ignored.
func (c *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Debug = b
			logger.Infof("overriding debug from env: %v", b)
		} else {
			logger.Warnf("ignoring ENV_DEBUG=%q: %v", val, err)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
		logger.Infof("overriding log_level from env: %s", val)
	}

	// ENV_EQ_{...}
	// These are specific to the processing pipeline.

	// ENV_EQ_TABLE
	if val, ok := os.LookupEnv("ENV_EQ_TABLE"); ok {
		c.Equalizer.TablePath = val
		logger.Infof("overriding equalizer.table_path from env: %s", val)
	}
	// ENV_EQ_BLOCK_SIZE
	if val, ok := os.LookupEnv("ENV_EQ_BLOCK_SIZE"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			c.Equalizer.BlockSize = n
			logger.Infof("overriding equalizer.block_size from env: %d", n)
		} else {
			logger.Warnf("ignoring ENV_EQ_BLOCK_SIZE=%q: %v", val, err)
		}
	}

	// ENV_UDP_{...} and ENV_WS_{...}
	// These are specific to the transport layer.

	// ENV_UDP_ENABLED
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = b
			logger.Infof("overriding transport.udp_enabled from env: %v", b)
		}
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
		logger.Infof("overriding transport.udp_target_address from env: %s", val)
	}
	// ENV_UDP_SEND_INTERVAL
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if d, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = d
			logger.Infof("overriding transport.udp_send_interval from env: %s", d)
		}
	}
	// ENV_WS_ENABLED
	if val, ok := os.LookupEnv("ENV_WS_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.WebSocketEnabled = b
			logger.Infof("overriding transport.websocket_enabled from env: %v", b)
		}
	}
}
