// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"equalizer/internal/analysis"
	"equalizer/internal/biquad"
	"equalizer/internal/coeffs"
	"equalizer/internal/equalizer"
	"equalizer/internal/log"
	"equalizer/pkg/fixed"
)

// Hardware and processing limits.
const (
	MinDeviceID     = -1     // -1 represents the system default device
	MinSampleRate   = 8000   // Hz
	MaxSampleRate   = 192000 // Hz
	MaxBufferFrames = 8192
	MaxChannels     = 2
)

// ErrSampleRate is returned when the coefficient table was designed for a
// different rate than the audio path runs at.
var ErrSampleRate = errors.New("config: sample rate does not match coefficient table")

var logger = log.Named("config")

// Config is the application configuration, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`
	LogLevel  string          `yaml:"log_level"` // debug, info, warn, error
	Equalizer EqualizerConfig `yaml:"equalizer"`
	Audio     AudioConfig     `yaml:"audio"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
}

// EqualizerConfig describes the processing pipeline. An empty TablePath
// selects the built-in six band table.
type EqualizerConfig struct {
	TablePath   string             `yaml:"table_path"`
	BlockSize   int                `yaml:"block_size"`
	WideShift   uint               `yaml:"wide_shift"`
	Attenuation uint               `yaml:"attenuation"`
	Restoration uint               `yaml:"restoration"`
	Precisions  []biquad.Precision `yaml:"precisions"`
	GainsDB     []float64          `yaml:"gains_db"`
}

// AudioConfig holds the live audio device settings.
type AudioConfig struct {
	InputDevice    int     `yaml:"input_device"`  // PortAudio device index, -1 for default
	OutputDevice   int     `yaml:"output_device"` // PortAudio device index, -1 for default
	SampleRate     float64 `yaml:"sample_rate"`
	LowLatency     bool    `yaml:"low_latency"`
	InputChannels  int     `yaml:"input_channels"` // stereo input is downmixed
	OutputChannels int     `yaml:"output_channels"`
	FFTWindow      string  `yaml:"fft_window"` // window for spectrum analysis
	Bypass         bool    `yaml:"bypass"`     // start with the equalizer bypassed
}

// RecordingConfig controls recording of the equalized output.
type RecordingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	OutputDir   string `yaml:"output_dir"`
	Format      string `yaml:"format"`
	BitDepth    int    `yaml:"bit_depth"`
	MaxDuration int    `yaml:"max_duration_seconds"` // 0 for unlimited
}

// TransportConfig controls publishing of band levels.
type TransportConfig struct {
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address"`
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`
	WebSocketEnabled bool          `yaml:"websocket_enabled"`
	WebSocketAddr    string        `yaml:"websocket_addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	eq := equalizer.DefaultConfig()
	return &Config{
		LogLevel: "info",
		Equalizer: EqualizerConfig{
			BlockSize:   eq.BlockSize,
			WideShift:   eq.WideShift,
			Attenuation: eq.Attenuation,
			Restoration: eq.Restoration,
		},
		Audio: AudioConfig{
			InputDevice:    MinDeviceID,
			OutputDevice:   MinDeviceID,
			SampleRate:     coeffs.DefaultSampleRate,
			InputChannels:  1,
			OutputChannels: 1,
			FFTWindow:      "hann",
		},
		Recording: RecordingConfig{
			OutputDir: "./recordings",
			Format:    "wav",
			BitDepth:  16,
		},
		Transport: TransportConfig{
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  33 * time.Millisecond,
			WebSocketAddr:    ":8080",
		},
	}
}

// LoadConfig loads configuration from the YAML file at path. If path is
// empty it searches the default locations and falls back to the built-in
// defaults. Environment overrides are applied last, then the result is
// validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfig()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		logger.Debugf("loaded %s", path)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func findConfig() string {
	candidates := []string{"config.yaml"}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "equalizer", "config.yaml"))
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Validate checks every section. Pipeline specific checks (headroom,
// precision and gain counts) happen when the pipeline is built.
func (c *Config) Validate() error {
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("log_level %q is not a known level", c.LogLevel)
	}

	eq := c.Equalizer
	if eq.BlockSize <= 0 || eq.BlockSize > MaxBufferFrames {
		return fmt.Errorf("equalizer.block_size %d outside 1..%d", eq.BlockSize, MaxBufferFrames)
	}
	if eq.WideShift > fixed.MaxWideShift {
		return fmt.Errorf("equalizer.wide_shift %d exceeds %d", eq.WideShift, fixed.MaxWideShift)
	}
	for i, db := range eq.GainsDB {
		if db < fixed.MinGainDB || db > fixed.MaxGainDB {
			return fmt.Errorf("equalizer.gains_db[%d] = %g outside %g..%g dB", i, db, fixed.MinGainDB, fixed.MaxGainDB)
		}
	}

	a := c.Audio
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate %g outside %d..%d", a.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if a.InputDevice < MinDeviceID || a.OutputDevice < MinDeviceID {
		return fmt.Errorf("audio device index must be >= %d", MinDeviceID)
	}
	if a.InputChannels < 1 || a.InputChannels > MaxChannels {
		return fmt.Errorf("audio.input_channels %d outside 1..%d", a.InputChannels, MaxChannels)
	}
	if a.OutputChannels < 1 || a.OutputChannels > MaxChannels {
		return fmt.Errorf("audio.output_channels %d outside 1..%d", a.OutputChannels, MaxChannels)
	}
	if _, err := analysis.ParseWindowFunc(a.FFTWindow); err != nil {
		return fmt.Errorf("audio.fft_window: %w", err)
	}

	r := c.Recording
	if r.Enabled {
		if r.Format != "wav" {
			return fmt.Errorf("recording.format %q is not supported", r.Format)
		}
		if r.BitDepth != 16 {
			return fmt.Errorf("recording.bit_depth %d is not supported", r.BitDepth)
		}
		if r.OutputDir == "" {
			return errors.New("recording.output_dir must be set when recording is enabled")
		}
	}
	if r.MaxDuration < 0 {
		return fmt.Errorf("recording.max_duration_seconds %d is negative", r.MaxDuration)
	}

	t := c.Transport
	if t.UDPEnabled {
		if _, _, err := net.SplitHostPort(t.UDPTargetAddress); err != nil {
			return fmt.Errorf("transport.udp_target_address %q: %w", t.UDPTargetAddress, err)
		}
		if t.UDPSendInterval <= 0 {
			return errors.New("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}
	if t.WebSocketEnabled {
		if _, _, err := net.SplitHostPort(t.WebSocketAddr); err != nil {
			return fmt.Errorf("transport.websocket_addr %q: %w", t.WebSocketAddr, err)
		}
	}
	return nil
}

// Level returns the configured log level; Debug forces LevelDebug.
func (c *Config) Level() log.LogLevel {
	if c.Debug {
		return log.LevelDebug
	}
	level, _ := log.ParseLevel(c.LogLevel)
	return level
}

// Table loads the coefficient table named by TablePath, or the built-in
// table when it is empty.
func (e EqualizerConfig) Table() (*coeffs.Table, error) {
	if e.TablePath == "" {
		return coeffs.Default(), nil
	}
	return coeffs.Load(e.TablePath)
}

// Pipeline resolves the section into a pipeline configuration for audio
// running at sampleRate.
func (e EqualizerConfig) Pipeline(sampleRate float64) (equalizer.Config, error) {
	table, err := e.Table()
	if err != nil {
		return equalizer.Config{}, err
	}
	if table.SampleRate > 0 && table.SampleRate != sampleRate {
		return equalizer.Config{}, fmt.Errorf("%w: table is %g Hz, audio is %g Hz", ErrSampleRate, table.SampleRate, sampleRate)
	}

	cfg := equalizer.Config{
		Table:       table,
		BlockSize:   e.BlockSize,
		WideShift:   e.WideShift,
		Attenuation: e.Attenuation,
		Restoration: e.Restoration,
		Precisions:  e.Precisions,
	}
	// Unset precisions follow the built-in layout when the table has the
	// built-in band count, and are all standard otherwise.
	if cfg.Precisions == nil && table.NumBands() == coeffs.DefaultBands {
		cfg.Precisions = equalizer.DefaultConfig().Precisions
	}
	if e.GainsDB != nil {
		cfg.Gains = make([]fixed.Gain, len(e.GainsDB))
		for i, db := range e.GainsDB {
			cfg.Gains[i] = fixed.GainFromDB(db)
		}
	}
	return cfg, cfg.Validate()
}
