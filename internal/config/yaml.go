// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"sonoscope/internal/log"
	"sonoscope/pkg/bitint"
)

// LoadConfig loads configuration from the YAML file at path. An empty
// path searches the default location ("sonoscope.yaml" in the working
// directory) and falls back to built-in defaults when no file exists.
// Environment overrides are applied after the file, then the result is
// validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		candidates := []string{
			"sonoscope.yaml",
			"config.yaml",
		}
		found := false
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				found = true
				break
			}
		}
		if !found {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment overrides win over the file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks every field the engine depends on. It returns the
// first violation found.
func (c *Config) Validate() error {
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error, fatal", c.LogLevel)
	}

	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate %.0f outside [%d, %d]",
			c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Audio.FramesPerBuffer <= 0 || c.Audio.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("audio.frames_per_buffer %d outside (0, %d]",
			c.Audio.FramesPerBuffer, MaxBufferFrames)
	}
	if c.Audio.InputChannels < 1 || c.Audio.InputChannels > 2 {
		return fmt.Errorf("audio.input_channels %d must be 1 or 2", c.Audio.InputChannels)
	}
	if c.Audio.InputDevice < MinDeviceID {
		return fmt.Errorf("audio.input_device %d below %d", c.Audio.InputDevice, MinDeviceID)
	}
	if !c.Audio.Source.IsValid() {
		return fmt.Errorf("audio.source %q must be %q or %q", c.Audio.Source, SourceMic, SourceSine)
	}
	if c.Audio.SineFrequency <= 0 || c.Audio.SineFrequency > c.Audio.SampleRate/2 {
		return fmt.Errorf("audio.sine_frequency %.1f outside (0, nyquist]", c.Audio.SineFrequency)
	}
	if c.Audio.GateThreshold < 0 || c.Audio.GateThreshold >= 1 {
		return fmt.Errorf("audio.gate_threshold %.3f outside [0, 1)", c.Audio.GateThreshold)
	}
	if c.Audio.BufferSeconds <= 0 {
		return fmt.Errorf("audio.buffer_seconds must be positive")
	}

	if !bitint.IsPowerOfTwo(c.Analysis.FrameSize) {
		return fmt.Errorf("analysis.frame_size %d is not a power of two", c.Analysis.FrameSize)
	}
	if c.Analysis.FrameSize < MinFrameSize || c.Analysis.FrameSize > MaxFrameSize {
		return fmt.Errorf("analysis.frame_size %d outside [%d, %d]",
			c.Analysis.FrameSize, MinFrameSize, MaxFrameSize)
	}
	if c.Analysis.HopInterval <= 0 {
		return fmt.Errorf("analysis.hop_interval must be positive")
	}
	if c.Analysis.SmoothingAlpha <= 0 || c.Analysis.SmoothingAlpha > 1 {
		return fmt.Errorf("analysis.smoothing_alpha %.3f outside (0, 1]", c.Analysis.SmoothingAlpha)
	}
	if c.Analysis.LPCOrderCap < 2 {
		return fmt.Errorf("analysis.lpc_order_cap %d below 2", c.Analysis.LPCOrderCap)
	}

	if c.Onset.Threshold < 0 || c.Onset.Threshold > MaxOnsetThreshold {
		return fmt.Errorf("onset.threshold %.3f outside [0, %.1f]",
			c.Onset.Threshold, float64(MaxOnsetThreshold))
	}
	if c.Onset.Cooldown <= 0 {
		return fmt.Errorf("onset.cooldown must be positive")
	}
	if c.Onset.BeatThreshold < 0 || c.Onset.BeatThreshold > MaxOnsetThreshold {
		return fmt.Errorf("onset.beat_threshold %.3f outside [0, %.1f]",
			c.Onset.BeatThreshold, float64(MaxOnsetThreshold))
	}

	if c.Transport.WebSocketEnabled {
		if c.Transport.WebSocketPort < 1 || c.Transport.WebSocketPort > 65535 {
			return fmt.Errorf("transport.websocket_port %d outside [1, 65535]", c.Transport.WebSocketPort)
		}
		if c.Transport.WebSocketMinGap <= 0 {
			return fmt.Errorf("transport.websocket_min_gap must be positive")
		}
	}
	if c.Transport.UDPEnabled {
		if !strings.Contains(c.Transport.UDPAddress, ":") {
			return fmt.Errorf("transport.udp_address %q appears invalid (missing port?)", c.Transport.UDPAddress)
		}
		if c.Transport.UDPInterval <= 0 {
			return fmt.Errorf("transport.udp_interval must be positive")
		}
	}

	if c.Recording.Enabled {
		if c.Recording.OutputFile == "" {
			return fmt.Errorf("recording.output_file must be set when recording is enabled")
		}
		if c.Recording.BitDepth != 16 && c.Recording.BitDepth != 24 {
			return fmt.Errorf("recording.bit_depth %d must be 16 or 24", c.Recording.BitDepth)
		}
	}

	// The analysis window must fit into the ring with room to spare, or
	// the hop loop would never see a full frame.
	capacity := int(c.Audio.BufferSeconds * c.Audio.SampleRate)
	if capacity < c.Analysis.FrameSize {
		return fmt.Errorf("audio.buffer_seconds %.2f holds %d samples, below frame_size %d",
			c.Audio.BufferSeconds, capacity, c.Analysis.FrameSize)
	}

	return nil
}

// applyEnvOverrides applies SONOSCOPE_* environment variables on top of
// whatever the file provided. Unparseable values are ignored with a
// debug note rather than failing startup.
func (cfg *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("SONOSCOPE_LOG_LEVEL"); ok {
		cfg.LogLevel = val
		log.Debugf("config: overriding log_level from env: %s", val)
	}

	if val, ok := os.LookupEnv("SONOSCOPE_SAMPLE_RATE"); ok {
		if fVal, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Audio.SampleRate = fVal
			log.Debugf("config: overriding audio.sample_rate from env: %v", fVal)
		}
	}

	if val, ok := os.LookupEnv("SONOSCOPE_SOURCE"); ok {
		cfg.Audio.Source = Source(val)
		log.Debugf("config: overriding audio.source from env: %s", val)
	}

	if val, ok := os.LookupEnv("SONOSCOPE_WS_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.WebSocketEnabled = bVal
			log.Debugf("config: overriding transport.websocket_enabled from env: %v", bVal)
		}
	}

	if val, ok := os.LookupEnv("SONOSCOPE_WS_PORT"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			cfg.Transport.WebSocketPort = iVal
			log.Debugf("config: overriding transport.websocket_port from env: %d", iVal)
		}
	}

	if val, ok := os.LookupEnv("SONOSCOPE_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
			log.Debugf("config: overriding transport.udp_enabled from env: %v", bVal)
		}
	}

	if val, ok := os.LookupEnv("SONOSCOPE_UDP_ADDRESS"); ok {
		cfg.Transport.UDPAddress = val
		log.Debugf("config: overriding transport.udp_address from env: %s", val)
	}

	if val, ok := os.LookupEnv("SONOSCOPE_UDP_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Transport.UDPInterval = dur
			log.Debugf("config: overriding transport.udp_interval from env: %s", dur)
		}
	}
}
