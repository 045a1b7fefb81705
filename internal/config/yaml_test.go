// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "sonoscope.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config, got nil")
	}
	if cfg.Audio.SampleRate != DefaultSampleRate {
		t.Errorf("default sample rate = %v, want %v", cfg.Audio.SampleRate, DefaultSampleRate)
	}
	if cfg.Analysis.FrameSize != DefaultFrameSize {
		t.Errorf("default frame size = %v, want %v", cfg.Analysis.FrameSize, DefaultFrameSize)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Error("expected unmarshal error, got nil or wrong error")
	}
}

func TestLoadConfig_FileValues(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, `
log_level: debug
audio:
  sample_rate: 48000
  source: sine
  sine_frequency: 220
analysis:
  frame_size: 2048
  hop_interval: 10ms
onset:
  threshold: 0.5
  cooldown: 200ms
transport:
  udp_enabled: true
  udp_address: "10.0.0.5:7000"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q, want debug", cfg.LogLevel)
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("sample_rate = %v, want 48000", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Source != SourceSine {
		t.Errorf("source = %q, want sine", cfg.Audio.Source)
	}
	if cfg.Analysis.FrameSize != 2048 {
		t.Errorf("frame_size = %d, want 2048", cfg.Analysis.FrameSize)
	}
	if cfg.Analysis.HopInterval != 10*time.Millisecond {
		t.Errorf("hop_interval = %v, want 10ms", cfg.Analysis.HopInterval)
	}
	if cfg.Onset.Threshold != 0.5 {
		t.Errorf("onset threshold = %v, want 0.5", cfg.Onset.Threshold)
	}
	if !cfg.Transport.UDPEnabled || cfg.Transport.UDPAddress != "10.0.0.5:7000" {
		t.Errorf("udp transport = (%v, %q), want (true, 10.0.0.5:7000)",
			cfg.Transport.UDPEnabled, cfg.Transport.UDPAddress)
	}

	// Untouched keys keep their defaults.
	if cfg.Audio.FramesPerBuffer != DefaultFramesPerBuffer {
		t.Errorf("frames_per_buffer = %d, want default %d",
			cfg.Audio.FramesPerBuffer, DefaultFramesPerBuffer)
	}
	if cfg.Analysis.SmoothingAlpha != DefaultSmoothingAlpha {
		t.Errorf("smoothing_alpha = %v, want default %v",
			cfg.Analysis.SmoothingAlpha, DefaultSmoothingAlpha)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := writeTempConfig(t, `
transport:
  udp_enabled: false
  udp_address: "127.0.0.1:9090"
`)
	t.Setenv("SONOSCOPE_UDP_ENABLED", "true")
	t.Setenv("SONOSCOPE_UDP_ADDRESS", "192.168.1.20:6000")
	t.Setenv("SONOSCOPE_UDP_INTERVAL", "25ms")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if !cfg.Transport.UDPEnabled {
		t.Error("env override for udp_enabled lost to file value")
	}
	if cfg.Transport.UDPAddress != "192.168.1.20:6000" {
		t.Errorf("udp_address = %q, want env override", cfg.Transport.UDPAddress)
	}
	if cfg.Transport.UDPInterval != 25*time.Millisecond {
		t.Errorf("udp_interval = %v, want 25ms", cfg.Transport.UDPInterval)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"Defaults", func(c *Config) {}, ""},
		{"Bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"Sample rate too low", func(c *Config) { c.Audio.SampleRate = 4000 }, "sample_rate"},
		{"Frame size not pow2", func(c *Config) { c.Analysis.FrameSize = 5000 }, "power of two"},
		{"Frame size too small", func(c *Config) { c.Analysis.FrameSize = 256 }, "frame_size"},
		{"Onset threshold too high", func(c *Config) { c.Onset.Threshold = 2.5 }, "onset.threshold"},
		{"Alpha out of range", func(c *Config) { c.Analysis.SmoothingAlpha = 1.5 }, "smoothing_alpha"},
		{"Bad source", func(c *Config) { c.Audio.Source = "radio" }, "audio.source"},
		{"UDP missing port", func(c *Config) {
			c.Transport.UDPEnabled = true
			c.Transport.UDPAddress = "localhost"
		}, "udp_address"},
		{"Ring smaller than frame", func(c *Config) { c.Audio.BufferSeconds = 0.05 }, "buffer_seconds"},
		{"Recording without file", func(c *Config) {
			c.Recording.Enabled = true
			c.Recording.OutputFile = ""
		}, "output_file"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestDerivedValues(t *testing.T) {
	t.Parallel()
	cfg := NewConfig()

	if got := cfg.Nyquist(); got != 22050 {
		t.Errorf("Nyquist() = %v, want 22050", got)
	}
	if got := cfg.BinWidth(); got < 10.7 || got > 10.8 {
		t.Errorf("BinWidth() = %v, want ~10.77", got)
	}
	if got := cfg.RingCapacity(); got != 88200 {
		t.Errorf("RingCapacity() = %d, want 88200", got)
	}
	if got := cfg.LPCOrder(4096); got != DefaultLPCOrderCap {
		t.Errorf("LPCOrder(4096) = %d, want %d", got, DefaultLPCOrderCap)
	}
	if got := cfg.LPCOrder(32); got != 8 {
		t.Errorf("LPCOrder(32) = %d, want 8", got)
	}
}
