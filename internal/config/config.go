// Package config defines the engine configuration: compiled-in
// defaults, the YAML file schema, environment overrides and
// validation. Construction order is NewConfig -> file -> env ->
// Validate; everything downstream receives an already-validated
// *Config.
package config

import "time"

// Core configuration constants that define the boundaries and defaults
// for the analysis engine.
const (
	// Capture defaults
	DefaultSampleRate      = 44100.0     // CD-quality audio
	DefaultFramesPerBuffer = 512         // Capture block size (latency/throughput balance)
	DefaultInputDevice     = MinDeviceID // -1 selects the system default device
	DefaultInputChannels   = 1           // Mono analysis path
	DefaultSineFrequency   = 440.0       // Oscillator source tone
	DefaultSineAmplitude   = 0.18        // Oscillator source level
	DefaultGateThreshold   = 0.0         // Capture gate disabled
	DefaultBufferSeconds   = 2.0         // Ring buffer capacity in seconds

	// Analysis defaults
	DefaultFrameSize      = 4096 // FFT/analysis window (power of two)
	MinFrameSize          = 512  // Below this a frame is InsufficientData
	MaxFrameSize          = 16384
	DefaultHopInterval    = 5 * time.Millisecond // Analysis polling cadence
	DefaultWindow         = "hann"
	DefaultSmoothingAlpha = 0.3
	DefaultLPCOrderCap    = 16
	MaxFormants           = 4 // FormantSet cardinality, fixed

	// Onset / beat defaults
	DefaultOnsetThreshold = 0.3
	MaxOnsetThreshold     = 2.0
	DefaultOnsetCooldown  = 100 * time.Millisecond
	DefaultBeatThreshold  = 0.2

	// Transport defaults
	DefaultWebSocketPort   = 8080
	DefaultWebSocketMinGap = 33 * time.Millisecond // Broadcast rate limit (~30 Hz)
	DefaultUDPAddress      = "127.0.0.1:9090"
	DefaultUDPInterval     = 10 * time.Millisecond

	// Recording defaults
	DefaultRecordingFile = "recording.wav"
	DefaultBitDepth      = 16

	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // Maximum capture frames per buffer
)

// Source selects where the engine's samples come from.
type Source string

const (
	SourceMic  Source = "mic"  // PortAudio input stream
	SourceSine Source = "sine" // Built-in oscillator
)

// IsValid reports whether s is a recognized source.
func (s Source) IsValid() bool {
	return s == SourceMic || s == SourceSine
}

// Config holds all runtime configuration for the engine. It is built
// from defaults, then optionally a YAML file, then environment
// overrides; Validate runs before the engine sees it.
type Config struct {
	LogLevel  string          `yaml:"log_level"` // debug, info, warn, error
	Audio     AudioConfig     `yaml:"audio"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Onset     OnsetConfig     `yaml:"onset"`
	Transport TransportConfig `yaml:"transport"`
	Recording RecordingConfig `yaml:"recording"`
	TUI       TUIConfig       `yaml:"tui"`
}

// AudioConfig holds capture-side settings.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index (-1 for default)
	SampleRate      float64 `yaml:"sample_rate"`       // Hz
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Capture block size in frames
	InputChannels   int     `yaml:"input_channels"`    // 1 = mono (analysis path), 2 = stereo downmix
	Source          Source  `yaml:"source"`            // mic or sine
	SineFrequency   float64 `yaml:"sine_frequency"`    // Oscillator tone in Hz
	SineAmplitude   float64 `yaml:"sine_amplitude"`    // Oscillator peak amplitude
	GateThreshold   float64 `yaml:"gate_threshold"`    // Samples below this magnitude are zeroed
	BufferSeconds   float64 `yaml:"buffer_seconds"`    // Ring buffer capacity
	LowLatency      bool    `yaml:"low_latency"`       // Use the device's low-latency profile
}

// AnalysisConfig holds the spectral/pitch/formant settings.
type AnalysisConfig struct {
	FrameSize      int           `yaml:"frame_size"`      // FFT window, power of two
	HopInterval    time.Duration `yaml:"hop_interval"`    // Analysis polling cadence
	Window         string        `yaml:"window"`          // FFT window function; unrecognized names fall back to hann
	SmoothingAlpha float64       `yaml:"smoothing_alpha"` // EMA coefficient for the smoothed fields
	LPCOrderCap    int           `yaml:"lpc_order_cap"`   // Upper bound on the LPC model order
}

// OnsetConfig holds transient/beat detection settings.
type OnsetConfig struct {
	Threshold     float64       `yaml:"threshold"`      // RMS amplitude that counts as an onset
	Cooldown      time.Duration `yaml:"cooldown"`       // Debounce interval between onsets
	BeatThreshold float64       `yaml:"beat_threshold"` // RMS amplitude that raises the beat flag
}

// TransportConfig holds the snapshot publishing settings.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"` // Serve JSON snapshots over WebSocket
	WebSocketPort    int           `yaml:"websocket_port"`
	WebSocketMinGap  time.Duration `yaml:"websocket_min_gap"` // Minimum interval between broadcasts
	UDPEnabled       bool          `yaml:"udp_enabled"`       // Send binary snapshot packets over UDP
	UDPAddress       string        `yaml:"udp_address"`       // Target address, host:port
	UDPInterval      time.Duration `yaml:"udp_interval"`      // Packet send cadence
	LogSnapshots     bool          `yaml:"log_snapshots"`     // Debug-log a summary of each snapshot
}

// RecordingConfig holds the WAV capture tap settings.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	OutputFile string `yaml:"output_file"`
	BitDepth   int    `yaml:"bit_depth"` // 16 or 24
}

// TUIConfig holds the terminal dashboard settings.
type TUIConfig struct {
	Enabled bool `yaml:"enabled"`
}

// NewConfig returns a Config populated with the compiled-in defaults.
// This is the base that file and environment overrides are applied to.
func NewConfig() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     DefaultInputDevice,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			InputChannels:   DefaultInputChannels,
			Source:          SourceMic,
			SineFrequency:   DefaultSineFrequency,
			SineAmplitude:   DefaultSineAmplitude,
			GateThreshold:   DefaultGateThreshold,
			BufferSeconds:   DefaultBufferSeconds,
		},
		Analysis: AnalysisConfig{
			FrameSize:      DefaultFrameSize,
			HopInterval:    DefaultHopInterval,
			Window:         DefaultWindow,
			SmoothingAlpha: DefaultSmoothingAlpha,
			LPCOrderCap:    DefaultLPCOrderCap,
		},
		Onset: OnsetConfig{
			Threshold:     DefaultOnsetThreshold,
			Cooldown:      DefaultOnsetCooldown,
			BeatThreshold: DefaultBeatThreshold,
		},
		Transport: TransportConfig{
			WebSocketEnabled: false,
			WebSocketPort:    DefaultWebSocketPort,
			WebSocketMinGap:  DefaultWebSocketMinGap,
			UDPEnabled:       false,
			UDPAddress:       DefaultUDPAddress,
			UDPInterval:      DefaultUDPInterval,
			LogSnapshots:     false,
		},
		Recording: RecordingConfig{
			Enabled:    false,
			OutputFile: DefaultRecordingFile,
			BitDepth:   DefaultBitDepth,
		},
		TUI: TUIConfig{
			Enabled: false,
		},
	}
}
