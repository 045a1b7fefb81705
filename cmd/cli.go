// SPDX-License-Identifier: MIT
/*
Package cmd wires the command line surface: the root command runs the
live engine, and subcommands cover device listing, offline file
analysis, and build information. Flags overlay the loaded configuration
only when the user actually set them, so the precedence stays
defaults, file, environment, flags.
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"sonoscope/internal/audio"
	"sonoscope/internal/config"
	"sonoscope/internal/engine"
	"sonoscope/internal/log"
	"sonoscope/internal/offline"
	"sonoscope/internal/tui"
	"sonoscope/pkg/build"
)

// Execute parses the command line and runs the selected command.
func Execute() error {
	var (
		cfg        *config.Config
		configPath string
	)
	buildInfo := build.GetBuildFlags()

	root := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Real-time psychoacoustic feature engine",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			applyFlagOverrides(cmd.Flags(), loaded)
			if err := loaded.Validate(); err != nil {
				return err
			}
			if level, ok := log.ParseLevel(loaded.LogLevel); ok {
				log.SetLevel(level)
			}
			cfg = loaded
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(cfg)
		},
	}
	root.SetHelpCommand(&cobra.Command{Hidden: true})

	root.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a YAML config file (default: sonoscope.yaml if present)")
	registerFlags(root.PersistentFlags())

	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "List available capture devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := audio.Initialize(); err != nil {
				return err
			}
			defer audio.Terminate()
			if browse, _ := cmd.Flags().GetBool("browse"); browse {
				return tui.BrowseDevices()
			}
			return audio.ListDevices(os.Stdout)
		},
	}
	devicesCmd.Flags().Bool("browse", false, "Browse devices interactively")
	root.AddCommand(devicesCmd)

	analyzeCmd := &cobra.Command{
		Use:   "analyze <file.wav>",
		Short: "Analyze a WAV file offline and print a feature report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := offline.Analyze(cfg, args[0])
			if err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			report.WriteText(os.Stdout)
			return nil
		},
	}
	analyzeCmd.Flags().Bool("json", false, "Emit the report as JSON")
	root.AddCommand(analyzeCmd)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(build.Summary())
		},
	})

	return root.Execute()
}

// registerFlags declares every engine flag. The registered defaults
// are display only; applyFlagOverrides copies a value into the config
// only when the flag was set.
func registerFlags(flags *pflag.FlagSet) {
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")

	flags.IntP("device", "d", config.DefaultInputDevice,
		"Input device ID; see the devices command")
	flags.Float64P("sample-rate", "s", config.DefaultSampleRate, "Sample rate in Hz")
	flags.IntP("frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"Capture block size in frames")
	flags.IntP("channels", "c", config.DefaultInputChannels,
		"Input channels (1=mono, 2=stereo downmix)")
	flags.String("source", string(config.SourceMic), "Sample source (mic or sine)")
	flags.Float64("sine-frequency", config.DefaultSineFrequency, "Oscillator frequency in Hz")
	flags.Float64("sine-amplitude", config.DefaultSineAmplitude, "Oscillator amplitude (0..1)")
	flags.Float64("gate", config.DefaultGateThreshold, "Noise gate threshold (0 disables)")
	flags.BoolP("low-latency", "l", false, "Use the device's low-latency profile")

	flags.Int("frame-size", config.DefaultFrameSize, "Analysis window in samples (power of two)")
	flags.Int("hop", int(config.DefaultHopInterval/time.Millisecond),
		"Analysis hop interval in milliseconds")
	flags.Float64("smoothing", config.DefaultSmoothingAlpha, "Feature smoothing alpha (0..1]")
	flags.String("window", config.DefaultWindow, "FFT window function (hann, hamming, blackman, nuttall, ...)")
	flags.Float64("onset-threshold", config.DefaultOnsetThreshold, "Onset detection amplitude threshold")

	flags.BoolP("record", "r", false, "Record the capture stream to a WAV file")
	flags.StringP("output", "o", config.DefaultRecordingFile, "Recording output file")

	flags.Bool("tui", false, "Show the live feature dashboard")
	flags.Bool("websocket", false, "Serve JSON snapshots over WebSocket")
	flags.Int("websocket-port", config.DefaultWebSocketPort, "WebSocket listen port")
	flags.Bool("udp", false, "Send binary snapshot packets over UDP")
	flags.String("udp-address", config.DefaultUDPAddress, "UDP target address (host:port)")
	flags.Bool("log-snapshots", false, "Debug-log a summary of every snapshot")
}

// applyFlagOverrides copies explicitly set flags into cfg.
func applyFlagOverrides(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}

	if flags.Changed("device") {
		cfg.Audio.InputDevice, _ = flags.GetInt("device")
	}
	if flags.Changed("sample-rate") {
		cfg.Audio.SampleRate, _ = flags.GetFloat64("sample-rate")
	}
	if flags.Changed("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer, _ = flags.GetInt("frames-per-buffer")
	}
	if flags.Changed("channels") {
		cfg.Audio.InputChannels, _ = flags.GetInt("channels")
	}
	if flags.Changed("source") {
		src, _ := flags.GetString("source")
		cfg.Audio.Source = config.Source(src)
	}
	if flags.Changed("sine-frequency") {
		cfg.Audio.SineFrequency, _ = flags.GetFloat64("sine-frequency")
	}
	if flags.Changed("sine-amplitude") {
		cfg.Audio.SineAmplitude, _ = flags.GetFloat64("sine-amplitude")
	}
	if flags.Changed("gate") {
		cfg.Audio.GateThreshold, _ = flags.GetFloat64("gate")
	}
	if flags.Changed("low-latency") {
		cfg.Audio.LowLatency, _ = flags.GetBool("low-latency")
	}

	if flags.Changed("frame-size") {
		cfg.Analysis.FrameSize, _ = flags.GetInt("frame-size")
	}
	if flags.Changed("hop") {
		ms, _ := flags.GetInt("hop")
		cfg.Analysis.HopInterval = time.Duration(ms) * time.Millisecond
	}
	if flags.Changed("smoothing") {
		cfg.Analysis.SmoothingAlpha, _ = flags.GetFloat64("smoothing")
	}
	if flags.Changed("window") {
		cfg.Analysis.Window, _ = flags.GetString("window")
	}
	if flags.Changed("onset-threshold") {
		cfg.Onset.Threshold, _ = flags.GetFloat64("onset-threshold")
	}

	if flags.Changed("record") {
		cfg.Recording.Enabled, _ = flags.GetBool("record")
	}
	if flags.Changed("output") {
		cfg.Recording.OutputFile, _ = flags.GetString("output")
	}

	if flags.Changed("tui") {
		cfg.TUI.Enabled, _ = flags.GetBool("tui")
	}
	if flags.Changed("websocket") {
		cfg.Transport.WebSocketEnabled, _ = flags.GetBool("websocket")
	}
	if flags.Changed("websocket-port") {
		cfg.Transport.WebSocketPort, _ = flags.GetInt("websocket-port")
	}
	if flags.Changed("udp") {
		cfg.Transport.UDPEnabled, _ = flags.GetBool("udp")
	}
	if flags.Changed("udp-address") {
		cfg.Transport.UDPAddress, _ = flags.GetString("udp-address")
	}
	if flags.Changed("log-snapshots") {
		cfg.Transport.LogSnapshots, _ = flags.GetBool("log-snapshots")
	}
}

// runEngine starts the live pipeline and blocks until a signal arrives
// or, in dashboard mode, the user quits.
func runEngine(cfg *config.Config) error {
	if cfg.Audio.Source == config.SourceMic {
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()
	}

	eng, err := engine.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return eng.Run(ctx)
	})

	if cfg.TUI.Enabled {
		g.Go(func() error {
			// Quitting the dashboard shuts the whole engine down.
			defer stop()
			return tui.Run(ctx, eng.Snapshots(), eng.Spectrum())
		})
	} else {
		log.Infof("engine running; ctrl-c to stop")
	}

	return g.Wait()
}
