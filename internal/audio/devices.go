package audio

import (
	"fmt"
	"io"

	"github.com/gordonklaus/portaudio"

	"sonoscope/internal/config"
)

// PortAudio entry points, stubbed in tests.
var (
	paInitialize         = portaudio.Initialize
	paTerminate          = portaudio.Terminate
	paDevices            = portaudio.Devices
	paDefaultInputDevice = portaudio.DefaultInputDevice
)

// Device is a host-independent view of a PortAudio device, kept small
// enough for the CLI and dashboard to render directly.
type Device struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	DefaultInput      bool
}

// Initialize sets up the PortAudio subsystem. Must be called before
// any stream or device query and paired with Terminate.
func Initialize() error {
	if err := paInitialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate shuts the PortAudio subsystem down. Defer it right after
// Initialize.
func Terminate() error {
	if err := paTerminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// InputDevice resolves deviceID to a PortAudio device. MinDeviceID
// (-1) selects the system default input. Devices without input
// channels are rejected.
func InputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	if deviceID == config.MinDeviceID {
		return paDefaultInputDevice()
	}

	devices, err := paDevices()
	if err != nil {
		return nil, err
	}

	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}

	device := devices[deviceID]
	if device.MaxInputChannels == 0 {
		return nil, fmt.Errorf("device %d (%s) does not support input", deviceID, device.Name)
	}
	return device, nil
}

// GetDevices returns every host device. PortAudio must already be
// initialized.
func GetDevices() ([]Device, error) {
	infos, err := paDevices()
	if err != nil {
		return nil, err
	}

	defaultInput, err := paDefaultInputDevice()
	if err != nil {
		defaultInput = nil // Headless hosts have no default input
	}

	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = Device{
			ID:                i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
			DefaultInput:      defaultInput != nil && info.Name == defaultInput.Name,
		}
	}

	return devices, nil
}

// ListDevices writes a human-readable listing of every device to w.
func ListDevices(w io.Writer) error {
	devices, err := GetDevices()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\nAvailable Audio Devices\n\n")
	for _, d := range devices {
		WriteDevice(w, d)
	}

	return nil
}

// WriteDevice writes one device entry in the listing format.
func WriteDevice(w io.Writer, d Device) {
	deviceType := ""
	switch {
	case d.MaxInputChannels > 0 && d.MaxOutputChannels > 0:
		deviceType = "Input/Output"
	case d.MaxInputChannels > 0:
		deviceType = "Input"
	case d.MaxOutputChannels > 0:
		deviceType = "Output"
	}

	marker := ""
	if d.DefaultInput {
		marker = " (default input)"
	}

	fmt.Fprintf(w, "[%d] %s (%s)%s\n", d.ID, d.Name, deviceType, marker)
	fmt.Fprintf(w, "    Input channels: %d, Output channels: %d\n",
		d.MaxInputChannels, d.MaxOutputChannels)
	fmt.Fprintf(w, "    Default sample rate: %.0f Hz\n\n", d.DefaultSampleRate)
}
