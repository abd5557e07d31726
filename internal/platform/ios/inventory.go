package ios

import (
	"context"
	"encoding/json"

	"github.com/icarus-itcs/simyard/internal/device"
)

// DeviceType is one creatable simulator hardware profile.
type DeviceType struct {
	Name       string `json:"name"`
	Identifier string `json:"identifier"`
}

// Runtime is one installed simulator OS image.
type Runtime struct {
	Name        string `json:"name"`
	Identifier  string `json:"identifier"`
	Version     string `json:"version"`
	IsAvailable bool   `json:"isAvailable"`
}

// DeviceTypes lists the hardware profiles simctl can create devices from.
func (a *Adapter) DeviceTypes(ctx context.Context) ([]DeviceType, error) {
	const op = "list device types"

	out, err := a.run.Output(ctx, a.opts.Xcrun, "simctl", "list", "devicetypes", "--json")
	if err != nil {
		return nil, a.mapError(op, device.Device{}, err)
	}

	var parsed struct {
		DeviceTypes []DeviceType `json:"devicetypes"`
	}
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		return nil, device.NewCommandFailed(op, err, out)
	}
	return parsed.DeviceTypes, nil
}

// Runtimes lists the installed simulator OS images.
func (a *Adapter) Runtimes(ctx context.Context) ([]Runtime, error) {
	const op = "list runtimes"

	out, err := a.run.Output(ctx, a.opts.Xcrun, "simctl", "list", "runtimes", "--json")
	if err != nil {
		return nil, a.mapError(op, device.Device{}, err)
	}

	var parsed struct {
		Runtimes []Runtime `json:"runtimes"`
	}
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		return nil, device.NewCommandFailed(op, err, out)
	}
	return parsed.Runtimes, nil
}

// Create makes a new simulator from a device type and, optionally, a runtime.
// When runtime is empty simctl picks the newest installed image for the
// device type. The new device starts shut down.
func (a *Adapter) Create(ctx context.Context, name, deviceType, runtime string) (device.Device, error) {
	const op = "create"

	if name == "" {
		return device.Device{}, device.NewInvalidInput(op, "device name must not be empty")
	}
	if deviceType == "" {
		return device.Device{}, device.NewInvalidInput(op, "device type must not be empty")
	}

	args := []string{"simctl", "create", name, deviceType}
	if runtime != "" {
		args = append(args, runtime)
	}

	udid, err := a.run.Output(ctx, a.opts.Xcrun, args...)
	if err != nil {
		return device.Device{}, a.mapError(op, device.Device{Name: name}, err)
	}

	return device.Device{
		ID:          device.DeriveID(udid),
		Name:        name,
		Platform:    device.PlatformIOS,
		NativeID:    udid,
		State:       device.StateShutdown,
		IsAvailable: true,
		OSVersion:   osVersionFromRuntime(runtime),
		Model:       modelFromDeviceType(deviceType),
	}, nil
}
