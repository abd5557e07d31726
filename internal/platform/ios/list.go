package ios

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/icarus-itcs/simyard/internal/device"
)

const (
	runtimePrefix    = "com.apple.CoreSimulator.SimRuntime."
	deviceTypePrefix = "com.apple.CoreSimulator.SimDeviceType."
)

// simctlList matches `xcrun simctl list devices --json`: a map from runtime
// identifier to the devices created for that runtime.
type simctlList struct {
	Devices map[string][]simctlDevice `json:"devices"`
}

type simctlDevice struct {
	UDID                 string `json:"udid"`
	Name                 string `json:"name"`
	State                string `json:"state"`
	IsAvailable          bool   `json:"isAvailable"`
	DeviceTypeIdentifier string `json:"deviceTypeIdentifier"`
	AvailabilityError    string `json:"availabilityError,omitempty"`
}

// List returns every simulator known to simctl, including unavailable ones.
func (a *Adapter) List(ctx context.Context) ([]device.Device, error) {
	const op = "list devices"

	out, err := a.run.Output(ctx, a.opts.Xcrun, "simctl", "list", "devices", "--json")
	if err != nil {
		return nil, a.mapError(op, device.Device{}, err)
	}

	var parsed simctlList
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		return nil, device.NewCommandFailed(op, err, out)
	}

	var devices []device.Device
	for runtimeID, entries := range parsed.Devices {
		for _, entry := range entries {
			devices = append(devices, deviceFromSimctl(runtimeID, entry))
		}
	}

	// The JSON is keyed by runtime, so map order would leak into the result.
	sort.Slice(devices, func(i, j int) bool {
		if devices[i].Name != devices[j].Name {
			return devices[i].Name < devices[j].Name
		}
		return devices[i].NativeID < devices[j].NativeID
	})
	return devices, nil
}

func deviceFromSimctl(runtimeID string, entry simctlDevice) device.Device {
	attrs := map[string]string{}
	if runtimeID != "" {
		attrs["runtime"] = runtimeID
	}
	if entry.DeviceTypeIdentifier != "" {
		attrs["deviceType"] = entry.DeviceTypeIdentifier
	}
	if entry.AvailabilityError != "" {
		attrs["availabilityError"] = entry.AvailabilityError
	}

	return device.Device{
		ID:          device.DeriveID(entry.UDID),
		Name:        entry.Name,
		Platform:    device.PlatformIOS,
		NativeID:    entry.UDID,
		State:       stateFromSimctl(entry.State),
		IsAvailable: entry.IsAvailable,
		OSVersion:   osVersionFromRuntime(runtimeID),
		Model:       modelFromDeviceType(entry.DeviceTypeIdentifier),
		Attributes:  attrs,
	}
}

func stateFromSimctl(state string) device.State {
	switch state {
	case "Booted":
		return device.StateBooted
	case "Booting":
		return device.StateBooting
	case "Shutdown":
		return device.StateShutdown
	case "Shutting Down":
		return device.StateShuttingDown
	default:
		return device.StateUnknown
	}
}

// osVersionFromRuntime turns a runtime identifier such as
// "com.apple.CoreSimulator.SimRuntime.iOS-17-0" into "iOS 17.0".
// Identifiers that do not follow the known layout pass through unchanged.
func osVersionFromRuntime(id string) string {
	if !strings.HasPrefix(id, runtimePrefix) {
		return id
	}
	rest := strings.TrimPrefix(id, runtimePrefix)
	name, version, found := strings.Cut(rest, "-")
	if !found {
		return rest
	}
	return name + " " + strings.ReplaceAll(version, "-", ".")
}

// modelFromDeviceType turns a device type identifier such as
// "com.apple.CoreSimulator.SimDeviceType.iPhone-15-Pro" into "iPhone 15 Pro".
func modelFromDeviceType(id string) string {
	return strings.ReplaceAll(strings.TrimPrefix(id, deviceTypePrefix), "-", " ")
}
