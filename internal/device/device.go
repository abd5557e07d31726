package device

import (
	"time"
)

// Platform identifies which toolchain controls a device.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// State is the lifecycle state of a device. Not every platform can observe
// every intermediate state; Android emulators only report shutdown or booted.
type State string

const (
	StateShutdown     State = "shutdown"
	StateBooting      State = "booting"
	StateBooted       State = "booted"
	StateShuttingDown State = "shuttingDown"
	StateUnknown      State = "unknown"
)

// Device represents one virtual device instance: an iOS simulator, an Android
// AVD template, or a running emulator.
type Device struct {
	// ID is the stable identifier derived from the platform natural key
	// (simulator UDID, AVD name). It survives boot/shutdown cycles and
	// re-listing.
	ID   string `json:"id"`
	Name string `json:"name"`

	Platform Platform `json:"platform"`

	// NativeID is the platform-native handle used for control calls: the
	// simulator UDID, or the emulator serial. Empty while the device exists
	// only as a template; such a device is necessarily in StateShutdown.
	NativeID string `json:"nativeId,omitempty"`

	State State `json:"state"`

	// IsAvailable reports whether the device's OS image is usable at all,
	// which is distinct from whether it is running.
	IsAvailable bool `json:"isAvailable"`

	OSVersion string `json:"osVersion,omitempty"`
	Model     string `json:"model,omitempty"`

	// Attributes carries platform-specific extras (API level, runtime
	// identifier, serial).
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Running reports whether the device has a live runtime instance. A device
// that is still booting or shutting down counts as running; its runtime
// exists even though it is not usable yet.
func (d Device) Running() bool {
	switch d.State {
	case StateBooted, StateBooting, StateShuttingDown:
		return true
	default:
		return false
	}
}

// String returns a display string for the device.
func (d Device) String() string {
	return d.Name + " (" + string(d.Platform) + ", " + string(d.State) + ")"
}

// Status is a point-in-time snapshot of a device's state. It is created fresh
// on every status query and never mutated.
type Status struct {
	State       State             `json:"state"`
	LastUpdated time.Time         `json:"lastUpdated"`
	Info        map[string]string `json:"info,omitempty"`
}

// NewStatus returns a snapshot stamped with the current time.
func NewStatus(state State, info map[string]string) Status {
	return Status{State: state, LastUpdated: time.Now(), Info: info}
}
