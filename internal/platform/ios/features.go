package ios

import (
	"context"
	"fmt"
	"strconv"

	"github.com/icarus-itcs/simyard/internal/device"
)

// ApplyBattery overrides the status bar battery indicator. The device must
// be booted; the override does not persist across reboots.
func (a *Adapter) ApplyBattery(ctx context.Context, dev device.Device, level int, charging bool) error {
	const op = "battery"

	if level < 0 || level > 100 {
		return device.NewInvalidInput(op, fmt.Sprintf("battery level must be between 0 and 100, got %d", level))
	}
	if err := a.requireBooted(ctx, op, dev); err != nil {
		return err
	}

	state := "discharging"
	switch {
	case charging && level >= 100:
		state = "charged"
	case charging:
		state = "charging"
	}

	_, err := a.run.Output(ctx, a.opts.Xcrun, "simctl", "status_bar", dev.NativeID, "override",
		"--batteryLevel", strconv.Itoa(level), "--batteryState", state)
	if err != nil {
		return a.mapError(op, dev, err)
	}
	return nil
}

// ApplyLocation overrides the simulated GPS position. The device must be
// booted.
func (a *Adapter) ApplyLocation(ctx context.Context, dev device.Device, latitude, longitude float64) error {
	const op = "location"

	if latitude < -90 || latitude > 90 {
		return device.NewInvalidInput(op, fmt.Sprintf("latitude must be between -90 and 90, got %v", latitude))
	}
	if longitude < -180 || longitude > 180 {
		return device.NewInvalidInput(op, fmt.Sprintf("longitude must be between -180 and 180, got %v", longitude))
	}
	if err := a.requireBooted(ctx, op, dev); err != nil {
		return err
	}

	coordinate := strconv.FormatFloat(latitude, 'f', -1, 64) + "," + strconv.FormatFloat(longitude, 'f', -1, 64)
	if _, err := a.run.Output(ctx, a.opts.Xcrun, "simctl", "location", dev.NativeID, "set", coordinate); err != nil {
		return a.mapError(op, dev, err)
	}
	return nil
}

// InstallApp installs the .app bundle at path. Unlike the emulator backend
// the simulator is never booted implicitly; installing on a stopped device
// is refused so the caller stays in charge of the lifecycle.
func (a *Adapter) InstallApp(ctx context.Context, dev device.Device, path string) (device.Device, error) {
	const op = "install"

	current, err := a.refresh(ctx, op, dev)
	if err != nil {
		return device.Device{}, err
	}
	if current.State != device.StateBooted {
		return device.Device{}, device.NewUnavailable(op, dev.Name+" must be booted before installing apps")
	}

	if _, err := a.run.Output(ctx, a.opts.Xcrun, "simctl", "install", dev.NativeID, path); err != nil {
		return device.Device{}, a.mapError(op, dev, err)
	}
	return current, nil
}

func (a *Adapter) requireBooted(ctx context.Context, op string, dev device.Device) error {
	current, err := a.refresh(ctx, op, dev)
	if err != nil {
		return err
	}
	if current.State != device.StateBooted {
		return device.NewUnavailable(op, dev.Name+" is not booted")
	}
	return nil
}
