package android

import (
	"context"
	"errors"
	"strings"

	"github.com/icarus-itcs/simyard/internal/device"
	"github.com/icarus-itcs/simyard/internal/platform"
)

// ApplyBattery is not implemented for emulators.
func (a *Adapter) ApplyBattery(_ context.Context, _ device.Device, _ int, _ bool) error {
	return device.NewUnsupported("battery")
}

// ApplyLocation is not implemented for emulators.
func (a *Adapter) ApplyLocation(_ context.Context, _ device.Device, _, _ float64) error {
	return device.NewUnsupported("location")
}

// InstallApp installs the APK at path, booting the AVD first when no live
// emulator is running it. The install waits for the OS inside the emulator
// to finish booting; adb accepts connections long before the package
// manager is ready.
func (a *Adapter) InstallApp(ctx context.Context, dev device.Device, path string) (device.Device, error) {
	const op = "install"
	name := avdKey(dev.Name)

	entry, running, err := a.findRunning(ctx, op, name)
	if err != nil {
		return device.Device{}, err
	}
	if !running || stateFromAdb(entry.status) != device.StateBooted {
		if err := a.Boot(ctx, dev); err != nil {
			return device.Device{}, err
		}
		entry, running, err = a.findRunning(ctx, op, name)
		if err != nil {
			return device.Device{}, err
		}
		if !running {
			return device.Device{}, device.NewUnavailable(op, name+" did not come up after boot")
		}
	}

	if err := a.waitBootCompleted(ctx, op, entry.serial); err != nil {
		return device.Device{}, err
	}

	out, err := a.run.Output(ctx, a.opts.Adb, "-s", entry.serial, "install", "-r", path)
	if err != nil {
		return device.Device{}, a.mapError(op, dev, err)
	}
	// Older adb builds exit zero and report the failure on stdout.
	if strings.Contains(out, "Failure") {
		return device.Device{}, device.NewCommandFailed(op, errors.New("adb install reported failure"), out)
	}

	installed := dev
	installed.ID = device.DeriveID(name)
	installed.Name = name
	installed.Platform = device.PlatformAndroid
	installed.NativeID = entry.serial
	installed.State = device.StateBooted
	installed.IsAvailable = true
	if installed.Attributes == nil {
		installed.Attributes = map[string]string{}
	}
	installed.Attributes["serial"] = entry.serial
	return installed, nil
}

// waitBootCompleted polls sys.boot_completed until the OS reports 1. Shell
// errors count as "not yet"; early in boot adb cannot reach the property
// service at all.
func (a *Adapter) waitBootCompleted(ctx context.Context, op, serial string) error {
	err := platform.Poll(ctx, a.opts.PollInterval, a.opts.InstallBootAttempts, func(ctx context.Context) (bool, error) {
		out, err := a.getprop(ctx, serial, "sys.boot_completed")
		if err != nil {
			return false, nil
		}
		return out == "1", nil
	})
	if errors.Is(err, platform.ErrWaitExpired) {
		return device.NewTimedOut(op)
	}
	return err
}
