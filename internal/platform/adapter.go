// Package platform defines the contract every device backend implements and
// the small helpers shared between backends.
package platform

import (
	"context"
	"errors"
	"time"

	"github.com/icarus-itcs/simyard/internal/device"
)

// Adapter is one device backend (a simulator or emulator toolchain). All
// calls are synchronous; long waits are bounded by Poll budgets and the
// caller's context.
type Adapter interface {
	// Platform names the backend. Every device returned by List carries it.
	Platform() device.Platform

	// List returns every device the backend knows about, running or not.
	List(ctx context.Context) ([]device.Device, error)

	// Boot powers the device on and blocks until it is usable. Booting an
	// already running device is a no-op that still surfaces the viewer UI
	// where the platform has one.
	Boot(ctx context.Context, dev device.Device) error

	// Shutdown powers the device off.
	Shutdown(ctx context.Context, dev device.Device) error

	// Restart power-cycles the device.
	Restart(ctx context.Context, dev device.Device) error

	// Delete removes the device definition from the backend.
	Delete(ctx context.Context, dev device.Device) error

	// Status reports the current lifecycle state of the device.
	Status(ctx context.Context, dev device.Device) (device.Status, error)

	// ApplyBattery overrides the displayed battery level (0-100) and
	// charging state on backends that support it.
	ApplyBattery(ctx context.Context, dev device.Device, level int, charging bool) error

	// ApplyLocation overrides the simulated GPS position on backends that
	// support it.
	ApplyLocation(ctx context.Context, dev device.Device, latitude, longitude float64) error

	// InstallApp installs the artifact at path, booting the device first when
	// the backend requires a running target. It returns the device with any
	// state the install changed.
	InstallApp(ctx context.Context, dev device.Device, path string) (device.Device, error)
}

// Lifecycle is the subset of Adapter needed to power-cycle a device.
type Lifecycle interface {
	Boot(ctx context.Context, dev device.Device) error
	Shutdown(ctx context.Context, dev device.Device) error
}

// RestartByCycle shuts the device down, gives the backend a moment to settle
// and boots it again. Adapters use it to implement Restart from their own
// Boot and Shutdown.
func RestartByCycle(ctx context.Context, lc Lifecycle, dev device.Device, settle time.Duration) error {
	if err := lc.Shutdown(ctx, dev); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(settle):
	}
	return lc.Boot(ctx, dev)
}

// ErrWaitExpired reports a poll loop that used up all its attempts.
var ErrWaitExpired = errors.New("wait expired")

// Poll calls probe up to attempts times, sleeping interval between calls,
// until probe reports done or the context is cancelled. Probe errors abort
// the loop immediately.
func Poll(ctx context.Context, interval time.Duration, attempts int, probe func(ctx context.Context) (bool, error)) error {
	for i := 0; i < attempts; i++ {
		done, err := probe(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return ErrWaitExpired
}
