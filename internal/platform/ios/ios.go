// Package ios controls iOS simulators through the simctl tool shipped with
// the Xcode command line tools.
package ios

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/icarus-itcs/simyard/internal/device"
	"github.com/icarus-itcs/simyard/internal/execx"
	"github.com/icarus-itcs/simyard/internal/platform"
)

// Options configures the simulator backend. Zero values fall back to the
// defaults below.
type Options struct {
	// Xcrun is the xcrun binary used to reach simctl.
	Xcrun string
	// Open is the binary used to surface the viewer application.
	Open string
	// ViewerApp is the application opened after a successful boot.
	ViewerApp string

	PollInterval time.Duration
	// BootAttempts bounds the wait for a device to reach booted.
	BootAttempts int
	// DrainAttempts bounds the wait for a device to finish shutting down.
	DrainAttempts int
	// Settle is the pause between shutdown and boot during a restart.
	Settle time.Duration
}

func (o Options) withDefaults() Options {
	if o.Xcrun == "" {
		o.Xcrun = "xcrun"
	}
	if o.Open == "" {
		o.Open = "open"
	}
	if o.ViewerApp == "" {
		o.ViewerApp = "Simulator"
	}
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.BootAttempts <= 0 {
		o.BootAttempts = 20
	}
	if o.DrainAttempts <= 0 {
		o.DrainAttempts = 15
	}
	if o.Settle <= 0 {
		o.Settle = 3 * time.Second
	}
	return o
}

// Adapter drives simctl. It is safe for concurrent use; all state lives in
// the simulator runtime, not in the adapter.
type Adapter struct {
	run  execx.Runner
	log  logrus.FieldLogger
	opts Options
}

// New returns a simulator adapter backed by the given runner.
func New(run execx.Runner, log logrus.FieldLogger, opts Options) *Adapter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Adapter{run: run, log: log, opts: opts.withDefaults()}
}

func (a *Adapter) Platform() device.Platform { return device.PlatformIOS }

// Boot brings the device to the booted state and surfaces the viewer app.
// The device's live state decides what is left to do; a stale snapshot from
// the caller is never trusted.
func (a *Adapter) Boot(ctx context.Context, dev device.Device) error {
	const op = "boot"

	current, err := a.refresh(ctx, op, dev)
	if err != nil {
		return err
	}

	switch current.State {
	case device.StateBooted:
		return a.openViewer(ctx)
	case device.StateBooting:
		if err := a.waitForState(ctx, op, dev, device.StateBooted, a.opts.BootAttempts); err != nil {
			return err
		}
		return a.openViewer(ctx)
	case device.StateShuttingDown:
		if err := a.waitForState(ctx, op, dev, device.StateShutdown, a.opts.DrainAttempts); err != nil {
			return err
		}
	}

	if _, err := a.run.Output(ctx, a.opts.Xcrun, "simctl", "boot", dev.NativeID); err != nil {
		// A boot racing another caller is fine as long as the device is up.
		if !exitSaysCurrentState(err, "Booted") {
			return a.mapError(op, dev, err)
		}
	}
	if err := a.waitForState(ctx, op, dev, device.StateBooted, a.opts.BootAttempts); err != nil {
		return err
	}
	return a.openViewer(ctx)
}

// Shutdown powers the simulator off. It does not wait for the state to
// settle; simctl returns once the shutdown is underway.
func (a *Adapter) Shutdown(ctx context.Context, dev device.Device) error {
	const op = "shutdown"

	if _, err := a.run.Output(ctx, a.opts.Xcrun, "simctl", "shutdown", dev.NativeID); err != nil {
		if exitSaysCurrentState(err, "Shutdown") {
			return nil
		}
		return a.mapError(op, dev, err)
	}
	return nil
}

// Restart power-cycles the simulator.
func (a *Adapter) Restart(ctx context.Context, dev device.Device) error {
	return platform.RestartByCycle(ctx, a, dev, a.opts.Settle)
}

// Delete removes the simulator, shutting it down first when it is running.
func (a *Adapter) Delete(ctx context.Context, dev device.Device) error {
	const op = "delete"

	current, err := a.refresh(ctx, op, dev)
	if err != nil {
		return err
	}
	if current.Running() {
		if err := a.Shutdown(ctx, dev); err != nil {
			return err
		}
		if err := a.waitForState(ctx, op, dev, device.StateShutdown, a.opts.DrainAttempts); err != nil {
			return err
		}
	}

	if _, err := a.run.Output(ctx, a.opts.Xcrun, "simctl", "delete", dev.NativeID); err != nil {
		return a.mapError(op, dev, err)
	}
	return nil
}

// Status reports the live state of the simulator.
func (a *Adapter) Status(ctx context.Context, dev device.Device) (device.Status, error) {
	current, err := a.refresh(ctx, "status", dev)
	if err != nil {
		return device.Status{}, err
	}

	info := map[string]string{}
	if current.Model != "" {
		info["model"] = current.Model
	}
	if current.OSVersion != "" {
		info["osVersion"] = current.OSVersion
	}
	return device.NewStatus(current.State, info), nil
}

// refresh re-lists the simulators and returns the live entry for dev.
func (a *Adapter) refresh(ctx context.Context, op string, dev device.Device) (device.Device, error) {
	devices, err := a.List(ctx)
	if err != nil {
		return device.Device{}, err
	}
	for _, d := range devices {
		if strings.EqualFold(d.NativeID, dev.NativeID) {
			return d, nil
		}
	}
	return device.Device{}, device.NewNotFound(op, dev.Name)
}

// waitForState polls the device list until dev reaches want.
func (a *Adapter) waitForState(ctx context.Context, op string, dev device.Device, want device.State, attempts int) error {
	err := platform.Poll(ctx, a.opts.PollInterval, attempts, func(ctx context.Context) (bool, error) {
		current, err := a.refresh(ctx, op, dev)
		if err != nil {
			return false, err
		}
		return current.State == want, nil
	})
	if errors.Is(err, platform.ErrWaitExpired) {
		return device.NewTimedOut(op)
	}
	return err
}

// openViewer surfaces the simulator UI. Failing to open the viewer never
// fails the operation that triggered it; the device itself is fine.
func (a *Adapter) openViewer(ctx context.Context) error {
	if _, err := a.run.Output(ctx, a.opts.Open, "-a", a.opts.ViewerApp); err != nil {
		a.log.WithError(err).Warn("could not open the simulator viewer")
	}
	return nil
}
