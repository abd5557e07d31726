// Package android controls Android emulators through adb and the emulator
// launcher from the Android SDK.
package android

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/icarus-itcs/simyard/internal/device"
	"github.com/icarus-itcs/simyard/internal/execx"
	"github.com/icarus-itcs/simyard/internal/platform"
)

// Options configures the emulator backend. Zero values fall back to the
// defaults below.
type Options struct {
	// Adb is the adb binary.
	Adb string
	// Emulator is the emulator launcher binary.
	Emulator string
	// AvdHome is the directory holding AVD definitions. Defaults to
	// $ANDROID_AVD_HOME, then ~/.android/avd.
	AvdHome string
	// Skin is the window geometry passed to freshly launched emulators.
	Skin string

	PollInterval time.Duration
	// BootAttempts bounds the wait for a launched emulator to register with
	// adb as a usable device. Emulators cold-boot much slower than
	// simulators, so this budget is generous.
	BootAttempts int
	// ShutdownAttempts bounds the wait for a killed emulator to disappear
	// from adb. Overrunning it is tolerated; the kill was still delivered.
	ShutdownAttempts int
	// InstallBootAttempts bounds the wait for the OS inside the emulator to
	// finish booting before an install.
	InstallBootAttempts int
	// Settle is the pause between shutdown and boot during a restart.
	Settle time.Duration
}

func (o Options) withDefaults() Options {
	if o.Adb == "" {
		o.Adb = "adb"
	}
	if o.Emulator == "" {
		o.Emulator = "emulator"
	}
	if o.AvdHome == "" {
		if env := os.Getenv("ANDROID_AVD_HOME"); env != "" {
			o.AvdHome = env
		} else if home, err := os.UserHomeDir(); err == nil {
			o.AvdHome = filepath.Join(home, ".android", "avd")
		}
	}
	if o.Skin == "" {
		o.Skin = "1080x2340"
	}
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.BootAttempts <= 0 {
		o.BootAttempts = 60
	}
	if o.ShutdownAttempts <= 0 {
		o.ShutdownAttempts = 15
	}
	if o.InstallBootAttempts <= 0 {
		o.InstallBootAttempts = 60
	}
	if o.Settle <= 0 {
		o.Settle = 3 * time.Second
	}
	return o
}

// Adapter drives adb and the emulator launcher. It is safe for concurrent
// use.
type Adapter struct {
	run  execx.Runner
	log  logrus.FieldLogger
	opts Options
}

// New returns an emulator adapter backed by the given runner.
func New(run execx.Runner, log logrus.FieldLogger, opts Options) *Adapter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Adapter{run: run, log: log, opts: opts.withDefaults()}
}

func (a *Adapter) Platform() device.Platform { return device.PlatformAndroid }

// Boot launches the emulator for dev's AVD and waits until adb reports it
// usable. Booting an AVD that is already running is a no-op.
func (a *Adapter) Boot(ctx context.Context, dev device.Device) error {
	const op = "boot"
	name := avdKey(dev.Name)

	entry, running, err := a.findRunning(ctx, op, name)
	if err != nil {
		return err
	}
	if running {
		if stateFromAdb(entry.status) == device.StateBooted {
			return nil
		}
		// Someone else launched it; join the wait instead of racing a second
		// emulator process for the same AVD.
		return a.waitForBoot(ctx, op, name)
	}

	templates, err := a.listTemplates(ctx)
	if err != nil {
		return err
	}
	if !containsFold(templates, name) {
		return device.NewNotFound(op, name)
	}

	args := []string{"-avd", name, "-no-snapshot-load", "-no-audio", "-gpu", "auto"}
	if a.opts.Skin != "" {
		args = append(args, "-skin", a.opts.Skin)
	}
	if err := a.run.Spawn(a.opts.Emulator, args...); err != nil {
		return a.mapError(op, dev, err)
	}
	a.log.WithField("avd", name).Debug("launched emulator")

	return a.waitForBoot(ctx, op, name)
}

// Shutdown asks the emulator to exit. Templates and already stopped AVDs are
// left alone. The wait for the process to disappear is bounded and lenient:
// the kill request was delivered, so an emulator that lingers past the
// budget is logged and otherwise ignored.
func (a *Adapter) Shutdown(ctx context.Context, dev device.Device) error {
	const op = "shutdown"
	name := avdKey(dev.Name)

	entry, running, err := a.findRunning(ctx, op, name)
	if err != nil {
		return err
	}
	if !running {
		return nil
	}

	if _, err := a.run.Output(ctx, a.opts.Adb, "-s", entry.serial, "emu", "kill"); err != nil {
		return a.mapError(op, dev, err)
	}

	err = platform.Poll(ctx, a.opts.PollInterval, a.opts.ShutdownAttempts, func(ctx context.Context) (bool, error) {
		_, still, err := a.findRunning(ctx, op, name)
		if err != nil {
			return false, err
		}
		return !still, nil
	})
	if errors.Is(err, platform.ErrWaitExpired) {
		a.log.WithField("avd", name).Warn("emulator did not confirm shutdown in time")
		return nil
	}
	return err
}

// Restart power-cycles the emulator.
func (a *Adapter) Restart(ctx context.Context, dev device.Device) error {
	return platform.RestartByCycle(ctx, a, dev, a.opts.Settle)
}

// Delete removes the AVD definition from disk. A running emulator must be
// shut down first; deleting the files under a live emulator corrupts both.
func (a *Adapter) Delete(ctx context.Context, dev device.Device) error {
	const op = "delete"
	name := avdKey(dev.Name)

	_, running, err := a.findRunning(ctx, op, name)
	if err != nil {
		return err
	}
	if running {
		return device.NewUnavailable(op, name+" is running; shut it down before deleting")
	}

	templates, err := a.listTemplates(ctx)
	if err != nil {
		return err
	}
	if !containsFold(templates, name) {
		return device.NewNotFound(op, name)
	}

	if err := os.RemoveAll(filepath.Join(a.opts.AvdHome, name+".avd")); err != nil {
		return device.NewUnknown(op, err)
	}
	if err := os.Remove(filepath.Join(a.opts.AvdHome, name+".ini")); err != nil && !os.IsNotExist(err) {
		return device.NewUnknown(op, err)
	}
	return nil
}

// Status reports the live state of the AVD.
func (a *Adapter) Status(ctx context.Context, dev device.Device) (device.Status, error) {
	const op = "status"
	name := avdKey(dev.Name)

	devices, err := a.List(ctx)
	if err != nil {
		return device.Status{}, err
	}
	current, ok := findByName(devices, name)
	if !ok {
		return device.Status{}, device.NewNotFound(op, name)
	}

	info := map[string]string{}
	for k, v := range current.Attributes {
		info[k] = v
	}
	if current.Model != "" {
		info["model"] = current.Model
	}
	if current.OSVersion != "" {
		info["osVersion"] = current.OSVersion
	}
	return device.NewStatus(current.State, info), nil
}

// waitForBoot polls adb until the AVD shows up as a usable device.
func (a *Adapter) waitForBoot(ctx context.Context, op, name string) error {
	err := platform.Poll(ctx, a.opts.PollInterval, a.opts.BootAttempts, func(ctx context.Context) (bool, error) {
		entry, running, err := a.findRunning(ctx, op, name)
		if err != nil {
			return false, err
		}
		return running && stateFromAdb(entry.status) == device.StateBooted, nil
	})
	if errors.Is(err, platform.ErrWaitExpired) {
		return device.NewTimedOut(op)
	}
	return err
}

// avdKey normalizes a device name to the AVD name adb and the emulator
// expect. Launch configs sometimes carry a leading "@".
func avdKey(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), "@")
}
