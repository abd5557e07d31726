// Package manager aggregates the platform backends behind one device API:
// lookup by stable ID or name, cached listings, and lifecycle operations
// that are serialized per device.
package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/icarus-itcs/simyard/internal/device"
	"github.com/icarus-itcs/simyard/internal/metrics"
	"github.com/icarus-itcs/simyard/internal/platform"
)

// PartialError reports that some backends failed to list while others
// succeeded. The devices that could be listed travel back alongside it.
type PartialError struct {
	Failures *multierror.Error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("partial device listing: %s", e.Failures.Error())
}

func (e *PartialError) Unwrap() error { return e.Failures }

// ChangeListener observes successful device mutations. Listeners run
// synchronously on the mutating goroutine, in registration order.
type ChangeListener func(dev device.Device, operation string)

// Creator is the optional backend capability of creating new devices from a
// hardware profile.
type Creator interface {
	Create(ctx context.Context, name, deviceType, runtime string) (device.Device, error)
}

// Options configures a Manager.
type Options struct {
	// CacheTTL bounds how long a device listing is served from memory.
	CacheTTL time.Duration
	Log      logrus.FieldLogger
	// Metrics may be nil outside the daemon.
	Metrics *metrics.Metrics
	// Clock overrides time.Now in tests.
	Clock func() time.Time
}

// Manager routes device operations to the right backend.
type Manager struct {
	adapters   []platform.Adapter
	byPlatform map[device.Platform]platform.Adapter
	cache      *listCache
	locks      *deviceLocks
	log        logrus.FieldLogger
	metrics    *metrics.Metrics

	mu        sync.Mutex
	listeners []ChangeListener
}

// New builds a Manager over the given backends.
func New(opts Options, adapters ...platform.Adapter) *Manager {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 3 * time.Second
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}

	byPlatform := make(map[device.Platform]platform.Adapter, len(adapters))
	for _, a := range adapters {
		byPlatform[a.Platform()] = a
	}

	return &Manager{
		adapters:   adapters,
		byPlatform: byPlatform,
		cache:      newListCache(opts.CacheTTL, opts.Clock),
		locks:      newDeviceLocks(),
		log:        opts.Log,
		metrics:    opts.Metrics,
	}
}

// OnChange registers a listener for successful mutations.
func (m *Manager) OnChange(l ChangeListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

func (m *Manager) notify(dev device.Device, operation string) {
	m.mu.Lock()
	listeners := make([]ChangeListener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, l := range listeners {
		l(dev, operation)
	}
}

// List returns every device across all backends, sorted by name. Fresh
// results are served from the cache; force bypasses it. When only some
// backends fail, the devices of the healthy ones are returned together with
// a *PartialError, and the partial listing is not cached.
func (m *Manager) List(ctx context.Context, force bool) ([]device.Device, error) {
	if !force {
		if devices, ok := m.cache.get(); ok {
			m.metrics.ObserveCacheLookup(true)
			return devices, nil
		}
	}
	m.metrics.ObserveCacheLookup(false)

	devices, err := m.fetch(ctx)
	if err != nil {
		return devices, err
	}
	m.cache.put(devices)
	return devices, nil
}

// fetch lists all backends concurrently and merges the results.
func (m *Manager) fetch(ctx context.Context) ([]device.Device, error) {
	results := make([][]device.Device, len(m.adapters))
	failures := make([]error, len(m.adapters))

	g, gctx := errgroup.WithContext(ctx)
	for i, a := range m.adapters {
		g.Go(func() error {
			devices, err := a.List(gctx)
			if err != nil {
				// A broken backend must not take the healthy one down with
				// it; the error is folded in after the fan-in.
				failures[i] = fmt.Errorf("%s: %w", a.Platform(), err)
				return nil
			}
			results[i] = devices
			return nil
		})
	}
	_ = g.Wait()

	var devices []device.Device
	var merr *multierror.Error
	for i, a := range m.adapters {
		if failures[i] != nil {
			m.log.WithError(failures[i]).Warn("device listing failed")
			merr = multierror.Append(merr, failures[i])
			continue
		}
		devices = append(devices, results[i]...)
		m.metrics.SetDeviceCount(a.Platform(), len(results[i]))
	}

	sort.Slice(devices, func(i, j int) bool {
		a, b := devices[i], devices[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Platform != b.Platform {
			return a.Platform < b.Platform
		}
		return a.ID < b.ID
	})

	if merr != nil {
		if len(merr.Errors) == len(m.adapters) {
			return nil, merr
		}
		return devices, &PartialError{Failures: merr}
	}
	return devices, nil
}

// Find resolves ref to a device. Refs match the stable ID or the native
// handle exactly, then the name; all comparisons ignore case. A name shared
// by devices on several platforms is rejected as ambiguous.
func (m *Manager) Find(ctx context.Context, ref string) (device.Device, error) {
	const op = "find"

	ref = strings.TrimSpace(ref)
	if ref == "" {
		return device.Device{}, device.NewInvalidInput(op, "device reference must not be empty")
	}

	devices, err := m.List(ctx, false)
	if err != nil {
		var partial *PartialError
		if !errors.As(err, &partial) {
			return device.Device{}, err
		}
		// Keep resolving against what the healthy backends returned.
	}

	for _, d := range devices {
		if strings.EqualFold(d.ID, ref) || (d.NativeID != "" && strings.EqualFold(d.NativeID, ref)) {
			return d, nil
		}
	}

	var matches []device.Device
	for _, d := range devices {
		if strings.EqualFold(d.Name, ref) {
			matches = append(matches, d)
		}
	}
	switch len(matches) {
	case 0:
		return device.Device{}, device.NewNotFound(op, ref)
	case 1:
		return matches[0], nil
	default:
		return device.Device{}, device.NewInvalidInput(op,
			fmt.Sprintf("%q matches %d devices; use the device id", ref, len(matches)))
	}
}

// Boot boots the device ref resolves to and returns its refreshed state.
func (m *Manager) Boot(ctx context.Context, ref string) (device.Device, error) {
	return m.mutate(ctx, ref, "boot", func(ctx context.Context, a platform.Adapter, dev device.Device) error {
		return a.Boot(ctx, dev)
	})
}

// Shutdown shuts the device down and returns its refreshed state.
func (m *Manager) Shutdown(ctx context.Context, ref string) (device.Device, error) {
	return m.mutate(ctx, ref, "shutdown", func(ctx context.Context, a platform.Adapter, dev device.Device) error {
		return a.Shutdown(ctx, dev)
	})
}

// Restart power-cycles the device and returns its refreshed state.
func (m *Manager) Restart(ctx context.Context, ref string) (device.Device, error) {
	return m.mutate(ctx, ref, "restart", func(ctx context.Context, a platform.Adapter, dev device.Device) error {
		return a.Restart(ctx, dev)
	})
}

// mutate runs one lifecycle operation under the device lock, invalidates the
// cache and notifies listeners.
func (m *Manager) mutate(ctx context.Context, ref, op string, call func(context.Context, platform.Adapter, device.Device) error) (device.Device, error) {
	dev, err := m.Find(ctx, ref)
	if err != nil {
		return device.Device{}, err
	}
	a, err := m.adapterFor(dev.Platform, op)
	if err != nil {
		return device.Device{}, err
	}

	unlock := m.locks.lock(dev.ID)
	defer unlock()

	started := time.Now()
	err = call(ctx, a, dev)
	m.metrics.ObserveOperation(dev.Platform, op, err, time.Since(started))
	if err != nil {
		return device.Device{}, err
	}

	m.cache.invalidate()
	m.notify(dev, op)
	m.log.WithFields(logrus.Fields{"device": dev.Name, "operation": op}).Info("device operation finished")
	return m.current(ctx, dev), nil
}

// Delete removes the device from its backend.
func (m *Manager) Delete(ctx context.Context, ref string) error {
	const op = "delete"

	dev, err := m.Find(ctx, ref)
	if err != nil {
		return err
	}
	a, err := m.adapterFor(dev.Platform, op)
	if err != nil {
		return err
	}

	unlock := m.locks.lock(dev.ID)
	defer unlock()

	started := time.Now()
	err = a.Delete(ctx, dev)
	m.metrics.ObserveOperation(dev.Platform, op, err, time.Since(started))
	if err != nil {
		return err
	}

	m.cache.invalidate()
	m.notify(dev, op)
	m.log.WithField("device", dev.Name).Info("device deleted")
	return nil
}

// Status reports the live state of the device along with its identity.
func (m *Manager) Status(ctx context.Context, ref string) (device.Device, device.Status, error) {
	dev, err := m.Find(ctx, ref)
	if err != nil {
		return device.Device{}, device.Status{}, err
	}
	a, err := m.adapterFor(dev.Platform, "status")
	if err != nil {
		return device.Device{}, device.Status{}, err
	}

	started := time.Now()
	status, err := a.Status(ctx, dev)
	m.metrics.ObserveOperation(dev.Platform, "status", err, time.Since(started))
	if err != nil {
		return device.Device{}, device.Status{}, err
	}
	return dev, status, nil
}

// ApplyBattery overrides the displayed battery state on backends that
// support it. The device listing is unaffected, so the cache stays.
func (m *Manager) ApplyBattery(ctx context.Context, ref string, level int, charging bool) (device.Device, error) {
	const op = "battery"

	dev, err := m.Find(ctx, ref)
	if err != nil {
		return device.Device{}, err
	}
	a, err := m.adapterFor(dev.Platform, op)
	if err != nil {
		return device.Device{}, err
	}

	unlock := m.locks.lock(dev.ID)
	defer unlock()

	started := time.Now()
	err = a.ApplyBattery(ctx, dev, level, charging)
	m.metrics.ObserveOperation(dev.Platform, op, err, time.Since(started))
	if err != nil {
		return device.Device{}, err
	}
	return dev, nil
}

// ApplyLocation overrides the simulated GPS position on backends that
// support it.
func (m *Manager) ApplyLocation(ctx context.Context, ref string, latitude, longitude float64) (device.Device, error) {
	const op = "location"

	dev, err := m.Find(ctx, ref)
	if err != nil {
		return device.Device{}, err
	}
	a, err := m.adapterFor(dev.Platform, op)
	if err != nil {
		return device.Device{}, err
	}

	unlock := m.locks.lock(dev.ID)
	defer unlock()

	started := time.Now()
	err = a.ApplyLocation(ctx, dev, latitude, longitude)
	m.metrics.ObserveOperation(dev.Platform, op, err, time.Since(started))
	if err != nil {
		return device.Device{}, err
	}
	return dev, nil
}

// InstallApp installs the artifact at path on the device and returns the
// device with any state the install changed. The cached listing is patched
// in place instead of being thrown away; the rest of the fleet did not
// change.
func (m *Manager) InstallApp(ctx context.Context, ref, path string) (device.Device, error) {
	const op = "install"

	if strings.TrimSpace(path) == "" {
		return device.Device{}, device.NewInvalidInput(op, "artifact path must not be empty")
	}
	if _, err := os.Stat(path); err != nil {
		return device.Device{}, device.NewFileNotFound(op, path)
	}

	dev, err := m.Find(ctx, ref)
	if err != nil {
		return device.Device{}, err
	}
	a, err := m.adapterFor(dev.Platform, op)
	if err != nil {
		return device.Device{}, err
	}

	unlock := m.locks.lock(dev.ID)
	defer unlock()

	started := time.Now()
	installed, err := a.InstallApp(ctx, dev, path)
	m.metrics.ObserveOperation(dev.Platform, op, err, time.Since(started))
	if err != nil {
		return device.Device{}, err
	}

	m.cache.update(installed)
	m.notify(installed, op)
	m.log.WithFields(logrus.Fields{"device": installed.Name, "artifact": path}).Info("app installed")
	return installed, nil
}

// CreateDevice creates a new device on the named platform, when its backend
// supports creation.
func (m *Manager) CreateDevice(ctx context.Context, p device.Platform, name, deviceType, runtime string) (device.Device, error) {
	const op = "create"

	a, err := m.adapterFor(p, op)
	if err != nil {
		return device.Device{}, err
	}
	creator, ok := a.(Creator)
	if !ok {
		return device.Device{}, device.NewUnsupported(op)
	}

	started := time.Now()
	dev, err := creator.Create(ctx, name, deviceType, runtime)
	m.metrics.ObserveOperation(p, op, err, time.Since(started))
	if err != nil {
		return device.Device{}, err
	}

	m.cache.invalidate()
	m.notify(dev, op)
	return dev, nil
}

// Platforms lists the registered backends.
func (m *Manager) Platforms() []device.Platform {
	platforms := make([]device.Platform, 0, len(m.adapters))
	for _, a := range m.adapters {
		platforms = append(platforms, a.Platform())
	}
	return platforms
}

// Adapter returns the backend registered for p, if any. Callers use it to
// reach platform capabilities beyond the common contract.
func (m *Manager) Adapter(p device.Platform) (platform.Adapter, bool) {
	a, ok := m.byPlatform[p]
	return a, ok
}

func (m *Manager) adapterFor(p device.Platform, op string) (platform.Adapter, error) {
	if a, ok := m.byPlatform[p]; ok {
		return a, nil
	}
	return nil, device.NewUnsupported(op)
}

// current re-reads dev after a mutation. The mutation already succeeded, so
// listing trouble falls back to the last known snapshot instead of failing
// the call.
func (m *Manager) current(ctx context.Context, dev device.Device) device.Device {
	devices, err := m.List(ctx, false)
	if err != nil {
		var partial *PartialError
		if !errors.As(err, &partial) {
			return dev
		}
	}
	for _, d := range devices {
		if d.ID == dev.ID {
			return d
		}
	}
	return dev
}
