package manager

import (
	"context"
	"sync"

	"github.com/icarus-itcs/simyard/internal/device"
)

// fakeAdapter is a scriptable platform backend. It deliberately does not
// implement Creator; creatorAdapter adds that capability on top.
type fakeAdapter struct {
	platform device.Platform

	mu        sync.Mutex
	devices   []device.Device
	listErr   error
	listCalls int
	ops       []string

	bootFn    func(ctx context.Context, dev device.Device) error
	opErr     error
	installFn func(ctx context.Context, dev device.Device, path string) (device.Device, error)
}

func newFakeAdapter(p device.Platform, devices ...device.Device) *fakeAdapter {
	return &fakeAdapter{platform: p, devices: devices}
}

func (f *fakeAdapter) Platform() device.Platform { return f.platform }

func (f *fakeAdapter) List(_ context.Context) ([]device.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]device.Device, len(f.devices))
	copy(out, f.devices)
	return out, nil
}

func (f *fakeAdapter) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, op)
}

// setState rewrites the device's state in the backing listing, mimicking the
// real platform observing the transition.
func (f *fakeAdapter) setState(id string, state device.State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.devices {
		if f.devices[i].ID == id {
			f.devices[i].State = state
		}
	}
}

func (f *fakeAdapter) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeAdapter) operations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.ops))
	copy(out, f.ops)
	return out
}

func (f *fakeAdapter) Boot(ctx context.Context, dev device.Device) error {
	f.record("boot:" + dev.Name)
	if f.bootFn != nil {
		return f.bootFn(ctx, dev)
	}
	if f.opErr != nil {
		return f.opErr
	}
	f.setState(dev.ID, device.StateBooted)
	return nil
}

func (f *fakeAdapter) Shutdown(_ context.Context, dev device.Device) error {
	f.record("shutdown:" + dev.Name)
	if f.opErr != nil {
		return f.opErr
	}
	f.setState(dev.ID, device.StateShutdown)
	return nil
}

func (f *fakeAdapter) Restart(_ context.Context, dev device.Device) error {
	f.record("restart:" + dev.Name)
	return f.opErr
}

func (f *fakeAdapter) Delete(_ context.Context, dev device.Device) error {
	f.record("delete:" + dev.Name)
	if f.opErr != nil {
		return f.opErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.devices[:0]
	for _, d := range f.devices {
		if d.ID != dev.ID {
			kept = append(kept, d)
		}
	}
	f.devices = kept
	return nil
}

func (f *fakeAdapter) Status(_ context.Context, dev device.Device) (device.Status, error) {
	f.record("status:" + dev.Name)
	if f.opErr != nil {
		return device.Status{}, f.opErr
	}
	return device.NewStatus(dev.State, map[string]string{"model": dev.Model}), nil
}

func (f *fakeAdapter) ApplyBattery(_ context.Context, dev device.Device, _ int, _ bool) error {
	f.record("battery:" + dev.Name)
	return f.opErr
}

func (f *fakeAdapter) ApplyLocation(_ context.Context, dev device.Device, _, _ float64) error {
	f.record("location:" + dev.Name)
	return f.opErr
}

func (f *fakeAdapter) InstallApp(ctx context.Context, dev device.Device, path string) (device.Device, error) {
	f.record("install:" + dev.Name)
	if f.installFn != nil {
		return f.installFn(ctx, dev, path)
	}
	if f.opErr != nil {
		return device.Device{}, f.opErr
	}
	installed := dev
	installed.State = device.StateBooted
	return installed, nil
}

// creatorAdapter is a fakeAdapter that can also create devices.
type creatorAdapter struct {
	*fakeAdapter
	created []string
}

func (c *creatorAdapter) Create(_ context.Context, name, deviceType, runtime string) (device.Device, error) {
	c.created = append(c.created, name)
	return device.Device{
		ID:       device.DeriveID(name),
		Name:     name,
		Platform: c.platform,
		State:    device.StateShutdown,
		Model:    deviceType,
	}, nil
}
