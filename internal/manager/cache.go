package manager

import (
	"maps"
	"sync"
	"time"

	"github.com/icarus-itcs/simyard/internal/device"
)

// listCache holds the last complete device listing for a short TTL. Listing
// is expensive (it shells out to every backend), and collaborators tend to
// list in bursts.
type listCache struct {
	mu  sync.Mutex
	ttl time.Duration
	now func() time.Time

	devices []device.Device
	fetched time.Time
	valid   bool
}

func newListCache(ttl time.Duration, now func() time.Time) *listCache {
	if now == nil {
		now = time.Now
	}
	return &listCache{ttl: ttl, now: now}
}

// get returns a copy of the cached listing while it is fresh.
func (c *listCache) get() ([]device.Device, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.valid || c.now().Sub(c.fetched) >= c.ttl {
		return nil, false
	}
	return cloneDevices(c.devices), true
}

// put replaces the cached listing and restarts the TTL.
func (c *listCache) put(devices []device.Device) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.devices = cloneDevices(devices)
	c.fetched = c.now()
	c.valid = true
}

// invalidate drops the cached listing.
func (c *listCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
	c.devices = nil
}

// update replaces the entry matching dev.ID in the cached listing, or
// appends it, and restarts the TTL. Without a cached listing it does
// nothing; an update cannot conjure up the rest of the fleet.
func (c *listCache) update(dev device.Device) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.valid {
		return
	}
	replaced := false
	for i := range c.devices {
		if c.devices[i].ID == dev.ID {
			c.devices[i] = cloneDevice(dev)
			replaced = true
			break
		}
	}
	if !replaced {
		c.devices = append(c.devices, cloneDevice(dev))
	}
	c.fetched = c.now()
}

// cloneDevices copies the slice and every attribute map so cache internals
// never alias caller-visible data.
func cloneDevices(devices []device.Device) []device.Device {
	out := make([]device.Device, len(devices))
	for i, d := range devices {
		out[i] = cloneDevice(d)
	}
	return out
}

func cloneDevice(d device.Device) device.Device {
	d.Attributes = maps.Clone(d.Attributes)
	return d
}
