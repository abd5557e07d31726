package manager

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icarus-itcs/simyard/internal/device"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func cachedDevice(name string) device.Device {
	return device.Device{
		ID:         device.DeriveID(name),
		Name:       name,
		Platform:   device.PlatformIOS,
		State:      device.StateShutdown,
		Attributes: map[string]string{"runtime": "iOS-17-0"},
	}
}

func TestCacheMissWhenEmpty(t *testing.T) {
	c := newListCache(3*time.Second, newFakeClock().now)

	_, ok := c.get()
	assert.False(t, ok)
}

func TestCacheHitWhileFresh(t *testing.T) {
	clock := newFakeClock()
	c := newListCache(3*time.Second, clock.now)

	c.put([]device.Device{cachedDevice("iPhone 15")})
	clock.advance(2 * time.Second)

	devices, ok := c.get()
	require.True(t, ok)
	require.Len(t, devices, 1)
	assert.Equal(t, "iPhone 15", devices[0].Name)
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	clock := newFakeClock()
	c := newListCache(3*time.Second, clock.now)

	c.put([]device.Device{cachedDevice("iPhone 15")})
	clock.advance(3 * time.Second)

	_, ok := c.get()
	assert.False(t, ok, "the TTL boundary itself is already stale")
}

func TestCacheInvalidate(t *testing.T) {
	c := newListCache(time.Minute, newFakeClock().now)

	c.put([]device.Device{cachedDevice("iPhone 15")})
	c.invalidate()

	_, ok := c.get()
	assert.False(t, ok)
}

func TestCacheUpdateWithoutListingIsNoOp(t *testing.T) {
	c := newListCache(time.Minute, newFakeClock().now)

	c.update(cachedDevice("iPhone 15"))

	_, ok := c.get()
	assert.False(t, ok, "an update cannot stand in for a full listing")
}

func TestCacheUpdateReplacesInPlace(t *testing.T) {
	clock := newFakeClock()
	c := newListCache(3*time.Second, clock.now)

	original := cachedDevice("iPhone 15")
	c.put([]device.Device{original, cachedDevice("iPad Air")})

	updated := original
	updated.State = device.StateBooted
	c.update(updated)

	devices, ok := c.get()
	require.True(t, ok)
	require.Len(t, devices, 2, "update never grows the listing for a known device")
	for _, d := range devices {
		if d.ID == original.ID {
			assert.Equal(t, device.StateBooted, d.State)
		}
	}
}

func TestCacheUpdateAppendsUnknownDevice(t *testing.T) {
	c := newListCache(time.Minute, newFakeClock().now)

	c.put([]device.Device{cachedDevice("iPhone 15")})
	c.update(cachedDevice("Fresh Device"))

	devices, ok := c.get()
	require.True(t, ok)
	assert.Len(t, devices, 2)
}

func TestCacheUpdateRestartsTTL(t *testing.T) {
	clock := newFakeClock()
	c := newListCache(3*time.Second, clock.now)

	c.put([]device.Device{cachedDevice("iPhone 15")})
	clock.advance(2 * time.Second)
	c.update(cachedDevice("iPhone 15"))
	clock.advance(2 * time.Second)

	_, ok := c.get()
	assert.True(t, ok, "the update stamped a fresh fetch time")
}

func TestCacheIsolatesCallersFromInternals(t *testing.T) {
	c := newListCache(time.Minute, newFakeClock().now)
	c.put([]device.Device{cachedDevice("iPhone 15")})

	leaked, ok := c.get()
	require.True(t, ok)
	leaked[0].Name = "Mutated"
	leaked[0].Attributes["runtime"] = "tampered"

	devices, ok := c.get()
	require.True(t, ok)
	assert.Equal(t, "iPhone 15", devices[0].Name)
	assert.Equal(t, "iOS-17-0", devices[0].Attributes["runtime"])
}
