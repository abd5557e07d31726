package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icarus-itcs/simyard/internal/config"
	"github.com/icarus-itcs/simyard/internal/device"
	"github.com/icarus-itcs/simyard/internal/manager"
	"github.com/icarus-itcs/simyard/internal/platform"
)

// fakeAdapter is a scriptable backend for handler tests.
type fakeAdapter struct {
	platform device.Platform
	devices  []device.Device
	listErr  error
	opErr    error
}

func (f *fakeAdapter) Platform() device.Platform { return f.platform }

func (f *fakeAdapter) List(context.Context) ([]device.Device, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]device.Device, len(f.devices))
	copy(out, f.devices)
	return out, nil
}

func (f *fakeAdapter) Boot(context.Context, device.Device) error     { return f.opErr }
func (f *fakeAdapter) Shutdown(context.Context, device.Device) error { return f.opErr }
func (f *fakeAdapter) Restart(context.Context, device.Device) error  { return f.opErr }
func (f *fakeAdapter) Delete(context.Context, device.Device) error   { return f.opErr }

func (f *fakeAdapter) Status(_ context.Context, dev device.Device) (device.Status, error) {
	if f.opErr != nil {
		return device.Status{}, f.opErr
	}
	return device.NewStatus(dev.State, nil), nil
}

func (f *fakeAdapter) ApplyBattery(context.Context, device.Device, int, bool) error {
	return f.opErr
}

func (f *fakeAdapter) ApplyLocation(context.Context, device.Device, float64, float64) error {
	return f.opErr
}

func (f *fakeAdapter) InstallApp(_ context.Context, dev device.Device, _ string) (device.Device, error) {
	if f.opErr != nil {
		return device.Device{}, f.opErr
	}
	return dev, nil
}

func testDevice(name string, p device.Platform, state device.State) device.Device {
	return device.Device{
		ID:          device.DeriveID(name),
		Name:        name,
		Platform:    p,
		NativeID:    "native-" + name,
		State:       state,
		IsAvailable: true,
	}
}

func newTestServer(t *testing.T, adapters ...*fakeAdapter) *Server {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	wired := make([]platform.Adapter, len(adapters))
	for i, a := range adapters {
		wired[i] = a
	}
	mgr := manager.New(manager.Options{Log: log}, wired...)
	return New(config.Server{Addr: "127.0.0.1:0"}, mgr, log, nil)
}

func TestListDevicesOK(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeAdapter{
		platform: device.PlatformIOS,
		devices:  []device.Device{testDevice("iPhone 15", device.PlatformIOS, device.StateShutdown)},
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body deviceListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Devices, 1)
	assert.Equal(t, "iPhone 15", body.Devices[0].Name)
	assert.Empty(t, body.Warnings)
}

func TestListDevicesPartialFailureCarriesWarnings(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t,
		&fakeAdapter{
			platform: device.PlatformIOS,
			devices:  []device.Device{testDevice("iPhone 15", device.PlatformIOS, device.StateShutdown)},
		},
		&fakeAdapter{
			platform: device.PlatformAndroid,
			listErr:  device.NewConfiguration("list", "adb not found", errors.New("exec: not found")),
		},
	)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body deviceListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Devices, 1)
	require.Len(t, body.Warnings, 1)
	assert.Contains(t, body.Warnings[0], "android")
}

func TestBootUnknownDeviceIs404(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeAdapter{platform: device.PlatformIOS})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/devices/nope/boot", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(device.KindNotFound), body.Error.Kind)
	assert.NotEmpty(t, body.Error.Remedy)
}

func TestUnsupportedFeatureIs501(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeAdapter{
		platform: device.PlatformAndroid,
		devices:  []device.Device{testDevice("Pixel_8", device.PlatformAndroid, device.StateBooted)},
		opErr:    device.NewUnsupported("battery"),
	})

	body := strings.NewReader(`{"level": 50, "charging": true}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/devices/Pixel_8/battery", body)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestInstallRejectsBadBody(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeAdapter{platform: device.PlatformIOS})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/devices/x/install", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeAdapter{platform: device.PlatformIOS})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestRequestIDHeaderSet(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeAdapter{platform: device.PlatformIOS})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}
