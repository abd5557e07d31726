package android

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icarus-itcs/simyard/internal/device"
	"github.com/icarus-itcs/simyard/internal/execx"
)

var (
	bootCompletedCmd = "adb -s " + testSerial + " shell getprop sys.boot_completed"
	installCmd       = "adb -s " + testSerial + " install -r /tmp/app.apk"
)

func TestApplyBatteryUnsupported(t *testing.T) {
	run := newFakeRunner()
	a := New(run, nil, fastOptions(t.TempDir()))

	err := a.ApplyBattery(context.Background(), testDevice(), 50, true)
	require.ErrorIs(t, err, device.ErrUnsupported)
	assert.Equal(t, device.KindUnsupported, device.KindOf(err))
	assert.Contains(t, err.Error(), "not supported on this platform")
	assert.Empty(t, run.calls)
}

func TestApplyLocationUnsupported(t *testing.T) {
	run := newFakeRunner()
	a := New(run, nil, fastOptions(t.TempDir()))

	err := a.ApplyLocation(context.Background(), testDevice(), 37.7749, -122.4194)
	require.ErrorIs(t, err, device.ErrUnsupported)
	assert.Empty(t, run.calls)
}

func TestInstallAppOnRunningDevice(t *testing.T) {
	run := newFakeRunner()
	run.on(adbDevicesCmd, adbHeader+"\n"+runningLine(testSerial, "device"))
	run.on(avdNameCmd, testAvd+"\nOK")
	run.on(bootCompletedCmd, "1")
	run.on(installCmd, "Performing Streamed Install\nSuccess")
	a := New(run, nil, fastOptions(t.TempDir()))

	dev, err := a.InstallApp(context.Background(), testDevice(), "/tmp/app.apk")
	require.NoError(t, err)
	assert.Empty(t, run.spawned, "a running device is used as-is")
	assert.Equal(t, testSerial, dev.NativeID)
	assert.Equal(t, device.StateBooted, dev.State)
	assert.Equal(t, testSerial, dev.Attributes["serial"])
}

func TestInstallAppBootsStoppedDevice(t *testing.T) {
	run := newFakeRunner()
	run.on(adbDevicesCmd, adbHeader)
	run.on(adbDevicesCmd, adbHeader)
	run.on(adbDevicesCmd, adbHeader+"\n"+runningLine(testSerial, "device"))
	run.on(avdListCmd, testAvd)
	run.on(avdNameCmd, testAvd+"\nOK")
	run.on(bootCompletedCmd, "0")
	run.on(bootCompletedCmd, "1")
	run.on(installCmd, "Success")
	a := New(run, nil, fastOptions(t.TempDir()))

	dev, err := a.InstallApp(context.Background(), testDevice(), "/tmp/app.apk")
	require.NoError(t, err)
	require.Len(t, run.spawned, 1, "the AVD is booted on demand")
	assert.Equal(t, 2, run.count(bootCompletedCmd), "the install waits for the OS, not just for adb")
	assert.Equal(t, testSerial, dev.NativeID)
}

func TestInstallAppReportsFailureOutput(t *testing.T) {
	run := newFakeRunner()
	run.on(adbDevicesCmd, adbHeader+"\n"+runningLine(testSerial, "device"))
	run.on(avdNameCmd, testAvd+"\nOK")
	run.on(bootCompletedCmd, "1")
	run.on(installCmd, "Failure [INSTALL_FAILED_INVALID_APK]")
	a := New(run, nil, fastOptions(t.TempDir()))

	_, err := a.InstallApp(context.Background(), testDevice(), "/tmp/app.apk")
	require.ErrorIs(t, err, device.ErrCommandFailed)

	var devErr *device.Error
	require.ErrorAs(t, err, &devErr)
	assert.Contains(t, devErr.Output, "INSTALL_FAILED_INVALID_APK")
}

func TestInstallAppAdbError(t *testing.T) {
	run := newFakeRunner()
	run.on(adbDevicesCmd, adbHeader+"\n"+runningLine(testSerial, "device"))
	run.on(avdNameCmd, testAvd+"\nOK")
	run.on(bootCompletedCmd, "1")
	run.onErr(installCmd, &execx.ExitError{Name: "adb", Code: 1, Stderr: "adb: failed to install /tmp/app.apk"})
	a := New(run, nil, fastOptions(t.TempDir()))

	_, err := a.InstallApp(context.Background(), testDevice(), "/tmp/app.apk")
	require.ErrorIs(t, err, device.ErrCommandFailed)
}

func TestInstallAppTimesOutWaitingForFullBoot(t *testing.T) {
	run := newFakeRunner()
	run.on(adbDevicesCmd, adbHeader+"\n"+runningLine(testSerial, "device"))
	run.on(avdNameCmd, testAvd+"\nOK")
	run.on(bootCompletedCmd, "0")
	a := New(run, nil, fastOptions(t.TempDir()))

	_, err := a.InstallApp(context.Background(), testDevice(), "/tmp/app.apk")
	require.ErrorIs(t, err, device.ErrTimedOut)
	assert.Zero(t, run.count(installCmd), "nothing is installed on a half-booted device")
}
