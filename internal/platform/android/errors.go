package android

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/icarus-itcs/simyard/internal/device"
	"github.com/icarus-itcs/simyard/internal/execx"
)

// mapError translates executor failures into the shared error taxonomy.
// Context cancellation passes through untouched.
func (a *Adapter) mapError(op string, dev device.Device, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var notFound *execx.NotFoundError
	if errors.As(err, &notFound) {
		msg := fmt.Sprintf("%s not found; install the Android SDK command line tools", notFound.Name)
		return device.NewConfiguration(op, msg, err)
	}

	var timeout *execx.TimeoutError
	if errors.As(err, &timeout) {
		return device.NewTimedOut(op)
	}

	var exit *execx.ExitError
	if errors.As(err, &exit) {
		// adb says "error: device 'emulator-5554' not found" when the serial
		// vanished between listing and acting.
		if strings.Contains(exit.Stderr, "device") && strings.Contains(exit.Stderr, "not found") {
			ref := dev.Name
			if ref == "" {
				ref = dev.NativeID
			}
			return device.NewNotFound(op, ref)
		}
		return device.NewCommandFailed(op, err, exit.Stderr)
	}

	return device.NewUnknown(op, err)
}
