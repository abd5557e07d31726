package ios

import (
	"context"
	"errors"
	"strings"

	"github.com/icarus-itcs/simyard/internal/device"
	"github.com/icarus-itcs/simyard/internal/execx"
)

// mapError translates executor failures into the shared error taxonomy.
// Context cancellation passes through untouched so callers can tell an
// aborted call from a failed one.
func (a *Adapter) mapError(op string, dev device.Device, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var notFound *execx.NotFoundError
	if errors.As(err, &notFound) {
		return device.NewConfiguration(op, "xcrun not found; install the Xcode command line tools", err)
	}

	var timeout *execx.TimeoutError
	if errors.As(err, &timeout) {
		return device.NewTimedOut(op)
	}

	var exit *execx.ExitError
	if errors.As(err, &exit) {
		if strings.Contains(exit.Stderr, "Invalid device") {
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

// exitSaysCurrentState reports whether err is simctl refusing an operation
// because the device is already in the named state, e.g. "Unable to boot
// device in current state: Booted".
func exitSaysCurrentState(err error, state string) bool {
	var exit *execx.ExitError
	if !errors.As(err, &exit) {
		return false
	}
	return strings.Contains(exit.Stderr, "current state: "+state)
}
