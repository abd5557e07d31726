package device

import (
	"errors"
	"strings"
)

// Kind classifies a device operation failure.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindNotFound      Kind = "not_found"
	KindUnavailable   Kind = "unavailable"
	KindCommandFailed Kind = "command_failed"
	KindTimedOut      Kind = "timed_out"
	KindUnsupported   Kind = "unsupported"
	KindInvalidInput  Kind = "invalid_input"
	KindFileNotFound  Kind = "file_not_found"
	KindUnknown       Kind = "unknown"
)

// Sentinel targets for errors.Is. Every *Error matches the sentinel of its
// kind, so callers can branch without unpacking the struct.
var (
	ErrConfiguration = errors.New("toolchain not configured")
	ErrNotFound      = errors.New("device not found")
	ErrUnavailable   = errors.New("device unavailable")
	ErrCommandFailed = errors.New("command failed")
	ErrTimedOut      = errors.New("timed out")
	ErrUnsupported   = errors.New("unsupported feature")
	ErrInvalidInput  = errors.New("invalid input")
	ErrFileNotFound  = errors.New("file not found")
)

var kindSentinels = map[Kind]error{
	KindConfiguration: ErrConfiguration,
	KindNotFound:      ErrNotFound,
	KindUnavailable:   ErrUnavailable,
	KindCommandFailed: ErrCommandFailed,
	KindTimedOut:      ErrTimedOut,
	KindUnsupported:   ErrUnsupported,
	KindInvalidInput:  ErrInvalidInput,
	KindFileNotFound:  ErrFileNotFound,
}

// Error is the shared failure taxonomy for device operations. Platform
// adapters map low-level execution failures into it, adding operation context;
// the aggregator passes adapter errors through unchanged.
type Error struct {
	Kind Kind

	// Op is the operation that failed ("boot", "install", "list").
	Op string

	// Feature names the unsupported capability for KindUnsupported.
	Feature string

	Msg string

	// Output carries trailing tool output for command failures.
	Output string

	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Msg)
	if e.Output != "" {
		b.WriteString(": ")
		b.WriteString(e.Output)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// KindOf returns the taxonomy kind of err, or KindUnknown for errors that did
// not come out of an adapter.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// NewConfiguration reports a missing or misconfigured platform tool.
func NewConfiguration(op, msg string, err error) *Error {
	return &Error{Kind: KindConfiguration, Op: op, Msg: msg, Err: err}
}

// NewNotFound reports that ref does not resolve to a known device.
func NewNotFound(op, ref string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Msg: "device not found: " + ref}
}

// NewUnavailable reports a device in the wrong state for the requested
// operation.
func NewUnavailable(op, msg string) *Error {
	return &Error{Kind: KindUnavailable, Op: op, Msg: msg}
}

// NewCommandFailed wraps a non-zero tool exit, keeping the trailing output for
// the caller.
func NewCommandFailed(op string, err error, output string) *Error {
	return &Error{Kind: KindCommandFailed, Op: op, Msg: "command failed", Output: strings.TrimSpace(output), Err: err}
}

// NewTimedOut reports an exhausted wait budget.
func NewTimedOut(op string) *Error {
	return &Error{Kind: KindTimedOut, Op: op, Msg: "timed out"}
}

// NewUnsupported is the explicit "not implemented on this platform" value.
func NewUnsupported(feature string) *Error {
	return &Error{Kind: KindUnsupported, Op: feature, Feature: feature, Msg: "not supported on this platform"}
}

// NewInvalidInput reports arguments outside the accepted range.
func NewInvalidInput(op, msg string) *Error {
	return &Error{Kind: KindInvalidInput, Op: op, Msg: msg}
}

// NewFileNotFound reports a missing artifact path.
func NewFileNotFound(op, path string) *Error {
	return &Error{Kind: KindFileNotFound, Op: op, Msg: "no such file: " + path}
}

// NewUnknown wraps an unclassified failure.
func NewUnknown(op string, err error) *Error {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &Error{Kind: KindUnknown, Op: op, Msg: msg, Err: err}
}
