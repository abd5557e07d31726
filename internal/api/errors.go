package api

import (
	"encoding/json"
	"net/http"

	"github.com/icarus-itcs/simyard/internal/device"
)

// errorBody is the JSON error envelope every failed request returns.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Remedy  string `json:"remedy,omitempty"`
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(kind device.Kind) int {
	switch kind {
	case device.KindNotFound:
		return http.StatusNotFound
	case device.KindUnavailable:
		return http.StatusConflict
	case device.KindInvalidInput, device.KindFileNotFound:
		return http.StatusBadRequest
	case device.KindUnsupported:
		return http.StatusNotImplemented
	case device.KindTimedOut:
		return http.StatusGatewayTimeout
	case device.KindCommandFailed:
		return http.StatusBadGateway
	case device.KindConfiguration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// remedyFor suggests a next step for the error kinds where one exists. The
// strings live here at the presentation edge, not in the error values.
func remedyFor(kind device.Kind) string {
	switch kind {
	case device.KindConfiguration:
		return "check that the platform tools (xcrun, adb, emulator) are installed and on PATH"
	case device.KindNotFound:
		return "run GET /api/v1/devices?refresh=1 to see the devices that exist"
	case device.KindUnavailable:
		return "check the device state and boot or shut it down first"
	case device.KindTimedOut:
		return "the device may still be transitioning; retry the operation"
	default:
		return ""
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind := device.KindOf(err)
	writeJSON(w, statusFor(kind), errorBody{Error: errorDetail{
		Kind:    string(kind),
		Message: err.Error(),
		Remedy:  remedyFor(kind),
	}})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
