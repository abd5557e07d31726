package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/icarus-itcs/simyard/internal/device"
	"github.com/icarus-itcs/simyard/internal/manager"
	"github.com/icarus-itcs/simyard/internal/platform/ios"
)

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// deviceListResponse carries the devices plus per-platform warnings when some
// backends failed to list.
type deviceListResponse struct {
	Devices  []device.Device `json:"devices"`
	Warnings []string        `json:"warnings,omitempty"`
}

func (s *Server) listDevices(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("refresh") == "1"

	devices, err := s.mgr.List(r.Context(), force)
	if err != nil {
		var partial *manager.PartialError
		if !errors.As(err, &partial) {
			writeError(w, err)
			return
		}
		warnings := make([]string, 0, len(partial.Failures.Errors))
		for _, e := range partial.Failures.Errors {
			warnings = append(warnings, e.Error())
		}
		writeJSON(w, http.StatusOK, deviceListResponse{Devices: devices, Warnings: warnings})
		return
	}
	if devices == nil {
		devices = []device.Device{}
	}
	writeJSON(w, http.StatusOK, deviceListResponse{Devices: devices})
}

func (s *Server) getDevice(w http.ResponseWriter, r *http.Request) {
	dev, err := s.mgr.Find(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

func (s *Server) deviceStatus(w http.ResponseWriter, r *http.Request) {
	dev, status, err := s.mgr.Status(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"device": dev, "status": status})
}

func (s *Server) bootDevice(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, s.mgr.Boot)
}

func (s *Server) shutdownDevice(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, s.mgr.Shutdown)
}

func (s *Server) restartDevice(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, s.mgr.Restart)
}

func (s *Server) lifecycle(w http.ResponseWriter, r *http.Request, call func(context.Context, string) (device.Device, error)) {
	dev, err := call(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

func (s *Server) deleteDevice(w http.ResponseWriter, r *http.Request) {
	if err := s.mgr.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) installApp(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, device.NewInvalidInput("install", "invalid request body"))
		return
	}

	dev, err := s.mgr.InstallApp(r.Context(), mux.Vars(r)["id"], in.Path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

func (s *Server) applyBattery(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Level    int  `json:"level"`
		Charging bool `json:"charging"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, device.NewInvalidInput("battery", "invalid request body"))
		return
	}

	dev, err := s.mgr.ApplyBattery(r.Context(), mux.Vars(r)["id"], in.Level, in.Charging)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

func (s *Server) applyLocation(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, device.NewInvalidInput("location", "invalid request body"))
		return
	}

	dev, err := s.mgr.ApplyLocation(r.Context(), mux.Vars(r)["id"], in.Latitude, in.Longitude)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

func (s *Server) createDevice(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Platform   string `json:"platform"`
		Name       string `json:"name"`
		DeviceType string `json:"deviceType"`
		Runtime    string `json:"runtime,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, device.NewInvalidInput("create", "invalid request body"))
		return
	}
	if in.Platform == "" {
		in.Platform = string(device.PlatformIOS)
	}

	dev, err := s.mgr.CreateDevice(r.Context(), device.Platform(in.Platform), in.Name, in.DeviceType, in.Runtime)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dev)
}

func (s *Server) listDeviceTypes(w http.ResponseWriter, r *http.Request) {
	sim, err := s.simulator("list device types")
	if err != nil {
		writeError(w, err)
		return
	}
	types, err := sim.DeviceTypes(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deviceTypes": types})
}

func (s *Server) listRuntimes(w http.ResponseWriter, r *http.Request) {
	sim, err := s.simulator("list runtimes")
	if err != nil {
		writeError(w, err)
		return
	}
	runtimes, err := sim.Runtimes(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runtimes": runtimes})
}

// simulator reaches the iOS backend's inventory capabilities, which are not
// part of the common adapter contract.
func (s *Server) simulator(op string) (*ios.Adapter, error) {
	a, ok := s.mgr.Adapter(device.PlatformIOS)
	if !ok {
		return nil, device.NewUnsupported(op)
	}
	sim, ok := a.(*ios.Adapter)
	if !ok {
		return nil, device.NewUnsupported(op)
	}
	return sim, nil
}
