// Package api exposes the device manager to local tooling as a small JSON
// HTTP service.
package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/icarus-itcs/simyard/internal/config"
	"github.com/icarus-itcs/simyard/internal/manager"
)

// Server is the HTTP daemon over a Manager.
type Server struct {
	cfg    config.Server
	mgr    *manager.Manager
	log    logrus.FieldLogger
	router *mux.Router
}

// New wires the router. gatherer serves /metrics; nil disables the endpoint.
func New(cfg config.Server, mgr *manager.Manager, log logrus.FieldLogger, gatherer prometheus.Gatherer) *Server {
	s := &Server{cfg: cfg, mgr: mgr, log: log}

	r := mux.NewRouter()
	r.Use(requestID)
	r.Use(recoverer(log))
	r.Use(accessLog(log))

	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/devices", s.listDevices).Methods(http.MethodGet)
	api.HandleFunc("/devices", s.createDevice).Methods(http.MethodPost)
	api.HandleFunc("/devices/{id}", s.getDevice).Methods(http.MethodGet)
	api.HandleFunc("/devices/{id}", s.deleteDevice).Methods(http.MethodDelete)
	api.HandleFunc("/devices/{id}/status", s.deviceStatus).Methods(http.MethodGet)
	api.HandleFunc("/devices/{id}/boot", s.bootDevice).Methods(http.MethodPost)
	api.HandleFunc("/devices/{id}/shutdown", s.shutdownDevice).Methods(http.MethodPost)
	api.HandleFunc("/devices/{id}/restart", s.restartDevice).Methods(http.MethodPost)
	api.HandleFunc("/devices/{id}/install", s.installApp).Methods(http.MethodPost)
	api.HandleFunc("/devices/{id}/battery", s.applyBattery).Methods(http.MethodPost)
	api.HandleFunc("/devices/{id}/location", s.applyLocation).Methods(http.MethodPost)
	api.HandleFunc("/ios/devicetypes", s.listDeviceTypes).Methods(http.MethodGet)
	api.HandleFunc("/ios/runtimes", s.listRuntimes).Methods(http.MethodGet)

	s.router = r
	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until the context is cancelled or SIGINT/SIGTERM arrives, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case <-sigs:
			cancel()
		case <-ctx.Done():
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.cfg.Addr).Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGrace)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
