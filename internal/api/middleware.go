package api

import (
	"net/http"
	"time"

	"github.com/jaevor/go-nanoid"
	"github.com/sirupsen/logrus"
)

const requestIDHeader = "X-Request-Id"

var newRequestID = mustNanoid()

func mustNanoid() func() string {
	gen, err := nanoid.Standard(15)
	if err != nil {
		panic(err)
	}
	return gen
}

// requestID tags every request with a short id, honoring one the client sent.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = newRequestID()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// recoverer turns handler panics into 500 responses instead of torn
// connections.
func recoverer(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.WithFields(logrus.Fields{
						"panic": rec,
						"path":  r.URL.Path,
					}).Error("handler panicked")
					writeJSON(w, http.StatusInternalServerError, errorBody{Error: errorDetail{
						Kind:    "unknown",
						Message: "internal error",
					}})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// accessLog writes one line per finished request.
func accessLog(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)
			log.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     rec.status,
				"duration":   time.Since(start).Round(time.Millisecond),
				"request_id": rec.Header().Get(requestIDHeader),
			}).Info("request")
		})
	}
}
