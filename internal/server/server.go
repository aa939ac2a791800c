package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/smukkama/aqeu-dashboard/internal/chart"
	"github.com/smukkama/aqeu-dashboard/internal/dashboard"
	"github.com/smukkama/aqeu-dashboard/internal/metrics"
	"github.com/smukkama/aqeu-dashboard/internal/selection"
)

// RequestIDHeader carries the per-request identifier
const RequestIDHeader = "X-Request-ID"

// Dashboard is the service the API exposes
type Dashboard interface {
	Countries(ctx context.Context) ([]string, error)
	TimeSeries(ctx context.Context, sel selection.Selection) (*dashboard.TimeSeriesView, error)
	Thresholds(ctx context.Context, mode chart.OverlayMode) (*chart.Chart, error)
	Refresh(ctx context.Context) ([]string, error)
}

// HTTPServer serves the dashboard's JSON API
type HTTPServer struct {
	svc      Dashboard
	recorder *metrics.Recorder
	server   *http.Server
	listener net.Listener
}

// NewHTTPServer creates a server listening on addr. recorder may be nil.
func NewHTTPServer(addr string, svc Dashboard, recorder *metrics.Recorder) *HTTPServer {
	s := &HTTPServer{svc: svc, recorder: recorder}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the API routes
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	s.route(mux, "GET /api/countries", s.handleCountries)
	s.route(mux, "GET /api/timeseries", s.handleTimeSeries)
	s.route(mux, "GET /api/thresholds", s.handleThresholds)
	s.route(mux, "POST /api/refresh", s.handleRefresh)
	s.route(mux, "GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	if s.recorder != nil {
		mux.Handle("GET /metrics", s.recorder.Handler())
	}
	return mux
}

// Start begins listening and serves in the background
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	s.listener = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("HTTP server stopped: %v", err)
		}
	}()

	log.WithField("addr", ln.Addr().String()).Info("HTTP server listening")
	return nil
}

// Addr returns the bound address once started
func (s *HTTPServer) Addr() string {
	if s.listener == nil {
		return s.server.Addr
	}
	return s.listener.Addr().String()
}

// Stop drains in-flight requests until ctx expires
func (s *HTTPServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// route wraps h with request IDs, access logging and metrics
func (s *HTTPServer) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, requestID)

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		h(sw, r.WithContext(withRequestID(r.Context(), requestID)))

		s.recorder.ObserveHTTP(r.URL.Path, sw.status)
		log.WithFields(log.Fields{
			"request_id": requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     sw.status,
			"duration":   time.Since(start),
		}).Debug("Handled request")
	})
}

type requestIDKey struct{}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the identifier attached to ctx by the server
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("Failed to write response: %v", err)
	}
}
