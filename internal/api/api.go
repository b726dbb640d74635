// Package api provides the operational HTTP server for InterviewPipe.
//
// The server is read-only introspection for operators: health, per-user
// interview progress, and the archived results and reports. When the Twilio
// backend is active it also mounts the inbound message webhook. The
// conversation itself never flows through this server.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danualab/InterviewPipe/internal/models"
	"github.com/danualab/InterviewPipe/internal/store"
	"github.com/danualab/InterviewPipe/internal/supervisor"
)

// DefaultShutdownTimeout bounds how long Run waits for in-flight requests
// once its context is canceled.
const DefaultShutdownTimeout = 5 * time.Second

// Opts holds configuration options for the API server.
type Opts struct {
	TwilioWebhook http.HandlerFunc
}

// Option defines a functional option for API server configuration.
type Option func(*Opts)

// WithTwilioWebhook mounts a handler for inbound Twilio messages at
// /webhook/twilio.
func WithTwilioWebhook(h http.HandlerFunc) Option {
	return func(o *Opts) { o.TwilioWebhook = h }
}

// Server answers operator queries about a running interview system.
type Server struct {
	addr string
	sup  *supervisor.Supervisor
	st   store.Store
	opts Opts
}

// NewServer creates an API server bound to addr.
func NewServer(addr string, sup *supervisor.Supervisor, st store.Store, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{addr: addr, sup: sup, st: st, opts: cfg}
}

// routes builds the request mux. Split out so tests can exercise handlers
// without binding a port.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/progress", s.progressHandler)
	mux.HandleFunc("/interviews", s.interviewsHandler)
	mux.HandleFunc("/reports", s.reportsHandler)
	if s.opts.TwilioWebhook != nil {
		mux.HandleFunc("/webhook/twilio", s.opts.TwilioWebhook)
	}
	return mux
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.routes()}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	slog.Info("API server listening", "addr", s.addr, "twilio_webhook", s.opts.TwilioWebhook != nil)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("API server shutdown failed", "error", err)
			return fmt.Errorf("api server shutdown: %w", err)
		}
		<-errCh
		slog.Info("API server stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		slog.Error("API server failed", "error", err)
		return fmt.Errorf("api server: %w", err)
	}
}

// healthHandler provides a health check endpoint for monitoring.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	healthData := map[string]interface{}{
		"status":          "healthy",
		"active_sessions": s.sup.ActiveSessions(),
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	}
	writeJSONResponse(w, http.StatusOK, healthData)
}

// progressHandler reports interview progress for one user (GET /progress?user=).
func (s *Server) progressHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.progressHandler: processing progress request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.progressHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("user")
	if userID == "" {
		slog.Warn("Server.progressHandler: missing user parameter")
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required parameter: user"))
		return
	}

	progress := s.sup.Progress(userID)
	if progress == nil {
		slog.Debug("Server.progressHandler: no session for user", "userID", userID)
		writeJSONResponse(w, http.StatusNotFound, models.Error("No interview session for user"))
		return
	}
	slog.Debug("Server.progressHandler: progress fetched", "userID", userID, "state", progress.State)
	writeJSONResponse(w, http.StatusOK, models.Success(progress))
}

// interviewsHandler lists archived interview results (GET /interviews?user=).
func (s *Server) interviewsHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.interviewsHandler: processing interviews request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.interviewsHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	records, err := s.st.ListInterviewResults(r.URL.Query().Get("user"))
	if err != nil {
		slog.Error("Server.interviewsHandler: failed to list interview results", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch interview results"))
		return
	}
	slog.Debug("Server.interviewsHandler: interview results fetched", "count", len(records))
	writeJSONResponse(w, http.StatusOK, models.Success(records))
}

// reportsHandler lists archived analysis reports (GET /reports?user=).
func (s *Server) reportsHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.reportsHandler: processing reports request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.reportsHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	records, err := s.st.ListReports(r.URL.Query().Get("user"))
	if err != nil {
		slog.Error("Server.reportsHandler: failed to list reports", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch reports"))
		return
	}
	slog.Debug("Server.reportsHandler: reports fetched", "count", len(records))
	writeJSONResponse(w, http.StatusOK, models.Success(records))
}
