// Package web serves the local browser UI for the extraction pipeline.
package web

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/zombor/invoice-extractor/internal/dashboard"
	"github.com/zombor/invoice-extractor/internal/export"
	"github.com/zombor/invoice-extractor/internal/pipeline"
)

// Controller runs upload cycles; *pipeline.Controller implements it
type Controller interface {
	Profile() pipeline.Profile
	Submit(f pipeline.SelectedFile) error
	Snapshot() pipeline.Session
	Reset()
}

// Exporter produces downloads for a result; *export.Exporter implements it
type Exporter interface {
	Export(ctx context.Context, f export.Format, result any, extractionID, sourceName string) (export.Download, error)
}

// Dashboard loads dashboard panels; *dashboard.Loader implements it
type Dashboard interface {
	Load(ctx context.Context) dashboard.Snapshot
	Profile(ctx context.Context) (dashboard.Profile, bool)
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// Server handles HTTP requests for the UI
type Server struct {
	controller Controller
	exporter   Exporter
	dashboard  Dashboard
	basicAuth  BasicAuth
	mux        *http.ServeMux
	pages      pages
	// refresh is the status page auto-refresh interval in seconds
	refresh int
}

// NewServer creates a new Server with default mux. dash may be nil when the
// profile has no dashboard.
func NewServer(controller Controller, exporter Exporter, dash Dashboard, basicAuth BasicAuth) *Server {
	return NewServerWithMux(controller, exporter, dash, basicAuth, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(controller Controller, exporter Exporter, dash Dashboard, basicAuth BasicAuth, mux *http.ServeMux) *Server {
	s := &Server{
		controller: controller,
		exporter:   exporter,
		dashboard:  dash,
		basicAuth:  basicAuth,
		mux:        mux,
		pages:      mustParsePages(),
		refresh:    1,
	}
	s.registerRoutes()
	return s
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return false
	}
	return user == s.basicAuth.Username && pass == s.basicAuth.Password
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Invoice Extractor"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// corsMiddleware adds CORS headers and answers preflight requests
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recoverMiddleware turns a handler panic into a logged 500
func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				slog.Error("Unhandled panic", "panic", rec, "path", r.URL.Path, "stack", string(debug.Stack()))
				http.Error(w, "An unexpected error occurred. Please try again.", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// registerRoutes registers all routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /static/app.css", s.requireAuth(s.handleStaticCSS))
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("POST /upload", s.requireAuth(s.handleUpload))
	s.mux.HandleFunc("GET /status", s.requireAuth(s.handleStatus))
	s.mux.HandleFunc("GET /results/export", s.requireAuth(s.handleExport))
	s.mux.HandleFunc("GET /results", s.requireAuth(s.handleResults))
	s.mux.HandleFunc("POST /reset", s.requireAuth(s.handleReset))
	s.mux.HandleFunc("GET /dashboard", s.requireAuth(s.handleDashboard))

	s.mux.HandleFunc("GET /{$}", s.requireAuth(s.handleIndex))
}

// ServeHTTP implements http.Handler with the full middleware chain
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	recoverMiddleware(corsMiddleware(s.mux)).ServeHTTP(w, r)
}

// Start serves until ctx is cancelled
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Starting server", "address", addr, "profile", s.controller.Profile().Name)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
