package backend

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// maxDocumentSize bounds decoded documents and request bodies
const maxDocumentSize = 50 << 20

// Server is the local extraction service
type Server struct {
	extractor     Extractor
	storage       Storage
	fetcher       Fetcher
	defaultBucket string
	idGenerator   func() string
	now           func() time.Time
	mux           *http.ServeMux
}

// Option configures a Server
type Option func(*Server)

// WithFetcher replaces the presigned URL downloader
func WithFetcher(f Fetcher) Option {
	return func(s *Server) {
		s.fetcher = f
	}
}

// WithIDGenerator replaces uuid file ids, for tests
func WithIDGenerator(gen func() string) Option {
	return func(s *Server) {
		s.idGenerator = gen
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// NewServer creates the service. defaultBucket is used when uploads name none.
func NewServer(extractor Extractor, storage Storage, defaultBucket string, opts ...Option) *Server {
	s := &Server{
		extractor:     extractor,
		storage:       storage,
		fetcher:       NewHTTPFetcher(),
		defaultBucket: defaultBucket,
		idGenerator:   uuid.NewString,
		now:           time.Now,
		mux:           http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /invoice_upload", s.handleUpload)
	s.mux.HandleFunc("POST /invoice_process", s.handleProcess)
	s.mux.HandleFunc("GET /{$}", s.handleHealth)
}

// ServeHTTP implements http.Handler. CORS headers are set on every
// response and preflight requests are answered directly.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentSize*2)
	s.mux.ServeHTTP(w, r)
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

	slog.Info("Starting extraction backend", "address", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type,X-Amz-Date,Authorization,X-Api-Key,X-Amz-Security-Token")
}
