package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/rickgao/candidate-tracker/internal/config"
	"github.com/rickgao/candidate-tracker/internal/dashboard"
	"github.com/rickgao/candidate-tracker/internal/events"
	"github.com/rickgao/candidate-tracker/internal/model"
)

// Controller is the dashboard surface served over HTTP.
type Controller interface {
	Candidates(f model.Filter) []model.Candidate
	Stats() model.Stats
	Status() dashboard.StatusSnapshot
	Create(ctx context.Context, in model.NewCandidate) (*model.Candidate, error)
	UpdateStatus(ctx context.Context, id string, status model.Status) (*model.Candidate, error)
	Delete(ctx context.Context, id string) error
	UploadResume(ctx context.Context, name string, body io.Reader, size int64, contentType string) (*model.Resume, error)
	Reconnect(ctx context.Context)
}

var _ Controller = (*dashboard.Dashboard)(nil)

// ResumeFiles serves locally stored resumes.
type ResumeFiles interface {
	Open(name string) (*os.File, error)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithResumeFiles enables GET /resumes/{name}.
func WithResumeFiles(files ResumeFiles) Option {
	return func(s *Server) {
		s.files = files
	}
}

// WithEvents enables GET /api/events, streaming hub events as
// server-sent events.
func WithEvents(hub *events.Hub) Option {
	return func(s *Server) {
		s.events = hub
	}
}

// WithMaxUploadSize limits resume uploads to n bytes.
func WithMaxUploadSize(n int64) Option {
	return func(s *Server) {
		s.maxUpload = n
	}
}

// Server is the HTTP API.
type Server struct {
	cfg       config.ServerConfig
	ctl       Controller
	files     ResumeFiles
	events    *events.Hub
	maxUpload int64
	logger    *slog.Logger
	started   time.Time
}

// New creates a Server.
func New(cfg config.ServerConfig, ctl Controller, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		ctl:       ctl,
		maxUpload: config.DefaultMaxUploadSize,
		started:   time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "server")
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /api/candidates", s.handleListCandidates)
	mux.HandleFunc("POST /api/candidates", s.handleCreateCandidate)
	mux.HandleFunc("PATCH /api/candidates/{id}/status", s.handleUpdateStatus)
	mux.HandleFunc("DELETE /api/candidates/{id}", s.handleDeleteCandidate)
	mux.HandleFunc("POST /api/resumes", s.handleUploadResume)
	mux.HandleFunc("GET /api/stats", s.handleStats)

	mux.HandleFunc("GET /api/realtime", s.handleRealtimeStatus)
	mux.HandleFunc("POST /api/realtime/reconnect", s.handleReconnect)

	if s.events != nil {
		mux.HandleFunc("GET /api/events", s.handleEvents)
	}
	if s.files != nil {
		mux.HandleFunc("GET /resumes/{name}", s.handleResume)
	}

	return mux
}

// Run serves on the configured port until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = config.DefaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}
