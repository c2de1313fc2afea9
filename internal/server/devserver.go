package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/framelabel/internal/shared"
)

const (
	defaultExportStep  = 25.0
	defaultMaxUploadMB = 500
)

// DevServerOpts configures [NewDevServer].
type DevServerOpts struct {
	Token       string      // Bearer token required on every request; empty disables auth
	ExportStep  float64     // Percent an export job advances per status read (default: 25)
	FailExports string      // When set, export jobs fail halfway with this message
	MaxUploadMB int         // Largest accepted upload (default: 500)
	FrameWidth  int         // Width of rendered frames (default: 640)
	FrameHeight int         // Height of rendered frames (default: 360)
	Logger      *log.Logger // Request log (default: discard)
}

// DevServer serves the annotation API from memory for local use and tests.
type DevServer struct {
	store  *Store
	opts   DevServerOpts
	logger *log.Logger
	router *Mux
}

// NewDevServer builds the server and registers every endpoint.
func NewDevServer(opts DevServerOpts) *DevServer {
	if opts.ExportStep <= 0 {
		opts.ExportStep = defaultExportStep
	}
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = defaultMaxUploadMB
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}

	s := &DevServer{
		store:  NewStore(opts.FrameWidth, opts.FrameHeight),
		opts:   opts,
		logger: opts.Logger,
		router: NewMux(),
	}
	s.routes()
	return s
}

func (s *DevServer) routes() {
	r := s.router
	r.Use(Recoverer(s.logger), RequestLogger(s.logger), RequireToken(s.opts.Token))

	r.HandleFunc(http.MethodGet, "/api/projects", s.handleProjects)
	r.HandleFunc(http.MethodGet, "/api/project/{project}/stats", s.handleStats)
	r.HandleFunc(http.MethodDelete, "/api/project/{project}", s.handleDeleteProject)
	r.HandleFunc(http.MethodGet, "/api/frame/{project}/{frame}", s.handleFrame)
	r.HandleFunc(http.MethodGet, "/api/annotations/{project}/{frame}", s.handleGetAnnotations)
	r.HandleFunc(http.MethodPost, "/api/annotations/{project}/{frame}", s.handleSaveAnnotations)
	r.HandleFunc(http.MethodDelete, "/api/annotations/{project}/{frame}/{id}", s.handleDeleteAnnotation)
	r.HandleFunc(http.MethodPost, "/api/export/{project}/{format}", s.handleStartExport)
	r.HandleFunc(http.MethodGet, "/api/export/{project}/{format}/status", s.handleExportStatus)
	r.HandleFunc(http.MethodGet, "/api/export/{project}/{format}", s.handleDownload)
	r.Mount(NewUploadHandler(s.store, s.opts.MaxUploadMB, s.logger))
}

// Routes lists the served "METHOD /path" patterns.
func (s *DevServer) Routes() []string { return s.router.Patterns() }

// Store exposes the backing data, for seeding and assertions.
func (s *DevServer) Store() *Store { return s.store }

// ServeHTTP implements [http.Handler].
func (s *DevServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Seed adds a demo project and returns its id.
func (s *DevServer) Seed(name string, frames int) string {
	return s.store.AddProject(name, frames, 1).ID
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
// ready, when non-nil, receives the bound address once the listener is open.
func (s *DevServer) ListenAndServe(ctx context.Context, addr string, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: s, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	s.logger.Info("dev server listening", "addr", ln.Addr().String(), "auth", s.opts.Token != "", "routes", len(s.Routes()))
	for _, route := range s.Routes() {
		s.logger.Debug("route", "pattern", route)
	}
	if ready != nil {
		ready(ln.Addr())
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("dev server stopped")
	return nil
}
