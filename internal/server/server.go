package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/netutil"

	"github.com/nao1215/scriptorium/internal/config"
	"github.com/nao1215/scriptorium/internal/database"
	"github.com/nao1215/scriptorium/internal/hub"
	"github.com/nao1215/scriptorium/internal/runner"
	"github.com/nao1215/scriptorium/internal/script"
)

const (
	// maxRequestBody caps the size of request bodies on write endpoints.
	maxRequestBody = 10 << 20
	// readHeaderTimeout bounds how long a client may take to send headers.
	readHeaderTimeout = 10 * time.Second
	// idleTimeout closes keep-alive connections that go quiet.
	idleTimeout = 120 * time.Second
	// shutdownTimeout bounds the graceful drain of in-flight requests.
	shutdownTimeout = 10 * time.Second
	// runWriteGrace is added on top of the run timeout when setting the
	// write deadline on run endpoints, leaving room to serialize results.
	runWriteGrace = 30 * time.Second
	// defaultRunsLimit applies when GET /api/runs has no limit parameter.
	defaultRunsLimit = 50
)

// Server wires the script store, the runner, the run database, and the
// event hub into one HTTP API.
//
// Design decision: the HTTP server sets no global write timeout because
// /api/events holds its response open indefinitely. Run endpoints set
// their own per-request write deadline through http.ResponseController
// instead, sized from the configured run timeout.
type Server struct {
	cfg    *config.Config
	store  *script.Store
	engine *runner.Engine
	db     *database.RunDB
	hub    *hub.Hub
	logger *slog.Logger
}

// New creates a Server. The run database may be nil when history is
// disabled; the affected endpoints then answer 503. A nil logger falls
// back to slog.Default().
func New(cfg *config.Config, store *script.Store, engine *runner.Engine, db *database.RunDB, eventHub *hub.Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:    cfg,
		store:  store,
		engine: engine,
		db:     db,
		hub:    eventHub,
		logger: logger,
	}
}

// Handler returns the full API handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/scripts", s.handleListScripts)
	mux.HandleFunc("POST /api/scripts", s.handleCreateScript)
	mux.HandleFunc("PUT /api/scripts/{name}", s.handleUpdateScript)
	mux.HandleFunc("DELETE /api/scripts/{name}", s.handleDeleteScript)
	mux.HandleFunc("POST /api/run/{name}", s.handleRunScript)
	mux.HandleFunc("POST /api/run", s.handleRunAll)
	mux.HandleFunc("GET /api/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleGetRun)
	mux.Handle("GET /api/events", s.hub)

	return Chain(mux,
		Recover(s.logger),
		RequestLogger(s.logger),
		CORS(),
	)
}

// Run serves the API until ctx is canceled, then drains in-flight
// requests. The listener is capped at the configured client limit so a
// reconnect storm cannot exhaust file descriptors.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddr, err)
	}
	if s.cfg.MaxClients > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxClients)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.logger.Info("http server listening",
		"addr", ln.Addr().String(),
		"max_clients", s.cfg.MaxClients)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
