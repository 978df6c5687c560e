// Package server implements the live preview server: a playground page, a
// JSON compile endpoint, the document listing and a websocket feed that
// pushes build results as sources change.
package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/conneroisu/wxjsx/internal/build"
	"github.com/conneroisu/wxjsx/internal/compiler"
	"github.com/conneroisu/wxjsx/internal/config"
	"github.com/conneroisu/wxjsx/internal/errors"
	"github.com/conneroisu/wxjsx/internal/logging"
	"github.com/conneroisu/wxjsx/internal/orchestrator"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Server serves the preview UI and API.
type Server struct {
	cfg      *config.Config
	orch     *orchestrator.Orchestrator
	compiler *compiler.Compiler
	hub      *Hub
	limiter  *RateLimiter
	logger   logging.Logger

	httpServer   *http.Server
	listener     net.Listener
	serverMutex  sync.RWMutex
	shutdownOnce sync.Once
	ready        chan struct{}
}

// New creates a preview server. When orch is nil one is created from cfg.
// A nil logger discards output.
func New(cfg *config.Config, orch *orchestrator.Orchestrator, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	if orch == nil {
		orch = orchestrator.New(cfg, logger)
	}

	s := &Server{
		cfg:      cfg,
		orch:     orch,
		compiler: compiler.New(cfg.CompilerOptions(), logger),
		hub:      NewHub(logger),
		logger:   logger.WithComponent("server"),
		ready:    make(chan struct{}),
	}
	if cfg.Server.RateLimit > 0 {
		s.limiter = NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateLimit/10+1, logger)
	}

	orch.Pipeline().AddCallback(s.handleBuildResult)
	return s
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/api/documents", s.handleDocuments)
	mux.HandleFunc("/api/build/status", s.handleBuildStatus)

	var compile http.Handler = http.HandlerFunc(s.handleCompile)
	if s.limiter != nil {
		compile = RateLimitMiddleware(s.limiter)(compile)
	}
	mux.Handle("/api/compile", compile)

	return s.requestLogger(securityHeaders(s.cors(mux)))
}

// Start scans and builds the project, starts watching it and serves HTTP
// until ctx is cancelled. A cancelled context is a clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run(ctx)

	if err := s.orch.InitialScan(ctx); err != nil {
		s.logger.Warn(ctx, err, "initial scan incomplete")
	}
	if _, err := s.orch.BuildAll(ctx); err != nil {
		return err
	}
	if err := s.orch.Watch(ctx); err != nil {
		s.logger.Warn(ctx, err, "file watching disabled")
	}

	return s.Serve(ctx)
}

// Serve listens on the configured address and serves until ctx is
// cancelled or Shutdown is called.
func (s *Server) Serve(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(err, errors.KindIO, "LISTEN_FAILED", "failed to listen on "+addr)
	}

	s.serverMutex.Lock()
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	server := s.httpServer
	s.serverMutex.Unlock()
	close(s.ready)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, err, "shutdown failed")
		}
	}()

	s.logger.Info(ctx, "preview server listening", "addr", "http://"+ln.Addr().String())
	if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, errors.KindIO, "SERVE_FAILED", "server error")
	}
	return nil
}

// Addr waits until the server listens and returns its address.
func (s *Server) Addr(ctx context.Context) (string, error) {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	s.serverMutex.RLock()
	defer s.serverMutex.RUnlock()
	return s.listener.Addr().String(), nil
}

// Shutdown gracefully shuts down the server and cleans up resources.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "shutting down server")

		if err := s.orch.Shutdown(); err != nil {
			s.logger.Warn(ctx, err, "failed to stop watcher")
		}
		if s.limiter != nil {
			s.limiter.Stop()
		}
		s.hub.Close()

		s.serverMutex.RLock()
		server := s.httpServer
		s.serverMutex.RUnlock()
		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}
	})

	return shutdownErr
}

// handleBuildResult forwards pipeline results to websocket clients.
func (s *Server) handleBuildResult(result build.BuildResult) {
	s.hub.Broadcast(newBuildMessage(result))
}
