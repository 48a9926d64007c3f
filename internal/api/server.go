package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mkweon/searchlayer/internal/config"
	"github.com/mkweon/searchlayer/internal/ocr"
	"github.com/mkweon/searchlayer/internal/output"
)

// Server is the HTTP API server.
type Server struct {
	cfg     *config.Config
	router  chi.Router
	engine  ocr.Engine
	outputs *output.Manager
	wsHub   *WebSocketHub
	server  *http.Server

	// gate serializes document processing.
	gate chan struct{}

	started   time.Time
	processed atomic.Int64
	failed    atomic.Int64
}

// NewServer creates a new API server.
func NewServer(cfg *config.Config, engine ocr.Engine, outputs *output.Manager) *Server {
	s := &Server{
		cfg:     cfg,
		engine:  engine,
		outputs: outputs,
		wsHub:   NewWebSocketHub(),
		gate:    make(chan struct{}, 1),
		started: time.Now(),
	}

	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(CORSMiddleware())

	// Health check (no auth required)
	r.Get("/api/v1/health", s.handleHealth)

	// API routes (with auth)
	r.Group(func(r chi.Router) {
		if s.cfg.Server.Auth.Enabled {
			r.Use(AuthMiddleware(s.cfg.Server.Auth.APIKeys))
		}

		r.Post("/api/v1/ocr", s.handleOCR)
		r.Get("/api/v1/status", s.handleStatus)

		// WebSocket
		r.Get("/api/v1/ws", s.handleWebSocket)
	})

	s.router = r
}

// Handler exposes the configured router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetEngine installs the OCR engine. It exists because the engine's
// progress feed is wired back into this server, so the two are built
// in sequence.
func (s *Server) SetEngine(engine ocr.Engine) {
	s.engine = engine
}

// Progress returns the engine progress callback that feeds the
// WebSocket hub.
func (s *Server) Progress() ocr.ProgressFunc {
	return func(ctx context.Context, stage string, done, total int) {
		s.wsHub.Broadcast(ProgressUpdate{
			RequestID: middleware.GetReqID(ctx),
			Stage:     stage,
			Batch:     done,
			Batches:   total,
		})
	}
}

// Start begins listening for HTTP connections.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)

	s.server = &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: 30 * time.Second,
		// Processing a large document can take several minutes.
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Start WebSocket hub
	go s.wsHub.Run()

	slog.Info("API server starting", "addr", addr)

	if s.cfg.Server.TLS.Enabled {
		return s.server.ListenAndServeTLS(
			s.cfg.Server.TLS.CertFile,
			s.cfg.Server.TLS.KeyFile,
		)
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("API server shutting down")
	return s.server.Shutdown(ctx)
}
