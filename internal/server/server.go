// Package server exposes the HTTP API over the stores, object storage and
// the LLM-backed translation, summary and chat services.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Nat1anWasTaken/paperly/internal/chat"
	"github.com/Nat1anWasTaken/paperly/internal/defra"
	"github.com/Nat1anWasTaken/paperly/internal/store"
)

// Uploads creates presigned upload URLs.
type Uploads interface {
	PresignPut(ctx context.Context, key string, contentType string) (string, error)
}

// Translator produces block translations on demand.
type Translator interface {
	Translate(ctx context.Context, blockID, language string) (*store.Translation, error)
}

// Summarizer produces block summaries on demand.
type Summarizer interface {
	Summarize(ctx context.Context, blockID string) (string, error)
}

// Chatter answers questions about a paper.
type Chatter interface {
	Ask(ctx context.Context, paperID string, history []chat.Message, question string) (string, error)
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8080)
	Port string

	Stores     *store.Stores
	Uploads    Uploads
	Translator Translator
	Summaries  Summarizer
	Chat       Chatter
	Defra      *defra.Client
	Logger     *slog.Logger
}

// Server is the paperly HTTP server.
type Server struct {
	httpServer *http.Server
	stores     *store.Stores
	uploads    Uploads
	translator Translator
	summaries  Summarizer
	chatter    Chatter
	defra      *defra.Client
	logger     *slog.Logger

	mu      sync.Mutex
	running bool
}

// New creates a new Server with the given configuration.
func New(cfg Config) *Server {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		stores:     cfg.Stores,
		uploads:    cfg.Uploads,
		translator: cfg.Translator,
		summaries:  cfg.Summaries,
		chatter:    cfg.Chat,
		defra:      cfg.Defra,
		logger:     cfg.Logger,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Start begins serving HTTP requests. Blocks until the listener fails or
// Shutdown is called.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the route mux, used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
