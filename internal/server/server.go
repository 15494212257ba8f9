// Package server wires the HTTP surface of fieldsift: routing, service
// injection, config hot reload, and graceful shutdown.
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

	"github.com/credable-eng/fieldsift/internal/api"
	"github.com/credable-eng/fieldsift/internal/config"
	"github.com/credable-eng/fieldsift/internal/doctext"
	"github.com/credable-eng/fieldsift/internal/llm"
	"github.com/credable-eng/fieldsift/internal/pipeline"
	"github.com/credable-eng/fieldsift/internal/schema"
	"github.com/credable-eng/fieldsift/internal/server/endpoints"
	"github.com/credable-eng/fieldsift/internal/svcctx"
	"github.com/credable-eng/fieldsift/internal/tokens"
)

// Server is the main fieldsift HTTP server.
type Server struct {
	httpServer *http.Server
	configMgr  *config.Manager
	codec      tokens.Codec
	logger     *slog.Logger

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu       sync.RWMutex
	running  bool
	services *svcctx.Services
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8080)
	Port string
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Logger is the structured logger to use
	Logger *slog.Logger
	// Codec overrides the tokenizer (tests). Defaults to cl100k_base.
	Codec tokens.Codec
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ConfigManager == nil {
		return nil, fmt.Errorf("config manager is required")
	}

	codec := cfg.Codec
	if codec == nil {
		tk, err := tokens.NewCL100K()
		if err != nil {
			return nil, err
		}
		codec = tk
	}

	s := &Server{
		configMgr: cfg.ConfigManager,
		codec:     codec,
		logger:    cfg.Logger,
	}

	services, err := s.buildServices(cfg.ConfigManager.Get())
	if err != nil {
		return nil, err
	}
	s.services = services

	// Rebuild the completion client and pipeline when config changes.
	cfg.ConfigManager.OnChange(func(c *config.Config) {
		rebuilt, err := s.buildServices(c)
		if err != nil {
			cfg.Logger.Error("config reload failed", "error", err)
			return
		}
		s.mu.Lock()
		s.services = rebuilt
		s.mu.Unlock()
		cfg.Logger.Info("pipeline reloaded from config")
	})

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // Extraction holds the connection across LLM round trips
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// buildServices constructs the service graph from a config snapshot.
func (s *Server) buildServices(c *config.Config) (*svcctx.Services, error) {
	fieldSchema, err := loadSchema(c)
	if err != nil {
		return nil, err
	}

	client := llm.NewTogetherClient(llm.TogetherConfig{
		APIKey:        c.ResolveAPIKey(),
		BaseURL:       c.LLM.BaseURL,
		Model:         c.LLM.Model,
		Temperature:   c.LLM.Temperature,
		ContextWindow: c.LLM.ContextWindow,
		MaxAttempts:   uint(c.LLM.MaxAttempts),
		RetryDelay:    time.Duration(c.LLM.RetryDelaySecs) * time.Second,
		Timeout:       time.Duration(c.LLM.TimeoutSecs) * time.Second,
	}, s.codec)

	p, err := pipeline.New(pipeline.Config{
		Schema:    fieldSchema,
		Codec:     s.codec,
		LLM:       client,
		Documents: doctext.DefaultRegistry(),
		Budget:    c.Extraction.TokenBudget,
		Logger:    s.logger,
	})
	if err != nil {
		return nil, err
	}

	return &svcctx.Services{
		Pipeline:      p,
		LLM:           client,
		Schema:        fieldSchema,
		ConfigManager: s.configMgr,
		Logger:        s.logger,
	}, nil
}

// loadSchema loads the configured field schema, falling back to the
// built-in loan-document schema.
func loadSchema(c *config.Config) (*schema.Schema, error) {
	if c.Extraction.SchemaPath != "" {
		return schema.LoadFile(c.Extraction.SchemaPath)
	}
	return schema.Default()
}

// Start starts the server. It blocks until the context is cancelled or
// an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	// Log schema warnings once at startup so duplicate identifiers in a
	// custom schema file are visible without hitting /api/schema.
	if svcs := s.Services(); svcs != nil && svcs.Schema != nil {
		for _, warning := range svcs.Schema.Validate() {
			s.logger.Warn("schema validation", "warning", warning)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			s.setNotRunning()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown performs graceful shutdown of the HTTP server.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Services returns the current service graph snapshot.
func (s *Server) Services() *svcctx.Services {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.services
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svcs := s.Services(); svcs != nil {
			ctx = svcctx.WithServices(ctx, svcs)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable if the pipeline isn't ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svcs := s.Services()
		if svcs == nil || svcs.Pipeline == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
