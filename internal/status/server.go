// Package status exposes the bot's local HTTP+WebSocket status surface:
// GET /health, GET /api/status, POST /api/config, GET /ws. It is a thin
// read/write front end onto the engine — all control-loop state lives in
// internal/engine, this package only serializes it and forwards config
// changes.
package status

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"standx-mm/internal/config"
)

// Server runs the status HTTP/WebSocket API.
type Server struct {
	cfg      config.DashboardConfig
	provider Provider
	hub      *Hub
	handlers *Handlers
	server   *http.Server
	logger   *slog.Logger
}

// NewServer wires routes, the CORS policy, and the event hub.
func NewServer(cfg config.DashboardConfig, provider Provider, fullCfg *config.Config, logger *slog.Logger) *Server {
	hub := NewHub(logger)
	handlers := NewHandlers(provider, fullCfg, hub, logger)

	router := mux.NewRouter()
	router.HandleFunc("/health", handlers.HandleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/status", handlers.HandleStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/config", handlers.HandleConfigUpdate).Methods(http.MethodPost)
	router.HandleFunc("/ws", handlers.HandleWebSocket).Methods(http.MethodGet)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins(cfg.AllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      corsMiddleware.Handler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		cfg:      cfg,
		provider: provider,
		hub:      hub,
		handlers: handlers,
		server:   httpServer,
		logger:   logger.With("component", "status-server"),
	}
}

func allowedOrigins(configured []string) []string {
	if len(configured) > 0 {
		return configured
	}
	return []string{"*"}
}

// Start runs the hub and the event consumer, then blocks serving HTTP
// until Stop is called.
func (s *Server) Start() error {
	go s.hub.Run()
	go s.consumeEvents()

	s.logger.Info("status server starting", "addr", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("status server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.logger.Info("stopping status server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// consumeEvents forwards engine events onto the WebSocket hub.
func (s *Server) consumeEvents() {
	for evt := range s.provider.Events() {
		s.hub.BroadcastEvent(Event{Type: evt.Type, Timestamp: evt.Timestamp, Data: evt.Data})
	}
}
