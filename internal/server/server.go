// Package server exposes the water quality service over HTTP: registration
// and login, sample submission, prediction history, admin analytics with a
// live WebSocket stream, and CSV export of both tables.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"waterqual/internal/auth"
	"waterqual/internal/metrics"
	"waterqual/internal/model"
	"waterqual/internal/pipeline"
	"waterqual/internal/store"
)

// Server wires the HTTP surface to the service components.
type Server struct {
	auth      *auth.Service
	store     *store.Store
	pipeline  *pipeline.Pipeline
	predictor *model.Predictor
	metrics   *metrics.Metrics
	sessions  *sessionManager

	httpServer    *http.Server
	upgrader      websocket.Upgrader
	statsInterval time.Duration

	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex
	stop      chan struct{}
	running   bool
	mu        sync.Mutex
}

// Config collects the server's wiring.
type Config struct {
	Port          int
	StatsInterval time.Duration
}

func New(cfg Config, a *auth.Service, st *store.Store, pl *pipeline.Pipeline, pred *model.Predictor, m *metrics.Metrics) *Server {
	s := &Server{
		auth:          a,
		store:         st,
		pipeline:      pl,
		predictor:     pred,
		metrics:       m,
		sessions:      newSessionManager(),
		statsInterval: cfg.StatsInterval,
		clients:       make(map[*websocket.Conn]bool),
		stop:          make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	if s.statsInterval <= 0 {
		s.statsInterval = 5 * time.Second
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/api/register", s.handleRegister).Methods("POST")
	r.HandleFunc("/api/login", s.handleLogin).Methods("POST")
	r.HandleFunc("/api/logout", s.withSession(s.handleLogout)).Methods("POST")
	r.HandleFunc("/api/predict", s.withSession(s.handlePredict)).Methods("POST")
	r.HandleFunc("/api/predictions", s.withSession(s.handleHistory)).Methods("GET")
	r.HandleFunc("/api/model/info", s.handleModelInfo).Methods("GET")
	r.HandleFunc("/api/admin/stats", s.withAdmin(s.handleStats)).Methods("GET")
	r.HandleFunc("/api/admin/export/{table}", s.withAdmin(s.handleExport)).Methods("GET")
	r.HandleFunc("/api/admin/import/predictions", s.withAdmin(s.handleImport)).Methods("POST")
	r.HandleFunc("/admin/dashboard", s.withAdmin(s.handleDashboard)).Methods("GET")
	r.HandleFunc("/ws/stats", s.handleStatsWS).Methods("GET")

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Start begins serving HTTP requests and launches the live-stats broadcaster.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.mu.Unlock()

	go s.statsBroadcaster()

	log.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server starting")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully and disconnects WebSocket clients.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stop)
	s.mu.Unlock()

	s.clientsMu.Lock()
	for conn := range s.clients {
		conn.Close()
	}
	s.clients = make(map[*websocket.Conn]bool)
	s.clientsMu.Unlock()

	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
