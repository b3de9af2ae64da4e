// Package api provides the HTTP and WebSocket server for the forecast
// backend.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/atlas-desktop/forecast-backend/internal/workers"
	"github.com/atlas-desktop/forecast-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Server is the HTTP/WebSocket API server
type Server struct {
	mu         sync.RWMutex
	logger     *zap.Logger
	config     *types.ServerConfig
	router     *mux.Router
	httpServer *http.Server
	upgrader   websocket.Upgrader
	hub        *Hub
	pool       *workers.Pool
	metrics    *Metrics
	registry   *prometheus.Registry
	jobs       map[string]*jobState
	finished   []string // finished job IDs in completion order, oldest first
}

// maxFinishedJobs bounds how many finished jobs (and their results) stay
// available for polling. Older finished jobs are evicted in completion
// order; running jobs are never evicted.
const maxFinishedJobs = 64

// jobState tracks one asynchronous simulation job.
type jobState struct {
	job    types.SimulationJob
	result *SimulationResponse
}

// NewServer creates a new API server. The worker pool and WebSocket hub
// start immediately; Start only binds the listener.
func NewServer(logger *zap.Logger, config *types.ServerConfig) *Server {
	poolConfig := workers.DefaultPoolConfig("simulations")
	if config.MaxConcurrentSims > 0 {
		poolConfig.NumWorkers = config.MaxConcurrentSims
	}

	registry := prometheus.NewRegistry()

	server := &Server{
		logger:   logger,
		config:   config,
		router:   mux.NewRouter(),
		hub:      NewHub(logger),
		pool:     workers.NewPool(logger, poolConfig),
		metrics:  NewMetrics(registry),
		registry: registry,
		jobs:     make(map[string]*jobState),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
	}

	server.pool.Start()
	go server.hub.Run()

	server.setupRoutes()
	return server
}

// Router exposes the route table, mainly for tests.
func (s *Server) Router() *mux.Router {
	return s.router
}

// setupRoutes configures HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	if s.config.EnableMetrics {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	// Forecast endpoints
	s.router.HandleFunc("/api/v1/forecast/simulate", s.handleSimulate).Methods("POST")
	s.router.HandleFunc("/api/v1/forecast/quick", s.handleQuickForecast).Methods("POST")
	s.router.HandleFunc("/api/v1/forecast/jobs", s.handleCreateJob).Methods("POST")
	s.router.HandleFunc("/api/v1/forecast/jobs/{id}", s.handleGetJob).Methods("GET")

	// WebSocket
	s.router.HandleFunc(s.config.WebSocketPath, s.handleWebSocket)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	handler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(s.router)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting API server", zap.String("addr", addr))

	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.pool.Stop()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	jobCount := len(s.jobs)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "healthy",
		"time":       time.Now().Unix(),
		"jobs":       jobCount,
		"ws_clients": s.hub.ClientCount(),
	})
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(uuid.New().String(), s.hub, conn)
	s.hub.register <- client

	go client.ReadPump()
	go client.WritePump()
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
