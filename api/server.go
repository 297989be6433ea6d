// Package api exposes the replay control surface over HTTP: start,
// stop and status, plus the metrics endpoint and the websocket live
// tap.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quotation-replay/realtime"
	"quotation-replay/replay"
)

// Server handles HTTP API requests
type Server struct {
	coordinator *replay.Coordinator
	hub         *realtime.Hub
}

// NewServer creates a new API server instance
func NewServer(coordinator *replay.Coordinator, hub *realtime.Hub) *Server {
	return &Server{coordinator: coordinator, hub: hub}
}

// Start starts the HTTP server on the specified port
func (s *Server) Start(port int) error {
	mux := http.NewServeMux()

	// Replay control surface
	mux.HandleFunc("POST /replay/start", s.handleStart)
	mux.HandleFunc("POST /replay/stop", s.handleStop)
	mux.HandleFunc("GET /replay/status", s.handleStatus)

	// Live tap for monitoring clients
	mux.Handle("GET /replay/live", s.hub)

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", s.handleHealth)

	// Add middleware
	handler := s.corsMiddleware(s.loggingMiddleware(mux))

	serverAddr := fmt.Sprintf("0.0.0.0:%d", port)
	log.Printf("🚀 API Server starting on %s", serverAddr)
	return http.ListenAndServe(serverAddr, handler)
}

// handleStart launches a replay run from the posted parameters
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var params replay.Params
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	runID, err := s.coordinator.Start(params)
	if err != nil {
		var verr *replay.ValidationError
		switch {
		case errors.Is(err, replay.ErrAlreadyRunning):
			writeError(w, http.StatusConflict, err.Error())
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"runId":  runID,
		"status": s.coordinator.Status().Phase,
	})
}

// handleStop requests cooperative cancellation of the active run
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	status := s.coordinator.Stop()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": status.Phase,
	})
}

// handleStatus returns a snapshot of the replay state
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.coordinator.Status())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// Middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}
