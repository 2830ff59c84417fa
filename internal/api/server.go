// Package api exposes a small HTTP status surface for the cover changer.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"coverchanger/internal/service"

	"go.uber.org/zap"
)

// Server provides HTTP status endpoints for the running service.
type Server struct {
	svc    *service.Service
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a status server on the given port.
func NewServer(svc *service.Service, logger *zap.Logger, port int) *Server {
	s := &Server{
		svc:    svc,
		logger: logger.Named("api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// StatusResponse is the JSON payload of /api/status.
type StatusResponse struct {
	Phase    string               `json:"phase"`
	Schedule map[string]time.Time `json:"schedule"`
	Jobs     []JobInfo            `json:"pending_jobs"`
}

// JobInfo describes one pending scheduler job.
type JobInfo struct {
	Key    string    `json:"key"`
	FireAt time.Time `json:"fire_at"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	current, _ := s.svc.CurrentPhase()

	response := StatusResponse{
		Phase:    string(current),
		Schedule: make(map[string]time.Time),
		Jobs:     make([]JobInfo, 0),
	}

	for p, at := range s.svc.Schedule().Times() {
		response.Schedule[string(p)] = at
	}
	for _, job := range s.svc.PendingJobs() {
		response.Jobs = append(response.Jobs, JobInfo{Key: job.Key, FireAt: job.At})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("Failed to encode status response", zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	s.logger.Info("Starting status server", zap.String("addr", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Status server error", zap.Error(err))
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down status server")
	return s.server.Shutdown(ctx)
}
