// rird - gossip-protocol activity-record node
// Copyright (C) 2026 rird-project
//
// This file is part of rird.
//
// rird is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// rird is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with rird. If not, see <https://www.gnu.org/licenses/>.

package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rird-project/rird/internal/logger"
	"github.com/rird-project/rird/pkg/governance"
	"github.com/rird-project/rird/pkg/store"
)

// Server is the liveness/readiness/metrics HTTP server for a node.
type Server struct {
	checker *HealthChecker
	logger  logger.Logger
	port    int
	server  *http.Server
}

// NewServer creates a new health check server backed by checker.
func NewServer(checker *HealthChecker, log logger.Logger, port int) *Server {
	return &Server{
		checker: checker,
		logger:  log,
		port:    port,
	}
}

// NewNodeServer builds a Server with the standard rird node checks already
// registered: store connectivity, killswitch state, and process resource
// usage.
func NewNodeServer(s store.Store, ks *governance.Killswitch, log logger.Logger, port int) *Server {
	checker := NewHealthChecker(5 * time.Second)
	checker.SetCacheTTL(2 * time.Second)
	checker.RegisterCheck(CheckNameStore, NewStorePingCheck(s))
	checker.RegisterCheck(CheckNameKillswitch, KillswitchHealthCheck(ks))
	checker.RegisterCheck("system", SystemResourceCheck())
	return NewServer(checker, log, port)
}

// Start starts the health check server.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/live", s.handleLiveness)
	mux.HandleFunc("/health/ready", s.handleReadiness)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("Starting health check server")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Health check server error: " + err.Error())
		}
	}()

	return nil
}

// Stop stops the health check server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleHealth handles the main health check endpoint, reporting every
// registered check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.checker.GetSystemHealth(r.Context())

	if report.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}

// handleLiveness handles the liveness probe endpoint: the process is
// alive as long as it can answer HTTP requests, regardless of killswitch
// or store state.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// handleReadiness handles the readiness probe endpoint: a node is ready
// only while its store is reachable and its killswitch has not fired.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeResult, _ := s.checker.Check(ctx, CheckNameStore)
	killswitchResult, _ := s.checker.Check(ctx, CheckNameKillswitch)

	ready := storeResult.Status == StatusHealthy && killswitchResult.Status == StatusHealthy

	response := map[string]interface{}{
		"ready":     ready,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"store":     storeResult,
		"killswitch": killswitchResult,
	}

	if ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}
