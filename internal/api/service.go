package api

import (
	"context"
	"fmt"
	"time"

	"github.com/michaelwinczuk/erc-shared-sequencer/pkg/service"
)

// APIService wraps the Server as a registry service.
type APIService struct {
	server *Server
	status service.Status
}

// NewAPIService creates the service wrapper.
func NewAPIService(server *Server) *APIService {
	return &APIService{
		server: server,
		status: service.StatusStopped,
	}
}

// Name returns the service name.
func (s *APIService) Name() string {
	return "api"
}

// Start launches the HTTP server.
func (s *APIService) Start(ctx context.Context) error {
	s.status = service.StatusStarting

	go s.server.Start()

	s.status = service.StatusRunning
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *APIService) Stop(ctx context.Context) error {
	s.status = service.StatusStopping

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	s.server.Shutdown(shutdownCtx)

	s.status = service.StatusStopped
	return nil
}

// Status returns the current service status.
func (s *APIService) Status() service.Status {
	return s.status
}

// Health performs a health check.
func (s *APIService) Health() error {
	if s.status != service.StatusRunning {
		return fmt.Errorf("service not running")
	}
	return nil
}

// Dependencies returns a list of services this service depends on.
func (s *APIService) Dependencies() []string {
	return []string{"sequencer"}
}
