package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Server represents the API server
type Server struct {
	httpServer *http.Server
}

// NewServer creates a new API server listening on bindAddr.
func NewServer(bindAddr string, deps Dependencies) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         bindAddr,
			Handler:      NewRouter(deps),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start serves the API until Stop is called.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves the API on an existing listener until Stop is called.
func (s *Server) Serve(ln net.Listener) error {
	logger.Infof("Starting server on %s", ln.Addr())
	logger.Infof("Example: curl http://%s/api/v1/stats", ln.Addr())

	if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the API server
func (s *Server) Stop(ctx context.Context) error {
	logger.Infof("Shutting down server...")
	return s.httpServer.Shutdown(ctx)
}
