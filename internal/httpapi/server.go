package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cafe-backoffice/internal/config"
	"cafe-backoffice/internal/logger"
)

const shutdownTimeout = 10 * time.Second

// Server runs the HTTP listener as a suture service.
type Server struct {
	srv    *http.Server
	logger *logger.Logger
}

func NewServer(cfg config.ServerConfig, handler http.Handler, log *logger.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger: log,
	}
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server_started", fmt.Sprintf("HTTP server listening on %s", s.srv.Addr), "", nil)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		s.logger.Info("server_stopped", "HTTP server stopped", "", nil)
		return ctx.Err()
	}
}

func (s *Server) String() string { return "http-server" }
