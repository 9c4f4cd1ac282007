package adminapi

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/duraqio/duraq/internal/adminapi/auth"
	"github.com/duraqio/duraq/internal/config"
	"github.com/duraqio/duraq/internal/logger"
	"github.com/duraqio/duraq/internal/session"
)

// Server is the admin API's HTTP server. It is created in a stopped state;
// call Start to begin serving.
type Server struct {
	server       *http.Server
	cfg          config.AdminAPIConfig
	shutdownOnce sync.Once
}

// NewServer builds a Server serving cmd's command surface, gating mutating
// endpoints behind a JWT signed with cfg.JWTSecret.
func NewServer(cfg config.AdminAPIConfig, cmd *session.Handler) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("admin API enabled but no JWT secret configured")
	}
	jwtService, err := auth.NewJWTService(auth.Config{Secret: cfg.JWTSecret})
	if err != nil {
		return nil, fmt.Errorf("admin API JWT service: %w", err)
	}

	router := NewRouter(cmd, jwtService)

	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 10 * time.Second
	}
	idleTimeout := cfg.IdleTimeout
	if idleTimeout == 0 {
		idleTimeout = 60 * time.Second
	}

	return &Server{
		cfg: cfg,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
		},
	}, nil
}

// Start serves the admin API until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("admin API listening", "port", s.cfg.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("admin API shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("admin API server failed: %w", err)
	}
}

// Stop gracefully shuts down the server. Safe to call multiple times.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("admin API shutdown error: %w", err)
			logger.Error("admin API shutdown error", logger.Err(err))
		} else {
			logger.Info("admin API stopped gracefully")
		}
	})
	return shutdownErr
}

// Port returns the TCP port the admin API listens on.
func (s *Server) Port() int {
	return s.cfg.Port
}
