// Package server owns the broker's TCP accept loop and the lifecycle of
// every component wired around it (journal, queue collection, session
// registry, admin API, metrics). It plays the role the teacher's runtime
// package plays for DittoFS's NFS/SMB adapters, reduced to the single
// memcache-compatible protocol this broker speaks.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/duraqio/duraq/internal/logger"
	"github.com/duraqio/duraq/internal/protocol/memcache"
	"github.com/duraqio/duraq/internal/queue"
	"github.com/duraqio/duraq/internal/session"
)

// AuxiliaryServer is an optional HTTP server (admin API, metrics) the
// broker starts and stops alongside the memcache listener.
type AuxiliaryServer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Port() int
}

// Config bundles every collaborator Server needs to accept and serve
// connections.
type Config struct {
	ListenAddr      string
	ShutdownTimeout time.Duration
	ShutdownDelay   time.Duration

	Collection   queue.Collection
	Registry     *session.Registry
	Status       *session.ServerStatus
	Policy       session.Policy
	Metrics      session.Metrics
	AuditSink    session.AuditSink
	MaxOpenReads int

	MetricsServer AuxiliaryServer
	APIServer     AuxiliaryServer
}

// Server accepts memcache-protocol connections and dispatches each to its
// own session.Handler. One Server per process; Serve blocks until ctx is
// cancelled.
type Server struct {
	cfg Config

	listenerMu sync.Mutex
	listener   net.Listener

	wg sync.WaitGroup

	shutdownOnce sync.Once
	shuttingDown chan struct{}
}

// New builds a Server from cfg. cfg.Registry and cfg.Collection must be
// non-nil.
func New(cfg Config) *Server {
	if cfg.MaxOpenReads <= 0 {
		cfg.MaxOpenReads = 1
	}
	return &Server{
		cfg:          cfg,
		shuttingDown: make(chan struct{}),
	}
}

// Serve starts the memcache listener and any configured auxiliary servers,
// and blocks until ctx is cancelled or a fatal error occurs.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.ListenAddr, err)
	}
	s.listenerMu.Lock()
	s.listener = listener
	s.listenerMu.Unlock()
	logger.Info("memcache listener started", "addr", s.cfg.ListenAddr)

	auxErrChan := make(chan error, 2)
	if s.cfg.MetricsServer != nil {
		go func() {
			if err := s.cfg.MetricsServer.Start(ctx); err != nil {
				auxErrChan <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}
	if s.cfg.APIServer != nil {
		go func() {
			if err := s.cfg.APIServer.Start(ctx); err != nil {
				auxErrChan <- fmt.Errorf("admin API server: %w", err)
			}
		}()
	}

	acceptErrChan := make(chan error, 1)
	go func() {
		acceptErrChan <- s.acceptLoop(ctx, listener)
	}()

	var shutdownErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received", "reason", ctx.Err())
	case err := <-acceptErrChan:
		if err != nil {
			logger.Error("accept loop failed", "error", err)
			shutdownErr = err
		}
	case err := <-auxErrChan:
		logger.Error("auxiliary server failed", "error", err)
		shutdownErr = err
	}

	s.shutdown(ctx)
	return shutdownErr
}

// acceptLoop accepts connections until the listener is closed, spawning
// one goroutine per connection running the memcache protocol.
func (s *Server) acceptLoop(ctx context.Context, listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			select {
			case <-s.shuttingDown:
				return nil
			default:
				select {
				case <-ctx.Done():
					return nil
				default:
					logger.Debug("accept error", "error", err)
					continue
				}
			}
		}

		if tcp, ok := conn.(*net.TCPConn); ok {
			_ = tcp.SetNoDelay(true)
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, conn)
		}()
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	addr := conn.RemoteAddr().String()
	sess := s.cfg.Registry.Create(addr)
	gate := session.NewAvailabilityGate(s.cfg.Registry.Count(), s.cfg.Policy, s.cfg.Status)

	handler := session.NewHandler(sess, session.Config{
		Collection:   s.cfg.Collection,
		Gate:         gate,
		Registry:     s.cfg.Registry,
		Metrics:      s.cfg.Metrics,
		AuditSink:    s.cfg.AuditSink,
		MaxOpenReads: s.cfg.MaxOpenReads,
		ShutdownFn:   s.delayedShutdown,
	})

	logger.Debug("session accepted", "session_id", sess.SessionID, "addr", addr)

	memcache.Serve(ctx, conn, memcache.ConnConfig{
		Handler: handler,
	})
}

// delayedShutdown marks the server quiescent, waits delay, then cancels
// the accept loop by closing the listener. Bound to Handler.Shutdown, so a
// "shutdown" command from any session can trigger it.
func (s *Server) delayedShutdown(delay time.Duration) {
	if s.cfg.ShutdownDelay > 0 {
		delay = s.cfg.ShutdownDelay
	}
	go func() {
		if s.cfg.Status != nil {
			s.cfg.Status.Set(session.StateQuiescent)
		}
		time.Sleep(delay)
		s.closeListener()
	}()
}

func (s *Server) closeListener() {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

// shutdown closes the listener, signals the accept loop to stop, and waits
// (bounded by cfg.ShutdownTimeout) for in-flight connections to finish,
// then stops any auxiliary servers.
func (s *Server) shutdown(ctx context.Context) {
	s.shutdownOnce.Do(func() {
		close(s.shuttingDown)
		s.closeListener()

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()

		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		select {
		case <-done:
			logger.Info("all sessions finished")
		case <-time.After(timeout):
			logger.Warn("shutdown timeout exceeded, forcing close", "timeout", timeout)
		}

		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if s.cfg.MetricsServer != nil {
			if err := s.cfg.MetricsServer.Stop(stopCtx); err != nil {
				logger.Error("metrics server shutdown error", "error", err)
			}
		}
		if s.cfg.APIServer != nil {
			if err := s.cfg.APIServer.Stop(stopCtx); err != nil {
				logger.Error("admin API shutdown error", "error", err)
			}
		}
	})
}
