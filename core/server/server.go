package server

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrymomot/sessionguard/core/logger"
)

// Server runs an http.Server on its own listener and tears it down in order:
// stop accepting, let in-flight requests finish, then run the shutdown hooks.
type Server struct {
	addr    string
	http    *http.Server
	tls     *tls.Config
	timeout time.Duration
	hooks   []func(context.Context) error
	logger  *slog.Logger

	mu      sync.Mutex
	ln      net.Listener
	serving bool
}

// New returns a server for addr with the package defaults and opts applied.
func New(addr string, opts ...Option) *Server {
	s := &Server{
		addr:    addr,
		timeout: DefaultShutdownTimeout,
		logger:  logger.Nop(),
		http: &http.Server{
			ReadTimeout:    DefaultReadTimeout,
			WriteTimeout:   DefaultWriteTimeout,
			IdleTimeout:    DefaultIdleTimeout,
			MaxHeaderBytes: DefaultMaxHeaderBytes,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.http.ErrorLog = slog.NewLogLogger(s.logger.Handler(), slog.LevelError)
	return s
}

// Addr is the bound address while serving and the configured one otherwise.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

// Start listens and serves h until ctx is done or serving fails. It returns
// ctx.Err() on cancellation and leaves the shutdown to Stop.
func (s *Server) Start(ctx context.Context, h http.Handler) error {
	ln, err := s.listen(h)
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "server listening",
		logger.Component("server"),
		slog.String("addr", ln.Addr().String()),
		slog.Bool("tls", s.tls != nil))

	srv := s.http
	failed := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
	}()

	select {
	case err := <-failed:
		s.mu.Lock()
		s.serving = false
		s.mu.Unlock()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) listen(h http.Handler) (net.Listener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.serving {
		return nil, ErrServerAlreadyRunning
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, err
	}
	if s.tls != nil {
		ln = tls.NewListener(ln, s.tls)
	}

	// A shut down http.Server cannot serve again, so each run gets a fresh one.
	s.http = &http.Server{
		Handler:        h,
		ReadTimeout:    s.http.ReadTimeout,
		WriteTimeout:   s.http.WriteTimeout,
		IdleTimeout:    s.http.IdleTimeout,
		MaxHeaderBytes: s.http.MaxHeaderBytes,
		ErrorLog:       s.http.ErrorLog,
	}
	s.ln = ln
	s.serving = true
	return ln, nil
}

// Stop shuts the server down and then runs the hooks, sharing one shutdown
// deadline. Stopping a server that is not serving is a no-op.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.serving {
		return nil
	}
	s.serving = false

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.logger.Info("server shutting down",
		logger.Component("server"),
		slog.Duration("timeout", s.timeout))

	err := s.http.Shutdown(ctx)
	for _, hook := range s.hooks {
		if herr := hook(ctx); herr != nil {
			err = errors.Join(err, ErrShutdownHook, herr)
		}
	}

	if err != nil {
		s.logger.Error("server shutdown failed", logger.Component("server"), logger.Error(err))
		return err
	}
	s.logger.Info("server stopped", logger.Component("server"))
	return nil
}

// Run adapts Start and Stop to errgroup: the returned function serves until
// ctx is done and then shuts down.
func (s *Server) Run(ctx context.Context, h http.Handler) func() error {
	return func() error {
		err := s.Start(ctx, h)
		if err != nil && ctx.Err() == nil {
			return err
		}
		return s.Stop()
	}
}
