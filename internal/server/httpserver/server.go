// Package httpserver exposes the diary over HTTP. Requests carry a session
// cookie; responses are JSON documents.
package httpserver

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/dailydiary/internal/logging"
	"github.com/dmitrijs2005/dailydiary/internal/server/config"
	"github.com/dmitrijs2005/dailydiary/internal/server/gateway"
	"github.com/dmitrijs2005/dailydiary/internal/server/services"
)

const shutdownTimeout = 15 * time.Second

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups the collaborators the handlers call into.
type Services struct {
	Users   *services.UserService
	Auth    *services.AuthService
	Diaries *services.DiaryService
	Exports *services.ExportService
	Health  Pinger
}

type Server struct {
	address   string
	logger    logging.Logger
	accessLog *log.Logger
	errorLog  *log.Logger

	users   *services.UserService
	auth    *services.AuthService
	diaries *services.DiaryService
	exports *services.ExportService
	health  Pinger
	gateway *gateway.Gateway

	cookieName   string
	cookieSecure bool
	cookieMaxAge time.Duration
	loginLimiter *ipLimiter

	router http.Handler
}

// stdLogger is implemented by logging.SlogLogger.
type stdLogger interface {
	StdLogger(level slog.Level) *log.Logger
}

func NewServer(c *config.Config, l logging.Logger, svc Services) *Server {
	s := &Server{
		address:      c.HTTPAddr,
		logger:       l.With("module", "http_server"),
		users:        svc.Users,
		auth:         svc.Auth,
		diaries:      svc.Diaries,
		exports:      svc.Exports,
		health:       svc.Health,
		gateway:      gateway.New(svc.Users),
		cookieName:   c.CookieName,
		cookieSecure: c.CookieSecure,
		cookieMaxAge: c.SessionValidity,
		loginLimiter: newIPLimiter(c.LoginRatePerMinute, c.LoginBurst),
	}

	if sl, ok := l.(stdLogger); ok {
		s.accessLog = sl.StdLogger(slog.LevelInfo)
		s.errorLog = sl.StdLogger(slog.LevelError)
	} else {
		s.accessLog = log.New(io.Discard, "", 0)
		s.errorLog = log.New(io.Discard, "", 0)
	}

	s.registerRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:      s,
		ErrorLog:     s.errorLog,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-stopped
	return nil
}
