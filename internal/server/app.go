// Package server wires the diary server together: storage, services and the
// HTTP surface. It runs migrations on start, purges expired sessions in the
// background and shuts down gracefully on SIGINT or SIGTERM.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/dailydiary/internal/logging"
	"github.com/dmitrijs2005/dailydiary/internal/server/auth"
	"github.com/dmitrijs2005/dailydiary/internal/server/config"
	"github.com/dmitrijs2005/dailydiary/internal/server/httpserver"
	"github.com/dmitrijs2005/dailydiary/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/dailydiary/internal/server/services"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	authService *services.AuthService
	httpServer  *httpserver.Server
}

// NewApp opens the database named by c.DatabaseDSN and builds the app on it.
func NewApp(c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel)

	db, err := repomanager.Open(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app := NewAppWithRepositories(c, logger, repomanager.NewPostgresRepositoryManager(db))
	app.db = db
	return app, nil
}

// NewAppWithRepositories builds the app on an existing repository manager.
func NewAppWithRepositories(c *config.Config, logger logging.Logger, m repomanager.RepositoryManager) *App {
	hasher := auth.NewBcryptHasher()

	us := services.NewUserService(m, hasher, logger)
	as := services.NewAuthService(m, hasher, c.SecretKey, c.SessionValidity, logger)
	ds := services.NewDiaryService(m, logger)
	es := services.NewExportService(m, ds, c, logger)

	srv := httpserver.NewServer(c, logger, httpserver.Services{
		Users:   us,
		Auth:    as,
		Diaries: ds,
		Exports: es,
		Health:  m,
	})

	return &App{
		config:      c,
		logger:      logger,
		repomanager: m,
		authService: as,
		httpServer:  srv,
	}
}

// initSignalHandler cancels on the first termination signal. The returned
// channel is closed once the handler has stopped listening.
func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) <-chan struct{} {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer signal.Stop(sigs)

		select {
		case sig := <-sigs:
			app.logger.Info(ctx, "signal received", "signal", sig.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
	return done
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.httpServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// purgeSessions deletes expired sessions every SessionPurgeInterval until ctx
// is done.
func (app *App) purgeSessions(ctx context.Context) {
	if app.config.SessionPurgeInterval <= 0 {
		return
	}

	ticker := time.NewTicker(app.config.SessionPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := app.authService.PurgeExpiredSessions(ctx); err != nil {
				app.logger.Warn(ctx, "session purge failed", "error", err)
			}
		}
	}
}

// Run applies migrations and serves until ctx is cancelled or a termination
// signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	if app.db != nil {
		defer app.db.Close()
	}

	if err := app.repomanager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("db migrations error: %w", err)
	}

	signalsDone := app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.purgeSessions(ctx)
	}()

	wg.Wait()
	cancelFunc()
	<-signalsDone

	app.logger.Info(ctx, "App stopped")
	return nil
}
