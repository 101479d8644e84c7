package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vidora/vidora/internal/account"
	"github.com/vidora/vidora/internal/httpapi"
	"github.com/vidora/vidora/internal/session"
	"github.com/vidora/vidora/internal/store"
	"github.com/vidora/vidora/internal/store/drivers/sqlite"
	"github.com/vidora/vidora/pkg/cryptox"
	"github.com/vidora/vidora/pkg/slogx"
)

// BuildVersion is overridden at build time via ldflags.
var BuildVersion = "v0.1.0"

// Application encapsulates the session service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db store.Store

	sessionManager *session.Manager
	accountService *account.Service
	sweeper        *session.Sweeper

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "session-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.sweeper.Start()

	app.logger.Info("session service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down session service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.sweeper.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("session service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices initializes the session manager, account service, and sweeper.
func (app *Application) initServices() error {
	accessSecret, err := app.resolveSecret(app.cfg.AccessSecret, "access")
	if err != nil {
		return err
	}
	refreshSecret, err := app.resolveSecret(app.cfg.RefreshSecret, "refresh")
	if err != nil {
		return err
	}

	app.sessionManager = &session.Manager{
		Store: app.db,
		Codec: &session.TokenCodec{
			Issuer:        app.cfg.Issuer,
			AccessSecret:  accessSecret,
			RefreshSecret: refreshSecret,
			AccessTTL:     app.cfg.AccessTTL,
			RefreshTTL:    app.cfg.RefreshTTL,
		},
	}

	app.accountService = &account.Service{
		Store:  app.db,
		Issuer: app.cfg.Issuer,
	}

	app.sweeper = session.NewSweeper(
		app.sessionManager,
		app.db,
		app.logger,
		app.cfg.SweepInterval,
	)

	return nil
}

// resolveSecret returns the configured signing key, or generates an ephemeral
// one. Ephemeral keys mean every outstanding session dies on restart, which
// is fine for dev and wrong for prod, hence the warning.
func (app *Application) resolveSecret(configured, name string) ([]byte, error) {
	if configured != "" {
		return []byte(configured), nil
	}

	generated, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s token secret: %w", name, err)
	}
	app.logger.Warn("no signing secret configured, generated an ephemeral one",
		"kind", name)
	return []byte(generated), nil
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)
	router.Sessions = app.sessionManager
	router.Accounts = app.accountService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
