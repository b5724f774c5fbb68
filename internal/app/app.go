package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/filecrate/filecrate/internal/blob"
	httpapi "github.com/filecrate/filecrate/internal/http"
	"github.com/filecrate/filecrate/internal/service"
	"github.com/filecrate/filecrate/internal/store"
	"github.com/filecrate/filecrate/internal/store/drivers/sqlite"
	"github.com/filecrate/filecrate/pkg/cryptox"
	"github.com/filecrate/filecrate/pkg/jwtx"
	"github.com/filecrate/filecrate/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application wires every component together: config, storage, services,
// and the HTTP server.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db    store.Store
	blobs *blob.Store

	authService         *service.AuthService
	fileService         *service.FileService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "filecrate",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initBlobs(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	signer, err := jwtx.NewSignerHS256([]byte(app.cfg.JWTSecret))
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize token signer: %w", err)
	}
	verifier := jwtx.NewVerifierHS256([]byte(app.cfg.JWTSecret), app.cfg.Issuer, 30*time.Second)

	app.initServices(signer)
	app.initHTTP(verifier)

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("filecrate starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// Shutdown drains in-flight requests, stops housekeeping, and closes storage.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down filecrate...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("filecrate stopped")
	return nil
}

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

func (app *Application) initBlobs() error {
	blobs, err := blob.Open(app.cfg.BlobDir)
	if err != nil {
		return fmt.Errorf("failed to initialize blob storage: %w", err)
	}
	app.blobs = blobs

	app.logger.Info("blob storage ready", "dir", app.cfg.BlobDir)
	return nil
}

func (app *Application) initServices(signer jwtx.Signer) {
	app.authService = &service.AuthService{
		Store:      app.db,
		Signer:     signer,
		Issuer:     app.cfg.Issuer,
		SessionTTL: app.cfg.TokenTTL,
	}

	app.fileService = &service.FileService{
		Store: app.db,
		Blobs: app.blobs,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.blobs,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) initHTTP(verifier jwtx.Verifier) {
	router := httpapi.NewRouter(
		verifier,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.Blobs = app.blobs
	router.AuthService = app.authService
	router.FileService = app.fileService
	router.MaxUploadBytes = app.cfg.MaxUploadBytes
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
