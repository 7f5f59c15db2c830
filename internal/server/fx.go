// Package server provides the core application server and dependency injection.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/linkvault/internal/api"
	"github.com/JakeFAU/linkvault/internal/browser"
	"github.com/JakeFAU/linkvault/internal/clock/system"
	"github.com/JakeFAU/linkvault/internal/config"
	"github.com/JakeFAU/linkvault/internal/content"
	"github.com/JakeFAU/linkvault/internal/id/uuid"
	"github.com/JakeFAU/linkvault/internal/logging"
	"github.com/JakeFAU/linkvault/internal/metrics"
	"github.com/JakeFAU/linkvault/internal/queue"
	"github.com/JakeFAU/linkvault/internal/storage"
	"github.com/JakeFAU/linkvault/internal/telemetry"
	"github.com/JakeFAU/linkvault/internal/worker"
)

const shutdownTimeout = 10 * time.Second

// App contains the application's dependencies.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	broker    queue.Broker
	store     content.Store
	uploader  storage.Uploader
	browsers  *browser.Manager
	service   *content.Service
	runner    *worker.Runner
	apiServer *api.Server
	checks    []api.Check
	closers   []func(context.Context) error
}

// NewApp creates a new App with the given configuration.
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("creating application",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("queue_backend", cfg.Queue.Backend),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.Bool("postgres", cfg.Database.DSN != ""),
		zap.Bool("browser", cfg.Browser.Enabled),
	)
	return &App{cfg: cfg, logger: logger}, nil
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Service returns the content service.
func (a *App) Service() *content.Service {
	return a.service
}

// Handler returns the HTTP handler.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// RunServe serves the HTTP API until the context is canceled or a signal
// arrives. With withWorkers the enrichment consumers run in the same process;
// the in-memory broker always needs them.
func (a *App) RunServe(ctx context.Context, withWorkers bool) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.cfg.Queue.Backend == config.BackendMemory && !withWorkers {
		a.logger.Warn("memory queue has no external consumers, starting workers in-process")
		withWorkers = true
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	if withWorkers {
		g.Go(func() error {
			return a.runner.Run(gctx)
		})
	}
	g.Go(func() error {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("server shutdown error", zap.Error(err))
		}
		return nil
	})

	runErr := g.Wait()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	closeErr := a.Close(shutdownCtx)
	if runErr != nil {
		return runErr //nolint:wrapcheck
	}
	return closeErr
}

// RunWorker consumes the enrichment queues until the context is canceled or a
// signal arrives.
func (a *App) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.Info("worker started", zap.String("queue_backend", a.cfg.Queue.Backend))
	runErr := a.runner.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	closeErr := a.Close(shutdownCtx)
	if runErr != nil {
		return fmt.Errorf("run workers: %w", runErr)
	}
	return closeErr
}

// Close waits for in-flight enqueues and releases resources in reverse order
// of construction.
func (a *App) Close(ctx context.Context) error {
	if a.service != nil {
		a.service.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("logger sync failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}

func (a *App) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return BuildWithLogger(ctx, cfg, logger)
}

// BuildWithLogger is Build with a caller-supplied logger.
func BuildWithLogger(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	app, err := NewApp(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("app init failed: %w", err)
	}

	metrics.Init()
	telemetry.InitPropagation()

	app.logger.Info("building application dependencies")
	if err := app.build(ctx); err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		_ = app.Close(shutdownCtx)
		return nil, err
	}
	return app, nil
}

func (a *App) build(ctx context.Context) error {
	if err := setupBroker(ctx, a); err != nil {
		return err
	}
	if err := setupStore(ctx, a); err != nil {
		return err
	}
	if err := setupUploader(ctx, a); err != nil {
		return err
	}
	setupBrowser(a)

	enrich, err := setupEnrichment(ctx, a)
	if err != nil {
		return err
	}

	a.runner = worker.NewRunner(a.broker,
		worker.NewScreenshotWorker(a.store, enrich.capturer, a.uploader, a.cfg.Storage.Folder, a.logger),
		worker.NewTagWorker(a.store, enrich.generator, a.logger),
		a.logger,
	)
	a.service = content.NewService(a.store, a.broker, uuid.New(), system.New(), a.logger)
	a.apiServer = api.NewServer(a.service, *a.cfg, a.logger.Named("api"), a.checks...)
	return nil
}
