package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/neo-content/internal/config"
	httpcontroller "github.com/vadim/neo-content/internal/controller/http"
	"github.com/vadim/neo-content/internal/database"
	batchdao "github.com/vadim/neo-content/internal/domain/batch/dao"
	batchpolicy "github.com/vadim/neo-content/internal/domain/batch/policy"
	batchscheduler "github.com/vadim/neo-content/internal/domain/batch/scheduler"
	genservice "github.com/vadim/neo-content/internal/domain/generation/service"
	postdao "github.com/vadim/neo-content/internal/domain/post/dao"
	postpolicy "github.com/vadim/neo-content/internal/domain/post/policy"
	postscheduler "github.com/vadim/neo-content/internal/domain/post/scheduler"
	postservice "github.com/vadim/neo-content/internal/domain/post/service"
	"github.com/vadim/neo-content/internal/httpx/response"
	"github.com/vadim/neo-content/internal/httpx/upstream/shopify"
	"github.com/vadim/neo-content/internal/metrics"
	"github.com/vadim/neo-content/internal/storage"
	"github.com/vadim/neo-content/internal/timezone"
)

// zoneCacheTTL is how long a store's platform timezone is trusted
const zoneCacheTTL = time.Hour

// App is the main application container
type App struct {
	cfg        config.Config
	httpServer *http.Server
	router     *chi.Mux
	logger     *slog.Logger

	// Infrastructure
	pool     *pgxpool.Pool
	posts    postdao.PostRepository
	runs     batchdao.RunRepository
	archive  *storage.RawArchive
	platform *shopify.Publisher

	// Domain layers
	zones        *timezone.ZoneSource
	gateway      *genservice.Gateway
	postService  *postservice.Service
	postPolicy   *postpolicy.Policy
	orchestrator *batchpolicy.Orchestrator

	// Background loops
	syncScheduler *postscheduler.Scheduler
	monitor       *batchscheduler.Monitor
}

// Option customizes the application container
type Option func(*App)

// WithLogger replaces the logger built from the log configuration
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// NewApp creates and initializes the application
func NewApp(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	app := &App{
		cfg:    cfg,
		logger: NewLogger(cfg.Log, os.Stdout),
	}
	for _, opt := range opts {
		opt(app)
	}
	logger := app.logger

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	if cfg.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	}
	app.router = r

	if err := app.initInfrastructure(ctx); err != nil {
		return nil, fmt.Errorf("initializing infrastructure: %w", err)
	}

	if err := app.initDomains(); err != nil {
		app.closeInfrastructure()
		return nil, fmt.Errorf("initializing domains: %w", err)
	}

	if err := app.registerRoutes(); err != nil {
		app.closeInfrastructure()
		return nil, fmt.Errorf("registering routes: %w", err)
	}

	app.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      app.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if cfg.Sync.Enabled && app.platform != nil {
		app.syncScheduler = postscheduler.New(app.postPolicy, cfg.Sync.Interval, cfg.Sync.BatchSize, logger)
	}
	app.monitor = batchscheduler.NewMonitor(app.orchestrator, cfg.Cluster.PollInterval, logger)

	return app, nil
}

// NewLogger builds a logger from the log configuration
func NewLogger(cfg config.Log, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// initInfrastructure initializes the stores, the raw archive and the publishing platform
func (a *App) initInfrastructure(ctx context.Context) error {
	if dsn := a.cfg.Database.PostgresDSN; dsn != "" {
		if a.cfg.Database.AutoMigrate {
			if err := database.ApplyMigrations(dsn); err != nil {
				return fmt.Errorf("migrating database: %w", err)
			}
		}

		pool, err := database.NewPostgresPool(ctx, dsn, database.PoolConfig{
			MaxConns: a.cfg.Database.MaxConns,
			MinConns: a.cfg.Database.MinConns,
		})
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		a.pool = pool
		a.posts = postdao.NewPostPostgres(pool)
		a.runs = batchdao.NewRunPostgres(pool)
	} else {
		a.logger.Warn("DATABASE_URL is not set, using in-memory stores")
		a.posts = postdao.NewPostMemory()
		a.runs = batchdao.NewRunMemory()
	}

	if a.cfg.S3.Enabled {
		a.archive = storage.NewRawArchive(storage.S3Config{
			Endpoint:        a.cfg.S3.Endpoint,
			AccessKeyID:     a.cfg.S3.AccessKeyID,
			SecretAccessKey: a.cfg.S3.SecretAccessKey,
			Bucket:          a.cfg.S3.Bucket,
			Region:          a.cfg.S3.Region,
		})
	}

	if a.cfg.Shopify.Enabled() {
		opts := []shopify.ClientOption{shopify.WithAPIVersion(a.cfg.Shopify.APIVersion)}
		if a.cfg.Shopify.BaseURL != "" {
			opts = append(opts, shopify.WithBaseURL(a.cfg.Shopify.BaseURL))
		}
		client := shopify.New(a.cfg.Shopify.ShopDomain, a.cfg.Shopify.AccessToken, opts...)
		a.platform = shopify.NewPublisher(client, a.cfg.Shopify.BlogID)
	} else {
		a.logger.Warn("publishing platform is not configured, posts stay local and schedules use UTC")
	}

	return nil
}

// initDomains initializes domain layers (DAO, Service, Policy)
func (a *App) initDomains() error {
	providers, err := BuildProviders(a.cfg)
	if err != nil {
		return err
	}

	gateway := genservice.NewGateway(GatewayConfig(a.cfg.Generation), a.logger, providers...)
	if a.archive != nil {
		gateway = gateway.WithArchiver(a.archive)
	}
	a.gateway = gateway
	a.logger.Info("generation providers configured", "chain", gateway.Providers())

	var fetcher timezone.StoreZoneFetcher
	var publisher postpolicy.PlatformPublisher
	if a.platform != nil {
		fetcher = a.platform
		publisher = a.platform
	}

	a.zones = timezone.NewZoneSource(fetcher, zoneCacheTTL, a.logger)
	a.postService = postservice.New(a.posts, a.zones, a.logger)
	a.postPolicy = postpolicy.New(a.postService, publisher, a.logger)
	a.orchestrator = batchpolicy.New(gateway, a.postService, a.postPolicy, a.runs, ClusterConfig(a.cfg.Cluster), a.logger)

	return nil
}

// registerRoutes registers all HTTP routes
func (a *App) registerRoutes() error {
	a.router.Get("/healthz", a.healthHandler)
	a.router.Get("/readyz", a.readyHandler)

	if a.cfg.Metrics.Enabled {
		a.router.Handle(a.cfg.Metrics.Path, metrics.Handler())
	}

	swaggerHandler, err := httpcontroller.NewSwaggerHandler("Neo-Content API", httpcontroller.OpenAPISpec)
	if err != nil {
		return fmt.Errorf("loading api docs: %w", err)
	}
	swaggerHandler.RegisterRoutes(a.router)

	a.router.Route("/api/v1", func(r chi.Router) {
		httpcontroller.NewGenerationHandler(a.gateway, a.orchestrator).RegisterRoutes(r)
		httpcontroller.NewPostHandler(a.postPolicy, a.postService).RegisterRoutes(r)
		httpcontroller.NewScheduleHandler(a.zones).RegisterRoutes(r)
	})

	return nil
}

// healthHandler handles health check requests
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{"status": "ok"})
}

// readyHandler reports ready once the database answers
func (a *App) readyHandler(w http.ResponseWriter, r *http.Request) {
	if a.pool != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.pool.Ping(ctx); err != nil {
			a.logger.Warn("readiness check failed", "error", err)
			response.ServiceUnavailable(w, "database unavailable")
			return
		}
	}
	response.OK(w, map[string]string{"status": "ready"})
}

// Run starts the application and blocks until shutdown signal
func (a *App) Run(ctx context.Context) error {
	if n, err := a.orchestrator.RecoverOrphans(ctx); err != nil {
		a.logger.Error("failed to recover interrupted cluster jobs", "error", err)
	} else if n > 0 {
		a.logger.Info("marked interrupted cluster jobs", "count", n)
	}

	a.monitor.Start(ctx)
	if a.syncScheduler != nil {
		a.syncScheduler.Start(ctx)
	}

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", "addr", a.cfg.Server.Address())
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case err := <-errCh:
		runErr = fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		a.logger.Info("context cancelled")
	}

	if err := a.Shutdown(context.Background()); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")

	if a.syncScheduler != nil {
		a.syncScheduler.Stop()
	}
	a.monitor.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutting down HTTP server: %w", err))
	}
	if err := a.orchestrator.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("stopping cluster jobs: %w", err))
	}

	a.closeInfrastructure()

	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeInfrastructure() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// Orchestrator exposes the batch orchestrator to in-process callers such as the CLI
func (a *App) Orchestrator() *batchpolicy.Orchestrator {
	return a.orchestrator
}

// Close waits for background cluster jobs and releases infrastructure without serving HTTP
func (a *App) Close() {
	a.orchestrator.Wait()
	a.closeInfrastructure()
}
