// Package server wires the authkeeper server together: it picks the
// credential store, builds the services and runs the HTTP and gRPC
// boundaries until the process is told to stop.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	gs "github.com/dmitrijs2005/authkeeper/internal/server/grpc"
	"github.com/dmitrijs2005/authkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/authkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	registry    *prometheus.Registry
	collector   *metrics.Collector
	authService *services.AuthService
	userService *services.UserService
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {

	db, rm, err := openStore(ctx, c, logger)
	if err != nil {
		return nil, err
	}

	hasher, err := auth.NewBcryptHasher(c.HashCost, c.HashConcurrency)
	if err != nil {
		closeDB(db)
		return nil, fmt.Errorf("hasher init error: %w", err)
	}

	tm, err := auth.NewTokenManager([]byte(c.SecretKey), auth.WithIssuer(c.Issuer))
	if err != nil {
		closeDB(db)
		return nil, fmt.Errorf("token manager init error: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	as := services.NewAuthService(db, rm, hasher, tm, c,
		services.WithLogger(logger), services.WithRecorder(collector))
	us := services.NewUserService(db, rm, hasher, c, services.WithLogger(logger))

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		registry:    reg,
		collector:   collector,
		authService: as,
		userService: us,
	}, nil
}

// openStore connects to PostgreSQL and migrates it, or falls back to the
// in-memory store when no DSN is configured.
func openStore(ctx context.Context, c *config.Config, logger logging.Logger) (*sql.DB, repomanager.RepositoryManager, error) {
	if c.DatabaseDSN == "" {
		logger.Warn(ctx, "No database DSN configured, using in-memory store")
		return nil, repomanager.NewMemoryRepositoryManager(), nil
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, c.StoreTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		closeDB(db)
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		closeDB(db)
		return nil, nil, err
	}

	return db, rm, nil
}

func closeDB(db *sql.DB) {
	if db != nil {
		_ = db.Close()
	}
}

func (app *App) initSignalHandler(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
}

func (app *App) newHTTPServer() (*http.Server, func()) {
	var limiter *httpapi.RateLimiter
	if app.config.LoginRateLimit > 0 {
		limiter = httpapi.NewRateLimiter(httpapi.RateLimiterConfig{
			PerMinute: app.config.LoginRateLimit,
			Burst:     app.config.LoginRateBurst,
		}, app.logger)
	}

	router := httpapi.NewRouter(&httpapi.RouterDeps{
		Auth:        app.authService,
		Users:       app.userService,
		Resolver:    app.authService,
		Logger:      app.logger.With("module", "http_server"),
		RateLimiter: limiter,
		Recorder:    app.collector,
		Metrics:     metrics.Handler(app.registry),
	})

	srv := &http.Server{
		Addr:              app.config.EndpointAddrHTTP,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	stop := func() {
		if limiter != nil {
			limiter.Stop()
		}
	}
	return srv, stop
}

func (app *App) runHTTPServer(ctx context.Context) error {
	srv, stop := app.newHTTPServer()
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "Starting HTTP server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (app *App) runGRPCServer(ctx context.Context) error {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.authService, app.userService, app.authService)
	return s.Run(ctx)
}

type boundary struct {
	name string
	run  func(ctx context.Context) error
}

// boundaries lists the servers to run. An empty address disables its server.
func (app *App) boundaries() []boundary {
	var bs []boundary
	if app.config.EndpointAddrHTTP != "" {
		bs = append(bs, boundary{name: "http", run: app.runHTTPServer})
	}
	if app.config.EndpointAddrGRPC != "" {
		bs = append(bs, boundary{name: "grpc", run: app.runGRPCServer})
	}
	return bs
}

// Run serves the enabled boundaries until ctx is cancelled, a termination
// signal arrives or one of the servers fails.
func (app *App) Run(ctx context.Context) error {
	defer closeDB(app.db)

	bs := app.boundaries()
	if len(bs) == 0 {
		return fmt.Errorf("%w: no endpoint address configured", common.ErrorValidation)
	}

	ctx, cancel := app.initSignalHandler(ctx)
	defer cancel()

	app.logger.Info(ctx, "Starting app...")

	g, ctx := errgroup.WithContext(ctx)
	for _, b := range bs {
		g.Go(func() error { return b.run(ctx) })
	}

	err := g.Wait()
	app.logger.Info(context.Background(), "App stopped")
	return err
}
