// Package server wires the workoutlog backend together: storage, services,
// the change feed, the gRPC endpoint, ops endpoints and background jobs.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/workoutlog/internal/logging"
	"github.com/dmitrijs2005/workoutlog/internal/server/config"
	"github.com/dmitrijs2005/workoutlog/internal/server/metrics"
	"github.com/dmitrijs2005/workoutlog/internal/server/ops"
	"github.com/dmitrijs2005/workoutlog/internal/server/realtime"
	"github.com/dmitrijs2005/workoutlog/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/workoutlog/internal/server/services"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	gs "github.com/dmitrijs2005/workoutlog/internal/server/grpc"
)

const purgeInterval = 10 * time.Minute

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	redis    *redis.Client
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	hub      *realtime.Hub
	feed     realtime.Feed
	users    *services.UserService
	store    *services.StoreService
	backups  *services.BackupService
}

// NewApp opens the database, applies migrations and builds the services.
// Close releases what NewApp opened.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.LogLevel, c.LogFormat, os.Stdout)

	db, rm, err := repomanager.Open(ctx, c.DatabaseDriver, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	app := &App{
		config:   c,
		logger:   logger,
		db:       db,
		registry: prometheus.NewRegistry(),
		hub:      realtime.NewHub(),
	}
	app.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.metrics = metrics.New(app.registry)

	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("redis %s: %w", c.RedisAddr, err)
		}
		app.feed = realtime.NewRedisFeed(app.redis, realtime.DefaultChannel, app.hub, logger)
	} else {
		app.feed = realtime.NewLocalFeed(app.hub)
	}

	app.users = services.NewUserService(db, rm, c, logger)
	app.store = services.NewStoreService(db, rm, app.hub, app.feed, app.metrics, logger)

	if c.BackupInterval > 0 {
		s3c, err := services.NewS3Client(ctx, c)
		if err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		app.backups = services.NewBackupService(app.store, s3c, c.S3Bucket, app.metrics, logger)
	}

	return app, nil
}

func (app *App) Close() error {
	var errs []error
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	errs = append(errs, app.db.Close())
	return errors.Join(errs...)
}

// Approve marks the account registered under identifier as approved.
func (app *App) Approve(ctx context.Context, identifier string) error {
	user, err := app.users.Lookup(ctx, identifier)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", identifier, err)
	}
	if err := app.store.SetApproval(ctx, user.ID, true); err != nil {
		return err
	}
	app.logger.Info(ctx, "account approved", "subject", user.ID)
	return nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case sig := <-sigs:
			app.logger.Info(ctx, "Signal received", "signal", sig.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) purgeSessions(ctx context.Context) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.users.PurgeExpired(ctx)
			if err != nil {
				app.logger.Error(ctx, "session purge failed", "error", err)
				continue
			}
			if n > 0 {
				app.logger.Info(ctx, "expired sessions purged", "count", n)
			}
		}
	}
}

// Run serves until ctx is cancelled, a signal arrives or a server fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(ctx, cancelFunc)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				app.logger.Error(ctx, name+" stopped", "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
				cancelFunc()
			}
		}()
	}

	grpcServer := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.users, app.store, app.metrics)
	run("grpc", grpcServer.Run)
	run("feed", app.feed.Run)

	if app.config.OpsAddr != "" {
		opsServer := ops.New(app.registry, app.db, app.logger)
		run("ops", func(ctx context.Context) error { return opsServer.Run(ctx, app.config.OpsAddr) })
	}

	run("purge", func(ctx context.Context) error {
		app.purgeSessions(ctx)
		return nil
	})

	if app.backups != nil {
		run("backup", func(ctx context.Context) error {
			app.backups.Run(ctx, app.config.BackupInterval)
			return nil
		})
	}

	wg.Wait()
	app.logger.Info(context.Background(), "App stopped")
	return errors.Join(errs...)
}
