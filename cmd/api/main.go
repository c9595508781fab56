package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend-strideup/internal/config"
	"backend-strideup/internal/db"
	"backend-strideup/internal/job"
	"backend-strideup/internal/logger"
	"backend-strideup/internal/metrics"
	"backend-strideup/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

var mainDepsProvider = defaultDeps
var mainRunner = realMain

func main() {
	mainRunner(mainDepsProvider())
}

type mainDeps struct {
	loadConfig      func() (config.Config, error)
	connectPostgres func(config.Config) (*pgxpool.Pool, error)
	connectRedis    func(config.Config) *redis.Client
	notify          func(chan<- os.Signal, ...os.Signal)
	run             func(context.Context, config.Config, *pgxpool.Pool, *redis.Client, <-chan os.Signal, ListenFunc) error
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig:      config.Load,
		connectPostgres: db.ConnectPostgres,
		connectRedis:    db.ConnectRedis,
		notify:          signal.Notify,
		run:             Run,
	}
}

func realMain(deps mainDeps) {
	cfg, err := deps.loadConfig()
	log := newLogger(cfg)
	ctx := context.Background()
	if err != nil {
		log.Error(ctx, "config load failed", logger.Err(err))
		return
	}

	pg, err := deps.connectPostgres(cfg)
	if err != nil {
		log.Error(ctx, "postgres connection failed", logger.Err(err))
	}

	rdb := deps.connectRedis(cfg)

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := deps.run(ctx, cfg, pg, rdb, signals, nil); err != nil {
		log.Error(ctx, "server exited with error", logger.Err(err))
	}
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

// sweepScheduler runs the background jobs of the API process.
type sweepScheduler interface {
	ScheduleSweep(ctx context.Context, sweeper job.Sweeper, interval, ttl time.Duration) error
	Start()
	Shutdown() error
}

var newScheduler = func(log logger.Logger) (sweepScheduler, error) {
	return job.New(log)
}

var newRegistry = func() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func newLogger(cfg config.Config) logger.Logger {
	return logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
}

// Run starts the HTTP server and the idle session sweeper, then waits for
// termination signals.
func Run(ctx context.Context, cfg config.Config, pg *pgxpool.Pool, rdb *redis.Client, signals <-chan os.Signal, listen ListenFunc) error {
	log := newLogger(cfg)

	m, err := metrics.New(newRegistry())
	if err != nil {
		return err
	}

	srv := server.NewServer(cfg, pg, rdb, m, log)
	defer srv.Close()

	sched, err := newScheduler(log)
	if err != nil {
		return err
	}
	jobCtx, cancelJobs := context.WithCancel(ctx)
	defer cancelJobs()
	if cfg.SweepInterval > 0 {
		if err := sched.ScheduleSweep(jobCtx, srv.Tracking, cfg.SweepInterval, cfg.SessionIdleTTL); err != nil {
			return err
		}
	}
	sched.Start()
	defer func() {
		if err := sched.Shutdown(); err != nil {
			log.Warn(ctx, "scheduler shutdown failed", logger.Err(err))
		}
	}()

	if listen == nil {
		listen = defaultListen
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, cfg.ServerPort)
	}()
	log.Info(ctx, "server started", logger.String("addr", cfg.ServerPort))

	select {
	case <-signals:
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := shutdownFn(srv.App, shutdownCtx); err != nil {
		return err
	}
	if pg != nil {
		pg.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Info(ctx, "server stopped")
	return nil
}
