package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gotrs-io/todomvc-e2e/internal/api"
	"github.com/gotrs-io/todomvc-e2e/internal/config"
	"github.com/gotrs-io/todomvc-e2e/internal/models"
	"github.com/gotrs-io/todomvc-e2e/internal/probe"
	"github.com/gotrs-io/todomvc-e2e/internal/results"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Probe the target on a schedule and serve results over HTTP",
	RunE:  runServe,
}

var retentionFlag time.Duration

func init() {
	serveCmd.Flags().DurationVar(&retentionFlag, "retention", 30*24*time.Hour, "Delete stored runs older than this (0 keeps everything)")
}

func newLocker(cfg *config.Config) (probe.Locker, func(), error) {
	if !cfg.Probe.UsesRedisLock() {
		return probe.NewLocalLocker(), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.GetRedisAddr(), err)
	}
	logger.Printf("probe: run lock held in redis at %s", cfg.Redis.GetRedisAddr())
	return probe.NewRedisLocker(client, cfg.Redis.Prefix), func() { _ = client.Close() }, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	fx, err := loadFixtures(cfg, "")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	locker, closeLocker, err := newLocker(cfg)
	if err != nil {
		return err
	}
	defer closeLocker()

	session, err := startBrowser(cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	hub := api.NewHub(logger)
	defer hub.Close()

	probeOpts := []probe.Option{
		probe.WithLogger(logger),
		probe.WithLocker(locker, cfg.Redis.LockTTL),
		probe.WithMetrics(probe.DefaultMetrics()),
		probe.WithObserver(hub),
		probe.WithJobs([]*models.ProbeJob{{
			Name:           "TodoMVC catalog",
			Slug:           probe.DefaultJobSlug,
			Schedule:       cfg.Probe.Schedule,
			TimeoutSeconds: int(cfg.Probe.Timeout / time.Second),
			Suites:         cfg.Probe.Suites,
		}}),
	}
	serverOpts := []api.Option{
		api.WithLogger(logger),
		api.WithHub(hub),
		api.WithGatherer(prometheus.DefaultGatherer),
		api.WithHistoryLimit(cfg.Results.Limit),
		api.WithBaseContext(ctx),
	}

	var repo *results.Repository
	if cfg.Results.Enabled {
		repo, err = results.Open(cfg.Results.Driver, cfg.Results.DSN)
		if err != nil {
			return err
		}
		defer repo.Close()
		if err := repo.Migrate(ctx); err != nil {
			return err
		}
		probeOpts = append(probeOpts, probe.WithStore(repo))
		serverOpts = append(serverOpts, api.WithHistory(repo))
	}

	exec := newExecutor(cfg.Target.BaseURL, fx, pageFactory(session, cfg.Browser.ScreenshotDir))
	svc := probe.NewService(cfg.Target.BaseURL, exec, probeOpts...)

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      api.NewServer(svc, serverOpts...).Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Probe.Enabled {
		g.Go(func() error { return svc.Run(gctx) })
	}
	g.Go(func() error {
		logger.Printf("[http] listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if repo != nil && retentionFlag > 0 {
		g.Go(func() error {
			pruneHistory(gctx, repo, retentionFlag)
			return nil
		})
	}

	return g.Wait()
}

// pruneHistory deletes old runs once an hour until ctx is done.
func pruneHistory(ctx context.Context, repo *results.Repository, keep time.Duration) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		n, err := repo.DeleteBefore(ctx, time.Now().Add(-keep))
		if err != nil && ctx.Err() == nil {
			logger.Printf("[results] prune failed: %v", err)
		} else if n > 0 {
			logger.Printf("[results] pruned %d runs older than %s", n, keep)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
