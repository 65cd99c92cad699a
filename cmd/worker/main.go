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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/worker"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/repo-backup/internal/activity"
	"github.com/edvin/repo-backup/internal/config"
	"github.com/edvin/repo-backup/internal/db"
	"github.com/edvin/repo-backup/internal/fetch"
	"github.com/edvin/repo-backup/internal/job"
	"github.com/edvin/repo-backup/internal/logging"
	"github.com/edvin/repo-backup/internal/metrics"
	"github.com/edvin/repo-backup/internal/record"
	"github.com/edvin/repo-backup/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("worker"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, 4)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	temporalOpts, err := cfg.TemporalClientOptions()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure temporal client")
	}
	tc, err := temporalclient.Dial(temporalOpts)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	defer tc.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.RegisterPgxPoolMetrics(reg, pool); err != nil {
		logger.Fatal().Err(err).Msg("failed to register pool metrics")
	}
	jobMetrics := metrics.NewJob(reg)

	fetcher, err := fetch.NewGitFetcher(logger, cfg.SourceBaseURL, fetch.ExecRunner)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure fetcher")
	}
	store := record.NewStore(pool)
	orchestrator := job.New(logger, fetcher, job.S3Uploaders(logger), store, job.Options{
		WorkDir:    cfg.WorkDir,
		S3Endpoint: cfg.S3Endpoint,
		Metrics:    jobMetrics,
	})

	w := worker.New(tc, workflow.TaskQueue, worker.Options{
		Interceptors: []interceptor.WorkerInterceptor{&workflow.ActivityInterceptor{Logger: logger}},
	})
	w.RegisterActivity(activity.NewBackup(orchestrator, store))
	w.RegisterWorkflow(workflow.BackupRepositoryWorkflow)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.MetricsAddr != "" {
		metricsSrv := metrics.NewServer(cfg.MetricsAddr, reg, pool.Ping)
		g.Go(func() error {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsSrv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		logger.Info().Str("taskQueue", workflow.TaskQueue).Msg("starting temporal worker")
		stopCh := make(chan interface{})
		go func() {
			<-gctx.Done()
			close(stopCh)
		}()
		if err := w.Run(stopCh); err != nil {
			return fmt.Errorf("worker: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("worker stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("worker stopped")
}
