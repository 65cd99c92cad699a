// Command backup-job runs one repository backup and exits. It is started
// once per backup record, by a container scheduler or by hand, with the job
// parameters in its environment.
//
// Exit codes: 0 the backup succeeded and was recorded; 1 the backup failed
// and the failure was recorded; 2 the parameters were unusable and nothing
// could be recorded; 3 the outcome could not be written to the record store.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/edvin/repo-backup/internal/config"
	"github.com/edvin/repo-backup/internal/db"
	"github.com/edvin/repo-backup/internal/fetch"
	"github.com/edvin/repo-backup/internal/job"
	"github.com/edvin/repo-backup/internal/logging"
	"github.com/edvin/repo-backup/internal/metrics"
	"github.com/edvin/repo-backup/internal/record"
)

const (
	exitOK          = 0
	exitFailed      = 1
	exitConfig      = 2
	exitRecordStore = 3
)

const pushTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return exitConfig
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "backup-job"
	}

	logger := logging.NewLogger(cfg)

	params := job.ParamsFromEnv(os.Getenv)
	if params.RecordID == "" || params.DatabaseURL == "" {
		// Without both there is no record to report to.
		err := params.Validate()
		if params.DatabaseURL == "" {
			err = errors.Join(err, errors.New("missing DATABASE_URL (record store connection)"))
		}
		logger.Error().Err(err).Msg("cannot run backup job: outcome would be unrecordable")
		return exitConfig
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, params.DatabaseURL, 2)
	if err != nil {
		logger.Error().Err(err).Str("record_id", params.RecordID).Msg("failed to connect to record store")
		return exitRecordStore
	}
	defer pool.Close()
	store := record.NewStore(pool)

	if err := cfg.Validate("backup-job"); err != nil {
		return failEarly(ctx, logger, store, params.RecordID, err)
	}
	fetcher, err := fetch.NewGitFetcher(logger, cfg.SourceBaseURL, fetch.ExecRunner)
	if err != nil {
		return failEarly(ctx, logger, store, params.RecordID, err)
	}

	reg := prometheus.NewRegistry()
	orchestrator := job.New(logger, fetcher, job.S3Uploaders(logger), store, job.Options{
		WorkDir:    cfg.WorkDir,
		S3Endpoint: cfg.S3Endpoint,
		Metrics:    metrics.NewJob(reg),
	})

	_, runErr := orchestrator.Run(ctx, params)

	if cfg.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
		err := metrics.Push(pushCtx, cfg.PushgatewayURL, "backup_job", reg, map[string]string{"record_id": params.RecordID})
		cancel()
		if err != nil {
			logger.Warn().Err(err).Msg("failed to push job metrics")
		}
	}

	return exitCode(runErr)
}

// failEarly records a service misconfiguration that prevents the job from
// starting at all.
func failEarly(ctx context.Context, logger zerolog.Logger, store *record.Store, recordID string, cause error) int {
	err := fmt.Errorf("%w: %w", job.ErrConfiguration, cause)
	logger.Error().Err(err).Str("record_id", recordID).Msg("backup job misconfigured")

	updateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if uerr := store.Update(updateCtx, recordID, record.Failure(err.Error())); uerr != nil {
		logger.Error().Err(uerr).Str("record_id", recordID).Msg("failed to record backup outcome")
		return exitRecordStore
	}
	return exitFailed
}

// exitCode maps the result of a job with a known record to a process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, job.ErrRecordStore):
		return exitRecordStore
	default:
		return exitFailed
	}
}
