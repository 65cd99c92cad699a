package activity

import (
	"context"
	"errors"

	"go.temporal.io/sdk/temporal"

	"github.com/edvin/repo-backup/internal/job"
	"github.com/edvin/repo-backup/internal/record"
)

// Error types reported to workflows. They mirror the job error kinds.
const (
	ErrTypeConfiguration = "BACKUP_CONFIGURATION"
	ErrTypeFetch         = "BACKUP_FETCH"
	ErrTypeArchive       = "BACKUP_ARCHIVE"
	ErrTypeUpload        = "BACKUP_UPLOAD"
	ErrTypeRecordStore   = "BACKUP_RECORD_STORE"
	ErrTypeUnknown       = "BACKUP_FAILED"
)

// JobRunner runs a single backup job.
type JobRunner interface {
	Run(ctx context.Context, p job.Params) (*job.Result, error)
}

// Backup contains the activities that execute backup jobs inside a worker.
type Backup struct {
	runner  JobRunner
	records job.Recorder
}

// NewBackup creates a new Backup activity struct.
func NewBackup(runner JobRunner, records job.Recorder) *Backup {
	return &Backup{runner: runner, records: records}
}

// MarkBackupFailedParams holds parameters for the MarkBackupFailed activity.
type MarkBackupFailedParams struct {
	RecordID string `json:"record_id"`
	Reason   string `json:"reason"`
}

// RunBackupJob runs the full backup pipeline once. The job records its own
// outcome, so every failure is non-retryable: a second attempt would find
// the record already finished.
func (a *Backup) RunBackupJob(ctx context.Context, params job.Params) (*job.Result, error) {
	res, err := a.runner.Run(ctx, params)
	if err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), errorType(err), err)
	}
	return res, nil
}

// errorType maps a job error to its application error type. A record store
// failure takes precedence because it means the outcome was not persisted.
func errorType(err error) string {
	switch {
	case errors.Is(err, job.ErrRecordStore):
		return ErrTypeRecordStore
	case errors.Is(err, job.ErrConfiguration):
		return ErrTypeConfiguration
	case errors.Is(err, job.ErrFetch):
		return ErrTypeFetch
	case errors.Is(err, job.ErrArchive):
		return ErrTypeArchive
	case errors.Is(err, job.ErrUpload):
		return ErrTypeUpload
	default:
		return ErrTypeUnknown
	}
}

// MarkBackupFailed moves a record that is still pending to fail. It is used
// when the job never got to record its own outcome. A record that already
// finished is left alone.
func (a *Backup) MarkBackupFailed(ctx context.Context, params MarkBackupFailedParams) error {
	reason := params.Reason
	if reason == "" {
		reason = "backup job did not complete"
	}
	err := a.records.Update(ctx, params.RecordID, record.Failure(reason))
	switch {
	case err == nil, errors.Is(err, record.ErrNotPending):
		return nil
	case errors.Is(err, record.ErrNotFound):
		return temporal.NewNonRetryableApplicationError(err.Error(), "BACKUP_NOT_FOUND", err)
	default:
		return err
	}
}
