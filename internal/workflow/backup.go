package workflow

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/edvin/repo-backup/internal/activity"
	"github.com/edvin/repo-backup/internal/job"
)

// TaskQueue is the queue the backup worker polls.
const TaskQueue = "repo-backup"

// BackupRepositoryWorkflow runs one backup job. The job activity is
// attempted exactly once. If it ended without recording its own outcome,
// the record is marked failed so it never stays pending.
func BackupRepositoryWorkflow(ctx workflow.Context, params job.Params) (*job.Result, error) {
	jobCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Hour,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	var result job.Result
	err := workflow.ExecuteActivity(jobCtx, "RunBackupJob", params).Get(ctx, &result)
	if err == nil {
		return &result, nil
	}

	if params.RecordID != "" && !outcomeRecorded(err) {
		if markErr := setBackupFailed(ctx, params.RecordID, err); markErr != nil {
			workflow.GetLogger(ctx).Error("failed to mark backup failed", "recordID", params.RecordID, "error", markErr)
		}
	}
	return nil, err
}

// outcomeRecorded reports whether a failed job activity already wrote the
// terminal record state itself.
func outcomeRecorded(err error) bool {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return false
	}
	switch appErr.Type() {
	case activity.ErrTypeConfiguration, activity.ErrTypeFetch, activity.ErrTypeArchive, activity.ErrTypeUpload:
		return true
	default:
		return false
	}
}
