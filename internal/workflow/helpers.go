package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/edvin/repo-backup/internal/activity"
)

// setBackupFailed is a helper that marks a backup record failed with the
// error message as the reason.
func setBackupFailed(ctx workflow.Context, recordID string, err error) error {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    5,
			InitialInterval:    1 * time.Second,
			MaximumInterval:    30 * time.Second,
			BackoffCoefficient: 2.0,
		},
	})
	return workflow.ExecuteActivity(ctx, "MarkBackupFailed", activity.MarkBackupFailedParams{
		RecordID: recordID,
		Reason:   err.Error(),
	}).Get(ctx, nil)
}
