package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/temporal"
)

// ActivityInterceptor is a worker interceptor that logs every activity
// execution and gives untyped activity errors the activity name as their
// type, so failures read clearly in the Temporal UI.
type ActivityInterceptor struct {
	interceptor.WorkerInterceptorBase
	Logger zerolog.Logger
}

func (a *ActivityInterceptor) InterceptActivity(
	ctx context.Context,
	next interceptor.ActivityInboundInterceptor,
) interceptor.ActivityInboundInterceptor {
	return &activityInterceptor{next: next, logger: a.Logger}
}

type activityInterceptor struct {
	interceptor.ActivityInboundInterceptorBase
	next   interceptor.ActivityInboundInterceptor
	logger zerolog.Logger
}

func (a *activityInterceptor) Init(outbound interceptor.ActivityOutboundInterceptor) error {
	return a.next.Init(outbound)
}

func (a *activityInterceptor) ExecuteActivity(
	ctx context.Context,
	in *interceptor.ExecuteActivityInput,
) (interface{}, error) {
	info := activity.GetInfo(ctx)
	logger := a.logger.With().
		Str("activity", info.ActivityType.Name).
		Str("workflow_id", info.WorkflowExecution.ID).
		Int32("attempt", info.Attempt).
		Logger()

	start := time.Now()
	result, err := a.next.ExecuteActivity(ctx, in)
	elapsed := time.Since(start)
	if err == nil {
		logger.Debug().Dur("elapsed", elapsed).Msg("activity completed")
		return result, nil
	}

	logger.Warn().Err(err).Dur("elapsed", elapsed).Msg("activity failed")

	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) && appErr.Type() != "" {
		return result, err
	}
	return result, temporal.NewApplicationError(err.Error(), info.ActivityType.Name, err)
}
