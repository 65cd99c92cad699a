package activity

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"

	"github.com/edvin/repo-backup/internal/job"
	"github.com/edvin/repo-backup/internal/model"
	"github.com/edvin/repo-backup/internal/record"
)

type mockRecorder struct{ mock.Mock }

func (m *mockRecorder) Update(ctx context.Context, id string, outcome record.Outcome) error {
	return m.Called(ctx, id, outcome).Error(0)
}

type mockRunner struct{ mock.Mock }

func (m *mockRunner) Run(ctx context.Context, p job.Params) (*job.Result, error) {
	args := m.Called(ctx, p)
	res, _ := args.Get(0).(*job.Result)
	return res, args.Error(1)
}

func TestRunBackupJob_Success(t *testing.T) {
	runner := &mockRunner{}
	params := job.Params{RecordID: "rec-1", RepoName: "my-app", Owner: "alice"}
	want := &job.Result{RecordID: "rec-1", StorageKey: "2024-03-09/1234-my-app.zip", SizeBytes: 42}
	runner.On("Run", mock.Anything, params).Return(want, nil)

	got, err := NewBackup(runner, nil).RunBackupJob(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	runner.AssertExpectations(t)
}

func TestRunBackupJob_FailuresAreNonRetryable(t *testing.T) {
	tests := []struct {
		err      error
		wantType string
	}{
		{fmt.Errorf("%w: missing GITHUB_TOKEN", job.ErrConfiguration), ErrTypeConfiguration},
		{fmt.Errorf("%w: auth failed", job.ErrFetch), ErrTypeFetch},
		{fmt.Errorf("%w: disk full", job.ErrArchive), ErrTypeArchive},
		{fmt.Errorf("%w: access denied", job.ErrUpload), ErrTypeUpload},
		{errors.Join(fmt.Errorf("%w: x", job.ErrUpload), fmt.Errorf("%w: y", job.ErrRecordStore)), ErrTypeRecordStore},
		{errors.New("surprise"), ErrTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.wantType, func(t *testing.T) {
			runner := &mockRunner{}
			runner.On("Run", mock.Anything, mock.Anything).Return(nil, tt.err)

			res, err := NewBackup(runner, nil).RunBackupJob(context.Background(), job.Params{RecordID: "rec-1"})
			require.Error(t, err)
			assert.Nil(t, res)

			var appErr *temporal.ApplicationError
			require.True(t, errors.As(err, &appErr))
			assert.True(t, appErr.NonRetryable())
			assert.Equal(t, tt.wantType, appErr.Type())
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestMarkBackupFailed(t *testing.T) {
	records := &mockRecorder{}
	records.On("Update", mock.Anything, "rec-1", record.Failure("worker lost")).Return(nil)

	err := NewBackup(nil, records).MarkBackupFailed(context.Background(), MarkBackupFailedParams{
		RecordID: "rec-1",
		Reason:   "worker lost",
	})
	require.NoError(t, err)
	records.AssertExpectations(t)
}

func TestMarkBackupFailed_DefaultReason(t *testing.T) {
	records := &mockRecorder{}
	records.On("Update", mock.Anything, "rec-1", mock.MatchedBy(func(o record.Outcome) bool {
		return o.State == model.StateFail && o.FailReason != ""
	})).Return(nil)

	require.NoError(t, NewBackup(nil, records).MarkBackupFailed(context.Background(), MarkBackupFailedParams{RecordID: "rec-1"}))
	records.AssertExpectations(t)
}

func TestMarkBackupFailed_AlreadyFinished(t *testing.T) {
	records := &mockRecorder{}
	records.On("Update", mock.Anything, "rec-1", mock.Anything).
		Return(fmt.Errorf("update backup record rec-1 (state success): %w", record.ErrNotPending))

	assert.NoError(t, NewBackup(nil, records).MarkBackupFailed(context.Background(), MarkBackupFailedParams{RecordID: "rec-1"}))
}

func TestMarkBackupFailed_NotFound(t *testing.T) {
	records := &mockRecorder{}
	records.On("Update", mock.Anything, "missing", mock.Anything).Return(record.ErrNotFound)

	err := NewBackup(nil, records).MarkBackupFailed(context.Background(), MarkBackupFailedParams{RecordID: "missing"})
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.True(t, appErr.NonRetryable())
}

func TestMarkBackupFailed_StoreErrorIsRetryable(t *testing.T) {
	records := &mockRecorder{}
	records.On("Update", mock.Anything, "rec-1", mock.Anything).Return(errors.New("connection refused"))

	err := NewBackup(nil, records).MarkBackupFailed(context.Background(), MarkBackupFailedParams{RecordID: "rec-1"})
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	assert.False(t, errors.As(err, &appErr))
}
