package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/edvin/repo-backup/internal/job"
	"github.com/edvin/repo-backup/internal/model"
	"github.com/edvin/repo-backup/internal/record"
	"github.com/edvin/repo-backup/internal/workflow"
)

// ErrDispatch means a record was created but its job could not be started.
// The record has been marked failed.
var ErrDispatch = errors.New("dispatch failed")

// RecordStore is the subset of record.Store the service depends on.
type RecordStore interface {
	Create(ctx context.Context, repoName, owner string) (*model.BackupRecord, error)
	Update(ctx context.Context, id string, outcome record.Outcome) error
	Get(ctx context.Context, id string) (*model.BackupRecord, error)
	ListByRepository(ctx context.Context, repoName, owner string, limit int) ([]model.BackupRecord, error)
}

type BackupService struct {
	records RecordStore
	tc      temporalclient.Client
	logger  zerolog.Logger
}

func NewBackupService(records RecordStore, tc temporalclient.Client, logger zerolog.Logger) *BackupService {
	return &BackupService{records: records, tc: tc, logger: logger.With().Str("component", "backup-service").Logger()}
}

// Start creates a pending record for p and dispatches a backup workflow for
// it. If the dispatch fails the record is moved to fail before returning, so
// no record is left pending without a job behind it.
func (s *BackupService) Start(ctx context.Context, p job.Params) (*model.BackupRecord, error) {
	rec, err := s.records.Create(ctx, p.RepoName, p.Owner)
	if err != nil {
		return nil, err
	}

	p.RecordID = rec.ID
	// The worker uses its own pool; never put connection strings in history.
	p.DatabaseURL = ""

	_, err = s.tc.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
		ID:        fmt.Sprintf("backup-%s", rec.ID),
		TaskQueue: workflow.TaskQueue,
	}, "BackupRepositoryWorkflow", p)
	if err == nil {
		s.logger.Info().Str("record_id", rec.ID).Str("repo", p.RepoName).Str("owner", p.Owner).Msg("backup dispatched")
		return rec, nil
	}

	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if markErr := s.records.Update(markCtx, rec.ID, record.Failure("dispatch failed: "+err.Error())); markErr != nil {
		s.logger.Error().Err(markErr).Str("record_id", rec.ID).Msg("failed to mark undispatched backup as failed")
		return nil, fmt.Errorf("%w: start workflow for backup %s: %w", ErrDispatch, rec.ID, errors.Join(err, markErr))
	}
	return nil, fmt.Errorf("%w: start workflow for backup %s: %w", ErrDispatch, rec.ID, err)
}

func (s *BackupService) GetByID(ctx context.Context, id string) (*model.BackupRecord, error) {
	return s.records.Get(ctx, id)
}

// ListByRepository returns the backup history of a repository, newest first.
func (s *BackupService) ListByRepository(ctx context.Context, repoName, owner string, limit int) ([]model.BackupRecord, error) {
	return s.records.ListByRepository(ctx, repoName, owner, limit)
}
