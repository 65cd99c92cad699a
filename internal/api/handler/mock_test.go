package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/edvin/repo-backup/internal/job"
	"github.com/edvin/repo-backup/internal/model"
)

// mockBackupService implements BackupService for testing.
type mockBackupService struct {
	mock.Mock
}

func (m *mockBackupService) Start(ctx context.Context, p job.Params) (*model.BackupRecord, error) {
	args := m.Called(ctx, p)
	rec, _ := args.Get(0).(*model.BackupRecord)
	return rec, args.Error(1)
}

func (m *mockBackupService) GetByID(ctx context.Context, id string) (*model.BackupRecord, error) {
	args := m.Called(ctx, id)
	rec, _ := args.Get(0).(*model.BackupRecord)
	return rec, args.Error(1)
}

func (m *mockBackupService) ListByRepository(ctx context.Context, repoName, owner string, limit int) ([]model.BackupRecord, error) {
	args := m.Called(ctx, repoName, owner, limit)
	recs, _ := args.Get(0).([]model.BackupRecord)
	return recs, args.Error(1)
}
