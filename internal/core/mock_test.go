package core

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/edvin/repo-backup/internal/model"
	"github.com/edvin/repo-backup/internal/record"
)

// ---------- Mock record store ----------

// mockRecords implements RecordStore for testing.
type mockRecords struct {
	mock.Mock
}

func (m *mockRecords) Create(ctx context.Context, repoName, owner string) (*model.BackupRecord, error) {
	args := m.Called(ctx, repoName, owner)
	rec, _ := args.Get(0).(*model.BackupRecord)
	return rec, args.Error(1)
}

func (m *mockRecords) Update(ctx context.Context, id string, outcome record.Outcome) error {
	return m.Called(ctx, id, outcome).Error(0)
}

func (m *mockRecords) Get(ctx context.Context, id string) (*model.BackupRecord, error) {
	args := m.Called(ctx, id)
	rec, _ := args.Get(0).(*model.BackupRecord)
	return rec, args.Error(1)
}

func (m *mockRecords) ListByRepository(ctx context.Context, repoName, owner string, limit int) ([]model.BackupRecord, error) {
	args := m.Called(ctx, repoName, owner, limit)
	recs, _ := args.Get(0).([]model.BackupRecord)
	return recs, args.Error(1)
}
