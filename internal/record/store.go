// Package record persists the lifecycle of backup attempts.
package record

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/edvin/repo-backup/internal/model"
	"github.com/edvin/repo-backup/internal/platform"
)

var (
	// ErrNotFound is returned when no record has the given identifier.
	ErrNotFound = errors.New("backup record not found")
	// ErrNotPending is returned when a record already reached a terminal state.
	ErrNotPending = errors.New("backup record is not pending")
)

// DB defines the database operations used by Store.
// *pgxpool.Pool satisfies this interface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Outcome is the terminal result written to a pending record.
type Outcome struct {
	State      string
	StorageKey string
	SizeBytes  int64
	FailReason string
}

// Success builds the outcome of a completed upload.
func Success(storageKey string, sizeBytes int64) Outcome {
	return Outcome{State: model.StateSuccess, StorageKey: storageKey, SizeBytes: sizeBytes}
}

// Failure builds the outcome of a failed job.
func Failure(reason string) Outcome {
	return Outcome{State: model.StateFail, FailReason: reason}
}

// Validate checks the companion-field rules: a storage key only with
// success, a reason only with fail.
func (o Outcome) Validate() error {
	switch o.State {
	case model.StateSuccess:
		if o.StorageKey == "" {
			return fmt.Errorf("success outcome requires a storage key")
		}
		if o.FailReason != "" {
			return fmt.Errorf("success outcome must not carry a fail reason")
		}
	case model.StateFail:
		if o.FailReason == "" {
			return fmt.Errorf("fail outcome requires a reason")
		}
		if o.StorageKey != "" {
			return fmt.Errorf("fail outcome must not carry a storage key")
		}
	default:
		return fmt.Errorf("invalid terminal state %q", o.State)
	}
	return nil
}

// Store reads and writes backup records.
type Store struct {
	db DB
}

// NewStore creates a new Store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Create inserts a pending record and returns its identifier.
func (s *Store) Create(ctx context.Context, repoName, owner string) (*model.BackupRecord, error) {
	r := model.BackupRecord{
		ID:       platform.NewID(),
		RepoName: repoName,
		Owner:    owner,
		State:    model.StatePending,
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO backups (id, repo_name, owner, state)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at`,
		r.ID, r.RepoName, r.Owner, r.State,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert backup record: %w", err)
	}
	return &r, nil
}

// Update moves a pending record to its terminal state in a single statement,
// so the state and its companion field are never observed apart.
func (s *Store) Update(ctx context.Context, id string, outcome Outcome) error {
	if err := outcome.Validate(); err != nil {
		return err
	}

	var storageKey, failReason *string
	var sizeBytes *int64
	if outcome.State == model.StateSuccess {
		storageKey = &outcome.StorageKey
		sizeBytes = &outcome.SizeBytes
	} else {
		failReason = &outcome.FailReason
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE backups
		 SET state = $2, storage_key = $3, size_bytes = $4, fail_reason = $5, updated_at = now()
		 WHERE id = $1 AND state = $6`,
		id, outcome.State, storageKey, sizeBytes, failReason, model.StatePending,
	)
	if err != nil {
		return fmt.Errorf("update backup record %s: %w", id, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Nothing changed: tell a missing record apart from a finished one.
	var state string
	err = s.db.QueryRow(ctx, `SELECT state FROM backups WHERE id = $1`, id).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("update backup record %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("check backup record %s: %w", id, err)
	}
	return fmt.Errorf("update backup record %s (state %s): %w", id, state, ErrNotPending)
}

// Get retrieves a record by its identifier.
func (s *Store) Get(ctx context.Context, id string) (*model.BackupRecord, error) {
	var r model.BackupRecord
	err := s.db.QueryRow(ctx,
		`SELECT id, repo_name, owner, state, storage_key, size_bytes, fail_reason, created_at, updated_at
		 FROM backups WHERE id = $1`, id,
	).Scan(&r.ID, &r.RepoName, &r.Owner, &r.State, &r.StorageKey, &r.SizeBytes, &r.FailReason, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get backup record %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get backup record %s: %w", id, err)
	}
	return &r, nil
}

// ListByRepository returns the history of one repository, newest first.
func (s *Store) ListByRepository(ctx context.Context, repoName, owner string, limit int) ([]model.BackupRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, repo_name, owner, state, storage_key, size_bytes, fail_reason, created_at, updated_at
		 FROM backups WHERE repo_name = $1 AND owner = $2
		 ORDER BY created_at DESC, id DESC
		 LIMIT $3`,
		repoName, owner, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list backups for %s/%s: %w", owner, repoName, err)
	}
	defer rows.Close()

	var records []model.BackupRecord
	for rows.Next() {
		var r model.BackupRecord
		if err := rows.Scan(&r.ID, &r.RepoName, &r.Owner, &r.State, &r.StorageKey, &r.SizeBytes, &r.FailReason, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan backup record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backup records: %w", err)
	}
	return records, nil
}
