package model

import "time"

// BackupRecord is one backup attempt. It is created pending by the
// dispatcher and moved to a terminal state exactly once by the job.
type BackupRecord struct {
	ID         string    `json:"id"`
	RepoName   string    `json:"repo_name"`
	Owner      string    `json:"owner"`
	State      string    `json:"state"`
	StorageKey *string   `json:"storage_key,omitempty"`
	SizeBytes  *int64    `json:"size_bytes,omitempty"`
	FailReason *string   `json:"fail_reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Terminal reports whether the record has left the pending state.
func (r *BackupRecord) Terminal() bool {
	return r.State == StateSuccess || r.State == StateFail
}
