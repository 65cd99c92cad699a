package request

import (
	"net/http"
	"strings"

	"github.com/edvin/repo-backup/internal/job"
)

// CreateBackup is the body of a backup dispatch request. Credentials are
// passed through to the job and never stored.
type CreateBackup struct {
	Repo            string `json:"repo" validate:"required,identifier,max=100"`
	Owner           string `json:"owner" validate:"required,identifier,max=39"`
	Ref             string `json:"ref" validate:"omitempty,max=255"`
	Bucket          string `json:"bucket" validate:"required,min=3,max=63"`
	Prefix          string `json:"prefix" validate:"omitempty,max=512"`
	Region          string `json:"region" validate:"required"`
	Token           string `json:"token" validate:"required"`
	AccessKeyID     string `json:"access_key_id" validate:"required"`
	SecretAccessKey string `json:"secret_access_key" validate:"required"`
}

// Params converts the request into job parameters without a record id.
func (c CreateBackup) Params() job.Params {
	return job.Params{
		RepoName:        c.Repo,
		Owner:           c.Owner,
		Ref:             c.Ref,
		Bucket:          c.Bucket,
		Prefix:          c.Prefix,
		Region:          c.Region,
		Token:           c.Token,
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
	}
}

// ListBackups holds the repository filter of a history request.
type ListBackups struct {
	Repo  string `validate:"required,identifier"`
	Owner string `validate:"required,identifier"`
}

// ParseListBackups reads and validates the repo and owner query parameters.
func ParseListBackups(r *http.Request) (ListBackups, error) {
	q := r.URL.Query()
	l := ListBackups{
		Repo:  strings.TrimSpace(q.Get("repo")),
		Owner: strings.TrimSpace(q.Get("owner")),
	}
	if err := validateStruct(l); err != nil {
		return ListBackups{}, err
	}
	return l, nil
}
