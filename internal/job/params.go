package job

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/edvin/repo-backup/internal/fetch"
	"github.com/edvin/repo-backup/internal/storage"
)

// identifierPattern keeps repository and owner names safe to place in clone
// URLs, command arguments and file names.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// Params is the complete, one-shot input of a backup job. It is validated
// once on entry and never re-read from the environment mid-job.
type Params struct {
	RecordID        string `json:"record_id"`
	RepoName        string `json:"repo_name"`
	Owner           string `json:"owner"`
	Ref             string `json:"ref,omitempty"`
	Bucket          string `json:"bucket"`
	Prefix          string `json:"prefix,omitempty"`
	Region          string `json:"region"`
	Token           string `json:"token"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	DatabaseURL     string `json:"database_url,omitempty"`
}

// ParamsFromEnv reads job parameters using the dispatcher's variable names.
func ParamsFromEnv(getenv func(string) string) Params {
	return Params{
		RecordID:        getenv("BACKUP_ID"),
		RepoName:        getenv("REPO"),
		Owner:           getenv("OWNER"),
		Ref:             getenv("GIT_REF"),
		Bucket:          getenv("AWS_S3_BUCKET_NAME"),
		Prefix:          getenv("S3_FOLDER_PATH"),
		Region:          getenv("AWS_REGION"),
		Token:           getenv("GITHUB_TOKEN"),
		AccessKeyID:     getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: getenv("AWS_SECRET_ACCESS_KEY"),
		DatabaseURL:     getenv("DATABASE_URL"),
	}
}

// Validate reports every missing parameter and rejects unsafe identifiers.
// The returned error wraps ErrConfiguration. DatabaseURL is not checked here:
// it is consumed before the job runs, by whoever opens the record store.
func (p Params) Validate() error {
	required := []struct {
		value, env, desc string
	}{
		{p.RecordID, "BACKUP_ID", "backup record identifier"},
		{p.RepoName, "REPO", "repository name"},
		{p.Owner, "OWNER", "repository owner"},
		{p.Bucket, "AWS_S3_BUCKET_NAME", "target bucket"},
		{p.Region, "AWS_REGION", "storage region"},
		{p.Token, "GITHUB_TOKEN", "source-control access token"},
		{p.AccessKeyID, "AWS_ACCESS_KEY_ID", "storage access key id"},
		{p.SecretAccessKey, "AWS_SECRET_ACCESS_KEY", "storage secret access key"},
	}

	var problems []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			problems = append(problems, fmt.Sprintf("missing %s (%s)", r.env, r.desc))
		}
	}
	if p.RepoName != "" && !identifierPattern.MatchString(p.RepoName) {
		problems = append(problems, fmt.Sprintf("invalid repository name %q: only letters, digits and hyphens are allowed", p.RepoName))
	}
	if p.Owner != "" && !identifierPattern.MatchString(p.Owner) {
		problems = append(problems, fmt.Sprintf("invalid owner %q: only letters, digits and hyphens are allowed", p.Owner))
	}
	if p.Ref != "" && (strings.HasPrefix(p.Ref, "-") || strings.ContainsAny(p.Ref, " \t\n\\~^:?*[")) {
		problems = append(problems, fmt.Sprintf("invalid ref %q", p.Ref))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// FetchRequest returns the fetcher input for p.
func (p Params) FetchRequest() fetch.Request {
	return fetch.Request{Owner: p.Owner, RepoName: p.RepoName, Ref: p.Ref, Token: p.Token}
}

// StorageConfig returns the object store settings for p.
func (p Params) StorageConfig(endpoint string) storage.Config {
	return storage.Config{
		Region:          p.Region,
		AccessKeyID:     p.AccessKeyID,
		SecretAccessKey: p.SecretAccessKey,
		Endpoint:        endpoint,
	}
}

// MarshalZerologObject logs the non-secret fields of p.
func (p Params) MarshalZerologObject(e *zerolog.Event) {
	e.Str("record_id", p.RecordID).
		Str("repo", p.RepoName).
		Str("owner", p.Owner).
		Str("bucket", p.Bucket).
		Str("prefix", p.Prefix).
		Str("region", p.Region)
	if p.Ref != "" {
		e.Str("ref", p.Ref)
	}
}
