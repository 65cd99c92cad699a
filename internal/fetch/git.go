// Package fetch clones source repositories into local working copies.
package fetch

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// Runner executes an external command and returns its combined output.
type Runner func(ctx context.Context, env []string, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	return cmd.CombinedOutput()
}

// Request identifies the repository and ref to fetch.
type Request struct {
	Owner    string
	RepoName string
	// Ref is a branch or tag; empty means the remote's default branch.
	Ref   string
	Token string
}

// GitFetcher clones repositories with the git CLI. Authentication travels in
// the clone URL's userinfo, so no credential helper or file is touched.
type GitFetcher struct {
	logger  zerolog.Logger
	baseURL *url.URL
	run     Runner
}

// NewGitFetcher creates a fetcher for repositories hosted under baseURL,
// e.g. "https://github.com".
func NewGitFetcher(logger zerolog.Logger, baseURL string, run Runner) (*GitFetcher, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse source base URL: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, fmt.Errorf("source base URL must be http(s), got %q", baseURL)
	}
	if run == nil {
		run = ExecRunner
	}
	return &GitFetcher{
		logger:  logger.With().Str("component", "git-fetcher").Logger(),
		baseURL: u,
		run:     run,
	}, nil
}

// CloneURL returns the authenticated clone URL for req.
func (f *GitFetcher) CloneURL(req Request) string {
	u := *f.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + req.Owner + "/" + req.RepoName + ".git"
	u.User = url.UserPassword("x-access-token", req.Token)
	return u.String()
}

// Fetch clones the full history of req into dir, which must be empty or
// absent. Git's own output is returned in the error with the token redacted.
func (f *GitFetcher) Fetch(ctx context.Context, req Request, dir string) error {
	if req.Token == "" {
		return fmt.Errorf("clone %s/%s: missing access token", req.Owner, req.RepoName)
	}
	if err := ensureEmpty(dir); err != nil {
		return err
	}

	args := []string{"clone", "--quiet"}
	if req.Ref != "" {
		args = append(args, "--branch", req.Ref)
	}
	args = append(args, "--", f.CloneURL(req), dir)

	f.logger.Info().Str("owner", req.Owner).Str("repo", req.RepoName).Str("ref", req.Ref).Msg("cloning repository")

	// Never prompt: a rejected token must fail instead of hanging.
	env := []string{"GIT_TERMINAL_PROMPT=0"}
	out, err := f.run(ctx, env, "git", args...)
	if err != nil {
		return fmt.Errorf("git clone %s/%s failed: %w: %s",
			req.Owner, req.RepoName, err, redact(strings.TrimSpace(string(out)), req.Token))
	}
	return nil
}

func ensureEmpty(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("inspect clone target: %w", err)
	}
	if len(entries) > 0 {
		return fmt.Errorf("clone target %s is not empty", dir)
	}
	return nil
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	s = strings.ReplaceAll(s, secret, "***")
	return strings.ReplaceAll(s, url.QueryEscape(secret), "***")
}
