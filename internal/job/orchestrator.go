package job

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/repo-backup/internal/archive"
	"github.com/edvin/repo-backup/internal/fetch"
	"github.com/edvin/repo-backup/internal/metrics"
	"github.com/edvin/repo-backup/internal/model"
	"github.com/edvin/repo-backup/internal/platform"
	"github.com/edvin/repo-backup/internal/record"
	"github.com/edvin/repo-backup/internal/storage"
)

// Stage names a step of the backup pipeline.
type Stage string

const (
	StageValidating Stage = "validating"
	StageFetching   Stage = "fetching"
	StageArchiving  Stage = "archiving"
	StageUploading  Stage = "uploading"
	StageRecording  Stage = "recording"
)

const recordTimeout = 30 * time.Second

// Fetcher materializes a repository snapshot into an empty directory.
type Fetcher interface {
	Fetch(ctx context.Context, req fetch.Request, dir string) error
}

// Uploader stores a local file under a key in a bucket.
type Uploader interface {
	UploadFile(ctx context.Context, bucket, key, path, contentType string) error
}

// UploaderFactory builds an Uploader from per-job credentials.
type UploaderFactory func(cfg storage.Config) Uploader

// Recorder writes the terminal state of a backup record.
type Recorder interface {
	Update(ctx context.Context, id string, outcome record.Outcome) error
}

// ArchiveFunc writes a zip of srcDir to dstPath and returns its size.
type ArchiveFunc func(ctx context.Context, srcDir, dstPath string) (int64, error)

// Options tunes an Orchestrator. Zero values select production defaults.
type Options struct {
	// WorkDir is the parent of the per-job clone and archive directories.
	// Empty means os.TempDir().
	WorkDir string
	// S3Endpoint overrides the object store endpoint, for S3-compatible stores.
	S3Endpoint string
	Archive    ArchiveFunc
	Now        func() time.Time
	Suffix     func() int
	Metrics    *metrics.Job
}

// Result describes a successful backup.
type Result struct {
	RecordID   string `json:"record_id"`
	StorageKey string `json:"storage_key"`
	SizeBytes  int64  `json:"size_bytes"`
}

// Orchestrator runs one backup job end to end: validate, fetch, archive,
// upload, then record the outcome. Working directories are removed on every
// path, including panics.
type Orchestrator struct {
	logger      zerolog.Logger
	fetcher     Fetcher
	newUploader UploaderFactory
	records     Recorder
	opts        Options
}

// New creates an Orchestrator.
func New(logger zerolog.Logger, fetcher Fetcher, newUploader UploaderFactory, records Recorder, opts Options) *Orchestrator {
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}
	if opts.Archive == nil {
		opts.Archive = archive.WriteFile
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Suffix == nil {
		opts.Suffix = func() int { return platform.RandomInt(1000, 99999) }
	}
	return &Orchestrator{
		logger:      logger.With().Str("component", "backup-job").Logger(),
		fetcher:     fetcher,
		newUploader: newUploader,
		records:     records,
		opts:        opts,
	}
}

// S3Uploaders returns an UploaderFactory backed by the AWS SDK.
func S3Uploaders(logger zerolog.Logger) UploaderFactory {
	return func(cfg storage.Config) Uploader {
		return storage.NewUploader(logger, storage.NewClient(cfg))
	}
}

// Run executes the job described by p. The backup record named by
// p.RecordID is moved out of pending exactly once, to success or fail,
// unless p carries no record id at all. The returned error wraps the kind
// of the first failure and, if the record could not be written,
// ErrRecordStore as well.
func (o *Orchestrator) Run(ctx context.Context, p Params) (*Result, error) {
	logger := o.logger.With().Object("job", p).Logger()
	started := o.opts.Now()

	ws := &workspace{root: o.opts.WorkDir, logger: logger}
	defer ws.cleanup()

	var res *Result
	var runErr error
	if err := p.Validate(); err != nil {
		logger.Error().Err(err).Str("stage", string(StageValidating)).Msg("job parameters rejected")
		runErr = err
	} else {
		res, runErr = o.runStages(ctx, p, ws, logger)
	}

	if p.RecordID == "" {
		o.finish(runErr)
		return nil, runErr
	}

	var outcome record.Outcome
	if runErr == nil {
		outcome = record.Success(res.StorageKey, res.SizeBytes)
	} else {
		outcome = record.Failure(runErr.Error())
	}

	stageStart := time.Now()
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	recErr := o.records.Update(recordCtx, p.RecordID, outcome)
	cancel()
	o.observe(StageRecording, time.Since(stageStart))

	if recErr != nil {
		logger.Error().Err(recErr).Str("state", outcome.State).Msg("failed to record backup outcome")
		recErr = fmt.Errorf("%w: %w", ErrRecordStore, recErr)
		if runErr != nil {
			runErr = errors.Join(runErr, recErr)
		} else {
			runErr = recErr
		}
	}

	o.finish(runErr)
	if runErr != nil {
		return nil, runErr
	}
	logger.Info().
		Str("storage_key", res.StorageKey).
		Int64("size_bytes", res.SizeBytes).
		Dur("elapsed", o.opts.Now().Sub(started)).
		Msg("backup completed")
	return res, nil
}

// runStages runs fetch, archive and upload. A panic in any stage is
// converted into an error of that stage's kind.
func (o *Orchestrator) runStages(ctx context.Context, p Params, ws *workspace, logger zerolog.Logger) (res *Result, err error) {
	stage := StageFetching
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic during %s: %v", stageKind(stage), stage, r)
			logger.Error().Str("stage", string(stage)).Interface("panic", r).Msg("backup stage panicked")
		}
	}()

	suffix := o.opts.Suffix()

	// Fetching
	start := time.Now()
	cloneDir, err := ws.mkdir("clone-" + p.RepoName + "-")
	if err == nil {
		err = o.fetcher.Fetch(ctx, p.FetchRequest(), cloneDir)
	}
	o.observe(stage, time.Since(start))
	if err != nil {
		logger.Error().Err(err).Str("stage", string(stage)).Msg("fetch failed")
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	// Archiving
	stage = StageArchiving
	start = time.Now()
	archiveDir, err := ws.mkdir("archive-" + p.RepoName + "-")
	var archivePath string
	var size int64
	if err == nil {
		archivePath = filepath.Join(archiveDir, archive.ArtifactName(p.RepoName, suffix))
		size, err = o.opts.Archive(ctx, cloneDir, archivePath)
	}
	o.observe(stage, time.Since(start))
	if err != nil {
		logger.Error().Err(err).Str("stage", string(stage)).Msg("archive failed")
		return nil, fmt.Errorf("%w: %w", ErrArchive, err)
	}
	logger.Debug().Str("path", archivePath).Int64("size_bytes", size).Msg("archive written")

	// Uploading
	stage = StageUploading
	start = time.Now()
	key := storage.ObjectKey(p.Prefix, o.opts.Now(), suffix, p.RepoName, archive.Extension)
	uploader := o.newUploader(p.StorageConfig(o.opts.S3Endpoint))
	err = uploader.UploadFile(ctx, p.Bucket, key, archivePath, archive.ContentType)
	o.observe(stage, time.Since(start))
	if err != nil {
		logger.Error().Err(err).Str("stage", string(stage)).Str("key", key).Msg("upload failed")
		return nil, fmt.Errorf("%w: %w", ErrUpload, err)
	}
	if o.opts.Metrics != nil {
		o.opts.Metrics.ObserveArtifact(size)
	}

	return &Result{RecordID: p.RecordID, StorageKey: key, SizeBytes: size}, nil
}

func (o *Orchestrator) observe(stage Stage, d time.Duration) {
	if o.opts.Metrics != nil {
		o.opts.Metrics.ObserveStage(string(stage), d)
	}
}

func (o *Orchestrator) finish(err error) {
	if o.opts.Metrics == nil {
		return
	}
	if err != nil {
		o.opts.Metrics.RecordOutcome(model.StateFail)
		return
	}
	o.opts.Metrics.RecordOutcome(model.StateSuccess)
}

func stageKind(s Stage) error {
	switch s {
	case StageFetching:
		return ErrFetch
	case StageArchiving:
		return ErrArchive
	case StageUploading:
		return ErrUpload
	default:
		return ErrConfiguration
	}
}

// workspace tracks the temporary directories of one job.
type workspace struct {
	root   string
	logger zerolog.Logger
	dirs   []string
}

func (w *workspace) mkdir(pattern string) (string, error) {
	dir, err := os.MkdirTemp(w.root, pattern)
	if err != nil {
		return "", fmt.Errorf("create working directory: %w", err)
	}
	w.dirs = append(w.dirs, dir)
	return dir, nil
}

func (w *workspace) cleanup() {
	for _, dir := range w.dirs {
		if err := os.RemoveAll(dir); err != nil {
			w.logger.Warn().Err(err).Str("dir", dir).Msg("failed to remove working directory")
		}
	}
	w.dirs = nil
}
