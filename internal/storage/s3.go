// Package storage uploads backup artifacts to S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
)

// Config holds the per-job object store credentials and location.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint targets an S3-compatible service instead of AWS.
	Endpoint string
}

// NewClient returns an S3 client for cfg. SDK retries are disabled: an
// upload either completes as one object or fails the job.
func NewClient(cfg Config) *s3.Client {
	opts := s3.Options{
		Region:           cfg.Region,
		Credentials:      credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		RetryMaxAttempts: 1,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

// ObjectPutter is the subset of the S3 API used by Uploader.
// *s3.Client satisfies this interface.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader writes artifacts as single objects.
type Uploader struct {
	logger zerolog.Logger
	client ObjectPutter
}

// NewUploader creates a new Uploader.
func NewUploader(logger zerolog.Logger, client ObjectPutter) *Uploader {
	return &Uploader{
		logger: logger.With().Str("component", "s3-uploader").Logger(),
		client: client,
	}
}

// Upload stores body under bucket/key with the given content type.
func (u *Uploader) Upload(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	u.logger.Info().Str("bucket", bucket).Str("key", key).Int64("size", size).Msg("uploading object")

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put object s3://%s/%s: %w", bucket, key, describe(err))
	}
	return nil
}

// UploadFile streams the file at path to bucket/key.
func (u *Uploader) UploadFile(ctx context.Context, bucket, key, path, contentType string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat artifact: %w", err)
	}
	return u.Upload(ctx, bucket, key, f, info.Size(), contentType)
}

// describe prefixes well-known S3 error codes with a readable cause.
func describe(err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.ErrorCode() {
	case "NoSuchBucket":
		return fmt.Errorf("bucket does not exist: %w", err)
	case "InvalidAccessKeyId", "SignatureDoesNotMatch", "AccessDenied", "ExpiredToken":
		return fmt.Errorf("storage credentials rejected: %w", err)
	}
	return err
}

// ObjectKey builds "[prefix/]YYYY-MM-DD/<suffix>-<repoName>.<ext>". The date
// is taken in UTC. Leading and trailing slashes on prefix are ignored and an
// empty prefix places the object under the bucket root.
func ObjectKey(prefix string, at time.Time, suffix int, repoName, ext string) string {
	name := fmt.Sprintf("%s/%d-%s.%s", at.UTC().Format(time.DateOnly), suffix, repoName, ext)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
