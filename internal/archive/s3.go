// Package archive provides optional cold-storage archival of items a queue
// has swept for expiry, uploading each to S3 before the in-memory copy is
// discarded.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/duraqio/duraq/internal/config"
	"github.com/duraqio/duraq/internal/logger"
	"github.com/duraqio/duraq/internal/queue"
)

// S3Archiver uploads swept items to an S3 bucket, one object per item,
// keyed by queue name and a monotonic per-process sequence number so
// repeated sweeps of the same queue never collide.
type S3Archiver struct {
	client    *s3.Client
	bucket    string
	keyPrefix string

	seq atomic.Uint64
}

// New creates an S3Archiver with an existing client.
func New(client *s3.Client, cfg config.ArchiveConfig) *S3Archiver {
	return &S3Archiver{
		client:    client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.Prefix,
	}
}

// NewFromConfig builds an S3 client from cfg and returns an S3Archiver
// using it. The preferred constructor when the caller doesn't already
// have an S3 client.
func NewFromConfig(ctx context.Context, cfg config.ArchiveConfig) (*S3Archiver, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}
	s3Opts = append(s3Opts, func(o *s3.Options) {
		o.RetryMaxAttempts = cfg.MaxRetries
	})

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	return New(client, cfg), nil
}

// Archive uploads each item in items to the configured bucket, under
// <prefix><queue>/<unix-nanos>-<seq>. Uploads are sequential: a per-sweep
// batch is typically small and archival is best-effort background work,
// not on the hot command path.
func (a *S3Archiver) Archive(ctx context.Context, queueName string, items []queue.ArchivedItem) error {
	for _, item := range items {
		key := a.keyFor(queueName, item)
		_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(a.bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(item.Data),
		})
		if err != nil {
			return fmt.Errorf("s3 put object %s: %w", key, err)
		}
		logger.Debug("archived swept item", "queue", queueName, "key", key, "bytes", len(item.Data))
	}
	return nil
}

func (a *S3Archiver) keyFor(queueName string, item queue.ArchivedItem) string {
	var b strings.Builder
	b.WriteString(a.keyPrefix)
	b.WriteString(queueName)
	b.WriteByte('/')
	b.WriteString(strconv.FormatInt(item.SweptAt.UnixNano(), 10))
	b.WriteByte('-')
	b.WriteString(strconv.FormatUint(a.seq.Add(1), 10))
	return b.String()
}

// HealthCheck verifies the configured bucket is reachable, for the admin
// API's readiness reporting.
func (a *S3Archiver) HealthCheck(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil {
		return fmt.Errorf("s3 health check: %w", err)
	}
	return nil
}

var _ queue.Archiver = (*S3Archiver)(nil)
