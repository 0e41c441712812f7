// Package s3 implements an S3-backed storage backend for picloud.
//
// Object keys mirror canonical file names (optionally below a configured
// key prefix), so the bucket contents stay human-readable and can be
// inspected or restored with standard S3 tooling. Works against Amazon S3
// and S3-compatible services (MinIO, Localstack) via a custom endpoint.
package s3

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/picloudlabs/picloud/pkg/metrics"
)

// S3Store implements storage.Store on top of an S3 bucket.
//
// Thread Safety:
// Safe for concurrent use. S3 PutObject is atomic per object: a concurrent
// GetObject observes either the previous or the new complete content,
// matching the gateway's atomic-visibility guarantee. Concurrent writes to
// the same name are last-write-wins.
type S3Store struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
	metrics   *metrics.StorageMetrics
}

// Config contains the settings for an S3 store.
type Config struct {
	// Client is the configured S3 client.
	Client *s3.Client

	// Bucket is the S3 bucket name. Must already exist.
	Bucket string

	// KeyPrefix is an optional prefix for all object keys.
	// Example: "picloud/" results in keys like "picloud/report.pdf".
	KeyPrefix string
}

// New creates an S3 store and verifies bucket access.
//
// The bucket must already exist - this function does not create it.
// m may be nil to disable metrics.
func New(ctx context.Context, cfg Config, m *metrics.StorageMetrics) (*S3Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	prefix := cfg.KeyPrefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	store := &S3Store{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: prefix,
		metrics:   m,
	}

	// Verify bucket access up front so misconfiguration fails at startup.
	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return store, nil
}

// objectKey returns the S3 key for a canonical file name.
func (s *S3Store) objectKey(name string) string {
	return s.keyPrefix + name
}
