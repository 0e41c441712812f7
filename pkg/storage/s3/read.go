// This file contains the read-only operations of the S3 store: streamed
// gets, head requests, and prefix listings.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/picloudlabs/picloud/pkg/storage"
)

// Open streams the object's content from S3. The caller must close the
// returned reader.
func (s *S3Store) Open(ctx context.Context, name string) (rc io.ReadCloser, err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("open", time.Since(start), err)
	}()

	if err = ctx.Err(); err != nil {
		return nil, err
	}

	cleaned, err := storage.CleanName(name)
	if err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(cleaned)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("file %s: %w", cleaned, storage.ErrNotFound)
		}
		return nil, storage.NewIOError("open", cleaned, err)
	}

	return &countingReadCloser{ReadCloser: result.Body, store: s}, nil
}

// Stat heads the object without downloading it.
func (s *S3Store) Stat(ctx context.Context, name string) (info storage.FileInfo, err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("stat", time.Since(start), err)
	}()

	if err = ctx.Err(); err != nil {
		return storage.FileInfo{}, err
	}

	cleaned, err := storage.CleanName(name)
	if err != nil {
		return storage.FileInfo{}, err
	}

	result, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(cleaned)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return storage.FileInfo{}, fmt.Errorf("file %s: %w", cleaned, storage.ErrNotFound)
		}
		return storage.FileInfo{}, storage.NewIOError("stat", cleaned, err)
	}

	return storage.FileInfo{Name: cleaned, Size: aws.ToInt64(result.ContentLength)}, nil
}

// List enumerates top-level object names under the key prefix.
//
// The "/" delimiter keeps the listing non-recursive: objects stored below
// a further prefix show up as common prefixes and are skipped, matching
// the filesystem gateway's behavior for subdirectories.
func (s *S3Store) List(ctx context.Context) (names []string, err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("list", time.Since(start), err)
	}()

	if err = ctx.Err(); err != nil {
		return nil, err
	}

	names = make([]string, 0)

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(s.keyPrefix),
		Delimiter: aws.String("/"),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, storage.NewIOError("list", "", err)
		}

		for _, object := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(object.Key), s.keyPrefix)
			if name == "" {
				continue
			}
			names = append(names, name)
		}
	}

	return names, nil
}

// countingReadCloser feeds downloaded byte counts into the metrics sink.
type countingReadCloser struct {
	io.ReadCloser
	store *S3Store
}

func (c *countingReadCloser) Read(p []byte) (int, error) {
	n, err := c.ReadCloser.Read(p)
	if n > 0 {
		c.store.metrics.AddBytesDownloaded(int64(n))
	}
	return n, err
}
