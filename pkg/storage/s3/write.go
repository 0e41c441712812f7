// This file contains the mutating operations of the S3 store: puts and
// deletes.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/picloudlabs/picloud/pkg/storage"
)

// Save uploads the content with a single PutObject, overwriting any
// previous object under the same key.
//
// The body is buffered before upload so the request can be signed with a
// known content length. S3 makes the new object visible atomically, so a
// concurrent Open never sees a partial upload.
func (s *S3Store) Save(ctx context.Context, name string, r io.Reader) (info storage.FileInfo, err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("save", time.Since(start), err)
	}()

	if err = ctx.Err(); err != nil {
		return storage.FileInfo{}, err
	}

	cleaned, err := storage.CleanName(name)
	if err != nil {
		return storage.FileInfo{}, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return storage.FileInfo{}, storage.NewIOError("save", cleaned, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(cleaned)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return storage.FileInfo{}, storage.NewIOError("save", cleaned, err)
	}

	s.metrics.AddBytesUploaded(int64(len(data)))

	return storage.FileInfo{Name: cleaned, Size: int64(len(data))}, nil
}

// Delete removes the object.
//
// S3 DeleteObject succeeds silently for absent keys, so existence is
// confirmed with HeadObject first to honor the gateway's NotFound
// contract. A concurrent delete that wins the race between the head and
// the delete is indistinguishable from success here, which is an
// acceptable outcome of the benign race.
func (s *S3Store) Delete(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("delete", time.Since(start), err)
	}()

	if err = ctx.Err(); err != nil {
		return err
	}

	cleaned, err := storage.CleanName(name)
	if err != nil {
		return err
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(cleaned)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return fmt.Errorf("file %s: %w", cleaned, storage.ErrNotFound)
		}
		return storage.NewIOError("delete", cleaned, err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(cleaned)),
	})
	if err != nil {
		return storage.NewIOError("delete", cleaned, err)
	}

	return nil
}
