package s3_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsS3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"

	"github.com/picloudlabs/picloud/pkg/storage"
	storageS3 "github.com/picloudlabs/picloud/pkg/storage/s3"
	storagetesting "github.com/picloudlabs/picloud/pkg/storage/testing"
)

// The S3 contract tests run against a real S3-compatible endpoint (MinIO,
// Localstack) and are skipped unless PICLOUD_TEST_S3_ENDPOINT is set:
//
//	PICLOUD_TEST_S3_ENDPOINT=http://localhost:9000 \
//	PICLOUD_TEST_S3_ACCESS_KEY=minioadmin \
//	PICLOUD_TEST_S3_SECRET_KEY=minioadmin \
//	go test ./pkg/storage/s3/...
func newTestClient(t *testing.T) *awsS3.Client {
	t.Helper()

	endpoint := os.Getenv("PICLOUD_TEST_S3_ENDPOINT")
	if endpoint == "" {
		t.Skip("PICLOUD_TEST_S3_ENDPOINT not set, skipping S3 tests")
	}

	accessKey := os.Getenv("PICLOUD_TEST_S3_ACCESS_KEY")
	secretKey := os.Getenv("PICLOUD_TEST_S3_SECRET_KEY")

	cfg, err := awsConfig.LoadDefaultConfig(context.Background(),
		awsConfig.WithRegion("us-east-1"),
		awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		),
	)
	require.NoError(t, err)

	return awsS3.NewFromConfig(cfg, func(o *awsS3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
}

func newTestStore(t *testing.T) *storageS3.S3Store {
	t.Helper()

	client := newTestClient(t)
	bucket := fmt.Sprintf("picloud-test-%d", time.Now().UnixNano())

	_, err := client.CreateBucket(context.Background(), &awsS3.CreateBucketInput{
		Bucket: aws.String(bucket),
	})
	require.NoError(t, err)

	store, err := storageS3.New(context.Background(), storageS3.Config{
		Client: client,
		Bucket: bucket,
	}, nil)
	require.NoError(t, err)

	return store
}

func TestS3Store_Contract(t *testing.T) {
	suite := &storagetesting.StoreTestSuite{
		NewStore: func(t *testing.T) storage.Store {
			return newTestStore(t)
		},
	}
	suite.Run(t)
}

func TestS3Store_KeyPrefixIsolation(t *testing.T) {
	client := newTestClient(t)
	bucket := fmt.Sprintf("picloud-test-%d", time.Now().UnixNano())

	_, err := client.CreateBucket(context.Background(), &awsS3.CreateBucketInput{
		Bucket: aws.String(bucket),
	})
	require.NoError(t, err)

	newPrefixed := func(prefix string) storage.Store {
		store, err := storageS3.New(context.Background(), storageS3.Config{
			Client:    client,
			Bucket:    bucket,
			KeyPrefix: prefix,
		}, nil)
		require.NoError(t, err)
		return store
	}

	alpha := newPrefixed("tenant-a")
	beta := newPrefixed("tenant-b")

	_, err = alpha.Save(context.Background(), "shared-name.txt", bytes.NewReader([]byte("alpha")))
	require.NoError(t, err)

	_, err = beta.Stat(context.Background(), "shared-name.txt")
	require.ErrorIs(t, err, storage.ErrNotFound)

	names, err := alpha.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"shared-name.txt"}, names)
}
