package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsS3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/picloudlabs/picloud/pkg/metrics"
	"github.com/picloudlabs/picloud/pkg/storage"
	storageBadger "github.com/picloudlabs/picloud/pkg/storage/badger"
	storageFs "github.com/picloudlabs/picloud/pkg/storage/fs"
	storageMemory "github.com/picloudlabs/picloud/pkg/storage/memory"
	storageS3 "github.com/picloudlabs/picloud/pkg/storage/s3"
)

// CreateStore creates a storage backend based on configuration.
//
// The Type field selects the implementation; the matching type-specific
// option map is decoded and passed to the backend's constructor.
//
// Returns:
//   - storage.Store: Initialized backend
//   - func() error: Cleanup to run on shutdown (never nil)
//   - error: Configuration or initialization error
func CreateStore(ctx context.Context, cfg *StorageConfig, m *metrics.StorageMetrics) (storage.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Type {
	case "filesystem":
		store, err := createFilesystemStore(ctx, cfg.Filesystem, m)
		return store, noop, err
	case "memory":
		store, err := createMemoryStore(cfg.Memory, m)
		return store, noop, err
	case "badger":
		return createBadgerStore(cfg.Badger, m)
	case "s3":
		store, err := createS3Store(ctx, cfg.S3, m)
		return store, noop, err
	default:
		return nil, noop, fmt.Errorf("unknown storage backend type: %q", cfg.Type)
	}
}

// createFilesystemStore creates the filesystem gateway.
func createFilesystemStore(ctx context.Context, options map[string]any, m *metrics.StorageMetrics) (storage.Store, error) {
	type filesystemConfig struct {
		Root string `mapstructure:"root"`
	}

	var storeCfg filesystemConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem storage config: %w", err)
	}

	if storeCfg.Root == "" {
		return nil, fmt.Errorf("filesystem storage: root is required")
	}

	store, err := storageFs.New(ctx, storeCfg.Root, m)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem storage: %w", err)
	}

	return store, nil
}

// createMemoryStore creates the in-memory backend.
func createMemoryStore(options map[string]any, m *metrics.StorageMetrics) (storage.Store, error) {
	type memoryConfig struct {
		MaxSizeBytes int64 `mapstructure:"max_size_bytes"`
	}

	var storeCfg memoryConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode memory storage config: %w", err)
	}

	return storageMemory.New(storeCfg.MaxSizeBytes, m), nil
}

// createBadgerStore creates the BadgerDB backend. The returned cleanup
// closes the database.
func createBadgerStore(options map[string]any, m *metrics.StorageMetrics) (storage.Store, func() error, error) {
	noop := func() error { return nil }

	type badgerConfig struct {
		Path string `mapstructure:"path"`
	}

	var storeCfg badgerConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, noop, fmt.Errorf("failed to decode badger storage config: %w", err)
	}

	if storeCfg.Path == "" {
		return nil, noop, fmt.Errorf("badger storage: path is required")
	}

	store, err := storageBadger.New(storeCfg.Path, m)
	if err != nil {
		return nil, noop, fmt.Errorf("failed to create badger storage: %w", err)
	}

	return store, store.Close, nil
}

// createS3Store creates the S3 backend.
func createS3Store(ctx context.Context, options map[string]any, m *metrics.StorageMetrics) (storage.Store, error) {
	type s3Config struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		ForcePathStyle  bool   `mapstructure:"force_path_style"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var storeCfg s3Config
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 storage config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 storage: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 storage: region is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error
	configOptions = append(configOptions, awsConfig.WithRegion(storeCfg.Region))

	// Static credentials are optional; the default chain (env vars,
	// shared config, instance profiles) applies otherwise.
	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(storeCfg.AccessKeyID, storeCfg.SecretAccessKey, ""),
		))
	}

	if storeCfg.MaxRetries > 0 {
		configOptions = append(configOptions, awsConfig.WithRetryMaxAttempts(storeCfg.MaxRetries))
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := awsS3.NewFromConfig(awsCfg, func(o *awsS3.Options) {
		// Custom endpoint enables MinIO, Localstack and other
		// S3-compatible services.
		if storeCfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(storeCfg.Endpoint)
		}
		o.UsePathStyle = storeCfg.ForcePathStyle
	})

	store, err := storageS3.New(ctx, storageS3.Config{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
	}, m)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 storage: %w", err)
	}

	return store, nil
}
