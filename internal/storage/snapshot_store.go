package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// SnapshotStore persists webcam frames and returns the URL recorded on the event
type SnapshotStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type MinioSnapshotStore struct {
	client *minio.Client
	config MinioConfig
	logger *slog.Logger
}

func NewMinioSnapshotStore(ctx context.Context, config MinioConfig, logger *slog.Logger) (*MinioSnapshotStore, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, config.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", config.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, config.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", config.Bucket, err)
		}
		logger.Info("Created snapshot bucket", "bucket", config.Bucket)
	}

	return &MinioSnapshotStore{client: client, config: config, logger: logger}, nil
}

func (s *MinioSnapshotStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.config.Bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return s.url(key), nil
}

func (s *MinioSnapshotStore) url(key string) string {
	scheme := "http"
	if s.config.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.config.Endpoint, s.config.Bucket, strings.TrimPrefix(key, "/"))
}

// DiscardSnapshotStore drops frames but still returns a stable relative URL.
// It is used when no object storage is configured.
type DiscardSnapshotStore struct{}

func NewDiscardSnapshotStore() *DiscardSnapshotStore {
	return &DiscardSnapshotStore{}
}

func (DiscardSnapshotStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	return "/" + strings.TrimPrefix(key, "/"), nil
}
