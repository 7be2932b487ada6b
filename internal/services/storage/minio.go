package storage

import (
	"context"
	"fmt"

	"github.com/fgeck/openvpn-backup/internal/models"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// MinIOClient is the subset of *minio.Client used here, for mocking.
type MinIOClient interface {
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// MinIO implements Store on an S3 compatible MinIO server.
type MinIO struct {
	client MinIOClient
	bucket string
	logger zerolog.Logger
}

// NewMinIO connects to a MinIO endpoint with static credentials.
func NewMinIO(logger zerolog.Logger, cfg models.StorageConfig, bucket string) (*MinIO, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client for %s: %w", cfg.Endpoint, err)
	}
	return NewMinIOWithClient(logger, client, bucket), nil
}

// NewMinIOWithClient creates a new MinIO store with a custom client (for testing).
func NewMinIOWithClient(logger zerolog.Logger, client MinIOClient, bucket string) *MinIO {
	return &MinIO{
		client: client,
		bucket: bucket,
		logger: logger,
	}
}

// Bucket returns the bucket name.
func (m *MinIO) Bucket() string {
	return m.bucket
}

// List returns every object under prefix. The client pages internally.
func (m *MinIO) List(ctx context.Context, prefix string) ([]models.ObjectInfo, error) {
	opts := minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}

	var objects []models.ObjectInfo
	for obj := range m.client.ListObjects(ctx, m.bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("listing %s/%s: %w", m.bucket, prefix, obj.Err)
		}
		objects = append(objects, models.ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}

	m.logger.Debug().
		Str("bucket", m.bucket).
		Str("prefix", prefix).
		Int("objects", len(objects)).
		Msg("objects listed")

	return objects, nil
}

// Delete removes a single object.
func (m *MinIO) Delete(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("deleting %s/%s: %w", m.bucket, key, err)
	}
	return nil
}
