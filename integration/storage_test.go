//go:build integration

package integration

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/fgeck/openvpn-backup/internal/models"
	"github.com/fgeck/openvpn-backup/internal/services/retention"
	"github.com/fgeck/openvpn-backup/internal/services/script"
	"github.com/fgeck/openvpn-backup/internal/services/storage"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func getMinIOConfig(t *testing.T) (models.StorageConfig, string) {
	t.Helper()

	endpoint := os.Getenv("TEST_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("TEST_MINIO_ENDPOINT not set")
	}

	bucket := os.Getenv("TEST_MINIO_BUCKET")
	if bucket == "" {
		t.Skip("TEST_MINIO_BUCKET not set")
	}

	return models.StorageConfig{
		Backend:   models.StorageMinIO,
		Endpoint:  endpoint,
		AccessKey: os.Getenv("TEST_MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("TEST_MINIO_SECRET_KEY"),
		UseSSL:    os.Getenv("TEST_MINIO_USE_SSL") == "true",
	}, bucket
}

func putObject(t *testing.T, cfg models.StorageConfig, bucket, key string) {
	t.Helper()

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	require.NoError(t, err)

	data := []byte("integration")
	_, err = client.PutObject(context.Background(), bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	require.NoError(t, err)
}

func TestMinIOStore_ListAndDelete(t *testing.T) {
	cfg, bucket := getMinIOConfig(t)
	ctx := context.Background()

	name, _ := script.BackupFilename("i-integration", time.Now())
	key := script.ObjectKey(name)
	putObject(t, cfg, bucket, key)

	store, err := storage.NewMinIO(testLogger(), cfg, bucket)
	require.NoError(t, err)

	objects, err := store.List(ctx, script.KeyPrefix)
	require.NoError(t, err)

	var found bool
	for _, obj := range objects {
		if obj.Key == key {
			found = true
			assert.False(t, obj.LastModified.IsZero())
		}
	}
	assert.True(t, found, "uploaded object %s not listed", key)

	require.NoError(t, store.Delete(ctx, key))

	objects, err = store.List(ctx, script.KeyPrefix)
	require.NoError(t, err)
	for _, obj := range objects {
		assert.NotEqual(t, key, obj.Key)
	}
}

func TestRetention_KeepsFreshObjects(t *testing.T) {
	cfg, bucket := getMinIOConfig(t)
	ctx := context.Background()

	name, _ := script.BackupFilename("i-fresh", time.Now())
	key := script.ObjectKey(name)
	putObject(t, cfg, bucket, key)

	store, err := storage.NewMinIO(testLogger(), cfg, bucket)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Delete(ctx, key) })

	result, err := retention.New(testLogger(), store).Prune(ctx, 1)

	require.NoError(t, err)
	assert.NotContains(t, result.DeletedKeys, key)
}
