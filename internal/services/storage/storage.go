// Package storage lists and deletes backup archives in object storage.
package storage

import (
	"context"

	"github.com/fgeck/openvpn-backup/internal/models"
)

// Store is a bucket of backup archives.
type Store interface {
	// List returns every object under prefix.
	List(ctx context.Context, prefix string) ([]models.ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}
