// Package retention deletes backup archives older than the retention period.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/fgeck/openvpn-backup/internal/models"
	"github.com/fgeck/openvpn-backup/internal/services/script"
	"github.com/fgeck/openvpn-backup/internal/services/storage"
	"github.com/rs/zerolog"
)

// Service defines the interface for retention operations.
type Service interface {
	Prune(ctx context.Context, retentionDays int) (*models.PruneResult, error)
}

// Impl implements the retention Service interface.
type Impl struct {
	store  storage.Store
	logger zerolog.Logger
	now    func() time.Time
}

// New creates a new retention service.
func New(logger zerolog.Logger, store storage.Store) *Impl {
	return NewWithClock(logger, store, time.Now)
}

// NewWithClock creates a new retention service with a custom clock (for testing).
func NewWithClock(logger zerolog.Logger, store storage.Store, now func() time.Time) *Impl {
	return &Impl{
		store:  store,
		logger: logger,
		now:    now,
	}
}

// Prune deletes every archive under the backups prefix last modified strictly
// before now minus retentionDays. The first failed delete stops the pass.
func (s *Impl) Prune(ctx context.Context, retentionDays int) (*models.PruneResult, error) {
	cutoff := s.now().UTC().Add(-time.Duration(retentionDays) * 24 * time.Hour)
	result := &models.PruneResult{Cutoff: cutoff}

	objects, err := s.store.List(ctx, script.KeyPrefix)
	if err != nil {
		return result, fmt.Errorf("listing backups: %w", err)
	}
	result.Scanned = len(objects)

	if len(objects) == 0 {
		s.logger.Info().Str("bucket", s.store.Bucket()).Msg("no backup files found for cleanup")
		return result, nil
	}

	for _, obj := range objects {
		if !obj.LastModified.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, obj.Key); err != nil {
			return result, fmt.Errorf("deleting old backup: %w", err)
		}
		result.Deleted++
		result.DeletedKeys = append(result.DeletedKeys, obj.Key)

		s.logger.Info().
			Str("key", obj.Key).
			Time("last_modified", obj.LastModified).
			Msg("deleted old backup")
	}

	s.logger.Info().
		Int("scanned", result.Scanned).
		Int("deleted", result.Deleted).
		Time("cutoff", cutoff).
		Msg("cleaned up old backup files")

	return result, nil
}
