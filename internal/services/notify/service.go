// Package notify renders backup reports and publishes them.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/fgeck/openvpn-backup/internal/models"
	"github.com/rs/zerolog"
)

// Publisher delivers a notification to one channel.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, n models.Notification) error
}

// Service defines the interface for sending notifications.
type Service interface {
	Send(ctx context.Context, n models.Notification) error
	Enabled() bool
}

// Impl sends a notification through every configured publisher.
type Impl struct {
	publishers []Publisher
	logger     zerolog.Logger
}

// New creates a new notify service.
func New(logger zerolog.Logger, publishers ...Publisher) *Impl {
	return &Impl{
		publishers: publishers,
		logger:     logger,
	}
}

// Enabled reports whether any publisher is configured.
func (s *Impl) Enabled() bool {
	return len(s.publishers) > 0
}

// Send publishes to all publishers, continuing past failures.
func (s *Impl) Send(ctx context.Context, n models.Notification) error {
	var errs []error
	for _, p := range s.publishers {
		if err := p.Publish(ctx, n); err != nil {
			s.logger.Error().Err(err).Str("publisher", p.Name()).Msg("failed to send notification")
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		s.logger.Info().Str("publisher", p.Name()).Bool("failed", n.Failed).Msg("notification sent")
	}
	return errors.Join(errs...)
}
