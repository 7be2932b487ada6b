// Package status persists the outcome of the last backup run.
package status

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/client"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/aws/aws-sdk-go/service/ssm/ssmiface"
	"github.com/fgeck/openvpn-backup/internal/models"
	"github.com/rs/zerolog"
)

// Service defines the interface for storing run status.
type Service interface {
	Save(ctx context.Context, namePrefix string, st models.RunStatus) error
}

// Impl stores the run status in an SSM parameter.
type Impl struct {
	ssm    ssmiface.SSMAPI
	logger zerolog.Logger
}

// New creates a new status service from an AWS session.
func New(logger zerolog.Logger, sess client.ConfigProvider) *Impl {
	return NewWithClient(logger, ssm.New(sess))
}

// NewWithClient creates a new status service with a custom client (for testing).
func NewWithClient(logger zerolog.Logger, api ssmiface.SSMAPI) *Impl {
	return &Impl{
		ssm:    api,
		logger: logger,
	}
}

// ParameterName returns the parameter holding the last status for a prefix.
func ParameterName(namePrefix string) string {
	return fmt.Sprintf("/%s/openvpn/last_backup_status", namePrefix)
}

// Save overwrites the status parameter.
func (s *Impl) Save(ctx context.Context, namePrefix string, st models.RunStatus) error {
	value, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding run status: %w", err)
	}

	name := ParameterName(namePrefix)
	_, err = s.ssm.PutParameterWithContext(ctx, &ssm.PutParameterInput{
		Name:      aws.String(name),
		Value:     aws.String(string(value)),
		Type:      aws.String(ssm.ParameterTypeString),
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("storing run status in %s: %w", name, err)
	}

	s.logger.Info().Str("parameter", name).Msg("backup status stored")
	return nil
}
