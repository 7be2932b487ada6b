// Package runner orchestrates the backup workflow.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fgeck/openvpn-backup/internal/models"
	"github.com/fgeck/openvpn-backup/internal/poll"
	"github.com/fgeck/openvpn-backup/internal/services/command"
	"github.com/fgeck/openvpn-backup/internal/services/instance"
	"github.com/fgeck/openvpn-backup/internal/services/notify"
	"github.com/fgeck/openvpn-backup/internal/services/retention"
	"github.com/fgeck/openvpn-backup/internal/services/script"
	"github.com/fgeck/openvpn-backup/internal/services/status"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service defines the interface for the backup runner.
type Service interface {
	Run(ctx context.Context, cfg models.BackupConfig) models.RunStatus
}

// Impl implements the runner Service interface.
type Impl struct {
	instanceSvc  instance.Service
	executor     command.Executor
	retentionSvc retention.Service
	notifySvc    notify.Service
	statusSvc    status.Service
	logger       zerolog.Logger

	now      func() time.Time
	sleep    poll.SleepFunc
	newRunID func() string
}

// NewWithServices creates a new runner service with the given services.
func NewWithServices(
	logger zerolog.Logger,
	instanceSvc instance.Service,
	executor command.Executor,
	retentionSvc retention.Service,
	notifySvc notify.Service,
	statusSvc status.Service,
) *Impl {
	return &Impl{
		instanceSvc:  instanceSvc,
		executor:     executor,
		retentionSvc: retentionSvc,
		notifySvc:    notifySvc,
		statusSvc:    statusSvc,
		logger:       logger,
		now:          time.Now,
		sleep:        poll.Sleep,
		newRunID:     uuid.NewString,
	}
}

// Run backs up every instance in order, then prunes, notifies and stores the
// run status. Failures of any step are recorded or logged; Run never aborts.
func (s *Impl) Run(ctx context.Context, cfg models.BackupConfig) models.RunStatus {
	runID := s.newRunID()
	logger := s.logger.With().Str("run_id", runID).Logger()

	logger.Info().
		Strs("instances", cfg.InstanceIDs).
		Str("bucket", cfg.Bucket).
		Msg("starting backup process")

	results := make([]models.BackupResult, 0, len(cfg.InstanceIDs))
	for _, instanceID := range cfg.InstanceIDs {
		result, err := s.backupInstance(ctx, logger, cfg, instanceID)
		if err != nil {
			logger.Error().Err(err).Str("instance_id", instanceID).Msg("error backing up instance")
			result = models.ErrorResult(instanceID, err)
		}
		results = append(results, result)
	}

	if _, err := s.retentionSvc.Prune(ctx, cfg.RetentionDays); err != nil {
		logger.Error().Err(err).Msg("error cleaning up old backups")
	}

	if s.notifySvc.Enabled() {
		n := notify.BuildReport(cfg.NamePrefix, results, s.now())
		if err := s.notifySvc.Send(ctx, n); err != nil {
			logger.Error().Err(err).Msg("error sending notification")
		}
	}

	st := models.RunStatus{
		RunID:     runID,
		Timestamp: s.now().UTC(),
		Results:   results,
	}
	if err := s.statusSvc.Save(ctx, cfg.NamePrefix, st); err != nil {
		logger.Error().Err(err).Msg("error storing backup status")
	}

	logger.Info().Int("instances", len(results)).Msg("backup process completed")
	return st
}

func (s *Impl) backupInstance(ctx context.Context, logger zerolog.Logger, cfg models.BackupConfig, instanceID string) (models.BackupResult, error) {
	logger = logger.With().Str("instance_id", instanceID).Logger()

	inst, err := s.instanceSvc.Describe(ctx, instanceID)
	if err != nil {
		return models.BackupResult{}, err
	}

	if !inst.Running() {
		logger.Info().Str("state", inst.State).Msg("instance is not running, skipping backup")
		return models.SkippedResult(instanceID, fmt.Sprintf("Instance not running (state: %s)", inst.State)), nil
	}

	backupFile, timestamp := script.BackupFilename(instanceID, s.now())
	body, err := script.Build(script.Params{
		Bucket:     cfg.Bucket,
		BackupFile: backupFile,
		Endpoint:   storageEndpoint(cfg.Storage),
	})
	if err != nil {
		return models.BackupResult{}, err
	}

	commandID, err := s.executor.Dispatch(ctx, models.CommandRequest{
		Instance: *inst,
		Script:   body,
		Comment:  "OpenVPN backup for " + instanceID,
		Timeout:  cfg.Polling.CommandTimeout,
	})
	if err != nil {
		return models.BackupResult{}, err
	}

	logger = logger.With().Str("command_id", commandID).Logger()
	inv, err := s.waitForCommand(ctx, logger, cfg.Polling, commandID, instanceID)
	if err != nil {
		return models.BackupResult{}, err
	}

	if inv.Status != models.CommandSuccess {
		logger.Warn().Str("status", inv.Status).Msg("backup failed")
		return models.FailedResult(instanceID, inv.Status, inv.Stdout, inv.Stderr), nil
	}

	logger.Info().Str("backup_file", backupFile).Msg("backup completed successfully")
	return models.SuccessResult(instanceID, backupFile, timestamp), nil
}

// waitForCommand returns the terminal invocation, or the last one observed
// when the poll budget runs out.
func (s *Impl) waitForCommand(
	ctx context.Context,
	logger zerolog.Logger,
	settings models.PollSettings,
	commandID, instanceID string,
) (*models.CommandInvocation, error) {
	var last *models.CommandInvocation

	poller := poll.NewWithSleep(settings.Interval, settings.Timeout, s.sleep)
	err := poller.Until(ctx, func(ctx context.Context) (bool, error) {
		inv, err := s.executor.Invocation(ctx, commandID, instanceID)
		if errors.Is(err, command.ErrInvocationNotFound) {
			logger.Debug().Msg("command invocation not visible yet")
			return false, nil
		}
		if err != nil {
			return false, err
		}
		last = inv
		logger.Debug().Str("status", inv.Status).Msg("command status")
		return inv.Terminal(), nil
	})

	switch {
	case err == nil:
		return last, nil
	case errors.Is(err, poll.ErrTimeout) && last != nil:
		logger.Warn().
			Str("status", last.Status).
			Dur("waited", settings.Timeout).
			Msg("command did not finish in time")
		return last, nil
	case errors.Is(err, poll.ErrTimeout):
		return nil, fmt.Errorf("command %s on %s was not visible within %s", commandID, instanceID, settings.Timeout)
	default:
		return nil, err
	}
}

// storageEndpoint is the --endpoint-url the instance uploads to, if any.
func storageEndpoint(cfg models.StorageConfig) string {
	if cfg.Backend != models.StorageMinIO || cfg.Endpoint == "" {
		return ""
	}
	if cfg.UseSSL {
		return "https://" + cfg.Endpoint
	}
	return "http://" + cfg.Endpoint
}
