package runner

import (
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/fgeck/openvpn-backup/internal/models"
	"github.com/fgeck/openvpn-backup/internal/services/command"
	"github.com/fgeck/openvpn-backup/internal/services/instance"
	"github.com/fgeck/openvpn-backup/internal/services/notify"
	"github.com/fgeck/openvpn-backup/internal/services/retention"
	"github.com/fgeck/openvpn-backup/internal/services/ssh"
	"github.com/fgeck/openvpn-backup/internal/services/status"
	"github.com/fgeck/openvpn-backup/internal/services/storage"
	"github.com/rs/zerolog"
)

// New creates a runner backed by AWS and the backends selected in cfg.
// Secrets in cfg must already be resolved.
func New(logger zerolog.Logger, cfg models.BackupConfig) (*Impl, error) {
	awsCfg := aws.Config{}
	if cfg.Region != "" {
		awsCfg.Region = aws.String(cfg.Region)
	}
	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            awsCfg,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("creating AWS session: %w", err)
	}

	executor, err := newExecutor(logger, cfg, sess)
	if err != nil {
		return nil, err
	}

	store, err := newStore(logger, cfg, sess)
	if err != nil {
		return nil, err
	}

	var publishers []notify.Publisher
	if cfg.TopicARN != "" {
		publishers = append(publishers, notify.NewSNS(sess, cfg.TopicARN))
	}
	if cfg.Telegram != nil {
		publishers = append(publishers, notify.NewTelegram(*cfg.Telegram))
	}

	return NewWithServices(
		logger,
		instance.New(logger, sess),
		executor,
		retention.New(logger, store),
		notify.New(logger, publishers...),
		status.New(logger, sess),
	), nil
}

func newExecutor(logger zerolog.Logger, cfg models.BackupConfig, sess *session.Session) (command.Executor, error) {
	switch cfg.Executor {
	case "", models.ExecutorSSM:
		return command.NewSSM(logger, sess), nil
	case models.ExecutorSSH:
		if cfg.SSH == nil {
			return nil, fmt.Errorf("ssh executor selected but ssh is not configured")
		}
		sshCfg := *cfg.SSH
		if sshCfg.PrivateKey == nil && sshCfg.KeyPath != "" {
			key, err := os.ReadFile(sshCfg.KeyPath)
			if err != nil {
				return nil, fmt.Errorf("failed to read SSH key: %w", err)
			}
			sshCfg.PrivateKey = key
		}
		return ssh.New(logger, sshCfg), nil
	default:
		return nil, fmt.Errorf("unknown executor %q", cfg.Executor)
	}
}

func newStore(logger zerolog.Logger, cfg models.BackupConfig, sess *session.Session) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case "", models.StorageS3:
		return storage.NewS3(logger, sess, cfg.Bucket), nil
	case models.StorageMinIO:
		store, err := storage.NewMinIO(logger, cfg.Storage, cfg.Bucket)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
