// Package config loads the backup configuration from the environment and
// optional configuration files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fgeck/openvpn-backup/internal/models"
	"github.com/spf13/viper"
)

// ErrInvalidConfig wraps every configuration error.
var ErrInvalidConfig = errors.New("invalid configuration")

// Default values.
const (
	DefaultRetentionDays  = 30
	DefaultPollInterval   = 30 * time.Second
	DefaultPollTimeout    = 1800 * time.Second
	DefaultCommandTimeout = 1800 * time.Second
)

// Parser handles configuration parsing. Every key can be set through the
// environment by upper-casing it and replacing dots with underscores, so
// "minio.endpoint" is read from MINIO_ENDPOINT.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("retention_days", DefaultRetentionDays)
	v.SetDefault("executor", models.ExecutorSSM)
	v.SetDefault("storage_backend", models.StorageS3)
	v.SetDefault("poll_interval", DefaultPollInterval)
	v.SetDefault("poll_timeout", DefaultPollTimeout)
	v.SetDefault("command_timeout", DefaultCommandTimeout)
	v.SetDefault("ssh.port", 22)
	v.SetDefault("ssh.username", "openvpnas")
	v.SetDefault("ssh.address", models.SSHAddressPublic)
	v.SetDefault("vault.mount", "secret")

	return &Parser{v: v}
}

// LoadEnv loads configuration from the environment only.
func (p *Parser) LoadEnv() (*models.BackupConfig, error) {
	return p.parse()
}

// LoadFile loads configuration from a file path; the environment still wins.
func (p *Parser) LoadFile(path string) (*models.BackupConfig, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a string (useful for testing).
func (p *Parser) LoadReader(content string) (*models.BackupConfig, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

//nolint:gocognit,gocyclo // parsing config requires checking many fields
func (p *Parser) parse() (*models.BackupConfig, error) {
	cfg := &models.BackupConfig{
		Bucket:     p.v.GetString("backup_bucket"),
		NamePrefix: p.v.GetString("name_prefix"),
		TopicARN:   p.v.GetString("sns_topic_arn"),
		Region:     p.v.GetString("aws_region"),
		Executor:   strings.ToLower(p.v.GetString("executor")),
	}

	ids, err := p.instanceIDs()
	if err != nil {
		return nil, err
	}
	cfg.InstanceIDs = ids

	retention := strings.TrimSpace(p.v.GetString("retention_days"))
	cfg.RetentionDays, err = strconv.Atoi(retention)
	if err != nil {
		return nil, invalid("retention_days must be an integer, got %q", retention)
	}

	cfg.Polling = models.PollSettings{
		Interval:       p.v.GetDuration("poll_interval"),
		Timeout:        p.v.GetDuration("poll_timeout"),
		CommandTimeout: p.v.GetDuration("command_timeout"),
	}

	cfg.Storage = models.StorageConfig{
		Backend:   strings.ToLower(p.v.GetString("storage_backend")),
		Endpoint:  p.v.GetString("minio.endpoint"),
		AccessKey: p.expandEnv(p.v.GetString("minio.access_key")),
		SecretKey: p.expandEnv(p.v.GetString("minio.secret_key")),
		UseSSL:    p.v.GetBool("minio.use_ssl"),
	}

	// SSH settings only matter for the ssh executor.
	if cfg.Executor == models.ExecutorSSH {
		cfg.SSH = &models.SSHConfig{
			Username:       p.v.GetString("ssh.username"),
			Port:           p.v.GetInt("ssh.port"),
			KeyPath:        p.expandEnv(p.v.GetString("ssh.key_path")),
			KnownHostsPath: p.expandEnv(p.v.GetString("ssh.known_hosts")),
			Address:        strings.ToLower(p.v.GetString("ssh.address")),
			Hosts:          p.v.GetStringMapString("ssh.hosts"),
		}
	}

	botToken := p.expandEnv(p.v.GetString("telegram.bot_token"))
	chatID := p.expandEnv(p.v.GetString("telegram.chat_id"))
	if botToken != "" || chatID != "" {
		cfg.Telegram = &models.TelegramConfig{
			BotToken: botToken,
			ChatID:   chatID,
		}
	}

	if addr := p.v.GetString("vault.addr"); addr != "" {
		cfg.Vault = &models.VaultConfig{
			Address: addr,
			Token:   p.expandEnv(p.v.GetString("vault.token")),
			Mount:   p.v.GetString("vault.mount"),
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// instanceIDs accepts a JSON encoded list (the environment form) or a YAML list.
func (p *Parser) instanceIDs() ([]string, error) {
	switch raw := p.v.Get("instance_ids").(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(raw) == "" {
			return nil, nil
		}
		var ids []string
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			return nil, invalid("instance_ids must be a JSON list of strings: %v", err)
		}
		return ids, nil
	case []string:
		return raw, nil
	case []any:
		ids := make([]string, 0, len(raw))
		for _, item := range raw {
			s, ok := item.(string)
			if !ok {
				return nil, invalid("instance_ids must contain only strings, got %v", item)
			}
			ids = append(ids, s)
		}
		return ids, nil
	default:
		return nil, invalid("instance_ids must be a list, got %T", raw)
	}
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate performs validation on the loaded configuration.
//
//nolint:gocognit,gocyclo // one check per field
func Validate(cfg *models.BackupConfig) error {
	if cfg == nil {
		return invalid("configuration is nil")
	}

	if cfg.Bucket == "" {
		return invalid("backup_bucket is required")
	}
	if len(cfg.InstanceIDs) == 0 {
		return invalid("instance_ids is required")
	}
	for _, id := range cfg.InstanceIDs {
		if strings.TrimSpace(id) == "" {
			return invalid("instance_ids must not contain empty ids")
		}
	}
	if cfg.NamePrefix == "" {
		return invalid("name_prefix is required")
	}
	if cfg.RetentionDays < 0 {
		return invalid("retention_days must not be negative")
	}

	if cfg.Polling.Interval <= 0 {
		return invalid("poll_interval must be positive")
	}
	if cfg.Polling.Timeout < cfg.Polling.Interval {
		return invalid("poll_timeout must be at least poll_interval")
	}
	if cfg.Polling.CommandTimeout < 30*time.Second {
		return invalid("command_timeout must be at least 30s")
	}

	switch cfg.Executor {
	case models.ExecutorSSM:
	case models.ExecutorSSH:
		if cfg.SSH == nil {
			return invalid("ssh settings are required for the ssh executor")
		}
		if cfg.SSH.KeyPath == "" && len(cfg.SSH.PrivateKey) == 0 {
			return invalid("ssh.key_path is required for the ssh executor")
		}
		if cfg.SSH.Port <= 0 || cfg.SSH.Port > 65535 {
			return invalid("ssh.port must be between 1 and 65535")
		}
		if cfg.SSH.Address != models.SSHAddressPublic && cfg.SSH.Address != models.SSHAddressPrivate {
			return invalid("ssh.address must be one of: public, private")
		}
	default:
		return invalid("executor must be one of: ssm, ssh")
	}

	switch cfg.Storage.Backend {
	case models.StorageS3:
	case models.StorageMinIO:
		if cfg.Storage.Endpoint == "" {
			return invalid("minio.endpoint is required for the minio storage backend")
		}
		if cfg.Storage.AccessKey == "" || cfg.Storage.SecretKey == "" {
			return invalid("minio.access_key and minio.secret_key are required for the minio storage backend")
		}
	default:
		return invalid("storage_backend must be one of: s3, minio")
	}

	if cfg.Telegram != nil {
		if cfg.Telegram.BotToken == "" {
			return invalid("telegram.bot_token is required when telegram is configured")
		}
		if cfg.Telegram.ChatID == "" {
			return invalid("telegram.chat_id is required when telegram is configured")
		}
	}

	return nil
}
