// Package models contains the data structures used throughout openvpn-backup.
package models

import "time"

// Executor names.
const (
	ExecutorSSM = "ssm"
	ExecutorSSH = "ssh"
)

// Storage backend names.
const (
	StorageS3    = "s3"
	StorageMinIO = "minio"
)

// BackupConfig holds the complete configuration for a backup run.
type BackupConfig struct {
	Bucket        string
	InstanceIDs   []string
	NamePrefix    string
	TopicARN      string // empty if SNS is not configured
	RetentionDays int
	Region        string

	Executor string // "ssm" (default) or "ssh"
	Polling  PollSettings
	Storage  StorageConfig

	SSH      *SSHConfig      // nil if not configured
	Telegram *TelegramConfig // nil if not configured
	Vault    *VaultConfig    // nil if not configured
}

// PollSettings controls how long the orchestrator waits on a remote command.
type PollSettings struct {
	Interval       time.Duration
	Timeout        time.Duration
	CommandTimeout time.Duration
}

// StorageConfig selects and configures the object storage backend.
type StorageConfig struct {
	Backend   string // "s3" (default) or "minio"
	Endpoint  string // minio endpoint, host:port
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// VaultConfig holds connection settings for resolving vault: references.
type VaultConfig struct {
	Address string
	Token   string
	Mount   string
}
