package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/fgeck/openvpn-backup/internal/models"
	"github.com/fgeck/openvpn-backup/internal/services/ssh"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var testSSH bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Validate the configuration without executing any backup operations.
With --test-ssh, also open an SSH connection to every host listed in ssh.hosts.`,
	RunE: validateConfig,
}

func init() {
	validateCmd.Flags().BoolVar(&testSSH, "test-ssh", false, "test SSH connectivity to the configured hosts")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// Check if file exists
	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			log.Error().Str("file", configFile).Msg("config file not found")
			return fmt.Errorf("config file not found: %s", configFile)
		}
	}

	cfg, err := loadConfig(ctx)
	if err != nil {
		log.Error().Err(err).Msg("configuration validation failed")
		return err
	}

	// Print configuration summary
	fmt.Println("Configuration is valid!")
	fmt.Println()
	fmt.Println("Summary:")
	fmt.Printf("  Bucket: %s\n", cfg.Bucket)
	fmt.Printf("  Name prefix: %s\n", cfg.NamePrefix)
	fmt.Printf("  Instances: %v\n", cfg.InstanceIDs)
	fmt.Printf("  Region: %s\n", valueOr(cfg.Region, "(SDK default)"))
	fmt.Printf("  Executor: %s\n", cfg.Executor)
	fmt.Printf("  Storage: %s\n", cfg.Storage.Backend)
	fmt.Println()
	fmt.Println("Polling:")
	fmt.Printf("  Interval: %s\n", cfg.Polling.Interval)
	fmt.Printf("  Timeout: %s\n", cfg.Polling.Timeout)
	fmt.Printf("  Command timeout: %s\n", cfg.Polling.CommandTimeout)
	fmt.Println()
	fmt.Println("Retention Policy:")
	fmt.Printf("  Keep: %d day(s)\n", cfg.RetentionDays)
	if cfg.RetentionDays == 0 {
		fmt.Println("  Every existing backup is deleted on each run")
	}
	fmt.Println()
	fmt.Println("Optional Features:")
	fmt.Printf("  SNS: %v\n", cfg.TopicARN != "")
	fmt.Printf("  Telegram: %v\n", cfg.Telegram != nil)
	fmt.Printf("  Vault: %v\n", cfg.Vault != nil)

	if cfg.Storage.Backend == models.StorageMinIO {
		fmt.Println()
		fmt.Println("MinIO Configuration:")
		fmt.Printf("  Endpoint: %s\n", cfg.Storage.Endpoint)
		fmt.Printf("  TLS: %v\n", cfg.Storage.UseSSL)
		fmt.Printf("  Credentials: (configured)\n")
	}

	if cfg.SSH != nil {
		fmt.Println()
		fmt.Println("SSH Configuration:")
		fmt.Printf("  Username: %s\n", cfg.SSH.Username)
		fmt.Printf("  Port: %d\n", cfg.SSH.Port)
		fmt.Printf("  Address: %s\n", cfg.SSH.Address)
		fmt.Printf("  Known hosts: %s\n", valueOr(cfg.SSH.KnownHostsPath, "(not verified)"))
	}

	if cfg.Telegram != nil {
		fmt.Println()
		fmt.Println("Telegram Configuration:")
		fmt.Printf("  Chat ID: %s\n", cfg.Telegram.ChatID)
		fmt.Printf("  Bot Token: (configured)\n")
	}

	if testSSH {
		return testSSHHosts(ctx, cfg)
	}

	return nil
}

func testSSHHosts(ctx context.Context, cfg *models.BackupConfig) error {
	if cfg.SSH == nil || len(cfg.SSH.Hosts) == 0 {
		return fmt.Errorf("--test-ssh needs the ssh executor and at least one entry in ssh.hosts")
	}

	sshCfg := *cfg.SSH
	key, err := os.ReadFile(sshCfg.KeyPath)
	if err != nil {
		return fmt.Errorf("failed to read SSH key: %w", err)
	}
	sshCfg.PrivateKey = key
	executor := ssh.New(log.Logger, sshCfg)

	ids := make([]string, 0, len(sshCfg.Hosts))
	for id := range sshCfg.Hosts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Println()
	fmt.Println("SSH Connectivity:")
	var failed int
	for _, id := range ids {
		host := sshCfg.Hosts[id]
		if _, err := executor.TestConnection(ctx, host); err != nil {
			failed++
			fmt.Printf("  %s (%s): FAILED: %v\n", id, host, err)
			continue
		}
		fmt.Printf("  %s (%s): OK\n", id, host)
	}

	if failed > 0 {
		return fmt.Errorf("%d SSH connection(s) failed", failed)
	}
	return nil
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
