package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fgeck/openvpn-backup/internal/config"
	"github.com/fgeck/openvpn-backup/internal/handler"
	"github.com/fgeck/openvpn-backup/internal/models"
	"github.com/fgeck/openvpn-backup/internal/services/runner"
	"github.com/fgeck/openvpn-backup/internal/services/secrets"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one backup pass",
	Long: `Execute one backup pass over all configured instances:
1. Skip instances that are not running
2. Run the backup script on each instance and wait for it
3. Delete backups older than the retention period (if enabled)
4. Send the report via SNS and/or Telegram (if configured)
5. Store the run status in SSM Parameter Store`,
	RunE: runBackup,
}

// loadConfig reads the configuration file (if any) plus the environment and
// resolves vault: references.
func loadConfig(ctx context.Context) (*models.BackupConfig, error) {
	parser := config.NewParser()

	var (
		cfg *models.BackupConfig
		err error
	)
	if configFile != "" {
		cfg, err = parser.LoadFile(configFile)
	} else {
		cfg, err = parser.LoadEnv()
	}
	if err != nil {
		return nil, err
	}

	var resolver secrets.Resolver = secrets.Passthrough{}
	if cfg.Vault != nil {
		vault, err := secrets.NewVault(log.Logger, cfg.Vault.Address, cfg.Vault.Token, cfg.Vault.Mount)
		if err != nil {
			return nil, err
		}
		resolver = vault
	}

	if err := config.ResolveSecrets(ctx, cfg, resolver); err != nil {
		return nil, err
	}

	return cfg, nil
}

func runBackup(cmd *cobra.Command, args []string) error {
	// Set up context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
		cancel()
	}()

	cfg, err := loadConfig(ctx)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
		return err
	}

	log.Info().
		Str("bucket", cfg.Bucket).
		Str("prefix", cfg.NamePrefix).
		Int("instances", len(cfg.InstanceIDs)).
		Str("executor", cfg.Executor).
		Msg("configuration loaded")

	runnerSvc, err := runner.New(log.Logger, *cfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to set up backup runner")
		return err
	}

	status := runnerSvc.Run(ctx, *cfg)

	body, err := handler.EncodeBody(status.Results)
	if err != nil {
		return err
	}
	fmt.Println(body)

	for _, result := range status.Results {
		if result.Failed() {
			return fmt.Errorf("backup failed for instance %s", result.InstanceID)
		}
	}

	log.Info().Msg("backup completed successfully")
	return nil
}
