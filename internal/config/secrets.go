package config

import (
	"context"
	"fmt"

	"github.com/fgeck/openvpn-backup/internal/models"
	"github.com/fgeck/openvpn-backup/internal/services/secrets"
)

// ResolveSecrets replaces vault: references in secret fields in place.
func ResolveSecrets(ctx context.Context, cfg *models.BackupConfig, resolver secrets.Resolver) error {
	fields := map[string]*string{
		"minio.access_key": &cfg.Storage.AccessKey,
		"minio.secret_key": &cfg.Storage.SecretKey,
	}
	if cfg.Telegram != nil {
		fields["telegram.bot_token"] = &cfg.Telegram.BotToken
		fields["telegram.chat_id"] = &cfg.Telegram.ChatID
	}

	for name, field := range fields {
		value, err := resolver.Resolve(ctx, *field)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", name, err)
		}
		*field = value
	}

	return nil
}
