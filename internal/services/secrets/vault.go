// Package secrets resolves vault: references in configuration values.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	vault "github.com/hashicorp/vault/api"
	"github.com/rs/zerolog"
)

// RefPrefix marks a configuration value that must be read from Vault.
const RefPrefix = "vault:"

// ErrInvalidRef indicates a malformed vault: reference.
var ErrInvalidRef = errors.New("invalid vault reference")

// Resolver turns configuration values into secrets.
type Resolver interface {
	Resolve(ctx context.Context, value string) (string, error)
}

// IsRef reports whether value is a vault: reference.
func IsRef(value string) bool {
	return strings.HasPrefix(value, RefPrefix)
}

// ParseRef splits "vault:<path>#<key>" into path and key.
func ParseRef(value string) (path, key string, err error) {
	if !IsRef(value) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRef, value)
	}
	path, key, ok := strings.Cut(strings.TrimPrefix(value, RefPrefix), "#")
	path = strings.Trim(path, "/")
	if !ok || path == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q, expected vault:<path>#<key>", ErrInvalidRef, value)
	}
	return path, key, nil
}

// Vault reads secrets from a KV version 2 mount.
type Vault struct {
	api    *vault.Client
	mount  string
	logger zerolog.Logger
}

// NewVault creates a Vault resolver. Empty address and token fall back to
// VAULT_ADDR and VAULT_TOKEN.
func NewVault(logger zerolog.Logger, address, token, mount string) (*Vault, error) {
	apiCfg := vault.DefaultConfig()
	if address != "" {
		apiCfg.Address = address
	}

	api, err := vault.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault API client: %w", err)
	}
	if token != "" {
		api.SetToken(token)
	}
	if mount == "" {
		mount = "secret"
	}

	return &Vault{api: api, mount: mount, logger: logger}, nil
}

// Resolve returns value unchanged unless it is a vault: reference.
func (v *Vault) Resolve(ctx context.Context, value string) (string, error) {
	if !IsRef(value) {
		return value, nil
	}

	path, key, err := ParseRef(value)
	if err != nil {
		return "", err
	}

	secret, err := v.api.KVv2(v.mount).Get(ctx, path)
	if err != nil {
		return "", fmt.Errorf("reading %s/%s from vault: %w", v.mount, path, err)
	}

	raw, ok := secret.Data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in %s/%s", key, v.mount, path)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("key %q in %s/%s is not a string", key, v.mount, path)
	}

	v.logger.Debug().Str("path", path).Str("key", key).Msg("secret resolved from vault")
	return s, nil
}

// Passthrough returns every value unchanged and rejects vault: references.
type Passthrough struct{}

// Resolve implements Resolver.
func (Passthrough) Resolve(_ context.Context, value string) (string, error) {
	if IsRef(value) {
		return "", fmt.Errorf("%q references vault but vault is not configured", value)
	}
	return value, nil
}
