package main

import (
	"context"
	"fmt"

	"github.com/nimble-gus/topcell2-sub002/internal/adapters/secrets"
	"github.com/nimble-gus/topcell2-sub002/internal/config"
	"github.com/nimble-gus/topcell2-sub002/internal/domain/ports"
	"go.uber.org/zap"
)

// loadGatewayKey resolves the gateway API key from the configured secret
// backend. The key never appears in environment dumps or logs.
func loadGatewayKey(ctx context.Context, cfg *config.Config, logger *zap.Logger) (string, error) {
	manager, err := newSecretManager(ctx, cfg.Secrets, logger)
	if err != nil {
		return "", err
	}

	secret, err := manager.GetSecret(ctx, cfg.Secrets.KeyPath)
	if err != nil {
		return "", fmt.Errorf("get gateway API key: %w", err)
	}

	logger.Info("gateway credentials loaded",
		zap.String("backend", cfg.Secrets.Backend),
		zap.String("version", secret.Version),
	)

	return secret.Value, nil
}

func newSecretManager(ctx context.Context, cfg config.SecretsConfig, logger *zap.Logger) (ports.SecretManager, error) {
	switch cfg.Backend {
	case "aws":
		return secrets.NewAWSSecretsManager(ctx, secrets.DefaultAWSConfig(cfg.AWSRegion), logger)

	case "vault":
		vaultCfg := secrets.DefaultVaultConfig(cfg.VaultAddress)
		vaultCfg.Token = cfg.VaultToken
		return secrets.NewVaultAdapter(vaultCfg, logger)

	case "env":
		return secrets.NewEnvSecretManager(logger), nil

	default:
		return nil, fmt.Errorf("unknown secrets backend: %q", cfg.Backend)
	}
}
