package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/nimble-gus/topcell2-sub002/internal/domain/ports"
	"go.uber.org/zap"
)

// envSecretManager implements the SecretManager port on environment
// variables. Development only; production uses AWS Secrets Manager or
// Vault.
type envSecretManager struct {
	logger *zap.Logger
}

// NewEnvSecretManager creates a new environment-variable secret manager
func NewEnvSecretManager(logger *zap.Logger) ports.SecretManager {
	return &envSecretManager{logger: logger}
}

// GetSecret maps a path like "topcell/gateway/api-key" to the variable
// TOPCELL_GATEWAY_API_KEY
func (m *envSecretManager) GetSecret(_ context.Context, path string) (*ports.Secret, error) {
	name := strings.ToUpper(strings.NewReplacer("/", "_", "-", "_").Replace(path))

	value := os.Getenv(name)
	if value == "" {
		return nil, fmt.Errorf("secret not found: %s (env %s)", path, name)
	}

	m.logger.Debug("secret read from environment", zap.String("path", path))

	return &ports.Secret{Value: value, Version: "env"}, nil
}
