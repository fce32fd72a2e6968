package ports

import "context"

// Secret represents a retrieved secret with metadata
type Secret struct {
	Value     string
	Version   string
	Metadata  map[string]string
	CreatedAt string
}

// SecretManager retrieves gateway credentials from a secret backend.
// Supported backends: AWS Secrets Manager, HashiCorp Vault, local env/file
// for development. Implementations own authentication and caching.
type SecretManager interface {
	// GetSecret retrieves a secret by its path/name. Path format depends
	// on the backend:
	//   - AWS: "topcell/gateway/credentials"
	//   - Vault: "secret/data/topcell/gateway"
	//   - Local: file path relative to the configured base directory
	GetSecret(ctx context.Context, path string) (*Secret, error)
}
