package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"formpilot/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets defines where to find secrets in Vault. All paths point at
// KVv2 secrets; an empty path skips that secret.
type VaultSecrets struct {
	APIKeys   string `mapstructure:"apiKeys"`   // key "keys", comma-separated
	GeminiKey string `mapstructure:"geminiKey"` // key "api_key"
	TLSCerts  string `mapstructure:"tlsCerts"`  // keys "cert", "key"
	JWTSecret string `mapstructure:"jwtSecret"` // key "secret"
	Database  string `mapstructure:"database"`  // key "url"
	SMTP      string `mapstructure:"smtp"`      // keys "username", "password"
}

// VaultClient wraps the Vault API client
type VaultClient struct {
	client *api.Client
	config VaultConfig
	logger *errors.Logger
}

// NewVaultClient creates a new Vault client from configuration.
// It returns nil, nil when Vault is disabled.
func NewVaultClient(config VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if !config.Enabled {
		return nil, nil
	}

	vaultCfg := api.DefaultConfig()
	if config.Address != "" {
		vaultCfg.Address = config.Address
	}

	client, err := api.NewClient(vaultCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}

	token, err := resolveVaultToken(config, logger)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		if logger != nil {
			logger.LogError(err, "Failed to connect to Vault", "address", config.Address)
		}
		return nil, fmt.Errorf("failed to connect to vault: %w", err)
	}
	if logger != nil {
		logger.Info("Connected to Vault",
			"address", config.Address,
			"version", health.Version,
			"sealed", health.Sealed)
	}

	return &VaultClient{client: client, config: config, logger: logger}, nil
}

// resolveVaultToken resolves the Vault token from config or file
func resolveVaultToken(config VaultConfig, logger *errors.Logger) (string, error) {
	token := config.Token

	if token == "" && config.TokenFile != "" {
		tokenBytes, err := os.ReadFile(config.TokenFile)
		if err != nil {
			if logger != nil {
				logger.LogError(err, "Failed to read Vault token file", "file", config.TokenFile)
			}
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(tokenBytes))
	}

	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}
	return token, nil
}

// VaultSecret represents a secret read from Vault's KVv2 engine.
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// GetSecretV2 retrieves a secret from a Vault KVv2 store.
func (vc *VaultClient) GetSecretV2(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}

	secret, err := vc.client.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}

	return decodeKVv2(secret, path)
}

// decodeKVv2 unpacks the data and metadata envelopes of a KVv2 read.
func decodeKVv2(secret *api.Secret, path string) (*VaultSecret, error) {
	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}

	metadata, ok := secret.Data["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}
	versionRaw, ok := metadata["version"]
	if !ok {
		return nil, fmt.Errorf("secret metadata at %s is missing 'version' field", path)
	}
	version, err := parseVersionValue(versionRaw, path)
	if err != nil {
		return nil, err
	}

	return &VaultSecret{Data: data, Version: version}, nil
}

// parseVersionValue parses version value from various types
func parseVersionValue(versionRaw any, path string) (int64, error) {
	switch v := versionRaw.(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	default:
		return 0, fmt.Errorf("unexpected type for version at %s: %T", path, versionRaw)
	}
}

// GetStringSecret retrieves a string value from a Vault secret
func (vc *VaultClient) GetStringSecret(path, key string) (string, error) {
	secret, err := vc.GetSecretV2(path)
	if err != nil {
		return "", err
	}
	return stringField(secret, path, key)
}

func stringField(secret *VaultSecret, path, key string) (string, error) {
	value, ok := secret.Data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret %s", key, path)
	}
	strValue, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string in secret %s", key, path)
	}
	return strValue, nil
}

// maskSecret keeps the first and last four characters of long values.
func maskSecret(value string) string {
	switch {
	case len(value) > 8:
		return value[:4] + "****" + value[len(value)-4:]
	case len(value) > 0:
		return "****"
	default:
		return ""
	}
}

// secretBinding maps one Vault key onto a config field.
type secretBinding struct {
	path   string
	key    string
	apply  func(cfg *Config, value string)
	name   string
	strict bool // fail when the key is missing
}

func vaultBindings(cfg *Config) []secretBinding {
	s := cfg.Vault.Secrets
	return []secretBinding{
		{path: s.APIKeys, key: "keys", name: "api_keys", strict: true, apply: func(c *Config, v string) {
			c.Server.APIKeys = splitCSV(v)
		}},
		{path: s.GeminiKey, key: "api_key", name: "gemini_key", strict: true, apply: applyGeminiKeyToConfig},
		{path: s.JWTSecret, key: "secret", name: "jwt_secret", strict: true, apply: func(c *Config, v string) {
			c.Auth.JWTSecret = v
		}},
		{path: s.Database, key: "url", name: "database_url", strict: true, apply: func(c *Config, v string) {
			c.Database.URL = v
		}},
		{path: s.SMTP, key: "username", name: "smtp_username", apply: func(c *Config, v string) {
			c.Mail.Username = v
		}},
		{path: s.SMTP, key: "password", name: "smtp_password", strict: true, apply: func(c *Config, v string) {
			c.Mail.Password = v
		}},
		{path: s.TLSCerts, key: "cert", name: "tls_cert", apply: func(c *Config, v string) {
			c.Server.TLS.CertContent = v
		}},
		{path: s.TLSCerts, key: "key", name: "tls_key", apply: func(c *Config, v string) {
			c.Server.TLS.KeyContent = v
		}},
	}
}

// ApplyVaultSecrets loads secrets from Vault and applies them to the config
func ApplyVaultSecrets(config *Config, logger *errors.Logger) error {
	if !config.Vault.Enabled {
		if logger != nil {
			logger.Debug("Vault integration disabled, skipping secret loading")
		}
		return nil
	}

	client, err := NewVaultClient(config.Vault, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}

	return applySecrets(config, logger, client.GetSecretV2)
}

// applySecrets reads each configured path once and applies its bindings.
func applySecrets(config *Config, logger *errors.Logger, read func(path string) (*VaultSecret, error)) error {
	cache := make(map[string]*VaultSecret)
	applied := 0

	for _, b := range vaultBindings(config) {
		if b.path == "" {
			continue
		}

		secret, ok := cache[b.path]
		if !ok {
			var err error
			secret, err = read(b.path)
			if err != nil {
				return fmt.Errorf("failed to load %s from vault: %w", b.name, err)
			}
			cache[b.path] = secret
		}

		value, err := stringField(secret, b.path, b.key)
		if err != nil {
			if b.strict {
				return fmt.Errorf("failed to load %s from vault: %w", b.name, err)
			}
			continue
		}
		if value == "" {
			if logger != nil {
				logger.Warn("Empty secret found in Vault", "secret", b.name, "path", b.path)
			}
			continue
		}

		b.apply(config, value)
		applied++
		if logger != nil {
			logger.Debug("Secret loaded from Vault", "secret", b.name, "path", b.path, "masked_value", maskSecret(value))
		}
	}

	if logger != nil {
		logger.Info("Applied secrets from Vault", "count", applied)
	}
	return nil
}

// applyGeminiKeyToConfig applies the Gemini API key to every AI operation
// that does not carry its own key.
func applyGeminiKeyToConfig(config *Config, geminiKey string) {
	config.AI.APIKey = geminiKey
	for _, op := range []*OperationAIConfig{&config.AI.Answer, &config.AI.CoverLetter, &config.AI.Choice} {
		if op.APIKey == "" {
			op.APIKey = geminiKey
		}
	}
}

func splitCSV(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
