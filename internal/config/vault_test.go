package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"formpilot/internal/errors"

	"github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *errors.Logger {
	logger, _ := errors.New("debug")
	return logger
}

func TestParseVersionValue(t *testing.T) {
	tests := []struct {
		name        string
		input       any
		expected    int64
		expectError bool
	}{
		{name: "int64 value", input: int64(42), expected: 42},
		{name: "float64 value", input: float64(42.0), expected: 42},
		{name: "string value", input: "42", expected: 42},
		{name: "invalid string value", input: "not-a-number", expectError: true},
		{name: "unsupported type", input: []string{"42"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseVersionValue(tt.input, "kv/data/formpilot")
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestDecodeKVv2(t *testing.T) {
	tests := []struct {
		name        string
		secret      *api.Secret
		expectError bool
		expected    *VaultSecret
	}{
		{
			name: "valid secret",
			secret: &api.Secret{Data: map[string]any{
				"data":     map[string]any{"api_key": "abc"},
				"metadata": map[string]any{"version": float64(3)},
			}},
			expected: &VaultSecret{Data: map[string]any{"api_key": "abc"}, Version: 3},
		},
		{
			name: "missing data",
			secret: &api.Secret{Data: map[string]any{
				"metadata": map[string]any{"version": float64(3)},
			}},
			expectError: true,
		},
		{
			name: "data wrong type",
			secret: &api.Secret{Data: map[string]any{
				"data":     "not-a-map",
				"metadata": map[string]any{"version": float64(3)},
			}},
			expectError: true,
		},
		{
			name: "missing version",
			secret: &api.Secret{Data: map[string]any{
				"data":     map[string]any{},
				"metadata": map[string]any{"other": "value"},
			}},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeKVv2(tt.secret, "kv/data/test")
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestResolveVaultToken(t *testing.T) {
	logger := newTestLogger()

	t.Run("token from config", func(t *testing.T) {
		token, err := resolveVaultToken(VaultConfig{Token: "direct-token"}, logger)
		assert.NoError(t, err)
		assert.Equal(t, "direct-token", token)
	})

	t.Run("token from file is trimmed", func(t *testing.T) {
		tokenFile := filepath.Join(t.TempDir(), "vault-token")
		require.NoError(t, os.WriteFile(tokenFile, []byte("  file-token  \n"), 0600))

		token, err := resolveVaultToken(VaultConfig{TokenFile: tokenFile}, logger)
		assert.NoError(t, err)
		assert.Equal(t, "file-token", token)
	})

	t.Run("missing token file", func(t *testing.T) {
		_, err := resolveVaultToken(VaultConfig{TokenFile: "/nonexistent/token/file"}, logger)
		assert.ErrorContains(t, err, "failed to read vault token file")
	})

	t.Run("no token provided", func(t *testing.T) {
		_, err := resolveVaultToken(VaultConfig{}, logger)
		assert.ErrorContains(t, err, "vault token is required")
	})
}

func TestApplyGeminiKeyToConfig(t *testing.T) {
	cfg := &Config{AI: AIConfig{CoverLetter: OperationAIConfig{APIKey: "own-key"}}}

	applyGeminiKeyToConfig(cfg, "vault-key")

	assert.Equal(t, "vault-key", cfg.AI.APIKey)
	assert.Equal(t, "vault-key", cfg.AI.Answer.APIKey)
	assert.Equal(t, "own-key", cfg.AI.CoverLetter.APIKey)
	assert.Equal(t, "vault-key", cfg.AI.Choice.APIKey)
}

func TestApplySecrets(t *testing.T) {
	store := map[string]*VaultSecret{
		"kv/data/gemini": {Data: map[string]any{"api_key": "gemini-123456789"}},
		"kv/data/api":    {Data: map[string]any{"keys": "k1, k2 ,,k3"}},
		"kv/data/jwt":    {Data: map[string]any{"secret": "signing-secret"}},
		"kv/data/db":     {Data: map[string]any{"url": "postgres://u:p@db/formpilot"}},
		"kv/data/smtp":   {Data: map[string]any{"password": "smtp-pass"}},
		"kv/data/tls":    {Data: map[string]any{"cert": "CERT", "key": "KEY"}},
	}
	reads := map[string]int{}
	read := func(path string) (*VaultSecret, error) {
		reads[path]++
		s, ok := store[path]
		if !ok {
			return nil, fmt.Errorf("secret not found at path: %s", path)
		}
		return s, nil
	}

	cfg := &Config{Vault: VaultConfig{Enabled: true, Secrets: VaultSecrets{
		APIKeys:   "kv/data/api",
		GeminiKey: "kv/data/gemini",
		JWTSecret: "kv/data/jwt",
		Database:  "kv/data/db",
		SMTP:      "kv/data/smtp",
		TLSCerts:  "kv/data/tls",
	}}, Mail: MailConfig{Username: "mailer@example.com"}}

	require.NoError(t, applySecrets(cfg, newTestLogger(), read))

	assert.Equal(t, []string{"k1", "k2", "k3"}, cfg.Server.APIKeys)
	assert.Equal(t, "gemini-123456789", cfg.AI.APIKey)
	assert.Equal(t, "signing-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "postgres://u:p@db/formpilot", cfg.Database.URL)
	assert.Equal(t, "smtp-pass", cfg.Mail.Password)
	assert.Equal(t, "mailer@example.com", cfg.Mail.Username, "optional username key absent keeps config value")
	assert.Equal(t, "CERT", cfg.Server.TLS.CertContent)
	assert.Equal(t, "KEY", cfg.Server.TLS.KeyContent)
	assert.Equal(t, 1, reads["kv/data/smtp"], "each path is read once")
	assert.Equal(t, 1, reads["kv/data/tls"])
}

func TestApplySecretsMissingStrictKey(t *testing.T) {
	read := func(path string) (*VaultSecret, error) {
		return &VaultSecret{Data: map[string]any{"other": "x"}}, nil
	}
	cfg := &Config{Vault: VaultConfig{Enabled: true, Secrets: VaultSecrets{JWTSecret: "kv/data/jwt"}}}

	err := applySecrets(cfg, newTestLogger(), read)
	assert.ErrorContains(t, err, "jwt_secret")
}

func TestApplyVaultSecretsDisabled(t *testing.T) {
	cfg := &Config{Vault: VaultConfig{Enabled: false}}
	assert.NoError(t, ApplyVaultSecrets(cfg, newTestLogger()))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "abcd****6789", maskSecret("abcdef0123456789"))
	assert.Equal(t, "****", maskSecret("short"))
	assert.Equal(t, "", maskSecret(""))
}
