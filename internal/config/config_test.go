package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_WithEnv(t *testing.T) {
	t.Setenv("ACCOUNT_EMAIL", "owner@example.com")
	t.Setenv("ACCOUNT_PASSWORD", "s3cret")
	t.Setenv("STORAGE_DIR", "/var/lib/msnab")
	t.Setenv("STORAGE_ENCODING", "compress+encrypt")
	t.Setenv("STORAGE_USE_CACHE", "true")
	t.Setenv("REMOTE_ADDRESS", "https://contacts.example.com")
	t.Setenv("REMOTE_REQUEST_TIMEOUT", "45s")
	t.Setenv("WORKERS_SYNC_INTERVAL", "2m")
	t.Setenv("LOG_LEVEL", "debug")

	b := newConfigBuilder().withEnv()
	require.NoError(t, b.err)
	require.Len(t, b.layers, 1)
	cfg := b.layers[0]

	assert.Equal(t, "owner@example.com", cfg.Account.Email)
	assert.Equal(t, "s3cret", cfg.Account.Password)
	assert.Equal(t, "/var/lib/msnab", cfg.Storage.Dir)
	assert.Equal(t, "compress+encrypt", cfg.Storage.Encoding)
	assert.True(t, cfg.Storage.UseCache)
	assert.Equal(t, "https://contacts.example.com", cfg.Remote.Address)
	assert.Equal(t, 45*time.Second, cfg.Remote.RequestTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Workers.SyncInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestParseJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"account": {"email": "owner@example.com"},
		"storage": {"dir": "/tmp/msnab", "encoding": "sealed", "use_cache": true},
		"remote": {"address": "contacts.example.com", "request_timeout": "1m"},
		"workers": {"sync_interval": "5m"},
		"log": {"level": "warn", "file": "/var/log/msnab.log"}
	}`), 0o600))

	cfg, err := parseJSON(path)
	require.NoError(t, err)

	assert.Equal(t, "owner@example.com", cfg.Account.Email)
	assert.Equal(t, "/tmp/msnab", cfg.Storage.Dir)
	assert.Equal(t, "sealed", cfg.Storage.Encoding)
	assert.True(t, cfg.Storage.UseCache)
	assert.Equal(t, "contacts.example.com", cfg.Remote.Address)
	assert.Equal(t, time.Minute, cfg.Remote.RequestTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Workers.SyncInterval)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "/var/log/msnab.log", cfg.Log.File)
}

func TestParseJSON_MissingFile(t *testing.T) {
	_, err := parseJSON(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

// Builder merge priority: an earlier source wins for fields it sets; later
// sources only fill the gaps.
func TestBuilder_MergePriority(t *testing.T) {
	b := newConfigBuilder()
	b.layers = append(b.layers,
		&StructuredConfig{
			Account: Account{Email: "env@example.com"},
			Remote:  Remote{Address: "env.example.com"},
		},
		&StructuredConfig{
			Account: Account{Email: "flag@example.com", Password: "flag-pass"},
			Storage: Storage{Dir: "/from/flags"},
		},
	)

	cfg, err := b.build()
	require.NoError(t, err)

	assert.Equal(t, "env@example.com", cfg.Account.Email, "first source wins")
	assert.Equal(t, "flag-pass", cfg.Account.Password, "later source fills gaps")
	assert.Equal(t, "/from/flags", cfg.Storage.Dir)
	assert.Equal(t, "env.example.com", cfg.Remote.Address)
}

func TestValidate(t *testing.T) {
	base := func() *StructuredConfig {
		return &StructuredConfig{
			Account: Account{Email: "owner@example.com"},
			Remote:  Remote{Address: "contacts.example.com"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*StructuredConfig)
		wantErr error
	}{
		{name: "Valid Minimal", mutate: func(*StructuredConfig) {}},
		{name: "Missing Email", mutate: func(c *StructuredConfig) { c.Account.Email = "" }, wantErr: ErrInvalidAccountConfigs},
		{name: "Missing Address", mutate: func(c *StructuredConfig) { c.Remote.Address = "" }, wantErr: ErrInvalidRemoteConfigs},
		{name: "Unknown Encoding", mutate: func(c *StructuredConfig) { c.Storage.Encoding = "rot13" }, wantErr: ErrInvalidStorageConfigs},
		{name: "Sealed Encoding OK", mutate: func(c *StructuredConfig) { c.Storage.Encoding = "sealed" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			err := cfg.validate()
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestValidate_Defaults(t *testing.T) {
	cfg := &StructuredConfig{
		Account: Account{Email: "owner@example.com"},
		Remote:  Remote{Address: "contacts.example.com"},
	}
	require.NoError(t, cfg.validate())

	assert.Equal(t, 30*time.Second, cfg.Remote.RequestTimeout)
	assert.Equal(t, "compress", cfg.Storage.Encoding)
	assert.Equal(t, ".", cfg.Storage.Dir)
}
