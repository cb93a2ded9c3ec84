package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	cerrors "github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/errors"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CORTEX_CONFIG", "LAMP_ACCESS_KEY", "LAMP_SECRET_KEY", "LAMP_SERVER_ADDRESS",
		"CORTEX_CACHE_DIR", "CORTEX_CACHE_COMPRESSION", "CORTEX_OUTPUT_FORMAT",
		"CORTEX_LOG_LEVEL", "CORTEX_CACHE_DISABLED",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.CacheEnabled)
	require.Equal(t, "json", cfg.OutputFormat)
	require.Equal(t, "info", cfg.LogLevel)
	require.NotEmpty(t, cfg.CacheDir)
	require.False(t, cfg.HasCredentials())
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LAMP_ACCESS_KEY", "admin")
	t.Setenv("LAMP_SECRET_KEY", "secret")
	t.Setenv("LAMP_SERVER_ADDRESS", "api.example.test")
	t.Setenv("CORTEX_CACHE_COMPRESSION", "gz")
	t.Setenv("CORTEX_CACHE_DISABLED", "1")

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.HasCredentials())
	require.Equal(t, "api.example.test", cfg.ServerAddress)
	require.Equal(t, "gz", cfg.CacheCompression)
	require.False(t, cfg.CacheEnabled)
}

func TestLoadFileWithEnvPrecedence(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "cortex.yaml")
	body := "access_key: file-key\nsecret_key: file-secret\nserver_address: file.example.test\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	t.Setenv("CORTEX_CONFIG", path)
	t.Setenv("LAMP_ACCESS_KEY", "env-key")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "env-key", cfg.AccessKey)
	require.Equal(t, "file-secret", cfg.SecretKey)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsUnknownCompression(t *testing.T) {
	clearEnv(t)
	t.Setenv("CORTEX_CACHE_COMPRESSION", "lz4")

	_, err := Load()
	require.Error(t, err)
	require.True(t, cerrors.Is(err, cerrors.KindConfiguration))
}

func TestLoadMissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CORTEX_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load()
	require.Error(t, err)
	require.True(t, cerrors.Is(err, cerrors.KindConfiguration))
}
