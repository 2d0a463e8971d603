package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "")
	t.Setenv("JWT_REFRESH_SIGNING_KEY", "")

	cfg := Load()
	assert.Equal(t, "8081", cfg.HTTPPort)
	assert.Equal(t, 10*time.Minute, cfg.ResetCodeTTL)
	assert.Equal(t, "dev-signing-secret-change:refresh", cfg.JWTRefreshSigningKey)
	assert.False(t, cfg.Production())
}

func TestLoadFileEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hrm.yaml")
	body := "HTTP_PORT: \"9000\"\nACCESS_TTL: 5m\nCORS_ALLOWED_ORIGINS: \"https://a.example, https://b.example\"\nAPP_ENV: production\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("APP_ENV", "")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.HTTPPort)
	assert.Equal(t, 5*time.Minute, cfg.AccessTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.True(t, cfg.Production())
}

func TestLoadFileInvalidDurationFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hrm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("REFRESH_TTL: soon\n"), 0o600))
	t.Setenv("REFRESH_TTL", "")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.RefreshTTL)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidateProductionSigningKey(t *testing.T) {
	strong := "0123456789abcdef0123456789abcdef"

	dev := App{Env: "dev", JWTSigningKey: DevSigningKey, JWTRefreshSigningKey: DevSigningKey + ":refresh"}
	assert.NoError(t, dev.Validate())

	prod := dev
	prod.Env = "production"
	assert.ErrorContains(t, prod.Validate(), "JWT_SIGNING_KEY must be set")

	prod.JWTSigningKey = "short"
	prod.JWTRefreshSigningKey = strong
	assert.ErrorContains(t, prod.Validate(), "at least 32 bytes")

	prod.JWTSigningKey = strong
	prod.JWTRefreshSigningKey = strong + "-refresh"
	assert.NoError(t, prod.Validate())
}

func TestLoadProductionWithoutKeyFailsValidation(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SIGNING_KEY", "")
	t.Setenv("JWT_REFRESH_SIGNING_KEY", "")

	require.Error(t, Load().Validate())
}
