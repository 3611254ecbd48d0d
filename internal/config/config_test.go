package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "./adboard.db", cfg.DatabasePath)
	assert.Equal(t, "./uploads", cfg.UploadsDir)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxUploadBytes)
	assert.False(t, cfg.IsProduction())
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "@hourly", cfg.ImageSweepSchedule)
	assert.True(t, cfg.ImageSweepEnabled())
	assert.Equal(t, time.Hour, cfg.ImageSweepGrace)
	assert.Equal(t, 30*time.Second, cfg.StatsInterval)
}

func TestLoad_FromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("UPLOADS_DIR", "/srv/images")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("SEED_DEFAULT_USERS", "true")
	t.Setenv("IMAGE_SWEEP_SCHEDULE", "off")
	t.Setenv("STATS_INTERVAL", "5m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "/srv/images", cfg.UploadsDir)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.SeedDefaultUsers)
	assert.False(t, cfg.ImageSweepEnabled())
	assert.Equal(t, 5*time.Minute, cfg.StatsInterval)
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_InvalidPort(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "not-a-number")

	_, err := Load()
	require.Error(t, err)
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains: it changes
// the working directory for the duration of the test and restores it after.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
