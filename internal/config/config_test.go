package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SERVER_PORT", "")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "", cfg.DatabaseURL)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, int32(10), cfg.DBMaxConns)
	assert.Equal(t, 500, cfg.DashboardMaxLimit)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/db")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DASHBOARD_MAX_LIMIT", "100")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "postgres://u:p@localhost:5432/db", cfg.DatabaseURL)
	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, 100, cfg.DashboardMaxLimit)
	assert.NoError(t, cfg.RequireServer())
}

func TestRequireServer_MissingSecret(t *testing.T) {
	cfg := &Config{DatabaseURL: "postgres://localhost/db"}
	assert.Error(t, cfg.RequireServer())

	cfg = &Config{JWTSecret: "x"}
	assert.Error(t, cfg.RequireServer())
}
