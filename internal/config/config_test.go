package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp runs the test inside an empty directory so no config.toml or .env leaks in.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, CostingWeightedAverage, cfg.Accounting.CostingPolicy)
	assert.True(t, cfg.Accounting.IncludeConsumptionInBatchCost)
	assert.Equal(t, int32(10), cfg.Database.MaxConns)
	assert.Equal(t, "postgres://postgres:@localhost:5432/himalayan?sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, "data/emails.json", cfg.Storefront.SubscribersFile)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("HF_ACCOUNTING_COSTING_POLICY", "LAST_COST")
	t.Setenv("HF_ACCOUNTING_INCLUDE_CONSUMPTION_IN_BATCH_COST", "false")
	t.Setenv("HF_LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/hf")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, CostingLastCost, cfg.Accounting.CostingPolicy)
	assert.False(t, cfg.Accounting.IncludeConsumptionInBatchCost)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "postgres://u:p@db:5432/hf", cfg.Database.DSN())
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("DATABASE_URL", "")
	toml := `
[app]
port = "9090"

[http]
allowed_origins = ["https://admin.example.com"]

[storefront]
static_dir = "public"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, []string{"https://admin.example.com"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, "public", cfg.Storefront.StaticDir)
}

func TestLoad_RejectsUnknownCostingPolicy(t *testing.T) {
	chdirTemp(t)
	t.Setenv("HF_ACCOUNTING_COSTING_POLICY", "fifo")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "costing_policy")
}

func TestLoad_ProductionRequiresJWTSecret(t *testing.T) {
	chdirTemp(t)
	t.Setenv("HF_APP_ENV", "production")
	t.Setenv("SUPABASE_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("SUPABASE_JWT_SECRET", "s3cret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
}

func TestApplyLegacyEnv_AllowedOrigins(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	cfg := &Config{}
	applyLegacyEnv(cfg)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
}
