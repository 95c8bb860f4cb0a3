package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SCHEMADOCTOR_DATA_API_URL",
		"SCHEMADOCTOR_API_KEY",
		"SCHEMADOCTOR_SERVICE_TOKEN",
		"SCHEMADOCTOR_PROBE_TABLE",
		"SCHEMADOCTOR_MIGRATIONS_DIR",
		"SCHEMADOCTOR_CONSOLE_URL",
		"SCHEMADOCTOR_LEDGER_TABLE",
		"SCHEMADOCTOR_HTTP_ADDR",
		"SCHEMADOCTOR_LOG_LEVEL",
		"SCHEMADOCTOR_DB_PROVIDER",
		"SCHEMADOCTOR_DB_DSN",
		"SCHEMADOCTOR_DB_SCHEMA",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "projects", cfg.ProbeTable)
	assert.Equal(t, "supabase/migrations", cfg.MigrationsDir)
	assert.Equal(t, "schema_migrations", cfg.LedgerTable)
	assert.Equal(t, ":8080", cfg.HTTPAddress)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadReadsEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCHEMADOCTOR_DATA_API_URL", "https://example.supabase.co")
	t.Setenv("SCHEMADOCTOR_API_KEY", "anon-key")
	t.Setenv("SCHEMADOCTOR_PROBE_TABLE", "tasks")
	t.Setenv("SCHEMADOCTOR_DB_PROVIDER", "Postgres")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://example.supabase.co", cfg.DataAPIURL)
	assert.Equal(t, "tasks", cfg.ProbeTable)
	assert.Equal(t, "postgres", cfg.DB.Provider)
}

func TestServiceTokenFallsBackToAPIKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCHEMADOCTOR_API_KEY", "anon-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "anon-key", cfg.ServiceToken)

	t.Setenv("SCHEMADOCTOR_SERVICE_TOKEN", "service-token")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "service-token", cfg.ServiceToken)
}

func TestLoadRejectsMalformedURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCHEMADOCTOR_DATA_API_URL", "not a url")

	_, err := Load()
	require.Error(t, err)
}

func TestRequireDataAPI(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Error(t, cfg.RequireDataAPI())

	t.Setenv("SCHEMADOCTOR_DATA_API_URL", "https://example.supabase.co")
	cfg, err = Load()
	require.NoError(t, err)
	assert.ErrorContains(t, cfg.RequireDataAPI(), "SCHEMADOCTOR_API_KEY")

	t.Setenv("SCHEMADOCTOR_API_KEY", "anon-key")
	cfg, err = Load()
	require.NoError(t, err)
	assert.NoError(t, cfg.RequireDataAPI())
}

func TestRequireDB(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Error(t, cfg.RequireDB())

	t.Setenv("SCHEMADOCTOR_DB_PROVIDER", "sqlite")
	cfg, err = Load()
	require.NoError(t, err)
	assert.ErrorContains(t, cfg.RequireDB(), "postgres or mysql")

	t.Setenv("SCHEMADOCTOR_DB_PROVIDER", "postgres")
	cfg, err = Load()
	require.NoError(t, err)
	assert.ErrorContains(t, cfg.RequireDB(), "SCHEMADOCTOR_DB_DSN")

	t.Setenv("SCHEMADOCTOR_DB_DSN", "postgres://u:p@localhost:5432/db")
	cfg, err = Load()
	require.NoError(t, err)
	assert.NoError(t, cfg.RequireDB())
}
