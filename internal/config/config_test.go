package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaultsAndEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("MYSQL_PORT", "3307")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Database.Type)
	assert.Equal(t, 3307, cfg.Database.MySQL.Port)
	assert.Equal(t, "property-images", cfg.Storage.Bucket)
	assert.Equal(t, "test-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.Auth.GetTokenTTL())
}

func TestLoadConfig_YAMLOverridesDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
database:
  type: postgres
storage:
  bucket: photos
  public_base_url: https://cdn.example.com/storage/v1/object/public
auth:
  jwt_secret: from-file
cleanup:
  enabled: true
  daily_run_time: "04:30"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "photos", cfg.Storage.Bucket)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, "04:30", cfg.Cleanup.DailyRunTime)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown database", "database:\n  type: sqlite\nauth:\n  jwt_secret: x\n"},
		{"missing secret", "auth:\n  jwt_secret: \"\"\n"},
		{"bad run time", "auth:\n  jwt_secret: x\ncleanup:\n  enabled: true\n  daily_run_time: \"25:99\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o600))

			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestParseDailyRunTime(t *testing.T) {
	spec, err := ParseDailyRunTime("02:00")
	require.NoError(t, err)
	assert.Equal(t, "0 2 * * *", spec)

	spec, err = ParseDailyRunTime("23:45")
	require.NoError(t, err)
	assert.Equal(t, "45 23 * * *", spec)

	_, err = ParseDailyRunTime("noon")
	assert.Error(t, err)
}
