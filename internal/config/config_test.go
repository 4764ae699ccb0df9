package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Dialect)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 4, cfg.Sync.Concurrency)
	assert.Equal(t, DefaultVectorLength, cfg.Sync.EmbeddingVectorLength)
	assert.Equal(t, "idx_", cfg.Sync.IndexPrefix)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "dbsync.yaml")
	content := `
database:
  dialect: MySQL
  host: db.internal
  port: 3306
  name: shop
sync:
  concurrency: 2
  dry_run: true
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))
	t.Setenv("DBSYNC_DATABASE_USER", "svc")
	t.Setenv("DBSYNC_LOG_LEVEL", "debug")

	cfg, err := Load(NewViper(), file)
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Database.Dialect)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, "shop", cfg.Database.DBName)
	assert.Equal(t, "svc", cfg.Database.User)
	assert.Equal(t, 2, cfg.Sync.Concurrency)
	assert.True(t, cfg.Sync.DryRun)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestEmbeddingVectorLengthEnv(t *testing.T) {
	t.Setenv("EMBEDDING_VECTOR_LENGTH", "768")
	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, 768, cfg.Sync.EmbeddingVectorLength)

	t.Setenv("DBSYNC_SYNC_EMBEDDING_VECTOR_LENGTH", "256")
	cfg, err = Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.Sync.EmbeddingVectorLength, "prefixed key wins")

	t.Setenv("DBSYNC_SYNC_EMBEDDING_VECTOR_LENGTH", "")
	os.Unsetenv("DBSYNC_SYNC_EMBEDDING_VECTOR_LENGTH")
	t.Setenv("EMBEDDING_VECTOR_LENGTH", "many")
	_, err = Load(NewViper(), "")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing dialect", func(c *Config) { c.Database.Dialect = "" }},
		{"zero concurrency", func(c *Config) { c.Sync.Concurrency = 0 }},
		{"zero vector length", func(c *Config) { c.Sync.EmbeddingVectorLength = 0 }},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, GetConfig().Validate())
}

func TestCurrentFallsBackToDefaults(t *testing.T) {
	SetConfig(nil)
	assert.Equal(t, GetConfig(), Current())

	custom := GetConfig()
	custom.Database.Dialect = "oracle"
	SetConfig(custom)
	defer SetConfig(nil)
	assert.Equal(t, "oracle", Current().Database.Dialect)
}
