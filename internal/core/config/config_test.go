package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Defaults(t *testing.T) {
	require.NoError(t, Init(t.TempDir()))

	c := Get()
	assert.Equal(t, "mysql", c.Database.Driver)
	assert.Equal(t, 8080, c.App.Port)
	assert.True(t, c.Aggregate.IncrementalCounts)
	assert.Equal(t, 4, c.Aggregate.RecountWorkers)
	assert.Equal(t, "127.0.0.1:6379", c.Redis.GetRedisAddr())
	assert.Equal(t, 30, c.Cache.L1TTL)
}

func TestInit_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
database:
  driver: sqlite
  path: /tmp/forum-test.db
aggregate:
  recount_workers: 0
  incremental_counts: false
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644))
	t.Setenv("FORUM_JWT_SECRET", "from-env")

	require.NoError(t, Init(dir))

	c := Get()
	assert.Equal(t, "sqlite", c.Database.Driver)
	assert.Equal(t, "/tmp/forum-test.db", c.Database.GetDSN())
	assert.False(t, c.Aggregate.IncrementalCounts)
	assert.Equal(t, 1, c.Aggregate.RecountWorkers, "workers floor at 1")
	assert.Equal(t, "from-env", c.JWT.Secret)
}

func TestInit_UnknownDriver(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("database:\n  driver: oracle\n"), 0o644))

	err := Init(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")
}
