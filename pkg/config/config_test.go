package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "page-rendered", cfg.Kafka.Topics.PageRendered)
	assert.Equal(t, "page-documents", cfg.Kafka.Topics.Documents)
	assert.Equal(t, 10*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, 4, cfg.Reindex.Concurrency)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
sites:
  encryptionKey: secret
  systemName: prod
  entries:
    - name: main
      rootPageId: 1
      domain: www.example.org
      pageIds: [2, 3]
reindex:
  concurrency: 8
  batchSize: 50
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Sites.EncryptionKey)
	require.Len(t, cfg.Sites.Entries, 1)
	assert.Equal(t, []int{2, 3}, cfg.Sites.Entries[0].PageIDs)
	assert.Equal(t, 8, cfg.Reindex.Concurrency)
	// untouched sections keep their defaults
	assert.Equal(t, "page-indexer", cfg.Kafka.ConsumerGroup)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PI_SERVER_PORT", "7777")
	t.Setenv("PI_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("PI_SITES_SYSTEM_NAME", "staging")
	t.Setenv("PI_POSTGRES_HOST", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "staging", cfg.Sites.SystemName)
	assert.False(t, cfg.Postgres.Enabled())
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeConfig(t, `
sites:
  encryptionKey: ""
  entries:
    - rootPageId: 0
reindex:
  concurrency: 0
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sites.encryptionKey is required")
	assert.Contains(t, err.Error(), "sites.entries[0].rootPageId must be positive")
	assert.Contains(t, err.Error(), "sites.entries[0].domain is required")
	assert.Contains(t, err.Error(), "reindex.concurrency must be positive")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "cms", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=cms sslmode=disable", p.DSN())
}
