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
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8082", cfg.Address)
	assert.Len(t, cfg.DBDSNs, 1)
	assert.Equal(t, 5*time.Second, cfg.OrderTimeout)
	assert.Equal(t, []string{"localhost:9092", "localhost:9093", "localhost:9094"}, cfg.KafkaBrokers)
	assert.Equal(t, "order-topic", cfg.KafkaOrderTopic)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DB_DSNS=a,b,c\nORDER_TIMEOUT=250ms\nLOG_FORMAT=console\n"), 0o600))
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ADDRESS", ":9000")
	t.Cleanup(func() {
		os.Unsetenv("DB_DSNS")
		os.Unsetenv("ORDER_TIMEOUT")
		os.Unsetenv("LOG_FORMAT")
	})

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, cfg.DBDSNs)
	assert.Equal(t, 250*time.Millisecond, cfg.OrderTimeout)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, ":9000", cfg.Address)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
