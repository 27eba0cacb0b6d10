package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetConfig(t *testing.T) {
	saved := *globalConfig
	t.Cleanup(func() { *globalConfig = saved })
}

func TestLoadDefaults(t *testing.T) {
	resetConfig(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, int64(1337), cfg.Exchange.ChainID)
	assert.Equal(t, 5*time.Minute, cfg.Whitelist.TransactionTTL)
	assert.Same(t, cfg, GetConfig())
}

func TestLoadFileAndEnv(t *testing.T) {
	resetConfig(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
logging:
  level: debug
storage:
  inMemory: true
exchange:
  chainId: 1
  feeToken: "0x0000000000000000000000000000000000000abc"
whitelist:
  transactionTtl: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("DEBUG_PORT", "9090")
	t.Setenv("LOGGING_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.True(t, cfg.Storage.InMemory)
	assert.Equal(t, int64(1), cfg.Exchange.ChainID)
	assert.Equal(t, "0x0000000000000000000000000000000000000abc", cfg.Exchange.FeeToken)
	assert.Equal(t, 30*time.Second, cfg.Whitelist.TransactionTTL)
	assert.Equal(t, uint(9090), cfg.Debug.ListenPort)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		resetConfig(t)
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
	t.Run("bad chain id", func(t *testing.T) {
		resetConfig(t)
		t.Setenv("EXCHANGE_CHAIN_ID", "0")
		_, err := Load("")
		assert.Error(t, err)
	})
	t.Run("bad yaml", func(t *testing.T) {
		resetConfig(t)
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("logging: [1, 2"), 0o600))
		_, err := Load(path)
		assert.Error(t, err)
	})
}
