package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	yaml := `
general:
  instance_id: "test-node"
  environment: "development"
  log_level: "debug"

registry:
  wallets_path: "testdata/wallets.json"
  blacklist_path: "testdata/blacklist.json"
  hot_reload: true

kafka:
  enabled: true
  brokers:
    - "localhost:19092"
  schema_version: "2.0"

clickhouse:
  enabled: true
  dsn: "clickhouse://localhost:9000/sentinel_test"

redis:
  enabled: true
  addr: "localhost:16379"

connectors:
  binance:
    api_key: "bk"
    api_secret: "bs"
  cmc:
    api_key: "ck"
  rpc_endpoints:
    ETH: "https://rpc.example.org"

humanizer:
  ollama_url: "http://ollama:11434/api/generate"
  gemini_api_key: "gk"

watchdog:
  enabled: true
  interval_seconds: 30
  wallets:
    - "0xdAC17F958D2ee523a2206206994597C13D831ec7"
`
	tmpFile, err := os.CreateTemp("", "sentinel-config-*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	_, err = tmpFile.WriteString(yaml)
	require.NoError(t, err)
	tmpFile.Close()

	cfg, err := Load(tmpFile.Name())
	require.NoError(t, err)

	assert.Equal(t, "test-node", cfg.General.InstanceID)
	assert.Equal(t, "development", cfg.General.Environment)
	assert.Equal(t, "testdata/wallets.json", cfg.Registry.WalletsPath)
	assert.True(t, cfg.Registry.HotReload)
	assert.Equal(t, []string{"localhost:19092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "2.0", cfg.Kafka.SchemaVersion)
	assert.Equal(t, "clickhouse://localhost:9000/sentinel_test", cfg.ClickHouse.DSN)
	assert.Equal(t, "localhost:16379", cfg.Redis.Addr)
	assert.Equal(t, "bk", cfg.Connectors.Binance.APIKey)
	assert.Equal(t, "https://rpc.example.org", cfg.Connectors.RPCEndpoints["ETH"])
	assert.Equal(t, "http://ollama:11434/api/generate", cfg.Humanizer.OllamaURL)
	assert.True(t, cfg.Watchdog.Enabled)
	assert.Equal(t, 30, cfg.Watchdog.IntervalSeconds)
	assert.Len(t, cfg.Watchdog.Wallets, 1)
}

func TestLoadConfigDefaults(t *testing.T) {
	yaml := `
general:
  environment: "staging"
`
	tmpFile, err := os.CreateTemp("", "sentinel-config-*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	_, err = tmpFile.WriteString(yaml)
	require.NoError(t, err)
	tmpFile.Close()

	cfg, err := Load(tmpFile.Name())
	require.NoError(t, err)

	assert.Equal(t, "sentinel-1", cfg.General.InstanceID)
	assert.Equal(t, "info", cfg.General.LogLevel)
	assert.Equal(t, "configs/wallets.json", cfg.Registry.WalletsPath)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "all", cfg.Kafka.ProducerConfig.Acks)
	assert.Equal(t, "snappy", cfg.Kafka.ProducerConfig.CompressionType)
	assert.Equal(t, 500, cfg.ClickHouse.BatchSize)
	assert.Equal(t, ":8000", cfg.API.ListenAddr)
	assert.Equal(t, 60, cfg.Watchdog.IntervalSeconds)
	assert.Equal(t, "ETH", cfg.Watchdog.Network)
}

func TestLoadConfigEnvExpansion(t *testing.T) {
	os.Setenv("TEST_SENTINEL_INSTANCE", "env-node")
	defer os.Unsetenv("TEST_SENTINEL_INSTANCE")

	yaml := `
general:
  instance_id: "${TEST_SENTINEL_INSTANCE}"
`
	tmpFile, err := os.CreateTemp("", "sentinel-config-*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	_, err = tmpFile.WriteString(yaml)
	require.NoError(t, err)
	tmpFile.Close()

	cfg, err := Load(tmpFile.Name())
	require.NoError(t, err)

	assert.Equal(t, "env-node", cfg.General.InstanceID)
}
