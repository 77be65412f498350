package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Sentinel.
type Config struct {
	General    GeneralConfig    `yaml:"general"`
	Registry   RegistryConfig   `yaml:"registry"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Redis      RedisConfig      `yaml:"redis"`
	Connectors ConnectorsConfig `yaml:"connectors"`
	Humanizer  HumanizerConfig  `yaml:"humanizer"`
	API        APIConfig        `yaml:"api"`
	Watchdog   WatchdogConfig   `yaml:"watchdog"`
}

type GeneralConfig struct {
	InstanceID  string `yaml:"instance_id"`
	Environment string `yaml:"environment"` // production|staging|development
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"` // json|text
}

type RegistryConfig struct {
	WalletsPath   string `yaml:"wallets_path"`
	BlacklistPath string `yaml:"blacklist_path"`
	HotReload     bool   `yaml:"hot_reload"`
}

type KafkaConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Brokers        []string `yaml:"brokers"`
	SchemaVersion  string   `yaml:"schema_version"`
	ProducerConfig struct {
		Acks            string `yaml:"acks"` // all|1|0
		LingerMs        int    `yaml:"linger_ms"`
		CompressionType string `yaml:"compression_type"` // snappy|lz4|zstd|none
	} `yaml:"producer"`
}

type ClickHouseConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DSN          string `yaml:"dsn"`
	Database     string `yaml:"database"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	BatchSize    int    `yaml:"batch_size"`
	FlushSeconds int    `yaml:"flush_seconds"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ConnectorsConfig struct {
	Binance struct {
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
	} `yaml:"binance"`
	CMC struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"cmc"`
	Alchemy struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"alchemy"`
	Perplexity struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"perplexity"`
	RPCEndpoints map[string]string `yaml:"rpc_endpoints"` // network label -> RPC URL
}

type HumanizerConfig struct {
	OllamaURL    string `yaml:"ollama_url"`
	OllamaModel  string `yaml:"ollama_model"`
	GeminiAPIKey string `yaml:"gemini_api_key"`
	GroqAPIKey   string `yaml:"groq_api_key"`
}

type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type WatchdogConfig struct {
	Enabled         bool     `yaml:"enabled"`
	IntervalSeconds int      `yaml:"interval_seconds"`
	Wallets         []string `yaml:"wallets"` // monitored EVM addresses
	Network         string   `yaml:"network"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Apply defaults
	applyDefaults(cfg)

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.General.InstanceID == "" {
		cfg.General.InstanceID = "sentinel-1"
	}
	if cfg.General.Environment == "" {
		cfg.General.Environment = "development"
	}
	if cfg.General.LogLevel == "" {
		cfg.General.LogLevel = "info"
	}
	if cfg.General.LogFormat == "" {
		cfg.General.LogFormat = "json"
	}
	if cfg.Registry.WalletsPath == "" {
		cfg.Registry.WalletsPath = "configs/wallets.json"
	}
	if cfg.Registry.BlacklistPath == "" {
		cfg.Registry.BlacklistPath = "configs/blacklist.json"
	}
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{"localhost:9092"}
	}
	if cfg.Kafka.SchemaVersion == "" {
		cfg.Kafka.SchemaVersion = "1.0"
	}
	if cfg.Kafka.ProducerConfig.Acks == "" {
		cfg.Kafka.ProducerConfig.Acks = "all"
	}
	if cfg.Kafka.ProducerConfig.CompressionType == "" {
		cfg.Kafka.ProducerConfig.CompressionType = "snappy"
	}
	if cfg.ClickHouse.DSN == "" {
		cfg.ClickHouse.DSN = "clickhouse://localhost:9000/sentinel"
	}
	if cfg.ClickHouse.Database == "" {
		cfg.ClickHouse.Database = "sentinel"
	}
	if cfg.ClickHouse.MaxOpenConns == 0 {
		cfg.ClickHouse.MaxOpenConns = 10
	}
	if cfg.ClickHouse.BatchSize == 0 {
		cfg.ClickHouse.BatchSize = 500
	}
	if cfg.ClickHouse.FlushSeconds == 0 {
		cfg.ClickHouse.FlushSeconds = 5
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.API.ListenAddr == "" {
		cfg.API.ListenAddr = ":8000"
	}
	if cfg.Watchdog.IntervalSeconds == 0 {
		cfg.Watchdog.IntervalSeconds = 60
	}
	if cfg.Watchdog.Network == "" {
		cfg.Watchdog.Network = "ETH"
	}
}
