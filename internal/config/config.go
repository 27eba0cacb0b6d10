package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Debug     DebugConfig     `yaml:"debug"`
	Storage   StorageConfig   `yaml:"storage"`
	Exchange  ExchangeConfig  `yaml:"exchange"`
	Whitelist WhitelistConfig `yaml:"whitelist"`
}

type LoggingConfig struct {
	Level string `yaml:"level" envconfig:"LOGGING_LEVEL"`
}

type DebugConfig struct {
	ListenAddress string `yaml:"address" envconfig:"DEBUG_ADDRESS"`
	ListenPort    uint   `yaml:"port" envconfig:"DEBUG_PORT"`
}

type StorageConfig struct {
	Directory string `yaml:"dir" envconfig:"STORAGE_DIR"`
	InMemory  bool   `yaml:"inMemory" envconfig:"STORAGE_IN_MEMORY"`
}

type ExchangeConfig struct {
	ChainID int64 `yaml:"chainId" envconfig:"EXCHANGE_CHAIN_ID"`
	// Address overrides the deployment address for ChainID
	Address string `yaml:"address" envconfig:"EXCHANGE_ADDRESS"`
	// FeeToken overrides the fee token for ChainID
	FeeToken string `yaml:"feeToken" envconfig:"EXCHANGE_FEE_TOKEN"`
}

type WhitelistConfig struct {
	TransactionTTL time.Duration `yaml:"transactionTtl" envconfig:"WHITELIST_TRANSACTION_TTL"`
}

// Singleton config instance with default values
var globalConfig = &Config{
	Logging: LoggingConfig{
		Level: "info",
	},
	Debug: DebugConfig{
		ListenAddress: "localhost",
		ListenPort:    0,
	},
	Storage: StorageConfig{
		Directory: "./.settlement",
	},
	Exchange: ExchangeConfig{
		ChainID: 1337,
	},
	Whitelist: WhitelistConfig{
		TransactionTTL: 5 * time.Minute,
	},
}

func Load(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		err = yaml.Unmarshal(buf, globalConfig)
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Load config values from environment variables
	// We use "dummy" as the app name here to (mostly) prevent picking up env
	// vars that we hadn't explicitly specified in annotations above
	err := envconfig.Process("dummy", globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if globalConfig.Exchange.ChainID <= 0 {
		return nil, fmt.Errorf("invalid chain id: %d", globalConfig.Exchange.ChainID)
	}
	if globalConfig.Whitelist.TransactionTTL <= 0 {
		return nil, fmt.Errorf("invalid whitelist transaction ttl: %s", globalConfig.Whitelist.TransactionTTL)
	}
	return globalConfig, nil
}

// Return global config instance
func GetConfig() *Config {
	return globalConfig
}
