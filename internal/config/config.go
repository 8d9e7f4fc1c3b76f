package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Common holds settings shared by every command.
type Common struct {
	ChainConfig  string
	ABICache     string
	PGDSN        string
	MaxRetries   int
	RetryBackoff time.Duration
	ExplorerRPS  float64
	LogLevel     string
	LogFile      string
}

// ReportConfig holds configuration for the report command.
type ReportConfig struct {
	Common
	PositionConfig string
	Out            string
	Format         string
}

// LoadReport merges config file, environment variables, and flags into ReportConfig.
func LoadReport(cfgFile string, flags *pflag.FlagSet) (ReportConfig, error) {
	v := viper.New()
	v.SetDefault("format", "json")
	if err := v.BindEnv("position-config", "BREAKDOWN_POSITION_CONFIG", "POSITION_CONFIG_PATH"); err != nil {
		return ReportConfig{}, fmt.Errorf("bind env: %w", err)
	}

	if err := load(v, cfgFile, flags); err != nil {
		return ReportConfig{}, err
	}

	cfg := ReportConfig{
		Common:         commonFrom(v),
		PositionConfig: v.GetString("position-config"),
		Out:            v.GetString("out"),
		Format:         strings.ToLower(v.GetString("format")),
	}
	return cfg, nil
}

func load(v *viper.Viper, cfgFile string, flags *pflag.FlagSet) error {
	v.SetEnvPrefix("BREAKDOWN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("explorer-rps", 5.0)
	v.SetDefault("log-level", "info")

	// Names used by earlier releases of the tool.
	if err := v.BindEnv("chain-config", "BREAKDOWN_CHAIN_CONFIG", "CHAIN_CONFIG_PATH"); err != nil {
		return fmt.Errorf("bind env: %w", err)
	}
	if err := v.BindEnv("abi-cache", "BREAKDOWN_ABI_CACHE", "CACHE_PATH"); err != nil {
		return fmt.Errorf("bind env: %w", err)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return fmt.Errorf("read config: %w", err)
			}
		}
	}
	return nil
}

func commonFrom(v *viper.Viper) Common {
	return Common{
		ChainConfig:  v.GetString("chain-config"),
		ABICache:     v.GetString("abi-cache"),
		PGDSN:        v.GetString("pg-dsn"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		ExplorerRPS:  v.GetFloat64("explorer-rps"),
		LogLevel:     v.GetString("log-level"),
		LogFile:      v.GetString("log-file"),
	}
}
