package config

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// TicksConfig holds configuration for the ticks command.
type TicksConfig struct {
	Common
	Chain       string
	Pool        string
	TickLens    string
	Depth       decimal.Decimal
	Block       *uint64
	Concurrency int
	Out         string
	Format      string
}

// LoadTicks merges config file, environment variables, and flags into TicksConfig.
func LoadTicks(cfgFile string, flags *pflag.FlagSet) (TicksConfig, error) {
	v := viper.New()
	v.SetDefault("depth", "0.025")
	v.SetDefault("concurrency", 4)
	v.SetDefault("out", "./data/ticks.jsonl")
	v.SetDefault("format", "jsonl")

	if err := load(v, cfgFile, flags); err != nil {
		return TicksConfig{}, err
	}

	depth, err := decimal.NewFromString(strings.TrimSpace(v.GetString("depth")))
	if err != nil {
		return TicksConfig{}, fmt.Errorf("parse depth: %w", err)
	}
	if depth.Sign() <= 0 {
		return TicksConfig{}, fmt.Errorf("depth must be positive")
	}

	cfg := TicksConfig{
		Common:      commonFrom(v),
		Chain:       v.GetString("chain"),
		Pool:        v.GetString("pool"),
		TickLens:    v.GetString("tick-lens"),
		Depth:       depth,
		Block:       optionalBlock(v, "block"),
		Concurrency: v.GetInt("concurrency"),
		Out:         v.GetString("out"),
		Format:      strings.ToLower(v.GetString("format")),
	}
	return cfg, nil
}

// optionalBlock treats zero as "latest".
func optionalBlock(v *viper.Viper, key string) *uint64 {
	block := v.GetUint64(key)
	if block == 0 {
		return nil
	}
	return &block
}
