package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// V2PositionSpec identifies a constant-product LP position, either by the
// wallet holding the LP tokens or by an explicit LP balance.
type V2PositionSpec struct {
	Chain         string           `mapstructure:"chain" json:"chain" yaml:"chain"`
	PoolAddress   string           `mapstructure:"pool_address" json:"pool_address" yaml:"pool_address"`
	WalletAddress *string          `mapstructure:"wallet_address" json:"wallet_address" yaml:"wallet_address"`
	LPBalance     *decimal.Decimal `mapstructure:"lp_balance" json:"lp_balance" yaml:"lp_balance"`
	BlockNo       *uint64          `mapstructure:"block_no" json:"block_no" yaml:"block_no"`
}

// Validate enforces that exactly one of wallet address and LP balance is set.
func (s V2PositionSpec) Validate() error {
	if s.Chain == "" || s.PoolAddress == "" {
		return errors.New("v2 position spec requires chain and pool_address")
	}
	if s.WalletAddress == nil && s.LPBalance == nil {
		return errors.New("v2 position spec must include either a wallet address or lp balance")
	}
	if s.WalletAddress != nil && s.LPBalance != nil {
		return errors.New("only one of wallet address or lp balance may be specified in a v2 position spec")
	}
	if s.WalletAddress != nil {
		if _, err := ParseAddress(*s.WalletAddress); err != nil {
			return err
		}
	}
	_, err := ParseAddress(s.PoolAddress)
	return err
}

// V3PositionSpec identifies a concentrated liquidity position NFT.
type V3PositionSpec struct {
	Chain          string  `mapstructure:"chain" json:"chain" yaml:"chain"`
	PoolAddress    string  `mapstructure:"pool_address" json:"pool_address" yaml:"pool_address"`
	NFTAddress     string  `mapstructure:"nft_address" json:"nft_address" yaml:"nft_address"`
	NFTImplAddress string  `mapstructure:"nft_impl_address" json:"nft_impl_address,omitempty" yaml:"nft_impl_address,omitempty"`
	NFTID          uint64  `mapstructure:"nft_id" json:"nft_id" yaml:"nft_id"`
	BlockNo        *uint64 `mapstructure:"block_no" json:"block_no" yaml:"block_no"`
}

// Validate checks required fields and address formats.
func (s V3PositionSpec) Validate() error {
	if s.Chain == "" || s.PoolAddress == "" || s.NFTAddress == "" {
		return errors.New("v3 position spec requires chain, pool_address and nft_address")
	}
	for _, addr := range []string{s.PoolAddress, s.NFTAddress, s.NFTImplAddress} {
		if addr == "" {
			continue
		}
		if _, err := ParseAddress(addr); err != nil {
			return err
		}
	}
	return nil
}

// Implementation returns the address whose ABI describes the position manager.
func (s V3PositionSpec) Implementation() string {
	if s.NFTImplAddress != "" {
		return s.NFTImplAddress
	}
	return s.NFTAddress
}

// PositionSpecs lists every position to report on.
type PositionSpecs struct {
	V2Positions []V2PositionSpec `mapstructure:"v2_positions"`
	V3Positions []V3PositionSpec `mapstructure:"v3_positions"`
}

// LoadPositionSpecs reads and validates a position spec file.
func LoadPositionSpecs(path string) (PositionSpecs, error) {
	if path == "" {
		return PositionSpecs{}, fmt.Errorf("position config path is required")
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return PositionSpecs{}, fmt.Errorf("read position config: %w", err)
	}

	var specs PositionSpecs
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		decimalHook,
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&specs, hook); err != nil {
		return PositionSpecs{}, fmt.Errorf("decode position config: %w", err)
	}

	for i, spec := range specs.V2Positions {
		if err := spec.Validate(); err != nil {
			return PositionSpecs{}, fmt.Errorf("v2_positions[%d]: %w", i, err)
		}
	}
	for i, spec := range specs.V3Positions {
		if err := spec.Validate(); err != nil {
			return PositionSpecs{}, fmt.Errorf("v3_positions[%d]: %w", i, err)
		}
	}
	return specs, nil
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

// decimalHook decodes strings and numbers into decimal.Decimal. Floats use
// their shortest representation so 0.1 stays 0.1.
func decimalHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != decimalType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return decimal.NewFromString(v)
	case float64:
		return decimal.NewFromString(strconv.FormatFloat(v, 'f', -1, 64))
	case float32:
		return decimal.NewFromString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case uint64:
		return decimal.NewFromString(strconv.FormatUint(v, 10))
	default:
		return nil, fmt.Errorf("cannot decode %s into decimal", from)
	}
}
