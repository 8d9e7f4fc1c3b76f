package model

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// V2Snapshot is the underlying breakdown of a constant-product LP position.
type V2Snapshot struct {
	Chain               string          `json:"chain" yaml:"chain"`
	Block               *uint64         `json:"block" yaml:"block"`
	NumLPTokens         decimal.Decimal `json:"num_lp_tokens" yaml:"num_lp_tokens"`
	Token0              TokenInfo       `json:"token0" yaml:"token0"`
	NumToken0Underlying decimal.Decimal `json:"num_token0_underlying" yaml:"num_token0_underlying"`
	Token1              TokenInfo       `json:"token1" yaml:"token1"`
	NumToken1Underlying decimal.Decimal `json:"num_token1_underlying" yaml:"num_token1_underlying"`
}

// V3PositionSnapshot is the underlying breakdown of a concentrated liquidity
// position. Ratios are decimal adjusted for display.
type V3PositionSnapshot struct {
	Chain               string          `json:"chain" yaml:"chain"`
	Block               *uint64         `json:"block" yaml:"block"`
	TokenID             uint64          `json:"token_id" yaml:"token_id"`
	CurrentRatio        decimal.Decimal `json:"current_ratio" yaml:"current_ratio"`
	LowerTick           decimal.Decimal `json:"lower_tick" yaml:"lower_tick"`
	UpperTick           decimal.Decimal `json:"upper_tick" yaml:"upper_tick"`
	Token0              TokenInfo       `json:"token0" yaml:"token0"`
	NumToken0Underlying decimal.Decimal `json:"num_token0_underlying" yaml:"num_token0_underlying"`
	Token1              TokenInfo       `json:"token1" yaml:"token1"`
	NumToken1Underlying decimal.Decimal `json:"num_token1_underlying" yaml:"num_token1_underlying"`
}

// TickRecord is an initialized tick as returned by the tick lens.
type TickRecord struct {
	Tick           int32    `json:"tick"`
	LiquidityNet   *big.Int `json:"liquidity_net"`
	LiquidityGross *big.Int `json:"liquidity_gross"`
}

// TickProfileSnapshot holds the pool state needed to rebuild the liquidity
// profile. Ticks are in scan order (descending).
type TickProfileSnapshot struct {
	Chain           string          `json:"chain"`
	Block           *uint64         `json:"block"`
	VirtualRatio    decimal.Decimal `json:"virtual_ratio"`
	ActiveTick      int32           `json:"active_tick"`
	ActiveLiquidity *big.Int        `json:"active_liquidity"`
	Token0          TokenInfo       `json:"token0"`
	Token1          TokenInfo       `json:"token1"`
	TickSpacing     int32           `json:"tick_spacing"`
	Ticks           []TickRecord    `json:"ticks"`
}
