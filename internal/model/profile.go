package model

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// TickBand is one tick-spacing wide band of the liquidity profile.
type TickBand struct {
	Tick                    int32           `json:"tick"`
	TickUpper               int32           `json:"tick_upper"`
	LiquidityNet            *big.Int        `json:"liquidity_net"`
	LiquidityGross          *big.Int        `json:"liquidity_gross"`
	LiquidityShape          *big.Int        `json:"liquidity_shape"`
	Liquidity               *big.Int        `json:"liquidity"`
	VirtualRatio            decimal.Decimal `json:"virtual_ratio"`
	VirtualRatioUpper       decimal.Decimal `json:"virtual_ratio_upper"`
	Ratio                   decimal.Decimal `json:"ratio"`
	RatioUpper              decimal.Decimal `json:"ratio_upper"`
	Token0UnderlyingVirtual decimal.Decimal `json:"token0_underlying_virtual"`
	Token1UnderlyingVirtual decimal.Decimal `json:"token1_underlying_virtual"`
	Token0Underlying        decimal.Decimal `json:"token0_underlying"`
	Token1Underlying        decimal.Decimal `json:"token1_underlying"`
}

// ProfileMeta identifies a stored liquidity profile.
type ProfileMeta struct {
	RunID        string          `json:"run_id"`
	Chain        string          `json:"chain"`
	Pool         string          `json:"pool"`
	Block        *uint64         `json:"block"`
	Depth        decimal.Decimal `json:"depth"`
	ActiveTick   int32           `json:"active_tick"`
	TickSpacing  int32           `json:"tick_spacing"`
	VirtualRatio decimal.Decimal `json:"virtual_ratio"`
	Token0       TokenInfo       `json:"token0"`
	Token1       TokenInfo       `json:"token1"`
}
