package uniswap

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lpbreakdown/internal/chain"
	"lpbreakdown/internal/dex"
	"lpbreakdown/internal/model"
	"lpbreakdown/internal/pricemath"
)

// Regime is the position of the current price relative to a range.
type Regime int

const (
	InRange Regime = iota
	BelowRange
	AboveRange
)

func (r Regime) String() string {
	switch r {
	case InRange:
		return "in_range"
	case BelowRange:
		return "below_range"
	case AboveRange:
		return "above_range"
	default:
		return fmt.Sprintf("regime(%d)", int(r))
	}
}

// ClassifyPrice places price against [lower, upper]. Both bounds count as in
// range.
func ClassifyPrice(price, lower, upper decimal.Decimal) Regime {
	if price.GreaterThan(upper) {
		return AboveRange
	}
	if price.LessThan(lower) {
		return BelowRange
	}
	return InRange
}

// RangeAmounts returns the virtual (undecimalled) token amounts held by
// liquidity over [lower, upper] at price. lower must be positive.
func RangeAmounts(price, lower, upper, liquidity decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if lower.Sign() <= 0 {
		return decimal.Zero, decimal.Zero, fmt.Errorf("range lower price must be positive, got %s", lower)
	}
	if lower.GreaterThan(upper) {
		return decimal.Zero, decimal.Zero, fmt.Errorf("range lower price %s above upper %s", lower, upper)
	}

	sqrtLower := pricemath.Sqrt(lower)
	sqrtUpper := pricemath.Sqrt(upper)

	switch ClassifyPrice(price, lower, upper) {
	case AboveRange:
		amount1 := liquidity.Mul(sqrtUpper.Sub(sqrtLower))
		return decimal.Zero, pricemath.RoundSignificant(amount1, pricemath.Precision), nil
	case BelowRange:
		amount0 := pricemath.Quo(liquidity.Mul(sqrtUpper.Sub(sqrtLower)), sqrtLower.Mul(sqrtUpper))
		return amount0, decimal.Zero, nil
	default:
		sqrtPrice := pricemath.Sqrt(price)
		amount0 := pricemath.Quo(liquidity.Mul(sqrtUpper.Sub(sqrtPrice)), sqrtPrice.Mul(sqrtLower))
		amount1 := liquidity.Mul(sqrtPrice.Sub(sqrtLower))
		return amount0, pricemath.RoundSignificant(amount1, pricemath.Precision), nil
	}
}

// AdjustDecimals converts a raw token amount into whole tokens.
func AdjustDecimals(amount decimal.Decimal, decimals uint8) decimal.Decimal {
	return amount.Shift(-int32(decimals))
}

// DisplayAdjustment is the factor turning a virtual ratio into a display
// ratio: 10^(decimals0 - decimals1).
func DisplayAdjustment(decimals0, decimals1 uint8) decimal.Decimal {
	return pricemath.Pow10(int32(decimals0) - int32(decimals1))
}

// V3Request identifies a position NFT. NFTImpl is the position manager
// implementation used for ABI lookup and defaults to NFT.
type V3Request struct {
	Chain   string
	Pool    common.Address
	NFT     common.Address
	NFTImpl common.Address
	TokenID uint64
	Block   *uint64
}

// V3Position values a concentrated liquidity position.
func (v *Valuer) V3Position(ctx context.Context, req V3Request) (model.V3PositionSnapshot, error) {
	poolABI, err := dex.V3PoolABI()
	if err != nil {
		return model.V3PositionSnapshot{}, fmt.Errorf("parse pool abi: %w", err)
	}

	log := v.logger.With(
		zap.String("chain", req.Chain),
		zap.String("pool", req.Pool.Hex()),
		zap.Uint64("token_id", req.TokenID),
		blockField(req.Block),
	)
	log.Debug("requesting v3 position")

	token0, err := v.PoolToken(ctx, req.Chain, req.Pool, 0, &poolABI)
	if err != nil {
		return model.V3PositionSnapshot{}, err
	}
	token1, err := v.PoolToken(ctx, req.Chain, req.Pool, 1, &poolABI)
	if err != nil {
		return model.V3PositionSnapshot{}, err
	}

	readBlock, err := v.pinBlock(ctx, req.Chain, req.Block)
	if err != nil {
		return model.V3PositionSnapshot{}, err
	}

	slot0, err := v.readSlot0(ctx, req.Chain, req.Pool, readBlock)
	if err != nil {
		return model.V3PositionSnapshot{}, err
	}
	price := pricemath.PriceFromSqrtX96(slot0.sqrtPriceX96)
	log.Info("pool price", zap.String("price", price.String()))

	impl := req.NFTImpl
	if impl == (common.Address{}) {
		impl = req.NFT
	}
	call := chain.Call{
		Chain:          req.Chain,
		Interface:      req.NFT,
		Implementation: impl,
		Function:       "positions",
		Args:           []interface{}{new(big.Int).SetUint64(req.TokenID)},
		Block:          readBlock,
	}
	values, err := v.read(ctx, call, 8)
	if err != nil {
		return model.V3PositionSnapshot{}, err
	}
	tickLower, err := asTick(values[5])
	if err != nil {
		return model.V3PositionSnapshot{}, callErr(call, fmt.Errorf("tickLower: %w", err))
	}
	tickUpper, err := asTick(values[6])
	if err != nil {
		return model.V3PositionSnapshot{}, callErr(call, fmt.Errorf("tickUpper: %w", err))
	}
	liquidity, err := dex.AsBigInt(values[7])
	if err != nil {
		return model.V3PositionSnapshot{}, callErr(call, fmt.Errorf("liquidity: %w", err))
	}

	lowerPrice := pricemath.TickToPrice(int64(tickLower))
	upperPrice := pricemath.TickToPrice(int64(tickUpper))
	log.Info("position range",
		zap.String("lower", lowerPrice.String()),
		zap.String("upper", upperPrice.String()),
		zap.String("liquidity", liquidity.String()),
	)

	regime := ClassifyPrice(price, lowerPrice, upperPrice)
	log.Debug("price regime", zap.Stringer("regime", regime))

	amount0, amount1, err := RangeAmounts(price, lowerPrice, upperPrice, decimal.NewFromBigInt(liquidity, 0))
	if err != nil {
		return model.V3PositionSnapshot{}, err
	}
	underlying0 := AdjustDecimals(amount0, token0.Decimals)
	underlying1 := AdjustDecimals(amount1, token1.Decimals)
	log.Info("v3 underlying",
		zap.String("underlying0", underlying0.String()),
		zap.String("underlying1", underlying1.String()),
	)

	adjustment := DisplayAdjustment(token0.Decimals, token1.Decimals)
	return model.V3PositionSnapshot{
		Chain:               req.Chain,
		Block:               req.Block,
		TokenID:             req.TokenID,
		CurrentRatio:        price.Mul(adjustment),
		LowerTick:           lowerPrice.Mul(adjustment),
		UpperTick:           upperPrice.Mul(adjustment),
		Token0:              token0,
		NumToken0Underlying: underlying0,
		Token1:              token1,
		NumToken1Underlying: underlying1,
	}, nil
}

type slot0State struct {
	sqrtPriceX96 *big.Int
	tick         int32
}

func (v *Valuer) readSlot0(ctx context.Context, chainName string, pool common.Address, block *uint64) (slot0State, error) {
	poolABI, err := dex.V3PoolABI()
	if err != nil {
		return slot0State{}, fmt.Errorf("parse pool abi: %w", err)
	}
	call := chain.Call{
		Chain:          chainName,
		Interface:      pool,
		Implementation: pool,
		Function:       "slot0",
		Block:          block,
		ABI:            &poolABI,
	}
	values, err := v.read(ctx, call, 2)
	if err != nil {
		return slot0State{}, err
	}
	sqrtPrice, err := dex.AsBigInt(values[0])
	if err != nil {
		return slot0State{}, callErr(call, fmt.Errorf("sqrtPriceX96: %w", err))
	}
	tick, err := asTick(values[1])
	if err != nil {
		return slot0State{}, callErr(call, fmt.Errorf("tick: %w", err))
	}
	return slot0State{sqrtPriceX96: sqrtPrice, tick: tick}, nil
}

func asTick(value interface{}) (int32, error) {
	raw, err := dex.AsBigInt(value)
	if err != nil {
		return 0, err
	}
	return dex.Int24FromBig(raw)
}
