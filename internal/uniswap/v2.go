package uniswap

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lpbreakdown/internal/chain"
	"lpbreakdown/internal/dex"
	"lpbreakdown/internal/model"
	"lpbreakdown/internal/pricemath"
)

// DefaultLPDecimals is the decimals of every Uniswap V2 pair token.
const DefaultLPDecimals uint8 = 18

// PoolShare is the raw state of a constant-product pair plus the LP balance
// to value. LPBalance is already in whole LP tokens.
type PoolShare struct {
	Reserve0    *big.Int
	Reserve1    *big.Int
	Decimals0   uint8
	Decimals1   uint8
	TotalSupply *big.Int
	LPDecimals  uint8
	LPBalance   decimal.Decimal
}

// PoolShareValue is the pro-rata breakdown of a PoolShare.
type PoolShareValue struct {
	Reserve0    decimal.Decimal
	Reserve1    decimal.Decimal
	TotalSupply decimal.Decimal
	Share       decimal.Decimal
	Underlying0 decimal.Decimal
	Underlying1 decimal.Decimal
}

// ValuePoolShare splits the pair reserves by the balance's share of the LP
// supply. A share above one is not rejected.
func ValuePoolShare(in PoolShare) (PoolShareValue, error) {
	if in.TotalSupply == nil || in.TotalSupply.Sign() == 0 {
		return PoolShareValue{}, &EmptyPoolError{}
	}

	reserve0 := scaleDown(in.Reserve0, in.Decimals0)
	reserve1 := scaleDown(in.Reserve1, in.Decimals1)
	supply := scaleDown(in.TotalSupply, in.LPDecimals)

	share := pricemath.Quo(in.LPBalance, supply)
	return PoolShareValue{
		Reserve0:    reserve0,
		Reserve1:    reserve1,
		TotalSupply: supply,
		Share:       share,
		Underlying0: pricemath.RoundSignificant(reserve0.Mul(share), pricemath.Precision),
		Underlying1: pricemath.RoundSignificant(reserve1.Mul(share), pricemath.Precision),
	}, nil
}

// scaleDown divides a raw integer amount by 10^decimals, exactly.
func scaleDown(raw *big.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

// V2Request identifies a V2 LP position. Wallet is used by V2FromAddress,
// LPBalance by V2FromLPBalance.
type V2Request struct {
	Chain     string
	Pool      common.Address
	Wallet    common.Address
	LPBalance decimal.Decimal
	Block     *uint64
}

// V2FromAddress values the LP tokens held by a wallet.
func (v *Valuer) V2FromAddress(ctx context.Context, req V2Request) (model.V2Snapshot, error) {
	v.logger.Debug("requesting v2 lp balance",
		zap.String("chain", req.Chain),
		zap.String("pool", req.Pool.Hex()),
		zap.String("wallet", req.Wallet.Hex()),
		blockField(req.Block),
	)

	readBlock, err := v.pinBlock(ctx, req.Chain, req.Block)
	if err != nil {
		return model.V2Snapshot{}, err
	}

	call := chain.Call{
		Chain:          req.Chain,
		Interface:      req.Pool,
		Implementation: req.Pool,
		Function:       "balanceOf",
		Args:           []interface{}{req.Wallet},
		Block:          readBlock,
	}
	values, err := v.read(ctx, call, 1)
	if err != nil {
		return model.V2Snapshot{}, err
	}
	raw, err := dex.AsBigInt(values[0])
	if err != nil {
		return model.V2Snapshot{}, callErr(call, err)
	}

	req.LPBalance = scaleDown(raw, DefaultLPDecimals)
	v.logger.Info("wallet lp balance",
		zap.String("pool", req.Pool.Hex()),
		zap.String("wallet", req.Wallet.Hex()),
		zap.String("lp_balance", req.LPBalance.String()),
	)
	return v.valueLPBalance(ctx, req, readBlock)
}

// V2FromLPBalance values an explicit LP token balance.
func (v *Valuer) V2FromLPBalance(ctx context.Context, req V2Request) (model.V2Snapshot, error) {
	readBlock, err := v.pinBlock(ctx, req.Chain, req.Block)
	if err != nil {
		return model.V2Snapshot{}, err
	}
	return v.valueLPBalance(ctx, req, readBlock)
}

// valueLPBalance reads pool state at readBlock and reports req.Block.
func (v *Valuer) valueLPBalance(ctx context.Context, req V2Request, readBlock *uint64) (model.V2Snapshot, error) {
	token0, err := v.PoolToken(ctx, req.Chain, req.Pool, 0, nil)
	if err != nil {
		return model.V2Snapshot{}, err
	}
	token1, err := v.PoolToken(ctx, req.Chain, req.Pool, 1, nil)
	if err != nil {
		return model.V2Snapshot{}, err
	}

	pairCall := func(function string) chain.Call {
		return chain.Call{
			Chain:          req.Chain,
			Interface:      req.Pool,
			Implementation: req.Pool,
			Function:       function,
			Block:          readBlock,
		}
	}

	call := pairCall("totalSupply")
	values, err := v.read(ctx, call, 1)
	if err != nil {
		return model.V2Snapshot{}, err
	}
	supply, err := dex.AsBigInt(values[0])
	if err != nil {
		return model.V2Snapshot{}, callErr(call, err)
	}

	call = pairCall("getReserves")
	values, err = v.read(ctx, call, 2)
	if err != nil {
		return model.V2Snapshot{}, err
	}
	reserve0, err := dex.AsBigInt(values[0])
	if err != nil {
		return model.V2Snapshot{}, callErr(call, err)
	}
	reserve1, err := dex.AsBigInt(values[1])
	if err != nil {
		return model.V2Snapshot{}, callErr(call, err)
	}

	value, err := ValuePoolShare(PoolShare{
		Reserve0:    reserve0,
		Reserve1:    reserve1,
		Decimals0:   token0.Decimals,
		Decimals1:   token1.Decimals,
		TotalSupply: supply,
		LPDecimals:  DefaultLPDecimals,
		LPBalance:   req.LPBalance,
	})
	var empty *EmptyPoolError
	if errors.As(err, &empty) {
		empty.Chain = req.Chain
		empty.Pool = req.Pool.Hex()
		return model.V2Snapshot{}, empty
	}
	if err != nil {
		return model.V2Snapshot{}, err
	}

	v.logger.Info("v2 pool share",
		zap.String("chain", req.Chain),
		zap.String("pool", req.Pool.Hex()),
		blockField(req.Block),
		zap.String("total_supply", value.TotalSupply.String()),
		zap.String("reserve0", value.Reserve0.String()),
		zap.String("reserve1", value.Reserve1.String()),
		zap.String("share", value.Share.String()),
		zap.String("underlying0", value.Underlying0.String()),
		zap.String("underlying1", value.Underlying1.String()),
	)

	return model.V2Snapshot{
		Chain:               req.Chain,
		Block:               req.Block,
		NumLPTokens:         req.LPBalance,
		Token0:              token0,
		NumToken0Underlying: value.Underlying0,
		Token1:              token1,
		NumToken1Underlying: value.Underlying1,
	}, nil
}
