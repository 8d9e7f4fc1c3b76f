package uniswap

import (
	"context"
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lpbreakdown/internal/chain"
	"lpbreakdown/internal/dex"
	"lpbreakdown/internal/model"
	"lpbreakdown/internal/pricemath"
)

const (
	// Ticks indexed by one tick bitmap word.
	tickBitmapWordLength = 256
	bpsPer100            = 10000
)

// FloorDiv divides rounding toward negative infinity. It panics when b is
// zero, like the / operator.
func FloorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// WordDepth is the number of bitmap words to scan on each side of the active
// word so that depth (a fraction of price, one tick ~ one basis point) is
// covered: ceil(depth*10000 / (256*tickSpacing)). tickSpacing must be
// positive; WordRange checks it.
func WordDepth(depth decimal.Decimal, tickSpacing int32) int64 {
	num := depth.Mul(decimal.NewFromInt(bpsPer100)).Rat()
	den := new(big.Rat).SetInt64(int64(tickBitmapWordLength) * int64(tickSpacing))
	q := new(big.Rat).Quo(num, den)

	// ceil(n/d) == -floor(-n/d); big.Int.Div is Euclidean, a floor for d > 0.
	n := new(big.Int).Neg(q.Num())
	floor := new(big.Int).Div(n, q.Denom())
	return new(big.Int).Neg(floor).Int64()
}

// WordRange lists the bitmap words to scan, highest first.
func WordRange(activeTick, tickSpacing int32, depth decimal.Decimal) ([]int64, error) {
	if tickSpacing <= 0 {
		return nil, fmt.Errorf("non-positive tick spacing %d", tickSpacing)
	}
	compressed := FloorDiv(int64(activeTick), int64(tickSpacing))
	word := FloorDiv(compressed, tickBitmapWordLength)
	wordDepth := WordDepth(depth, tickSpacing)
	if wordDepth < 0 {
		return nil, nil
	}

	words := make([]int64, 0, 2*wordDepth+1)
	for w := word + wordDepth; w >= word-wordDepth; w-- {
		words = append(words, w)
	}
	return words, nil
}

// WordFetcher lists the initialized ticks in one bitmap word.
type WordFetcher func(ctx context.Context, word int64) ([]model.TickRecord, error)

// ScanTicks fetches every word and concatenates the results in the order of
// words, keeping each word's own order. Up to concurrency fetches run at
// once. The first failure cancels the rest and fails the scan.
func ScanTicks(ctx context.Context, words []int64, fetch WordFetcher, concurrency int) ([]model.TickRecord, error) {
	results := make([][]model.TickRecord, len(words))

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, word := range words {
		i, word := i, word
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return &PartialScanError{Word: word, Err: err}
			}
			ticks, err := fetch(gctx, word)
			if err != nil {
				return &PartialScanError{Word: word, Err: err}
			}
			results[i] = ticks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	ticks := make([]model.TickRecord, 0, total)
	for _, r := range results {
		ticks = append(ticks, r...)
	}
	return ticks, nil
}

// TickRequest identifies a pool to profile. A zero TickLens is looked up in
// the chain resources.
type TickRequest struct {
	Chain    string
	Pool     common.Address
	TickLens common.Address
	Depth    decimal.Decimal
	Block    *uint64
}

// TickProfile reads the pool state and the initialized ticks within depth
// of the active tick.
func (v *Valuer) TickProfile(ctx context.Context, req TickRequest) (model.TickProfileSnapshot, error) {
	tickLens, err := v.tickLensAddress(req)
	if err != nil {
		return model.TickProfileSnapshot{}, err
	}

	log := v.logger.With(
		zap.String("chain", req.Chain),
		zap.String("pool", req.Pool.Hex()),
		blockField(req.Block),
	)
	log.Debug("requesting pool tick liquidity")

	poolABI, err := dex.V3PoolABI()
	if err != nil {
		return model.TickProfileSnapshot{}, fmt.Errorf("parse pool abi: %w", err)
	}
	lensABI, err := dex.TickLensABI()
	if err != nil {
		return model.TickProfileSnapshot{}, fmt.Errorf("parse tick lens abi: %w", err)
	}

	token0, err := v.PoolToken(ctx, req.Chain, req.Pool, 0, &poolABI)
	if err != nil {
		return model.TickProfileSnapshot{}, err
	}
	token1, err := v.PoolToken(ctx, req.Chain, req.Pool, 1, &poolABI)
	if err != nil {
		return model.TickProfileSnapshot{}, err
	}

	readBlock, err := v.pinBlock(ctx, req.Chain, req.Block)
	if err != nil {
		return model.TickProfileSnapshot{}, err
	}

	slot0, err := v.readSlot0(ctx, req.Chain, req.Pool, readBlock)
	if err != nil {
		return model.TickProfileSnapshot{}, err
	}
	virtualRatio := pricemath.PriceFromSqrtX96(slot0.sqrtPriceX96)

	poolCall := func(function string) chain.Call {
		return chain.Call{
			Chain:          req.Chain,
			Interface:      req.Pool,
			Implementation: req.Pool,
			Function:       function,
			Block:          readBlock,
			ABI:            &poolABI,
		}
	}

	call := poolCall("liquidity")
	values, err := v.read(ctx, call, 1)
	if err != nil {
		return model.TickProfileSnapshot{}, err
	}
	activeLiquidity, err := dex.AsBigInt(values[0])
	if err != nil {
		return model.TickProfileSnapshot{}, callErr(call, err)
	}

	call = poolCall("tickSpacing")
	values, err = v.read(ctx, call, 1)
	if err != nil {
		return model.TickProfileSnapshot{}, err
	}
	tickSpacing, err := asTick(values[0])
	if err != nil {
		return model.TickProfileSnapshot{}, callErr(call, err)
	}

	words, err := WordRange(slot0.tick, tickSpacing, req.Depth)
	if err != nil {
		return model.TickProfileSnapshot{}, callErr(call, err)
	}
	log.Info("scanning tick bitmap",
		zap.Int32("active_tick", slot0.tick),
		zap.Int32("tick_spacing", tickSpacing),
		zap.String("active_liquidity", activeLiquidity.String()),
		zap.Int("words", len(words)),
	)

	fetch := func(ctx context.Context, word int64) ([]model.TickRecord, error) {
		if word < math.MinInt16 || word > math.MaxInt16 {
			return nil, fmt.Errorf("bitmap word %d out of int16 range", word)
		}
		call := chain.Call{
			Chain:          req.Chain,
			Interface:      tickLens,
			Implementation: tickLens,
			Function:       "getPopulatedTicksInWord",
			Args:           []interface{}{req.Pool, int16(word)},
			Block:          readBlock,
			ABI:            &lensABI,
		}
		values, err := v.read(ctx, call, 1)
		if err != nil {
			return nil, err
		}
		ticks, err := dex.TickRecords(values[0])
		if err != nil {
			return nil, callErr(call, err)
		}
		return ticks, nil
	}

	ticks, err := ScanTicks(ctx, words, fetch, v.concurrency)
	if err != nil {
		return model.TickProfileSnapshot{}, err
	}
	log.Debug("initialized ticks", zap.Int("count", len(ticks)))

	return model.TickProfileSnapshot{
		Chain:           req.Chain,
		Block:           req.Block,
		VirtualRatio:    virtualRatio,
		ActiveTick:      slot0.tick,
		ActiveLiquidity: activeLiquidity,
		Token0:          token0,
		Token1:          token1,
		TickSpacing:     tickSpacing,
		Ticks:           ticks,
	}, nil
}

func (v *Valuer) tickLensAddress(req TickRequest) (common.Address, error) {
	if req.TickLens != (common.Address{}) {
		return req.TickLens, nil
	}
	if v.chains == nil {
		return common.Address{}, &MissingTickLensAddressError{Chain: req.Chain}
	}
	res, err := v.chains.Resolve(req.Chain)
	if err != nil {
		return common.Address{}, err
	}
	if res.TickLensAddress == "" {
		v.logger.Error("no tick lens address", zap.String("chain", req.Chain), zap.String("pool", req.Pool.Hex()))
		return common.Address{}, &MissingTickLensAddressError{Chain: req.Chain}
	}
	if !common.IsHexAddress(res.TickLensAddress) {
		return common.Address{}, fmt.Errorf("invalid tick lens address for chain %s: %s", req.Chain, res.TickLensAddress)
	}
	return common.HexToAddress(res.TickLensAddress), nil
}
