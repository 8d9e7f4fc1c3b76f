package uniswap

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"lpbreakdown/internal/chain"
	"lpbreakdown/internal/pricemath"
)

var (
	v3Pool      = common.HexToAddress("0xCBCdF9626bC03E24f779434178A73a0B4bad62eD")
	positionNFT = common.HexToAddress("0xC36442b4a4522E871399CD717aBDD847Ab11FE88")
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func closeTo(t *testing.T, want, got decimal.Decimal) {
	t.Helper()
	tolerance := want.Abs().Mul(decimal.New(1, -40))
	if tolerance.IsZero() {
		tolerance = decimal.New(1, -40)
	}
	diff := want.Sub(got).Abs()
	require.True(t, diff.LessThanOrEqual(tolerance), "want %s got %s", want, got)
}

func TestClassifyPrice(t *testing.T) {
	lower, upper := dec("100"), dec("200")
	require.Equal(t, AboveRange, ClassifyPrice(dec("300"), lower, upper))
	require.Equal(t, BelowRange, ClassifyPrice(dec("50"), lower, upper))
	require.Equal(t, InRange, ClassifyPrice(dec("150"), lower, upper))
	require.Equal(t, InRange, ClassifyPrice(lower, lower, upper))
	require.Equal(t, InRange, ClassifyPrice(upper, lower, upper))
	require.Equal(t, "above_range", AboveRange.String())
}

func TestRangeAmountsAboveRange(t *testing.T) {
	liquidity := dec("1000")
	a0, a1, err := RangeAmounts(dec("300"), dec("100"), dec("200"), liquidity)
	require.NoError(t, err)
	require.True(t, a0.IsZero())

	want := liquidity.Mul(pricemath.Sqrt(dec("200")).Sub(dec("10")))
	closeTo(t, want, a1)
}

func TestRangeAmountsBelowRange(t *testing.T) {
	liquidity := dec("1000")
	a0, a1, err := RangeAmounts(dec("50"), dec("100"), dec("200"), liquidity)
	require.NoError(t, err)
	require.True(t, a1.IsZero())

	sqrt200 := pricemath.Sqrt(dec("200"))
	want := pricemath.Quo(liquidity.Mul(sqrt200.Sub(dec("10"))), dec("10").Mul(sqrt200))
	closeTo(t, want, a0)

	// Not the sqrt(Plower)^2 denominator.
	wrong := pricemath.Quo(liquidity.Mul(sqrt200.Sub(dec("10"))), dec("100"))
	require.False(t, a0.Sub(wrong).Abs().LessThan(dec("0.001")))
}

func TestRangeAmountsInRange(t *testing.T) {
	liquidity := dec("1000")
	a0, a1, err := RangeAmounts(dec("144"), dec("100"), dec("196"), liquidity)
	require.NoError(t, err)

	// sqrt values are 12, 10, 14.
	closeTo(t, pricemath.Quo(dec("2000"), dec("120")), a0)
	require.True(t, a1.Equal(dec("2000")), "got %s", a1)
}

func TestRangeAmountsBoundaries(t *testing.T) {
	liquidity := dec("1000")
	lower, upper := dec("100"), dec("196")

	// At the upper bound the in-range law leaves no token0.
	a0, a1, err := RangeAmounts(upper, lower, upper, liquidity)
	require.NoError(t, err)
	require.True(t, a0.IsZero(), "got %s", a0)
	require.True(t, a1.Equal(dec("4000")), "got %s", a1)

	// At the lower bound the in-range law applies, not the below-range one.
	a0, a1, err = RangeAmounts(lower, lower, upper, liquidity)
	require.NoError(t, err)
	require.True(t, a1.IsZero())
	closeTo(t, dec("40"), a0)

	below, _, err := RangeAmounts(dec("99.9999"), lower, upper, liquidity)
	require.NoError(t, err)
	require.False(t, below.Equal(a0))
}

func TestRangeAmountsRejectsBadRange(t *testing.T) {
	_, _, err := RangeAmounts(dec("1"), dec("0"), dec("2"), dec("1"))
	require.Error(t, err)
	_, _, err = RangeAmounts(dec("1"), dec("3"), dec("2"), dec("1"))
	require.Error(t, err)
}

func TestAdjustments(t *testing.T) {
	require.True(t, AdjustDecimals(dec("123456789"), 8).Equal(dec("1.23456789")))
	require.True(t, DisplayAdjustment(8, 18).Equal(dec("0.0000000001")))
	require.True(t, DisplayAdjustment(18, 6).Equal(dec("1000000000000")))
}

func v3Reader(sqrtPriceX96 *big.Int, tick int64, tickLower, tickUpper int64, liquidity *big.Int) *fakeReader {
	r := newFakeReader()
	r.handle = func(call chain.Call) ([]interface{}, error) { return tokenHandler(call, 8, 18) }
	r.set("slot0", sqrtPriceX96, big.NewInt(tick), uint16(0), uint16(1), uint16(1), uint8(0), true)
	r.set("positions",
		big.NewInt(0), common.Address{}, wbtc, weth, big.NewInt(3000),
		big.NewInt(tickLower), big.NewInt(tickUpper), liquidity,
		big.NewInt(0), big.NewInt(0), big.NewInt(0), big.NewInt(0),
	)
	return r
}

func TestV3PositionInRange(t *testing.T) {
	// sqrtPriceX96 for price 1.0001^257858 is not needed exactly; use tick 0 scale.
	q96 := new(big.Int).Lsh(big.NewInt(1), 96)
	liquidity := bigFromString("1000000000000000000")
	reader := v3Reader(q96, 0, -600, 600, liquidity)
	v := NewValuer(reader, nil, Options{})

	snap, err := v.V3Position(context.Background(), V3Request{
		Chain:   "ethereum",
		Pool:    v3Pool,
		NFT:     positionNFT,
		TokenID: 42,
	})
	require.NoError(t, err)

	require.Equal(t, uint64(42), snap.TokenID)
	require.Nil(t, snap.Block)
	require.True(t, snap.CurrentRatio.Equal(dec("0.0000000001")), "got %s", snap.CurrentRatio)
	require.True(t, snap.LowerTick.LessThan(snap.CurrentRatio))
	require.True(t, snap.UpperTick.GreaterThan(snap.CurrentRatio))
	require.True(t, snap.NumToken0Underlying.IsPositive())
	require.True(t, snap.NumToken1Underlying.IsPositive())

	lower := pricemath.TickToPrice(-600)
	upper := pricemath.TickToPrice(600)
	a0, a1, err := RangeAmounts(dec("1"), lower, upper, decimal.NewFromBigInt(liquidity, 0))
	require.NoError(t, err)
	require.True(t, snap.NumToken0Underlying.Equal(a0.Shift(-8)))
	require.True(t, snap.NumToken1Underlying.Equal(a1.Shift(-18)))

	for _, call := range reader.calls {
		if call.Function == "positions" {
			require.Equal(t, positionNFT, call.Interface)
			require.Equal(t, positionNFT, call.Implementation)
			require.Nil(t, call.ABI)
			require.Equal(t, int64(42), call.Args[0].(*big.Int).Int64())
		}
		if call.Function == "slot0" {
			require.NotNil(t, call.ABI)
		}
	}
}

func TestV3PositionAboveRangeUsesImplementation(t *testing.T) {
	q96 := new(big.Int).Lsh(big.NewInt(1), 96)
	reader := v3Reader(q96, 0, -1200, -600, big.NewInt(5000))
	v := NewValuer(reader, nil, Options{})

	impl := common.HexToAddress("0x1111111111111111111111111111111111111111")
	snap, err := v.V3Position(context.Background(), V3Request{
		Chain:   "ethereum",
		Pool:    v3Pool,
		NFT:     positionNFT,
		NFTImpl: impl,
		TokenID: 7,
	})
	require.NoError(t, err)
	require.True(t, snap.NumToken0Underlying.IsZero())
	require.True(t, snap.NumToken1Underlying.IsPositive())

	for _, call := range reader.calls {
		if call.Function == "positions" {
			require.Equal(t, impl, call.Implementation)
		}
	}
}
