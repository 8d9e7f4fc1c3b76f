package uniswap

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"lpbreakdown/internal/chain"
)

var pair = common.HexToAddress("0xBb2b8038a1640196FbE3e38816F3e67Cba72D940")

func TestValuePoolShareProRata(t *testing.T) {
	got, err := ValuePoolShare(PoolShare{
		Reserve0:    big.NewInt(1000),
		Reserve1:    big.NewInt(2000),
		TotalSupply: big.NewInt(100),
		LPBalance:   decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	require.True(t, got.Share.Equal(decimal.RequireFromString("0.1")), "share %s", got.Share)
	require.True(t, got.Underlying0.Equal(decimal.NewFromInt(100)))
	require.True(t, got.Underlying1.Equal(decimal.NewFromInt(200)))
}

func TestValuePoolShareScalesDecimals(t *testing.T) {
	got, err := ValuePoolShare(PoolShare{
		Reserve0:    bigFromString("250000000000"), // 2500 with 8 decimals
		Reserve1:    bigFromString("40000000000000000000000"),
		Decimals0:   8,
		Decimals1:   18,
		TotalSupply: bigFromString("1000000000000000000000"),
		LPDecimals:  18,
		LPBalance:   decimal.RequireFromString("250"),
	})
	require.NoError(t, err)
	require.True(t, got.TotalSupply.Equal(decimal.NewFromInt(1000)))
	require.True(t, got.Underlying0.Equal(decimal.RequireFromString("625")), "got %s", got.Underlying0)
	require.True(t, got.Underlying1.Equal(decimal.RequireFromString("10000")), "got %s", got.Underlying1)
}

func TestValuePoolShareOverOneIsNotRejected(t *testing.T) {
	got, err := ValuePoolShare(PoolShare{
		Reserve0:    big.NewInt(10),
		Reserve1:    big.NewInt(10),
		TotalSupply: big.NewInt(1),
		LPBalance:   decimal.NewFromInt(3),
	})
	require.NoError(t, err)
	require.True(t, got.Share.Equal(decimal.NewFromInt(3)))
	require.True(t, got.Underlying0.Equal(decimal.NewFromInt(30)))
}

func TestValuePoolShareEmptyPool(t *testing.T) {
	_, err := ValuePoolShare(PoolShare{Reserve0: big.NewInt(1), Reserve1: big.NewInt(1), TotalSupply: big.NewInt(0)})
	var empty *EmptyPoolError
	require.True(t, errors.As(err, &empty))
}

func v2Reader(supply *big.Int) *fakeReader {
	r := newFakeReader()
	r.handle = func(call chain.Call) ([]interface{}, error) { return tokenHandler(call, 8, 18) }
	r.set("balanceOf", bigFromString("10000000000000000000"))
	r.set("totalSupply", supply)
	r.set("getReserves", bigFromString("100000000000"), bigFromString("2000000000000000000000"), uint32(1700000000))
	return r
}

func TestV2FromAddress(t *testing.T) {
	reader := v2Reader(bigFromString("100000000000000000000"))
	v := NewValuer(reader, nil, Options{})

	block := uint64(19000000)
	snap, err := v.V2FromAddress(context.Background(), V2Request{
		Chain:  "ethereum",
		Pool:   pair,
		Wallet: common.HexToAddress("0x28C6c06298d514Db089934071355E5743bf21d60"),
		Block:  &block,
	})
	require.NoError(t, err)

	require.Equal(t, "ethereum", snap.Chain)
	require.Equal(t, &block, snap.Block)
	require.True(t, snap.NumLPTokens.Equal(decimal.NewFromInt(10)))
	require.Equal(t, "WBTC", snap.Token0.Symbol)
	require.Equal(t, uint8(8), snap.Token0.Decimals)
	require.Equal(t, 1, snap.Token1.Index)
	require.True(t, snap.NumToken0Underlying.Equal(decimal.NewFromInt(100)), "got %s", snap.NumToken0Underlying)
	require.True(t, snap.NumToken1Underlying.Equal(decimal.NewFromInt(200)), "got %s", snap.NumToken1Underlying)

	for _, call := range reader.calls {
		switch call.Function {
		case "balanceOf", "totalSupply", "getReserves":
			require.Nil(t, call.ABI, "pair calls resolve their abi from the explorer")
			require.Equal(t, &block, call.Block)
		}
	}
}

func TestV2FromLPBalanceEmptyPool(t *testing.T) {
	v := NewValuer(v2Reader(big.NewInt(0)), nil, Options{})
	_, err := v.V2FromLPBalance(context.Background(), V2Request{Chain: "ethereum", Pool: pair, LPBalance: decimal.NewFromInt(1)})

	var empty *EmptyPoolError
	require.True(t, errors.As(err, &empty))
	require.Equal(t, "ethereum", empty.Chain)
	require.Equal(t, pair.Hex(), empty.Pool)
}

func TestV2ExternalCallError(t *testing.T) {
	reader := v2Reader(big.NewInt(1))
	delete(reader.results, "getReserves")
	v := NewValuer(reader, nil, Options{})

	_, err := v.V2FromLPBalance(context.Background(), V2Request{Chain: "ethereum", Pool: pair, LPBalance: decimal.NewFromInt(1)})
	var callErr *ExternalCallError
	require.True(t, errors.As(err, &callErr))
	require.Equal(t, "getReserves", callErr.Function)
	require.ErrorContains(t, err, "execution reverted")
}

func TestPoolTokenCachesAndValidatesIndex(t *testing.T) {
	reader := v2Reader(big.NewInt(1))
	v := NewValuer(reader, nil, Options{})

	_, err := v.PoolToken(context.Background(), "ethereum", pair, 2, nil)
	var idxErr *InvalidTokenIndexError
	require.True(t, errors.As(err, &idxErr))
	require.Equal(t, 2, idxErr.Index)

	for i := 0; i < 3; i++ {
		info, err := v.PoolToken(context.Background(), "ethereum", pair, 0, nil)
		require.NoError(t, err)
		require.Equal(t, wbtc.Hex(), info.Address)
	}
	require.Equal(t, 1, reader.count("token0"))
}

func TestPoolTokenBytes32Symbol(t *testing.T) {
	reader := newFakeReader()
	reader.handle = func(call chain.Call) ([]interface{}, error) {
		switch call.Function {
		case "token0":
			return []interface{}{wbtc}, nil
		case "decimals":
			return []interface{}{uint8(18)}, nil
		case "symbol":
			if call.ABI.Methods["symbol"].Outputs[0].Type.String() == "string" {
				return nil, errors.New("abi: cannot unmarshal")
			}
			var sym [32]byte
			copy(sym[:], "MKR")
			return []interface{}{sym}, nil
		}
		return nil, nil
	}
	v := NewValuer(reader, nil, Options{})

	info, err := v.PoolToken(context.Background(), "ethereum", pair, 0, nil)
	require.NoError(t, err)
	require.Equal(t, "MKR", info.Symbol)
}
