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
	"lpbreakdown/internal/model"
)

// requirePinned checks that every pool state read used block.
func requirePinned(t *testing.T, calls []chain.Call, block uint64) {
	t.Helper()
	for _, call := range calls {
		switch call.Function {
		case "token0", "token1", "decimals", "symbol":
			continue
		}
		require.NotNil(t, call.Block, call.Function)
		require.Equal(t, block, *call.Block, call.Function)
	}
}

func TestV3PositionPinsLatestBlock(t *testing.T) {
	q96 := new(big.Int).Lsh(big.NewInt(1), 96)
	reader := &headReader{fakeReader: v3Reader(q96, 0, -600, 600, big.NewInt(1000)), head: 19000123}
	v := NewValuer(reader, nil, Options{})

	snap, err := v.V3Position(context.Background(), V3Request{Chain: "ethereum", Pool: v3Pool, NFT: positionNFT, TokenID: 1})
	require.NoError(t, err)
	require.Nil(t, snap.Block)
	require.Equal(t, 1, reader.heads)
	requirePinned(t, reader.calls, 19000123)
}

func TestV2FromAddressPinsLatestBlockOnce(t *testing.T) {
	reader := &headReader{fakeReader: v2Reader(bigFromString("100000000000000000000")), head: 19000123}
	v := NewValuer(reader, nil, Options{})

	snap, err := v.V2FromAddress(context.Background(), V2Request{
		Chain:  "ethereum",
		Pool:   pair,
		Wallet: common.HexToAddress("0x28C6c06298d514Db089934071355E5743bf21d60"),
	})
	require.NoError(t, err)
	require.Nil(t, snap.Block)
	require.Equal(t, 1, reader.heads)
	requirePinned(t, reader.calls, 19000123)

	_, err = v.V2FromLPBalance(context.Background(), V2Request{Chain: "ethereum", Pool: pair, LPBalance: decimal.NewFromInt(1)})
	require.NoError(t, err)
	require.Equal(t, 2, reader.heads)
}

func TestTickProfilePinsLatestBlock(t *testing.T) {
	lens := common.HexToAddress("0xbfd8137f7d1516D3ea5cA83523914859ec47F573")
	base := newFakeReader()
	base.handle = func(call chain.Call) ([]interface{}, error) {
		if call.Function == "getPopulatedTicksInWord" {
			return []interface{}{[]model.TickRecord{}}, nil
		}
		return tokenHandler(call, 8, 18)
	}
	base.set("slot0", new(big.Int).Lsh(big.NewInt(1), 96), big.NewInt(0), uint16(0), uint16(1), uint16(1), uint8(0), true)
	base.set("liquidity", big.NewInt(1))
	base.set("tickSpacing", big.NewInt(60))
	reader := &headReader{fakeReader: base, head: 19000123}
	v := NewValuer(reader, nil, Options{ScanConcurrency: 2})

	snap, err := v.TickProfile(context.Background(), TickRequest{Chain: "ethereum", Pool: v3Pool, TickLens: lens, Depth: dec("0.025")})
	require.NoError(t, err)
	require.Nil(t, snap.Block)
	require.Equal(t, 3, base.count("getPopulatedTicksInWord"))
	requirePinned(t, base.calls, 19000123)
}

func TestExplicitBlockSkipsHeadLookup(t *testing.T) {
	q96 := new(big.Int).Lsh(big.NewInt(1), 96)
	reader := &headReader{fakeReader: v3Reader(q96, 0, -600, 600, big.NewInt(1000)), head: 19000123}
	v := NewValuer(reader, nil, Options{})

	block := uint64(18000000)
	snap, err := v.V3Position(context.Background(), V3Request{Chain: "ethereum", Pool: v3Pool, NFT: positionNFT, TokenID: 1, Block: &block})
	require.NoError(t, err)
	require.Equal(t, &block, snap.Block)
	require.Equal(t, 0, reader.heads)
	requirePinned(t, reader.calls, 18000000)
}

func TestHeadLookupFailure(t *testing.T) {
	q96 := new(big.Int).Lsh(big.NewInt(1), 96)
	reader := &headReader{fakeReader: v3Reader(q96, 0, -600, 600, big.NewInt(1000)), headErr: errors.New("connection refused")}
	v := NewValuer(reader, nil, Options{})

	_, err := v.V3Position(context.Background(), V3Request{Chain: "ethereum", Pool: v3Pool, NFT: positionNFT, TokenID: 1})
	var callErr *ExternalCallError
	require.True(t, errors.As(err, &callErr))
	require.Equal(t, "blockNumber", callErr.Function)
	require.Equal(t, 0, reader.count("slot0"))
}
