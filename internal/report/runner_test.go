package report

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"lpbreakdown/internal/config"
	"lpbreakdown/internal/model"
	"lpbreakdown/internal/uniswap"
)

const (
	pairAddr   = "0xBb2b8038a1640196FbE3e38816F3e67Cba72D940"
	walletAddr = "0x28C6c06298d514Db089934071355E5743bf21d60"
	poolAddr   = "0xCBCdF9626bC03E24f779434178A73a0B4bad62eD"
	nftAddr    = "0xC36442b4a4522E871399CD717aBDD847Ab11FE88"
)

type fakeValuer struct {
	fromAddress []uniswap.V2Request
	fromBalance []uniswap.V2Request
	v3          []uniswap.V3Request
	fail        error
}

func (f *fakeValuer) V2FromAddress(_ context.Context, req uniswap.V2Request) (model.V2Snapshot, error) {
	f.fromAddress = append(f.fromAddress, req)
	return model.V2Snapshot{Chain: req.Chain, NumLPTokens: decimal.NewFromInt(10)}, f.fail
}

func (f *fakeValuer) V2FromLPBalance(_ context.Context, req uniswap.V2Request) (model.V2Snapshot, error) {
	f.fromBalance = append(f.fromBalance, req)
	return model.V2Snapshot{Chain: req.Chain, NumLPTokens: req.LPBalance}, nil
}

func (f *fakeValuer) V3Position(_ context.Context, req uniswap.V3Request) (model.V3PositionSnapshot, error) {
	f.v3 = append(f.v3, req)
	return model.V3PositionSnapshot{Chain: req.Chain, TokenID: req.TokenID, CurrentRatio: decimal.RequireFromString("15.77")}, nil
}

type fakeSink struct {
	runIDs []string
	v2, v3 int
}

func (s *fakeSink) SaveV2Position(_ context.Context, runID string, _ config.V2PositionSpec, _ model.V2Snapshot) error {
	s.runIDs = append(s.runIDs, runID)
	s.v2++
	return nil
}

func (s *fakeSink) SaveV3Position(_ context.Context, runID string, _ config.V3PositionSpec, _ model.V3PositionSnapshot) error {
	s.runIDs = append(s.runIDs, runID)
	s.v3++
	return nil
}

func testSpecs() config.PositionSpecs {
	wallet := walletAddr
	balance := decimal.RequireFromString("2.5")
	block := uint64(19000000)
	return config.PositionSpecs{
		V2Positions: []config.V2PositionSpec{
			{Chain: "ethereum", PoolAddress: pairAddr, WalletAddress: &wallet, BlockNo: &block},
			{Chain: "ethereum", PoolAddress: pairAddr, LPBalance: &balance},
		},
		V3Positions: []config.V3PositionSpec{
			{Chain: "ethereum", PoolAddress: poolAddr, NFTAddress: nftAddr, NFTID: 42},
		},
	}
}

func TestRunRoutesSpecs(t *testing.T) {
	valuer := &fakeValuer{}
	sink := &fakeSink{}
	rep, err := NewRunner(valuer, sink, nil).Run(context.Background(), testSpecs())
	require.NoError(t, err)

	require.Len(t, rep.V2Positions, 2)
	require.Len(t, rep.V3Positions, 1)
	require.NotEmpty(t, rep.RunID)

	require.Len(t, valuer.fromAddress, 1)
	require.Equal(t, walletAddr, valuer.fromAddress[0].Wallet.Hex())
	require.Equal(t, uint64(19000000), *valuer.fromAddress[0].Block)

	require.Len(t, valuer.fromBalance, 1)
	require.True(t, valuer.fromBalance[0].LPBalance.Equal(decimal.RequireFromString("2.5")))

	require.Len(t, valuer.v3, 1)
	require.Equal(t, nftAddr, valuer.v3[0].NFTImpl.Hex())
	require.Equal(t, uint64(42), valuer.v3[0].TokenID)

	require.Equal(t, 2, sink.v2)
	require.Equal(t, 1, sink.v3)
	for _, id := range sink.runIDs {
		require.Equal(t, rep.RunID, id)
	}
}

func TestRunStopsOnFailure(t *testing.T) {
	valuer := &fakeValuer{fail: &uniswap.EmptyPoolError{Chain: "ethereum", Pool: pairAddr}}
	_, err := NewRunner(valuer, nil, nil).Run(context.Background(), testSpecs())

	var empty *uniswap.EmptyPoolError
	require.True(t, errors.As(err, &empty))
	require.Empty(t, valuer.fromBalance)
	require.Empty(t, valuer.v3)
}

func TestEncodeJSONFieldNames(t *testing.T) {
	rep, err := NewRunner(&fakeValuer{}, nil, nil).Run(context.Background(), testSpecs())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, rep, "json"))

	var doc map[string][]map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc["V2 Positions"], 2)
	require.Len(t, doc["V3 Positions"], 1)

	first := doc["V2 Positions"][0]
	require.Equal(t, walletAddr, first["position_spec"]["wallet_address"])
	require.Equal(t, "10", first["position_breakdown"]["num_lp_tokens"])
	require.Nil(t, first["position_spec"]["lp_balance"])

	v3 := doc["V3 Positions"][0]
	require.Equal(t, "15.77", v3["position_breakdown"]["current_ratio"])
	require.EqualValues(t, 42, v3["position_breakdown"]["token_id"])
	require.NotContains(t, buf.String(), "RunID")
}

func TestEncodeYAML(t *testing.T) {
	rep, err := NewRunner(&fakeValuer{}, nil, nil).Run(context.Background(), testSpecs())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, rep, "yaml"))

	var doc map[string][]map[string]map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc["V2 Positions"], 2)
	require.Equal(t, "2.5", doc["V2 Positions"][1]["position_spec"]["lp_balance"])

	require.Error(t, Encode(&buf, rep, "csv"))
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.json")
	require.NoError(t, WriteFile(path, Report{}, "json"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"V2 Positions": null`)
}
