package report

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"lpbreakdown/internal/config"
	"lpbreakdown/internal/model"
	"lpbreakdown/internal/uniswap"
)

// PositionValuer values individual positions.
type PositionValuer interface {
	V2FromAddress(ctx context.Context, req uniswap.V2Request) (model.V2Snapshot, error)
	V2FromLPBalance(ctx context.Context, req uniswap.V2Request) (model.V2Snapshot, error)
	V3Position(ctx context.Context, req uniswap.V3Request) (model.V3PositionSnapshot, error)
}

// SnapshotSink persists position snapshots as they are produced.
type SnapshotSink interface {
	SaveV2Position(ctx context.Context, runID string, spec config.V2PositionSpec, snap model.V2Snapshot) error
	SaveV3Position(ctx context.Context, runID string, spec config.V3PositionSpec, snap model.V3PositionSnapshot) error
}

// V2Entry pairs a V2 spec with its breakdown.
type V2Entry struct {
	PositionSpec      config.V2PositionSpec `json:"position_spec" yaml:"position_spec"`
	PositionBreakdown model.V2Snapshot      `json:"position_breakdown" yaml:"position_breakdown"`
}

// V3Entry pairs a V3 spec with its breakdown.
type V3Entry struct {
	PositionSpec      config.V3PositionSpec    `json:"position_spec" yaml:"position_spec"`
	PositionBreakdown model.V3PositionSnapshot `json:"position_breakdown" yaml:"position_breakdown"`
}

// Report is the output document.
type Report struct {
	RunID       string    `json:"-" yaml:"-"`
	V2Positions []V2Entry `json:"V2 Positions" yaml:"V2 Positions"`
	V3Positions []V3Entry `json:"V3 Positions" yaml:"V3 Positions"`
}

// Runner values every configured position.
type Runner struct {
	valuer PositionValuer
	sink   SnapshotSink
	logger *zap.Logger
}

// NewRunner creates a Runner. sink may be nil.
func NewRunner(valuer PositionValuer, sink SnapshotSink, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{valuer: valuer, sink: sink, logger: logger}
}

// Run values the positions in spec order and stops at the first failure.
func (r *Runner) Run(ctx context.Context, specs config.PositionSpecs) (Report, error) {
	rep := Report{
		RunID:       uuid.NewString(),
		V2Positions: make([]V2Entry, 0, len(specs.V2Positions)),
		V3Positions: make([]V3Entry, 0, len(specs.V3Positions)),
	}
	log := r.logger.With(zap.String("run_id", rep.RunID))

	for i, spec := range specs.V2Positions {
		snap, err := r.runV2(ctx, log, spec)
		if err != nil {
			return Report{}, fmt.Errorf("v2 position %d (%s %s): %w", i, spec.Chain, spec.PoolAddress, err)
		}
		if r.sink != nil {
			if err := r.sink.SaveV2Position(ctx, rep.RunID, spec, snap); err != nil {
				return Report{}, fmt.Errorf("save v2 position %d: %w", i, err)
			}
		}
		rep.V2Positions = append(rep.V2Positions, V2Entry{PositionSpec: spec, PositionBreakdown: snap})
	}

	for i, spec := range specs.V3Positions {
		snap, err := r.runV3(ctx, log, spec)
		if err != nil {
			return Report{}, fmt.Errorf("v3 position %d (%s %s #%d): %w", i, spec.Chain, spec.PoolAddress, spec.NFTID, err)
		}
		if r.sink != nil {
			if err := r.sink.SaveV3Position(ctx, rep.RunID, spec, snap); err != nil {
				return Report{}, fmt.Errorf("save v3 position %d: %w", i, err)
			}
		}
		rep.V3Positions = append(rep.V3Positions, V3Entry{PositionSpec: spec, PositionBreakdown: snap})
	}

	log.Info("report complete",
		zap.Int("v2_positions", len(rep.V2Positions)),
		zap.Int("v3_positions", len(rep.V3Positions)),
	)
	return rep, nil
}

func (r *Runner) runV2(ctx context.Context, log *zap.Logger, spec config.V2PositionSpec) (model.V2Snapshot, error) {
	if err := spec.Validate(); err != nil {
		return model.V2Snapshot{}, err
	}
	pool, err := config.ParseAddress(spec.PoolAddress)
	if err != nil {
		return model.V2Snapshot{}, err
	}
	req := uniswap.V2Request{Chain: spec.Chain, Pool: pool, Block: spec.BlockNo}

	if spec.WalletAddress != nil {
		wallet, err := config.ParseAddress(*spec.WalletAddress)
		if err != nil {
			return model.V2Snapshot{}, err
		}
		req.Wallet = wallet
		log.Info("generating v2 snapshot from wallet", zap.String("pool", spec.PoolAddress), zap.String("wallet", wallet.Hex()))
		return r.valuer.V2FromAddress(ctx, req)
	}

	req.LPBalance = *spec.LPBalance
	log.Info("generating v2 snapshot from lp balance", zap.String("pool", spec.PoolAddress), zap.String("lp_balance", req.LPBalance.String()))
	return r.valuer.V2FromLPBalance(ctx, req)
}

func (r *Runner) runV3(ctx context.Context, log *zap.Logger, spec config.V3PositionSpec) (model.V3PositionSnapshot, error) {
	if err := spec.Validate(); err != nil {
		return model.V3PositionSnapshot{}, err
	}
	addrs := make([]common.Address, 0, 3)
	for _, s := range []string{spec.PoolAddress, spec.NFTAddress, spec.Implementation()} {
		addr, err := config.ParseAddress(s)
		if err != nil {
			return model.V3PositionSnapshot{}, err
		}
		addrs = append(addrs, addr)
	}

	log.Info("generating v3 snapshot", zap.String("pool", spec.PoolAddress), zap.Uint64("nft_id", spec.NFTID))
	return r.valuer.V3Position(ctx, uniswap.V3Request{
		Chain:   spec.Chain,
		Pool:    addrs[0],
		NFT:     addrs[1],
		NFTImpl: addrs[2],
		TokenID: spec.NFTID,
		Block:   spec.BlockNo,
	})
}
