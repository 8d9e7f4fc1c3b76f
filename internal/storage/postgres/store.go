package postgres

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lpbreakdown/internal/config"
	"lpbreakdown/internal/model"
)

// Store provides Postgres persistence for position snapshots and liquidity
// profiles.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// SaveV2Position inserts a V2 snapshot.
func (s *Store) SaveV2Position(ctx context.Context, runID string, spec config.V2PositionSpec, snap model.V2Snapshot) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO v2_position_snapshots (
			run_id, chain, pool_address, wallet_address, block_no, num_lp_tokens,
			token0_address, token0_symbol, token0_decimals, num_token0_underlying,
			token1_address, token1_symbol, token1_decimals, num_token1_underlying
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		runID,
		snap.Chain,
		spec.PoolAddress,
		spec.WalletAddress,
		blockParam(snap.Block),
		snap.NumLPTokens.String(),
		snap.Token0.Address,
		snap.Token0.Symbol,
		int16(snap.Token0.Decimals),
		snap.NumToken0Underlying.String(),
		snap.Token1.Address,
		snap.Token1.Symbol,
		int16(snap.Token1.Decimals),
		snap.NumToken1Underlying.String(),
	)
	if err != nil {
		return fmt.Errorf("insert v2 snapshot: %w", err)
	}
	return nil
}

// SaveV3Position inserts a V3 snapshot.
func (s *Store) SaveV3Position(ctx context.Context, runID string, spec config.V3PositionSpec, snap model.V3PositionSnapshot) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO v3_position_snapshots (
			run_id, chain, pool_address, nft_address, token_id, block_no,
			current_ratio, lower_tick, upper_tick,
			token0_address, token0_symbol, token0_decimals, num_token0_underlying,
			token1_address, token1_symbol, token1_decimals, num_token1_underlying
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`,
		runID,
		snap.Chain,
		spec.PoolAddress,
		spec.NFTAddress,
		strconv.FormatUint(snap.TokenID, 10),
		blockParam(snap.Block),
		snap.CurrentRatio.String(),
		snap.LowerTick.String(),
		snap.UpperTick.String(),
		snap.Token0.Address,
		snap.Token0.Symbol,
		int16(snap.Token0.Decimals),
		snap.NumToken0Underlying.String(),
		snap.Token1.Address,
		snap.Token1.Symbol,
		int16(snap.Token1.Decimals),
		snap.NumToken1Underlying.String(),
	)
	if err != nil {
		return fmt.Errorf("insert v3 snapshot: %w", err)
	}
	return nil
}

// PutTickBands upserts a profile header and its bands in one transaction.
func (s *Store) PutTickBands(ctx context.Context, meta model.ProfileMeta, bands []model.TickBand) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO tick_profiles (
			run_id, chain, pool_address, block_no, depth, active_tick, tick_spacing, virtual_ratio,
			token0_address, token0_symbol, token0_decimals,
			token1_address, token1_symbol, token1_decimals
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (run_id) DO NOTHING
	`,
		meta.RunID,
		meta.Chain,
		meta.Pool,
		blockParam(meta.Block),
		meta.Depth.String(),
		meta.ActiveTick,
		meta.TickSpacing,
		meta.VirtualRatio.String(),
		meta.Token0.Address,
		meta.Token0.Symbol,
		int16(meta.Token0.Decimals),
		meta.Token1.Address,
		meta.Token1.Symbol,
		int16(meta.Token1.Decimals),
	)
	if err != nil {
		return fmt.Errorf("insert tick profile: %w", err)
	}

	if len(bands) > 0 {
		batch := &pgx.Batch{}
		for _, b := range bands {
			batch.Queue(`
				INSERT INTO tick_bands (
					run_id, tick, tick_upper, liquidity_net, liquidity_gross, liquidity_shape, liquidity,
					virtual_ratio, virtual_ratio_upper, ratio, ratio_upper,
					token0_underlying_virtual, token1_underlying_virtual, token0_underlying, token1_underlying
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
				ON CONFLICT (run_id, tick)
				DO UPDATE SET
					tick_upper = EXCLUDED.tick_upper,
					liquidity_net = EXCLUDED.liquidity_net,
					liquidity_gross = EXCLUDED.liquidity_gross,
					liquidity_shape = EXCLUDED.liquidity_shape,
					liquidity = EXCLUDED.liquidity,
					virtual_ratio = EXCLUDED.virtual_ratio,
					virtual_ratio_upper = EXCLUDED.virtual_ratio_upper,
					ratio = EXCLUDED.ratio,
					ratio_upper = EXCLUDED.ratio_upper,
					token0_underlying_virtual = EXCLUDED.token0_underlying_virtual,
					token1_underlying_virtual = EXCLUDED.token1_underlying_virtual,
					token0_underlying = EXCLUDED.token0_underlying,
					token1_underlying = EXCLUDED.token1_underlying
			`,
				meta.RunID,
				b.Tick,
				b.TickUpper,
				bigParam(b.LiquidityNet),
				bigParam(b.LiquidityGross),
				bigParam(b.LiquidityShape),
				bigParam(b.Liquidity),
				b.VirtualRatio.String(),
				b.VirtualRatioUpper.String(),
				b.Ratio.String(),
				b.RatioUpper.String(),
				b.Token0UnderlyingVirtual.String(),
				b.Token1UnderlyingVirtual.String(),
				b.Token0Underlying.String(),
				b.Token1Underlying.String(),
			)
		}

		br := tx.SendBatch(ctx, batch)
		for range bands {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("upsert tick band: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func blockParam(block *uint64) *int64 {
	if block == nil {
		return nil
	}
	v := int64(*block)
	return &v
}

func bigParam(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
