package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lpbreakdown/internal/config"
	"lpbreakdown/internal/model"
	"lpbreakdown/internal/storage"
	"lpbreakdown/internal/uniswap"
)

func runTicks(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadTicks(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Chain == "" {
		return fmt.Errorf("chain is required")
	}
	pool, err := config.ParseAddress(cfg.Pool)
	if err != nil {
		return fmt.Errorf("pool: %w", err)
	}
	var tickLens common.Address
	if cfg.TickLens != "" {
		if tickLens, err = config.ParseAddress(cfg.TickLens); err != nil {
			return fmt.Errorf("tick lens: %w", err)
		}
	}

	sinks := make([]storage.ProfileSink, 0, 2)
	fileSink, err := storage.NewFileSink(cfg.Format, cfg.Out)
	if err != nil {
		return err
	}
	sinks = append(sinks, fileSink)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.PGDSN != "" {
		store, err := openStore(ctx, cfg.PGDSN)
		if err != nil {
			return err
		}
		defer store.Close()
		sinks = append(sinks, store)
	}

	env, err := openEnv(cfg.Common, logger, cfg.Concurrency)
	if err != nil {
		return err
	}
	defer env.Close()

	logger.Info("ticks start",
		zap.String("chain", cfg.Chain),
		zap.String("pool", pool.Hex()),
		zap.String("depth", cfg.Depth.String()),
		zap.Int("concurrency", cfg.Concurrency),
		zap.String("out", cfg.Out),
		zap.String("format", cfg.Format),
	)

	snapshot, err := env.valuer.TickProfile(ctx, uniswap.TickRequest{
		Chain:    cfg.Chain,
		Pool:     pool,
		TickLens: tickLens,
		Depth:    cfg.Depth,
		Block:    cfg.Block,
	})
	if err != nil {
		return err
	}

	bands, err := uniswap.BuildProfile(snapshot, cfg.Depth)
	if err != nil {
		return err
	}

	meta := model.ProfileMeta{
		RunID:        uuid.NewString(),
		Chain:        cfg.Chain,
		Pool:         pool.Hex(),
		Block:        cfg.Block,
		Depth:        cfg.Depth,
		ActiveTick:   snapshot.ActiveTick,
		TickSpacing:  snapshot.TickSpacing,
		VirtualRatio: snapshot.VirtualRatio,
		Token0:       snapshot.Token0,
		Token1:       snapshot.Token1,
	}
	for _, sink := range sinks {
		if err := sink.PutTickBands(ctx, meta, bands); err != nil {
			return err
		}
	}

	logger.Info("ticks done",
		zap.String("run_id", meta.RunID),
		zap.Int("initialized_ticks", len(snapshot.Ticks)),
		zap.Int("bands", len(bands)),
	)
	return nil
}
