package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lpbreakdown/internal/chain"
	"lpbreakdown/internal/config"
	"lpbreakdown/internal/explorer"
	"lpbreakdown/internal/report"
	"lpbreakdown/internal/storage/postgres"
	"lpbreakdown/internal/uniswap"
)

func runReport(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReport(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PositionConfig == "" {
		return fmt.Errorf("position config is required")
	}

	specs, err := config.LoadPositionSpecs(cfg.PositionConfig)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := openEnv(cfg.Common, logger, 1)
	if err != nil {
		return err
	}
	defer env.Close()

	var sink report.SnapshotSink
	if cfg.PGDSN != "" {
		store, err := openStore(ctx, cfg.PGDSN)
		if err != nil {
			return err
		}
		defer store.Close()
		sink = store
	}

	logger.Info("report start",
		zap.String("chain_config", cfg.ChainConfig),
		zap.String("position_config", cfg.PositionConfig),
		zap.Int("v2_positions", len(specs.V2Positions)),
		zap.Int("v3_positions", len(specs.V3Positions)),
		zap.String("format", cfg.Format),
		zap.Bool("postgres", sink != nil),
	)

	rep, err := report.NewRunner(env.valuer, sink, logger).Run(ctx, specs)
	if err != nil {
		return err
	}

	if err := report.WriteFile(cfg.Out, rep, cfg.Format); err != nil {
		return err
	}

	logger.Info("report done", zap.String("run_id", rep.RunID), zap.String("out", cfg.Out))
	return nil
}

// env bundles the collaborators every command needs.
type env struct {
	cache  *explorer.Cache
	reader *chain.Reader
	valuer *uniswap.Valuer
}

func openEnv(common config.Common, logger *zap.Logger, concurrency int) (*env, error) {
	if common.ChainConfig == "" {
		return nil, fmt.Errorf("chain config is required")
	}
	chains, err := config.LoadChains(common.ChainConfig)
	if err != nil {
		return nil, err
	}

	cache, err := explorer.OpenCache(common.ABICache)
	if err != nil {
		return nil, fmt.Errorf("open abi cache: %w", err)
	}

	abis := explorer.NewClient(chains, cache, explorer.Options{
		RPS:    common.ExplorerRPS,
		Logger: logger,
	})
	reader := chain.NewReader(chains, abis, chain.ReaderOptions{
		MaxRetries:   common.MaxRetries,
		RetryBackoff: common.RetryBackoff,
		Logger:       logger,
	})
	valuer := uniswap.NewValuer(reader, chains, uniswap.Options{
		Logger:          logger,
		ScanConcurrency: concurrency,
	})

	return &env{cache: cache, reader: reader, valuer: valuer}, nil
}

func (e *env) Close() {
	e.reader.Close()
	_ = e.cache.Close()
}

func openStore(ctx context.Context, dsn string) (*postgres.Store, error) {
	store, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := store.RunMigrations(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}
