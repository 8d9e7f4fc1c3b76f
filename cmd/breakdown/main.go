package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "breakdown",
		Short:        "Uniswap LP position breakdown",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Value every configured V2 and V3 position",
		RunE:  runReport,
	}

	reportCmd.Flags().String("position-config", "", "position spec file (json, toml or yaml)")
	reportCmd.Flags().String("out", "", "report output path, stdout when empty")
	reportCmd.Flags().String("format", "json", "report format (json, yaml)")
	addCommonFlags(reportCmd)

	root.AddCommand(reportCmd)

	ticksCmd := &cobra.Command{
		Use:   "ticks",
		Short: "Rebuild the liquidity profile of a V3 pool",
		RunE:  runTicks,
	}

	ticksCmd.Flags().String("chain", "", "chain name from the chain config")
	ticksCmd.Flags().String("pool", "", "V3 pool address")
	ticksCmd.Flags().String("tick-lens", "", "TickLens address, defaults to the chain config entry")
	ticksCmd.Flags().String("depth", "0.025", "relative depth around the active tick")
	ticksCmd.Flags().Uint64("block", 0, "block number, 0 means latest")
	ticksCmd.Flags().Int("concurrency", 4, "concurrent bitmap word fetches")
	ticksCmd.Flags().String("out", "./data/ticks.jsonl", "band table output path")
	ticksCmd.Flags().String("format", "jsonl", "band table format (jsonl, parquet)")
	addCommonFlags(ticksCmd)

	root.AddCommand(ticksCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().String("chain-config", "", "chain resources file (toml)")
	cmd.Flags().String("abi-cache", "", "explorer ABI cache directory, memory only when empty")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN, optional")
	cmd.Flags().Int("max-retries", 3, "maximum eth_call retry attempts")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().Float64("explorer-rps", 5, "explorer requests per second")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().String("log-file", "", "also write logs to this rotating file")
}

func newLogger(level, logFile string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	if logFile == "" {
		return logger, nil
	}

	rotating := zapcore.AddSync(&lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(cfg.EncoderConfig), rotating, cfg.Level)
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	})), nil
}
