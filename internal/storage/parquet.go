package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"lpbreakdown/internal/model"
)

// bandRecord is the parquet schema of a tick band. Big integers and decimals
// are stored as strings to keep full precision. A null block means latest.
type bandRecord struct {
	RunID                   string `parquet:"name=run_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Chain                   string `parquet:"name=chain, type=BYTE_ARRAY, convertedtype=UTF8"`
	Pool                    string `parquet:"name=pool, type=BYTE_ARRAY, convertedtype=UTF8"`
	Block                   *int64 `parquet:"name=block, type=INT64, repetitiontype=OPTIONAL"`
	Tick                    int32  `parquet:"name=tick, type=INT32"`
	TickUpper               int32  `parquet:"name=tick_upper, type=INT32"`
	LiquidityNet            string `parquet:"name=liquidity_net, type=BYTE_ARRAY, convertedtype=UTF8"`
	LiquidityGross          string `parquet:"name=liquidity_gross, type=BYTE_ARRAY, convertedtype=UTF8"`
	LiquidityShape          string `parquet:"name=liquidity_shape, type=BYTE_ARRAY, convertedtype=UTF8"`
	Liquidity               string `parquet:"name=liquidity, type=BYTE_ARRAY, convertedtype=UTF8"`
	VirtualRatio            string `parquet:"name=virtual_ratio, type=BYTE_ARRAY, convertedtype=UTF8"`
	VirtualRatioUpper       string `parquet:"name=virtual_ratio_upper, type=BYTE_ARRAY, convertedtype=UTF8"`
	Ratio                   string `parquet:"name=ratio, type=BYTE_ARRAY, convertedtype=UTF8"`
	RatioUpper              string `parquet:"name=ratio_upper, type=BYTE_ARRAY, convertedtype=UTF8"`
	Token0UnderlyingVirtual string `parquet:"name=token0_underlying_virtual, type=BYTE_ARRAY, convertedtype=UTF8"`
	Token1UnderlyingVirtual string `parquet:"name=token1_underlying_virtual, type=BYTE_ARRAY, convertedtype=UTF8"`
	Token0Underlying        string `parquet:"name=token0_underlying, type=BYTE_ARRAY, convertedtype=UTF8"`
	Token1Underlying        string `parquet:"name=token1_underlying, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// ParquetStorage writes tick bands to a snappy-compressed parquet file. Each
// call replaces the file.
type ParquetStorage struct {
	path string
	mu   sync.Mutex
}

func NewParquetStorage(path string) *ParquetStorage {
	return &ParquetStorage{path: path}
}

// PutTickBands writes the bands to the parquet file.
func (s *ParquetStorage) PutTickBands(_ context.Context, meta model.ProfileMeta, bands []model.TickBand) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fw, err := local.NewLocalFileWriter(s.path)
	if err != nil {
		return fmt.Errorf("open parquet file: %w", err)
	}
	pw, err := writer.NewParquetWriter(fw, new(bandRecord), 1)
	if err != nil {
		_ = fw.Close()
		return fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	var block *int64
	if meta.Block != nil {
		b := int64(*meta.Block)
		block = &b
	}
	for _, band := range bands {
		rec := bandRecord{
			RunID:                   meta.RunID,
			Chain:                   meta.Chain,
			Pool:                    meta.Pool,
			Block:                   block,
			Tick:                    band.Tick,
			TickUpper:               band.TickUpper,
			LiquidityNet:            bigString(band.LiquidityNet),
			LiquidityGross:          bigString(band.LiquidityGross),
			LiquidityShape:          bigString(band.LiquidityShape),
			Liquidity:               bigString(band.Liquidity),
			VirtualRatio:            band.VirtualRatio.String(),
			VirtualRatioUpper:       band.VirtualRatioUpper.String(),
			Ratio:                   band.Ratio.String(),
			RatioUpper:              band.RatioUpper.String(),
			Token0UnderlyingVirtual: band.Token0UnderlyingVirtual.String(),
			Token1UnderlyingVirtual: band.Token1UnderlyingVirtual.String(),
			Token0Underlying:        band.Token0Underlying.String(),
			Token1Underlying:        band.Token1Underlying.String(),
		}
		if err := pw.Write(rec); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return fmt.Errorf("write parquet row: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return fmt.Errorf("finish parquet file: %w", err)
	}
	return fw.Close()
}
