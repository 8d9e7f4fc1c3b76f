package storage

import (
	"context"
	"fmt"
	"math/big"

	"lpbreakdown/internal/model"
)

// ProfileSink stores the band table of a liquidity profile.
type ProfileSink interface {
	PutTickBands(ctx context.Context, meta model.ProfileMeta, bands []model.TickBand) error
}

// NewFileSink returns a file sink for the given format (jsonl or parquet).
func NewFileSink(format, path string) (ProfileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("output path is required")
	}
	switch format {
	case "", "jsonl":
		return NewJsonlStorage(path), nil
	case "parquet":
		return NewParquetStorage(path), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
