package storage

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"lpbreakdown/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// bandLine is one JSONL row: the band plus the profile it belongs to.
type bandLine struct {
	RunID string  `json:"run_id"`
	Chain string  `json:"chain"`
	Pool  string  `json:"pool"`
	Block *uint64 `json:"block"`
	model.TickBand
}

// JsonlStorage writes tick bands to a JSONL file.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// PutTickBands appends the bands as JSON lines.
func (s *JsonlStorage) PutTickBands(_ context.Context, meta model.ProfileMeta, bands []model.TickBand) error {
	if len(bands) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, band := range bands {
		line, err := json.Marshal(bandLine{
			RunID:    meta.RunID,
			Chain:    meta.Chain,
			Pool:     meta.Pool,
			Block:    meta.Block,
			TickBand: band,
		})
		if err != nil {
			return fmt.Errorf("marshal tick band: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write tick band: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}
