package postgres

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed migrations/001_initial_schema.sql
var initialSchema string

// RunMigrations creates the snapshot and tick band tables if missing.
func (s *Store) RunMigrations(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, initialSchema); err != nil {
		return fmt.Errorf("run initial schema migration: %w", err)
	}
	return nil
}
