package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/stepamak/pump-tracker/internal/config"
	"github.com/stepamak/pump-tracker/internal/storage"
	chstore "github.com/stepamak/pump-tracker/internal/storage/clickhouse"
	pgstore "github.com/stepamak/pump-tracker/internal/storage/postgres"
)

// stores holds the optional database backends. A nil store means the
// backend is not configured.
type stores struct {
	devLists   storage.DevListStore
	admissions storage.AdmissionStore
	cleanup    []func()
}

// openStores connects the backends named in cfg.
func openStores(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (*stores, error) {
	s := &stores{}

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		s.cleanup = append(s.cleanup, pool.Close)
		s.devLists = pgstore.NewDevListStore(pool)
		log.Info("dev list store enabled", zap.String("backend", "postgres"))
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, cfg.ClickhouseDSN)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		s.cleanup = append(s.cleanup, func() { _ = conn.Close() })
		s.admissions = chstore.NewAdmissionStore(conn)
		log.Info("admission audit enabled", zap.String("backend", "clickhouse"))
	}

	return s, nil
}

// Close releases every opened backend.
func (s *stores) Close() {
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
	s.cleanup = nil
}
