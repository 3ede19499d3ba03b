// Package sqlite opens the client-local database used by the durable
// cache. The pure-Go driver keeps the binary free of cgo.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"pricesync/pkg/config"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

func Open(ctx context.Context, cfg *config.CacheConfig, logger *zap.Logger) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.Path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// One connection: sqlite serializes writes anyway, and queueing in
	// the pool avoids SQLITE_BUSY churn between reader and writer paths.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}

	logger.Info("Cache database opened", zap.String("path", cfg.Path))

	return db, nil
}
