// Package db provides the PostgreSQL connection pool and migration helpers
// for the ledger.
package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ninetyeight/builderbot/internal/config"
)

func Open(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	return pgxpool.New(ctx, DSN(cfg))
}
