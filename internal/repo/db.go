// Package repo хранит результаты pipeline и запаркованные dead letters в PostgreSQL.
//
// Хранилище опционально: сервисы работают без него, если DB_URL не задан.
package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool создаёт пул соединений и проверяет доступность БД.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, ErrNotConfigured
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("new pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

// schema — таблицы сервиса. Применяется идемпотентно при старте.
const schema = `
CREATE TABLE IF NOT EXISTS pipeline_results (
	message_id     TEXT        NOT NULL,
	instance_index INTEGER     NOT NULL,
	bot_type       TEXT        NOT NULL,
	kind           TEXT        NOT NULL,
	retry_count    INTEGER     NOT NULL,
	status         TEXT        NOT NULL,
	state          TEXT        NOT NULL,
	payload        JSONB,
	error          TEXT,
	error_kind     TEXT,
	duration_ms    BIGINT      NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (message_id, retry_count, instance_index)
);

CREATE TABLE IF NOT EXISTS parked_dead_letters (
	id         BIGSERIAL   PRIMARY KEY,
	message_id TEXT        NOT NULL,
	body       BYTEA       NOT NULL,
	reason     TEXT        NOT NULL,
	parked_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema создаёт таблицы, если их нет.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
