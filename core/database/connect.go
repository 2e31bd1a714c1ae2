package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/schoolbot/core/logger"
)

const pingEvery = time.Second

// Connect opens the pool and pings until Postgres answers, the configured
// ConnectTimeout passes or ctx ends. A freshly started container refuses
// connections for a few seconds, so early failures are retried.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(max(1, cfg.MaxConnections/2))
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	start := time.Now()
	attempts, err := pingUntilReady(ctx, db)
	attrs := []any{
		slog.String("event", "db.connect"),
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
		slog.Int("attempts", attempts),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		_ = db.Close()
		logger.DB.Error("db connect failed", append(attrs, slog.String("status", "fail"), slog.String("err", err.Error()))...)
		return nil, fmt.Errorf("db connect: %w", err)
	}
	logger.DB.Info("db connected", append(attrs, slog.String("status", "ok"), slog.Int("pool_open", cfg.MaxConnections))...)
	return db, nil
}

func pingUntilReady(ctx context.Context, db *sqlx.DB) (int, error) {
	for attempt := 1; ; attempt++ {
		err := db.PingContext(ctx)
		if err == nil {
			return attempt, nil
		}
		t := time.NewTimer(pingEvery)
		select {
		case <-ctx.Done():
			t.Stop()
			return attempt, fmt.Errorf("%w (last ping: %v)", ctx.Err(), err)
		case <-t.C:
		}
		logger.DB.Debug("db not ready",
			slog.String("event", "db.ping"),
			slog.String("status", "retry"),
			slog.Int("attempt", attempt),
			slog.String("err", err.Error()),
		)
	}
}

// Close drains the pool. Safe to call with a nil handle.
func Close(db *sqlx.DB) error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		logger.DB.Error("db close failed",
			slog.String("event", "db.close"),
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("db close: %w", err)
	}
	logger.DB.Info("db closed", slog.String("event", "db.close"), slog.String("status", "ok"))
	return nil
}
