// Package bootstrap brings up shared infrastructure before the bot starts.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/schoolbot/core/config"
	coredatabase "github.com/m3rciful/schoolbot/core/database"
	"github.com/m3rciful/schoolbot/core/logger"
)

// Options control the pipeline. Nil hooks use the core implementations.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(context.Context, coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(ctx context.Context, db *sqlx.DB, dir string) error
}

func (o *Options) fill() {
	if o.LoggerInit == nil {
		o.LoggerInit = logger.InitLogger
	}
	if o.Connect == nil {
		o.Connect = coredatabase.Connect
	}
	if o.Migrate == nil {
		o.Migrate = coredatabase.Migrate
	}
}

// Result is the infrastructure handed over to the application.
type Result struct {
	DB *sqlx.DB
}

// Run initializes logging, then opens the database and migrates it.
// The pool is closed again when migrating fails.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}
	opts.fill()

	if err := opts.LoggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger: %w", err)
	}
	dbCfg := opts.Database
	if err := dbCfg.Normalize(); err != nil {
		return nil, fmt.Errorf("bootstrap: database config: %w", err)
	}

	start := time.Now()
	db, err := opts.Connect(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database: %w", err)
	}
	if err := opts.Migrate(ctx, db, dbCfg.MigrationsDir); err != nil {
		_ = coredatabase.Close(db)
		return nil, fmt.Errorf("bootstrap: migrations: %w", err)
	}
	logger.Info(ctx, "app", "bootstrap",
		slog.String("status", "ok"),
		slog.Duration("duration", logger.Took(start)),
	)
	return &Result{DB: db}, nil
}
