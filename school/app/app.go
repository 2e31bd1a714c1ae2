// Package app wires the school bot: infrastructure, dialog router and reminder.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/schoolbot/core/bootstrap"
	coredatabase "github.com/m3rciful/schoolbot/core/database"
	"github.com/m3rciful/schoolbot/core/logger"
	coretelegram "github.com/m3rciful/schoolbot/core/telegram"
	tgrouter "github.com/m3rciful/schoolbot/core/telegram/router"
	tgsender "github.com/m3rciful/schoolbot/core/telegram/sender"
	"github.com/m3rciful/schoolbot/core/telegram/state"
	"github.com/m3rciful/schoolbot/school/admin"
	"github.com/m3rciful/schoolbot/school/ai"
	"github.com/m3rciful/schoolbot/school/config"
	"github.com/m3rciful/schoolbot/school/dialog"
	"github.com/m3rciful/schoolbot/school/notify"
	"github.com/m3rciful/schoolbot/school/reminder"
	"github.com/m3rciful/schoolbot/school/store"
)

// App holds the initialized bot and its resources.
type App struct {
	cfg       *config.Config
	db        *sqlx.DB
	redis     *redis.Client
	bot       *tele.Bot
	outbox    *tgsender.Outbox
	registry  *coretelegram.Registry
	router    *dialog.Router
	scheduler *reminder.Scheduler
}

// New runs the bootstrap pipeline and wires all components. Resources opened
// before a failure are released.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	a := &App{cfg: cfg}
	defer func() {
		if err != nil {
			if a.outbox != nil {
				a.outbox.Close()
			}
			_ = a.close()
		}
	}()

	res, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}
	a.db = res.DB

	states, client, err := newStateStore(ctx, cfg.State)
	if err != nil {
		return nil, err
	}
	a.redis = client

	checker, err := newPasswordChecker(cfg.Admin)
	if err != nil {
		return nil, err
	}

	if a.bot, err = coretelegram.NewBot(cfg.CoreConfig()); err != nil {
		return nil, err
	}
	a.outbox = tgsender.New(a.bot, tgsender.Options{})

	notifier := notify.New(a.bot, a.outbox)
	datastore := store.New(a.db)

	a.router, err = dialog.NewRouter(dialog.Deps{
		Store:    datastore,
		States:   states,
		Notifier: notifier,
		AI: ai.New(ai.Config{
			APIKey:       cfg.AI.APIKey,
			BaseURL:      cfg.AI.BaseURL,
			Model:        cfg.AI.Model,
			Temperature:  cfg.AI.Temperature,
			SystemPrompt: cfg.AI.SystemPrompt,
			MaxRetries:   cfg.AI.MaxRetries,
		}),
		Admin: checker,
	})
	if err != nil {
		return nil, err
	}

	a.registry = coretelegram.NewRegistry()
	if err := dialog.RegisterCommands(a.registry); err != nil {
		return nil, err
	}

	if a.scheduler, err = newReminder(cfg.Reminder, datastore, notifier); err != nil {
		return nil, err
	}
	return a, nil
}

// TelegramRunOptions describes how the bot runtime should be started.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	if a == nil || a.router == nil {
		return coretelegram.RunOptions{}, fmt.Errorf("app: not initialized")
	}
	return coretelegram.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    a.registry,
		Bot:         a.bot,
		Outbox:      a.outbox,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg.CoreConfig(), nil),
		Routes: tgrouter.TextRoutes(a.router.HandleTelegram, tgrouter.TextOptions{
			UnknownMedia: a.router.HandleMedia,
		}),
		OnStart: func(ctx context.Context, _ coretelegram.Runtime) error {
			if a.scheduler == nil {
				return nil
			}
			return a.scheduler.Start(ctx)
		},
		OnStop: func(context.Context, coretelegram.Runtime) error {
			return a.close()
		},
	}, nil
}

// close stops the reminder and releases Redis and the database. Pending
// conversation state held in memory is dropped.
func (a *App) close() error {
	var errs []error
	if a.scheduler != nil {
		if err := a.scheduler.Stop(); err != nil && !errors.Is(err, reminder.ErrNotRunning) {
			errs = append(errs, err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
		a.redis = nil
	}
	if a.db != nil {
		if err := coredatabase.Close(a.db); err != nil {
			errs = append(errs, err)
		}
		a.db = nil
	}
	return errors.Join(errs...)
}

// newStateStore returns the configured backend. The Redis client is nil for the memory backend.
func newStateStore(ctx context.Context, cfg config.StateConfig) (state.Store, *redis.Client, error) {
	if cfg.Backend != config.StateBackendRedis {
		return state.NewMemoryStore(), nil, nil
	}
	client, err := state.DialRedis(ctx, state.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("app: state backend: %w", err)
	}
	logger.Info(ctx, "app", "state.backend",
		slog.String("mode", config.StateBackendRedis),
		slog.String("host", cfg.RedisAddr),
	)
	return state.NewRedisStore(client), client, nil
}

func newPasswordChecker(cfg config.AdminConfig) (*admin.Checker, error) {
	if cfg.PasswordHash != "" {
		return admin.NewChecker(cfg.PasswordHash)
	}
	return admin.FromPassword(cfg.Password, bcrypt.DefaultCost)
}

// newReminder returns nil when reminders are disabled.
func newReminder(cfg config.ReminderConfig, events reminder.EventSource, poster reminder.Poster) (*reminder.Scheduler, error) {
	if cfg.Disabled {
		return nil, nil
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("app: reminder timezone: %w", err)
	}
	daily, err := reminder.ParseDaily(cfg.Time, loc)
	if err != nil {
		return nil, fmt.Errorf("app: reminder time: %w", err)
	}
	return reminder.NewScheduler(reminder.NewJob(events, poster, cfg.Recipient), daily), nil
}
