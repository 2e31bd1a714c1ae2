package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/schoolbot/core/config"
	"github.com/m3rciful/schoolbot/core/logger"
	tghelpers "github.com/m3rciful/schoolbot/core/telegram/helpers"
	"github.com/m3rciful/schoolbot/core/telegram/netutil"
	tgsender "github.com/m3rciful/schoolbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
	// Drain, when set, waits for work the middleware still runs after
	// polling stops. It is called before OnStop.
	Drain func(ctx context.Context) error
}

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	// Bot is used as-is when set; otherwise one is built from Config.
	Bot *tele.Bot

	// Outbox is closed after OnStop when set.
	Outbox *tgsender.Outbox

	Middlewares []Middleware
	Routes      []Route

	DisableWebhookCleanup bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Bot      *tele.Bot
	Outbox   *tgsender.Outbox
	Registry *Registry
}

// NewBot builds a telebot instance with the configured poller and retrying
// HTTP client. Errors returned by handlers are logged with their request id.
func NewBot(cfg *coreconfig.Config) (*tele.Bot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("telegram: nil config provided")
	}
	poller := NewPoller(cfg)

	start := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:       cfg.Telegram.Token,
		Poller:      poller,
		Client:      NewHTTPClient(HTTPOptions{PollTimeout: pollTimeout(cfg)}),
		OnError:     logHandlerError,
		Synchronous: true,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %s", netutil.Redact(err))
	}

	attrs := []any{slog.String("event", "mode"), slog.Duration("duration", logger.Took(start))}
	if wh, ok := poller.(*tele.Webhook); ok {
		attrs = append(attrs,
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("listen", wh.Listen),
			slog.String("public_url", wh.Endpoint.PublicURL),
		)
	} else {
		attrs = append(attrs,
			slog.String("mode", coreconfig.RunModeLongpoll),
			slog.Int("timeout_seconds", int(pollTimeout(cfg)/time.Second)),
		)
	}
	logger.TG.Info("bot ready", attrs...)
	return bot, nil
}

func logHandlerError(err error, c tele.Context) {
	ctx := context.Background()
	if c != nil {
		ctx = tghelpers.Context(c)
	}
	logger.Error(ctx, "tg", "handler.error",
		slog.String("status", "fail"),
		slog.String("err", netutil.Redact(err)),
		slog.String("error_kind", netutil.Kind(err)),
	)
}

// RunTelegram wires middlewares, routes and the command menu into the bot
// and serves updates until ctx is done. OnStop runs with a fresh context
// after polling stops; the outbox is drained last.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if opts.Config == nil {
		return fmt.Errorf("telegram: nil config provided")
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	bot := opts.Bot
	if bot == nil {
		var err error
		if bot, err = NewBot(opts.Config); err != nil {
			return err
		}
	}
	rt := Runtime{Bot: bot, Outbox: opts.Outbox, Registry: opts.Registry}

	if !opts.DisableWebhookCleanup && strings.EqualFold(opts.Config.Telegram.RunMode, coreconfig.RunModeLongpoll) {
		dropWebhook(bot)
	}
	wire(bot, opts)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			closeOutbox(opts.Outbox)
			return err
		}
	}
	runErr := serve(ctx, bot)
	drainMiddlewares(opts.Middlewares, 10*time.Second)

	var stopErr error
	if opts.OnStop != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		stopErr = opts.OnStop(stopCtx, rt)
		cancel()
	}
	closeOutbox(opts.Outbox)

	if stopErr != nil {
		return stopErr
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

func wire(bot *tele.Bot, opts RunOptions) {
	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	for _, r := range opts.Routes {
		if r.Endpoint != nil && r.Handler != nil {
			bot.Handle(r.Endpoint, r.Handler)
		}
	}
	SetupCommands(bot, opts.Registry)
}

// serve blocks in bot.Start until ctx ends or the poller gives up.
func serve(ctx context.Context, bot *tele.Bot) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Start()
	}()
	select {
	case <-ctx.Done():
		bot.Stop()
		<-done
		return ctx.Err()
	case <-done:
		return nil
	}
}

// drainMiddlewares lets handlers still running after polling stopped finish
// before OnStop releases what they use.
func drainMiddlewares(mws []Middleware, limit time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), limit)
	defer cancel()
	start := time.Now()
	for _, mw := range mws {
		if mw.Drain == nil {
			continue
		}
		err := mw.Drain(ctx)
		attrs := []slog.Attr{
			slog.String("status", logger.Status(err)),
			slog.String("middleware", mw.Name),
			slog.Duration("duration", logger.Took(start)),
		}
		if err != nil {
			attrs = append(attrs, slog.String("err", err.Error()))
		}
		logger.Info(ctx, "tg", "handlers.drain", attrs...)
	}
}

// dropWebhook removes a webhook left from an earlier webhook deployment;
// Telegram refuses getUpdates while one is set.
func dropWebhook(bot *tele.Bot) {
	if err := bot.RemoveWebhook(false); err != nil {
		logger.TG.Warn("failed to delete webhook",
			slog.String("event", "delete_webhook"),
			slog.String("status", "fail"),
			slog.String("err", netutil.Redact(err)),
		)
		return
	}
	logger.TG.Info("webhook deleted", slog.String("event", "delete_webhook"), slog.String("status", "ok"))
}

func closeOutbox(o *tgsender.Outbox) {
	if o == nil {
		return
	}
	o.Close()
	delivered, failed := o.Stats()
	logger.TG.Info("outbox stopped",
		slog.String("event", "outbox.stop"),
		slog.Uint64("delivered", delivered),
		slog.Uint64("failed", failed),
	)
}
