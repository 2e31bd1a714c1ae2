// Package sender delivers bot-initiated messages in the background.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/schoolbot/core/logger"
	"github.com/m3rciful/schoolbot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("telegram outbox: closed")
	// ErrQueueFull is returned when the delivery was not accepted.
	ErrQueueFull = errors.New("telegram outbox: queue full")
)

const component = "tg.outbox"

// Sender is the part of *tele.Bot the outbox needs.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Delivery is one plain-text message for one chat.
type Delivery struct {
	ChatID int64
	Text   string
	// Source tags log lines, e.g. "reminder".
	Source string
}

// Options sizes the outbox. Zero fields take the defaults: 128 queued
// deliveries, 2 workers, 4 attempts, 1s base backoff, 1m deadline.
type Options struct {
	QueueSize   int
	Workers     int
	MaxAttempts int
	Backoff     time.Duration
	// Deadline bounds all attempts of one delivery, flood waits included.
	Deadline time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 128
	}
	if o.Workers <= 0 {
		o.Workers = 2
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 4
	}
	if o.Backoff <= 0 {
		o.Backoff = time.Second
	}
	if o.Deadline <= 0 {
		o.Deadline = time.Minute
	}
	return o
}

type queued struct {
	ctx context.Context
	Delivery
}

// Outbox sends queued deliveries with a small worker pool, retrying
// transient failures and waiting out Telegram flood limits.
type Outbox struct {
	send Sender
	opts Options

	mu     sync.RWMutex
	closed bool
	queue  chan queued
	wg     sync.WaitGroup

	delivered atomic.Uint64
	failed    atomic.Uint64
}

// New starts the workers of an outbox sending through send. Call Close to
// stop them once nothing enqueues anymore.
func New(send Sender, opts Options) *Outbox {
	opts = opts.withDefaults()
	o := &Outbox{
		send:  send,
		opts:  opts,
		queue: make(chan queued, opts.QueueSize),
	}
	o.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go o.work()
	}
	return o
}

// Enqueue accepts d without blocking. Request-scoped values of ctx are kept
// for logging but its cancellation does not abort the delivery.
func (o *Outbox) Enqueue(ctx context.Context, d Delivery) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return ErrQueueClosed
	}
	select {
	case o.queue <- queued{ctx: context.WithoutCancel(ctx), Delivery: d}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting deliveries and waits until queued ones are done.
func (o *Outbox) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	close(o.queue)
	o.mu.Unlock()
	o.wg.Wait()
}

// Stats reports delivered and failed counts since start.
func (o *Outbox) Stats() (delivered, failed uint64) {
	return o.delivered.Load(), o.failed.Load()
}

func (o *Outbox) work() {
	defer o.wg.Done()
	for q := range o.queue {
		if err := o.deliver(q); err != nil {
			o.failed.Add(1)
			continue
		}
		o.delivered.Add(1)
	}
}

func (o *Outbox) deliver(q queued) error {
	ctx, cancel := context.WithTimeout(q.ctx, o.opts.Deadline)
	defer cancel()

	start := time.Now()
	to := tele.ChatID(q.ChatID)
	var err error
	for attempt := 1; ; attempt++ {
		if _, err = o.send.Send(to, q.Text); err == nil {
			logger.Debug(ctx, component, "send.ok", append(o.attrs(q, attempt, start), slog.String("status", "ok"))...)
			return nil
		}
		if attempt >= o.opts.MaxAttempts || !netutil.Transient(err) {
			break
		}
		wait := netutil.Backoff(attempt, o.opts.Backoff, err)
		logger.Debug(ctx, component, "send.retry", append(o.attrs(q, attempt, start),
			slog.String("status", "retry"),
			slog.String("error_kind", netutil.Kind(err)),
			slog.Duration("wait", wait),
		)...)
		if !sleep(ctx, wait) {
			err = errors.Join(err, ctx.Err())
			break
		}
	}
	logger.Error(ctx, component, "send.fail", append(o.attrs(q, 0, start),
		slog.String("status", "fail"),
		slog.String("err", netutil.Redact(err)),
		slog.String("error_kind", netutil.Kind(err)),
	)...)
	return err
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (o *Outbox) attrs(q queued, attempt int, start time.Time) []slog.Attr {
	attrs := []slog.Attr{
		slog.Int64("chat_id", q.ChatID),
		slog.Duration("duration", logger.Took(start)),
	}
	if q.Source != "" {
		attrs = append(attrs, slog.String("source", q.Source))
	}
	if attempt > 0 {
		attrs = append(attrs, slog.Int("attempt", attempt))
	}
	return attrs
}
