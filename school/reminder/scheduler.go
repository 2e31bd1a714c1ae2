package reminder

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/schoolbot/core/logger"
)

var (
	// ErrAlreadyRunning is returned by Start on a running scheduler.
	ErrAlreadyRunning = errors.New("reminder: scheduler already running")
	// ErrNotRunning is returned by Stop on a stopped scheduler.
	ErrNotRunning = errors.New("reminder: scheduler not running")
)

// Runnable is a named unit of scheduled work.
type Runnable interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler fires one job on a schedule. Runs never overlap; the next fire time
// is computed from the clock after each run, so missed fires are skipped.
type Scheduler struct {
	job      Runnable
	schedule Schedule
	now      func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool

	runMu sync.Mutex
}

// NewScheduler binds job to schedule.
func NewScheduler(job Runnable, schedule Schedule) *Scheduler {
	return &Scheduler{job: job, schedule: schedule, now: time.Now}
}

// Start launches the timer loop. It ends when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	logger.Info(ctx, "reminder", "scheduler.start",
		slog.String("job", s.job.Name()),
		slog.String("next_run", s.schedule.Next(s.now()).Format(time.RFC3339)),
	)
	go s.loop(ctx, s.done)
	return nil
}

// Stop cancels the loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.running = false
	s.cancel()
	done := s.done
	s.mu.Unlock()

	<-done
	logger.Info(context.Background(), "reminder", "scheduler.stop", slog.String("job", s.job.Name()))
	return nil
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		now := s.now()
		wait := s.schedule.Next(now).Sub(now)
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			_ = s.RunOnce(ctx)
		}
	}
}

// RunOnce executes the job now, waiting for any run already in progress.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	runID := uuid.NewString()
	start := time.Now()
	err := s.job.Run(ctx)

	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("job", s.job.Name()),
		slog.String("run_id", runID),
		slog.Duration("duration", logger.Took(start)),
		slog.String("next_run", s.schedule.Next(s.now()).Format(time.RFC3339)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", err.Error()))
		logger.Error(ctx, "reminder", "reminder.run", attrs...)
		return err
	}
	logger.Info(ctx, "reminder", "reminder.run", attrs...)
	return nil
}
