package middleware

import (
	"context"
	"errors"
	"sync"

	tele "gopkg.in/telebot.v4"
)

// ErrSequencerClosed is returned for updates that arrive after Drain.
var ErrSequencerClosed = errors.New("middleware: sequencer closed")

// Sequencer runs the updates of one sender on a dedicated worker, in the
// order the middleware saw them. The bot must dispatch synchronously so
// that order is the arrival order. Different senders run concurrently.
type Sequencer struct {
	onError func(error, tele.Context)

	mu     sync.Mutex
	queues map[int64][]func()
	closed bool
	wg     sync.WaitGroup
}

// NewSequencer returns a Sequencer that reports handler errors to onError,
// since the bot only sees the immediate return of the middleware.
func NewSequencer(onError func(error, tele.Context)) *Sequencer {
	return &Sequencer{onError: onError, queues: make(map[int64][]func())}
}

// Middleware queues the rest of the chain on the sender's worker and
// returns at once.
func (s *Sequencer) Middleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		var id int64
		if u := c.Sender(); u != nil {
			id = u.ID
		}
		job := func() {
			if err := next(c); err != nil && s.onError != nil {
				s.onError(err, c)
			}
		}
		if !s.enqueue(id, job) {
			return ErrSequencerClosed
		}
		return nil
	}
}

// enqueue appends job to the queue of id, starting a worker when the queue
// was idle. A zero id has no order to keep and runs on its own goroutine.
func (s *Sequencer) enqueue(id int64, job func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.wg.Add(1)
	if id == 0 {
		go func() {
			defer s.wg.Done()
			job()
		}()
		return true
	}
	if q, busy := s.queues[id]; busy {
		s.queues[id] = append(q, job)
		return true
	}
	s.queues[id] = nil
	go s.work(id, job)
	return true
}

func (s *Sequencer) work(id int64, job func()) {
	for {
		job()
		s.wg.Done()

		s.mu.Lock()
		q := s.queues[id]
		if len(q) == 0 {
			delete(s.queues, id)
			s.mu.Unlock()
			return
		}
		job = q[0]
		q[0] = nil
		s.queues[id] = q[1:]
		s.mu.Unlock()
	}
}

// Drain refuses new updates and waits until every queued one has run.
func (s *Sequencer) Drain(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sequencer) busy() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues)
}
