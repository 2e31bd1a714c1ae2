package logger

import (
	"errors"
	"io"
	"sync"
	"time"
)

var errWriterClosed = errors.New("logger: writer closed")

// lineWriter batches log lines in memory and fans them out to every sink
// on a timer, when the batch grows past limit, or on an explicit Flush.
type lineWriter struct {
	mu     sync.Mutex
	sinks  []io.Writer
	batch  []byte
	limit  int
	err    error
	closed bool

	stop chan struct{}
	done chan struct{}
}

func newLineWriter(sinks []io.Writer, limit int, every time.Duration) *lineWriter {
	if limit <= 0 {
		limit = 64 * 1024
	}
	w := &lineWriter{
		limit: limit,
		batch: make([]byte, 0, limit),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	for _, s := range sinks {
		if s != nil {
			w.sinks = append(w.sinks, s)
		}
	}
	if every <= 0 {
		close(w.done)
		return w
	}
	go w.tick(every)
	return w
}

func (w *lineWriter) tick(every time.Duration) {
	defer close(w.done)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			_ = w.Flush()
		case <-w.stop:
			return
		}
	}
}

// Write appends one rendered line. The first sink error is sticky.
func (w *lineWriter) Write(line []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case w.err != nil:
		return w.err
	case w.closed:
		return errWriterClosed
	}
	w.batch = append(w.batch, line...)
	if len(w.batch) >= w.limit {
		return w.drainLocked()
	}
	return nil
}

func (w *lineWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	return w.drainLocked()
}

// Close stops the timer and writes out what is left.
func (w *lineWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return w.err
	}
	w.closed = true
	w.mu.Unlock()

	select {
	case <-w.done:
	default:
		close(w.stop)
		<-w.done
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	return w.drainLocked()
}

func (w *lineWriter) drainLocked() error {
	if len(w.batch) == 0 {
		return nil
	}
	for _, s := range w.sinks {
		if _, err := s.Write(w.batch); err != nil {
			w.err = err
			return err
		}
	}
	w.batch = w.batch[:0]
	return nil
}
