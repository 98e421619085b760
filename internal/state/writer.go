package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sadopc/tally/internal/config"
	"github.com/sadopc/tally/internal/logging"
	"github.com/sadopc/tally/internal/store"
)

// ErrWriterClosed is returned by Submit after Close.
var ErrWriterClosed = errors.New("writer closed")

// Op is one persistence step. Key names the store key it writes and is used
// for logging only.
type Op struct {
	Key   string
	Apply func(ctx context.Context, kv store.KV) error
}

// WriteError reports an op that still failed after its last attempt.
type WriteError struct {
	Key      string
	Attempts int
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s failed after %d attempts: %v", e.Key, e.Attempts, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

type queued struct {
	ctx     context.Context
	op      Op
	barrier chan struct{}
	result  chan error // set by Do
}

// Writer applies ops to the store one at a time, in submission order, on a
// single goroutine. Submit never blocks. Failed ops are retried with
// exponential backoff; an op that exhausts its attempts is logged and
// reported on Errors, and the queue moves on.
type Writer struct {
	kv          store.KV
	log         *logging.Logger
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration

	mu     sync.Mutex
	queue  []queued
	closed bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
	errs chan *WriteError

	failures atomic.Int64
}

// NewWriter starts the writer goroutine. Call Close to stop it.
func NewWriter(kv store.KV, cfg config.WriterConfig, log *logging.Logger) *Writer {
	if log == nil {
		log = logging.Nop()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	w := &Writer{
		kv:          kv,
		log:         log.WithComponent("writer"),
		maxAttempts: cfg.MaxAttempts,
		baseBackoff: cfg.BaseBackoff(),
		maxBackoff:  cfg.MaxBackoff(),
		wake:        make(chan struct{}, 1),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
		errs:        make(chan *WriteError, 16),
	}
	go w.run()
	return w
}

// Submit queues op. The op runs with a context that keeps ctx's values but
// is never cancelled, so tearing down the caller does not abort the write.
func (w *Writer) Submit(ctx context.Context, op Op) error {
	return w.enqueue(queued{ctx: context.WithoutCancel(ctx), op: op})
}

func (w *Writer) enqueue(q queued) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWriterClosed
	}
	w.queue = append(w.queue, q)
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return nil
}

// Do queues op behind every op already submitted and waits for its result.
// The op runs once, without retries, and its error is returned to the caller
// instead of being reported on Errors. Ops submitted while it waits run after
// it. If ctx ends first, Do returns ctx.Err() and the op still runs.
func (w *Writer) Do(ctx context.Context, op Op) error {
	result := make(chan error, 1)
	if err := w.enqueue(queued{ctx: context.WithoutCancel(ctx), op: op, result: result}); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Errors delivers ops that failed for good. Sends never block; when nobody
// is reading, reports beyond the buffer are dropped (they are still logged).
func (w *Writer) Errors() <-chan *WriteError {
	return w.errs
}

// Failures returns the number of ops that failed for good.
func (w *Writer) Failures() int64 {
	return w.failures.Load()
}

// Flush waits until every op submitted before the call has been applied or
// has failed for good.
func (w *Writer) Flush(ctx context.Context) error {
	barrier := make(chan struct{})
	if err := w.enqueue(queued{barrier: barrier}); err != nil {
		// Closed: the queue drains on its own before done closes.
		select {
		case <-w.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting ops, waits for the queue to drain and stops the
// goroutine. If ctx expires first the remaining ops are still applied in the
// background.
func (w *Writer) Close(ctx context.Context) error {
	if err := w.Flush(ctx); err != nil {
		return err
	}

	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.quit)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) next() (queued, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return queued{}, false
	}
	q := w.queue[0]
	w.queue[0] = queued{}
	w.queue = w.queue[1:]
	return q, true
}

func (w *Writer) run() {
	defer close(w.done)
	for {
		q, ok := w.next()
		if !ok {
			select {
			case <-w.wake:
				continue
			case <-w.quit:
				// Closed is set under the lock before quit closes, so nothing
				// can be queued after this final check.
				if q, ok := w.next(); ok {
					w.apply(q)
					continue
				}
				return
			}
		}
		w.apply(q)
	}
}

func (w *Writer) apply(q queued) {
	if q.barrier != nil {
		close(q.barrier)
		return
	}
	if q.result != nil {
		err := q.op.Apply(q.ctx, w.kv)
		if err != nil {
			w.log.WithError(err).Warnw("store op failed", "key", q.op.Key)
		}
		q.result <- err
		return
	}

	var err error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		if err = q.op.Apply(q.ctx, w.kv); err == nil {
			if attempt > 1 {
				w.log.Infow("store write succeeded after retry", "key", q.op.Key, "attempts", attempt)
			}
			return
		}
		if attempt < w.maxAttempts {
			delay := w.backoff(attempt)
			w.log.Warnw("store write failed, retrying",
				"key", q.op.Key, "attempt", attempt, "delay", delay, "error", err)
			time.Sleep(delay)
		}
	}

	w.failures.Add(1)
	werr := &WriteError{Key: q.op.Key, Attempts: w.maxAttempts, Err: err}
	w.log.WithError(err).Errorw("store write failed", "key", q.op.Key, "attempts", w.maxAttempts)
	select {
	case w.errs <- werr:
	default:
	}
}

// backoff returns the delay after the given failed attempt: base, 2*base,
// 4*base and so on, capped at maxBackoff.
func (w *Writer) backoff(attempt int) time.Duration {
	d := w.baseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if w.maxBackoff > 0 && d >= w.maxBackoff {
			return w.maxBackoff
		}
	}
	if w.maxBackoff > 0 && d > w.maxBackoff {
		return w.maxBackoff
	}
	return d
}
