package state

import (
	"context"
	"sync"
	"time"

	"github.com/sadopc/tally/internal/calendar"
	"github.com/sadopc/tally/internal/logging"
	"github.com/sadopc/tally/internal/store"
)

// Deps are the collaborators shared by every synchronizer.
type Deps struct {
	KV     store.KV
	Writer *Writer
	Log    *logging.Logger
	// Clock returns the current time. Nil means time.Now.
	Clock func() time.Time
}

// base carries what every synchronizer needs: the store port, the writer,
// a logger, the clock and the load status. mu serializes mutations of one
// synchronizer so read-modify-write on its in-memory copy cannot interleave.
type base struct {
	kv     store.KV
	writer *Writer
	log    *logging.Logger
	clock  func() time.Time
	status *Observable[Status]
	mu     sync.Mutex
}

func (b *base) init(d Deps, component string) {
	log := d.Log
	if log == nil {
		log = logging.Nop()
	}
	clock := d.Clock
	if clock == nil {
		clock = time.Now
	}
	b.kv = d.KV
	b.writer = d.Writer
	b.log = log.WithComponent(component)
	b.clock = clock
	b.status = NewObservable(NotLoaded)
}

// Status reports whether Load has completed and found data.
func (b *base) Status() Status {
	return b.status.Get()
}

// OnStatus subscribes to status changes.
func (b *base) OnStatus(fn func(Status)) (unsubscribe func()) {
	return b.status.Subscribe(fn)
}

func (b *base) ready() error {
	if b.status.Get() == NotLoaded {
		return ErrNotLoaded
	}
	return nil
}

// settle moves the status between LoadedEmpty and Loaded after a load or a
// mutation.
func (b *base) settle(empty bool) {
	want := Loaded
	if empty {
		want = LoadedEmpty
	}
	if b.status.Get() != want {
		b.status.Set(want)
	}
}

func (b *base) today() time.Time {
	return calendar.Day(b.clock())
}

// beginLoad waits for writes already queued so the bulk read cannot observe
// a state older than memory, e.g. a deleted counter coming back.
func (b *base) beginLoad(ctx context.Context) error {
	return b.writer.Flush(ctx)
}

func (b *base) submit(ctx context.Context, key string, apply func(ctx context.Context, kv store.KV) error) error {
	return b.writer.Submit(ctx, Op{Key: key, Apply: apply})
}

// corrupt logs a stored value that failed to decode. The feature carries on
// with the default.
func (b *base) corrupt(key string, err error) {
	b.log.WithError(err).Warnw("ignoring unreadable stored value", "key", key)
}
