package state

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sadopc/tally/internal/config"
	"github.com/sadopc/tally/internal/store"
)

var errBoom = errors.New("disk full")

// fastWriter retries quickly so failure tests stay short.
var fastWriter = config.WriterConfig{MaxAttempts: 3, BaseBackoffMS: 1, MaxBackoffMS: 4}

func clockAt(t *testing.T, date string) func() time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		t.Fatalf("bad test date %q: %v", date, err)
	}
	at := d.Add(14 * time.Hour)
	return func() time.Time { return at }
}

func newTestWriter(t *testing.T, kv store.KV) *Writer {
	t.Helper()
	w := NewWriter(kv, fastWriter, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		w.Close(ctx)
	})
	return w
}

func newTestDeps(t *testing.T, kv store.KV, today string) Deps {
	t.Helper()
	return Deps{KV: kv, Writer: newTestWriter(t, kv), Clock: clockAt(t, today)}
}

func flush(t *testing.T, w *Writer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

// flakyKV fails the next `fails` writes, then behaves.
type flakyKV struct {
	*store.Map
	mu     sync.Mutex
	fails  int
	writes int
}

func newFlakyKV(fails int) *flakyKV {
	return &flakyKV{Map: store.NewMap(), fails: fails}
}

func (f *flakyKV) fail() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.fails > 0 {
		f.fails--
		return true
	}
	return false
}

func (f *flakyKV) attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func (f *flakyKV) Put(ctx context.Context, key string, v store.Value) error {
	if f.fail() {
		return errBoom
	}
	return f.Map.Put(ctx, key, v)
}

func (f *flakyKV) Update(ctx context.Context, fn func(store.Tx) error) error {
	if f.fail() {
		return errBoom
	}
	return f.Map.Update(ctx, fn)
}

// ============================================================
// Observable
// ============================================================

func TestObservableNotifiesSubscribers(t *testing.T) {
	o := NewObservable(1)
	var got []int
	unsub := o.Subscribe(func(v int) { got = append(got, v) })

	o.Set(2)
	o.Set(3)
	unsub()
	o.Set(4)

	if o.Get() != 4 {
		t.Fatalf("Get = %d, want 4", o.Get())
	}
	if len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Fatalf("subscriber saw %v, want [2 3]", got)
	}
}

func TestStatusString(t *testing.T) {
	for s, want := range map[Status]string{NotLoaded: "not loaded", LoadedEmpty: "empty", Loaded: "loaded"} {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
}
