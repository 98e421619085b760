package state

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sadopc/tally/internal/config"
	"github.com/sadopc/tally/internal/store"
	"github.com/stretchr/testify/require"
)

func TestWriterAppliesInSubmissionOrder(t *testing.T) {
	kv := store.NewMap()
	w := newTestWriter(t, kv)
	ctx := context.Background()

	for i := 1; i <= 50; i++ {
		n := i
		require.NoError(t, w.Submit(ctx, Op{Key: "n", Apply: func(ctx context.Context, kv store.KV) error {
			return store.SetInt(ctx, kv, "n", n)
		}}))
	}
	flush(t, w)

	got, err := store.GetInt(ctx, kv, "n", 0)
	require.NoError(t, err)
	require.Equal(t, 50, got, "last submitted write must win")
}

func TestWriterRetriesThenSucceeds(t *testing.T) {
	kv := newFlakyKV(2)
	w := newTestWriter(t, kv)
	ctx := context.Background()

	require.NoError(t, w.Submit(ctx, Op{Key: "salary_day", Apply: func(ctx context.Context, kv store.KV) error {
		return store.SetInt(ctx, kv, "salary_day", 25)
	}}))
	flush(t, w)

	require.Equal(t, 3, kv.attempts())
	require.Zero(t, w.Failures())
	n, _ := store.GetInt(ctx, kv, "salary_day", 0)
	require.Equal(t, 25, n)
}

func TestWriterReportsPermanentFailure(t *testing.T) {
	kv := newFlakyKV(100)
	w := newTestWriter(t, kv)
	ctx := context.Background()

	require.NoError(t, w.Submit(ctx, Op{Key: "daily_counts", Apply: func(ctx context.Context, kv store.KV) error {
		return store.PutInSeries(ctx, kv, "daily_counts", "2025-10-10", 1)
	}}))
	// A later op still runs after the failed one.
	require.NoError(t, w.Submit(ctx, Op{Key: "noop", Apply: func(context.Context, store.KV) error { return nil }}))
	flush(t, w)

	require.Equal(t, int64(1), w.Failures())
	require.Equal(t, fastWriter.MaxAttempts, kv.attempts())

	select {
	case werr := <-w.Errors():
		require.Equal(t, "daily_counts", werr.Key)
		require.Equal(t, 3, werr.Attempts)
		require.True(t, errors.Is(werr, errBoom))
	default:
		t.Fatal("expected a write error")
	}
}

func TestWriterErrorsNeverBlock(t *testing.T) {
	kv := newFlakyKV(1000)
	w := NewWriter(kv, config.WriterConfig{MaxAttempts: 1, BaseBackoffMS: 1, MaxBackoffMS: 1}, nil)
	ctx := context.Background()

	for i := 0; i < 40; i++ {
		key := fmt.Sprintf("k%d", i)
		w.Submit(ctx, Op{Key: key, Apply: func(ctx context.Context, kv store.KV) error {
			return store.SetInt(ctx, kv, key, 1)
		}})
	}
	closeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, w.Close(closeCtx))
	require.Equal(t, int64(40), w.Failures())
}

func TestWriterIgnoresCallerCancellation(t *testing.T) {
	kv := store.NewMap()
	w := newTestWriter(t, kv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Submit(ctx, Op{Key: "goal_title", Apply: func(ctx context.Context, kv store.KV) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return store.SetString(ctx, kv, "goal_title", "Car")
	}}))
	flush(t, w)

	title, _ := store.GetString(context.Background(), kv, "goal_title", "")
	require.Equal(t, "Car", title)
}

func TestWriterDoRunsInOrderAndReturnsError(t *testing.T) {
	kv := store.NewMap()
	w := newTestWriter(t, kv)
	ctx := context.Background()

	release := make(chan struct{})
	require.NoError(t, w.Submit(ctx, Op{Key: "n", Apply: func(ctx context.Context, kv store.KV) error {
		<-release
		return store.SetInt(ctx, kv, "n", 1)
	}}))

	var seen int
	done := make(chan error, 1)
	go func() {
		done <- w.Do(ctx, Op{Key: "n", Apply: func(ctx context.Context, kv store.KV) error {
			var err error
			seen, err = store.GetInt(ctx, kv, "n", 0)
			if err != nil {
				return err
			}
			return store.SetInt(ctx, kv, "n", 2)
		}})
	}()
	close(release)
	require.NoError(t, <-done)
	require.Equal(t, 1, seen, "Do must run after writes already queued")

	require.NoError(t, w.Submit(ctx, Op{Key: "n", Apply: func(ctx context.Context, kv store.KV) error {
		return store.SetInt(ctx, kv, "n", 3)
	}}))
	flush(t, w)
	n, _ := store.GetInt(ctx, kv, "n", 0)
	require.Equal(t, 3, n)

	err := w.Do(ctx, Op{Key: "import", Apply: func(context.Context, store.KV) error { return errBoom }})
	require.ErrorIs(t, err, errBoom)
	require.Zero(t, w.Failures(), "Do errors go to the caller, not the failure count")
	select {
	case werr := <-w.Errors():
		t.Fatalf("unexpected write error %v", werr)
	default:
	}
}

func TestWriterDoAfterClose(t *testing.T) {
	w := NewWriter(store.NewMap(), fastWriter, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Close(ctx))
	err := w.Do(ctx, Op{Key: "x", Apply: func(context.Context, store.KV) error { return nil }})
	require.ErrorIs(t, err, ErrWriterClosed)
}

func TestWriterCloseDrainsAndRejects(t *testing.T) {
	kv := store.NewMap()
	w := NewWriter(kv, fastWriter, nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		w.Submit(ctx, Op{Key: "c", Apply: func(ctx context.Context, kv store.KV) error {
			_, err := store.AddInSeries(ctx, kv, "c", "x", 1)
			return err
		}})
	}
	require.NoError(t, w.Close(ctx))

	s, _ := store.GetSeries(ctx, kv, "c")
	require.Equal(t, 10.0, s["x"])

	err := w.Submit(ctx, Op{Key: "late", Apply: func(context.Context, store.KV) error { return nil }})
	require.ErrorIs(t, err, ErrWriterClosed)
	require.NoError(t, w.Flush(ctx), "flush after close returns once drained")
	require.NoError(t, w.Close(ctx), "close is idempotent")
}

func TestWriterBackoff(t *testing.T) {
	w := &Writer{baseBackoff: 50 * time.Millisecond, maxBackoff: 300 * time.Millisecond}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 50 * time.Millisecond},
		{2, 100 * time.Millisecond},
		{3, 200 * time.Millisecond},
		{4, 300 * time.Millisecond},
		{9, 300 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := w.backoff(tt.attempt); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
