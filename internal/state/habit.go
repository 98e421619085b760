package state

import (
	"context"
	"fmt"
	"time"

	"github.com/sadopc/tally/internal/calendar"
	"github.com/sadopc/tally/internal/model"
	"github.com/sadopc/tally/internal/store"
)

// DayCount is one day of the habit series.
type DayCount struct {
	Date  time.Time
	Count int
}

// Habit is the daily habit counter backed by the daily_counts series.
type Habit struct {
	base
	counts *Observable[store.Series]
}

// NewHabit returns an unloaded habit synchronizer.
func NewHabit(d Deps) *Habit {
	h := &Habit{counts: NewObservable(store.Series{})}
	h.init(d, "habit")
	return h
}

// Load reads daily_counts. A malformed blob loads as an empty series.
func (h *Habit) Load(ctx context.Context) error {
	if err := h.beginLoad(ctx); err != nil {
		return err
	}
	s, err := store.ReadSeries(ctx, h.kv, model.KeyDailyCounts)
	if store.IsCorrupt(err) {
		h.corrupt(model.KeyDailyCounts, err)
		err = nil
	}
	if err != nil {
		return fmt.Errorf("load habit: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.counts.Set(s)
	h.settle(len(s) == 0)
	return nil
}

// Subscribe is called with the whole series after every change.
func (h *Habit) Subscribe(fn func(store.Series)) (unsubscribe func()) {
	return h.counts.Subscribe(fn)
}

// Counts returns a copy of the whole series.
func (h *Habit) Counts() store.Series {
	return h.counts.Get().Clone()
}

// Today returns today's count.
func (h *Habit) Today() int {
	return int(h.counts.Get()[calendar.DateKey(h.today())])
}

// WeekTotal sums the counts of the current Monday-to-Sunday week.
func (h *Habit) WeekTotal() int {
	today := h.today()
	total := 0
	for key, n := range h.counts.Get() {
		d, err := calendar.ParseDateKey(key)
		if err != nil {
			continue
		}
		if calendar.IsThisWeek(d, today) {
			total += int(n)
		}
	}
	return total
}

// Last returns the counts of the n days ending today, oldest first. Days
// without an entry count as zero.
func (h *Habit) Last(n int) []DayCount {
	if n <= 0 {
		return nil
	}
	counts := h.counts.Get()
	today := h.today()
	out := make([]DayCount, n)
	for i := range out {
		d := today.AddDate(0, 0, i-n+1)
		out[i] = DayCount{Date: d, Count: int(counts[calendar.DateKey(d)])}
	}
	return out
}

// Increment adds one to today's count.
func (h *Habit) Increment(ctx context.Context) error {
	return h.adjust(ctx, 1)
}

// Decrement removes one from today's count, never going below zero.
func (h *Habit) Decrement(ctx context.Context) error {
	return h.adjust(ctx, -1)
}

// Reset sets today's count to zero.
func (h *Habit) Reset(ctx context.Context) error {
	return h.SetDay(ctx, calendar.DateKey(h.today()), 0)
}

func (h *Habit) adjust(ctx context.Context, delta int) error {
	if err := h.ready(); err != nil {
		return err
	}
	key := calendar.DateKey(h.today())

	h.mu.Lock()
	defer h.mu.Unlock()
	n := int(h.counts.Get()[key]) + delta
	if n < 0 {
		return nil
	}
	return h.setLocked(ctx, key, n)
}

// SetDay sets the count of one date (YYYY-MM-DD).
func (h *Habit) SetDay(ctx context.Context, date string, n int) error {
	if err := h.ready(); err != nil {
		return err
	}
	if _, err := calendar.ParseDateKey(date); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if n < 0 {
		return fmt.Errorf("%w: negative count %d", ErrInvalid, n)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.setLocked(ctx, date, n)
}

// setLocked updates memory and queues the write. The submit happens under
// h.mu so queue order matches memory order.
func (h *Habit) setLocked(ctx context.Context, date string, n int) error {
	s := h.counts.Get().Clone()
	s[date] = float64(n)
	h.counts.Set(s)
	h.settle(false)

	return h.submit(ctx, model.KeyDailyCounts, func(ctx context.Context, kv store.KV) error {
		return store.PutInSeries(ctx, kv, model.KeyDailyCounts, date, float64(n))
	})
}
