package state

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/sadopc/tally/internal/model"
	"github.com/sadopc/tally/internal/store"
)

// Upcoming is an event with its next occurrence resolved against today.
type Upcoming struct {
	model.Event
	Next time.Time
	Days int // negative for an overdue one-time event
}

// Overdue reports whether a one-time event's date has passed.
func (u Upcoming) Overdue() bool {
	return u.Days < 0
}

// Events manages dated life events stored as one JSON list.
type Events struct {
	base
	list *Observable[[]model.Event]
}

// NewEvents returns an unloaded events synchronizer.
func NewEvents(d Deps) *Events {
	e := &Events{list: NewObservable([]model.Event{})}
	e.init(d, "events")
	return e
}

// Load reads the events list.
func (e *Events) Load(ctx context.Context) error {
	if err := e.beginLoad(ctx); err != nil {
		return err
	}
	var list []model.Event
	_, err := store.GetJSON(ctx, e.kv, model.KeyEvents, &list)
	if store.IsCorrupt(err) {
		e.corrupt(model.KeyEvents, err)
		list, err = nil, nil
	}
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}
	if list == nil {
		list = []model.Event{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.list.Set(list)
	e.settle(len(list) == 0)
	return nil
}

// Subscribe is called with the full list after every change.
func (e *Events) Subscribe(fn func([]model.Event)) (unsubscribe func()) {
	return e.list.Subscribe(fn)
}

// List returns the events in creation order.
func (e *Events) List() []model.Event {
	return slices.Clone(e.list.Get())
}

// Add creates an event. clock is HH:MM or empty.
func (e *Events) Add(ctx context.Context, title, date, clock string, recurring bool) (model.Event, error) {
	if err := e.ready(); err != nil {
		return model.Event{}, err
	}
	ev, err := model.NewEvent(title, date, clock, recurring)
	if err != nil {
		return model.Event{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	list := append(slices.Clone(e.list.Get()), ev)
	e.list.Set(list)
	e.settle(false)
	err = e.submit(ctx, model.KeyEvents, func(ctx context.Context, kv store.KV) error {
		return patchEvents(ctx, kv, func(evs []model.Event) []model.Event {
			return append(evs, ev)
		})
	})
	return ev, err
}

// Delete removes an event.
func (e *Events) Delete(ctx context.Context, id string) error {
	if err := e.ready(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	list := e.list.Get()
	i := slices.IndexFunc(list, func(ev model.Event) bool { return ev.ID == id })
	if i < 0 {
		return fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	next := slices.Delete(slices.Clone(list), i, i+1)
	e.list.Set(next)
	e.settle(len(next) == 0)
	return e.submit(ctx, model.KeyEvents, func(ctx context.Context, kv store.KV) error {
		return patchEvents(ctx, kv, func(evs []model.Event) []model.Event {
			return slices.DeleteFunc(evs, func(ev model.Event) bool { return ev.ID == id })
		})
	})
}

// Upcoming returns every event with its next occurrence, soonest first.
// Overdue one-time events come before everything else. Events with an
// unreadable date are left out.
func (e *Events) Upcoming() []Upcoming {
	today := e.today()
	var out []Upcoming
	for _, ev := range e.list.Get() {
		next, ok := ev.NextOccurrence(today)
		if !ok {
			continue
		}
		days, _ := ev.DaysUntil(today)
		out = append(out, Upcoming{Event: ev, Next: next, Days: days})
	}
	slices.SortStableFunc(out, func(a, b Upcoming) int {
		if c := cmp.Compare(a.Days, b.Days); c != 0 {
			return c
		}
		return cmp.Compare(a.Time, b.Time)
	})
	return out
}

func patchEvents(ctx context.Context, kv store.KV, fn func([]model.Event) []model.Event) error {
	return kv.Update(ctx, func(tx store.Tx) error {
		var evs []model.Event
		if _, err := store.GetJSON(ctx, tx, model.KeyEvents, &evs); err != nil {
			if !store.IsCorrupt(err) {
				return err
			}
			evs = nil
		}
		evs = fn(evs)
		if evs == nil {
			evs = []model.Event{}
		}
		return store.PutJSON(ctx, tx, model.KeyEvents, evs)
	})
}
