package state

import (
	"context"
	"fmt"
	"slices"

	"github.com/sadopc/tally/internal/calendar"
	"github.com/sadopc/tally/internal/model"
	"github.com/sadopc/tally/internal/store"
)

var errCumulative = fmt.Errorf("%w: cumulative counter cannot decrease", ErrInvalid)

// Counters manages the user-defined counters. Metadata of every counter is
// one JSON list under "counters"; each counter's value and history live
// under their own keys so a +1 rewrites only that counter.
type Counters struct {
	base
	list    *Observable[[]model.Counter]
	deleted map[string]struct{}
}

// NewCounters returns an unloaded counters synchronizer.
func NewCounters(d Deps) *Counters {
	c := &Counters{
		list:    NewObservable([]model.Counter{}),
		deleted: make(map[string]struct{}),
	}
	c.init(d, "counters")
	return c
}

// Load reads every counter. Counters deleted in this session stay hidden
// even if a stale copy is still in the store.
func (c *Counters) Load(ctx context.Context) error {
	if err := c.beginLoad(ctx); err != nil {
		return err
	}
	all, err := ReadCounters(ctx, c.kv, c.corrupt)
	if err != nil {
		return fmt.Errorf("load counters: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	out := slices.DeleteFunc(all, func(ct model.Counter) bool {
		_, gone := c.deleted[ct.ID]
		return gone
	})
	c.list.Set(out)
	c.settle(len(out) == 0)
	return nil
}

// Reload forgets the ids deleted in this session and loads again. Used after
// an import, which may legitimately bring a deleted counter back.
func (c *Counters) Reload(ctx context.Context) error {
	c.mu.Lock()
	clear(c.deleted)
	c.mu.Unlock()
	return c.Load(ctx)
}

// Subscribe is called with the full list after every change.
func (c *Counters) Subscribe(fn func([]model.Counter)) (unsubscribe func()) {
	return c.list.Subscribe(fn)
}

// List returns deep copies of every counter in creation order.
func (c *Counters) List() []model.Counter {
	list := c.list.Get()
	out := make([]model.Counter, len(list))
	for i, ct := range list {
		out[i] = ct.Clone()
	}
	return out
}

// Get returns a copy of one counter.
func (c *Counters) Get(id string) (model.Counter, error) {
	for _, ct := range c.list.Get() {
		if ct.ID == id {
			return ct.Clone(), nil
		}
	}
	return model.Counter{}, fmt.Errorf("counter %s: %w", id, ErrNotFound)
}

// Add creates a counter of the given variant starting at zero.
func (c *Counters) Add(ctx context.Context, title string, v model.Variant) (model.Counter, error) {
	if err := c.ready(); err != nil {
		return model.Counter{}, err
	}
	ct, err := model.NewCounter(title, v)
	if err != nil {
		return model.Counter{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	ct.History = map[string]float64{}

	c.mu.Lock()
	defer c.mu.Unlock()
	list := slices.Clone(c.list.Get())
	list = append(list, ct)
	c.list.Set(list)
	c.settle(false)

	meta := ct.Meta()
	err = c.submit(ctx, model.KeyCounters, func(ctx context.Context, kv store.KV) error {
		return kv.Update(ctx, func(tx store.Tx) error {
			if err := patchMetas(ctx, tx, func(ms []model.Counter) []model.Counter {
				return append(ms, meta)
			}); err != nil {
				return err
			}
			return store.SetFloat(ctx, tx, model.CounterValueKey(meta.ID), 0)
		})
	})
	return ct.Clone(), err
}

// Increment adds one.
func (c *Counters) Increment(ctx context.Context, id string) error {
	return c.AddAmount(ctx, id, 1)
}

// Decrement removes one, never going below zero. Cumulative counters
// cannot be decremented.
func (c *Counters) Decrement(ctx context.Context, id string) error {
	return c.mutate(ctx, id, func(ct *model.Counter) error {
		if ct.Kind() == model.KindCumulative {
			return errCumulative
		}
		if ct.Value-1 < 0 {
			return nil
		}
		ct.Value--
		return nil
	})
}

// AddAmount adds delta to the value. Cumulative counters only grow.
func (c *Counters) AddAmount(ctx context.Context, id string, delta float64) error {
	if err := checkAmount(delta); err != nil {
		return err
	}
	return c.mutate(ctx, id, func(ct *model.Counter) error {
		ct.Value += delta
		return nil
	})
}

// SetValue replaces the value. A cumulative counter may only be set higher.
func (c *Counters) SetValue(ctx context.Context, id string, v float64) error {
	if err := checkAmount(v); err != nil {
		return err
	}
	return c.mutate(ctx, id, func(ct *model.Counter) error {
		ct.Value = v
		return nil
	})
}

// mutate applies fn to a copy of the counter, records the new value as
// today's history entry and persists value and history together.
func (c *Counters) mutate(ctx context.Context, id string, fn func(*model.Counter) error) error {
	if err := c.ready(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	list := slices.Clone(c.list.Get())
	i := slices.IndexFunc(list, func(ct model.Counter) bool { return ct.ID == id })
	if i < 0 {
		return fmt.Errorf("counter %s: %w", id, ErrNotFound)
	}
	ct := list[i].Clone()
	before := ct.Value
	if err := fn(&ct); err != nil {
		return err
	}
	if ct.Kind() == model.KindCumulative && ct.Value < before {
		return errCumulative
	}
	if ct.Value == before {
		return nil
	}

	day := calendar.DateKey(c.today())
	if ct.History == nil {
		ct.History = map[string]float64{}
	}
	ct.History[day] = ct.Value
	list[i] = ct
	c.list.Set(list)

	value := ct.Value
	return c.submit(ctx, model.CounterValueKey(id), func(ctx context.Context, kv store.KV) error {
		return kv.Update(ctx, func(tx store.Tx) error {
			if err := store.SetFloat(ctx, tx, model.CounterValueKey(id), value); err != nil {
				return err
			}
			hkey := model.CounterHistoryKey(id)
			h, err := store.ReadSeries(ctx, tx, hkey)
			if store.IsCorrupt(err) {
				c.corrupt(hkey, err)
				err = nil
			}
			if err != nil {
				return err
			}
			h[day] = value
			return store.PutSeries(ctx, tx, hkey, h)
		})
	})
}

// SetHubMonth records a budget hub's salary and savings for month (YYYY-MM).
func (c *Counters) SetHubMonth(ctx context.Context, id, month string, salary, savings float64) error {
	if err := c.ready(); err != nil {
		return err
	}
	if _, err := calendar.ParseMonthKey(month); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := checkAmount(salary); err != nil {
		return err
	}
	if err := checkAmount(savings); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	list := slices.Clone(c.list.Get())
	i := slices.IndexFunc(list, func(ct model.Counter) bool { return ct.ID == id })
	if i < 0 {
		return fmt.Errorf("counter %s: %w", id, ErrNotFound)
	}
	ct := list[i].Clone()
	hub, ok := ct.Variant.(model.BudgetHub)
	if !ok {
		return fmt.Errorf("%w: counter %s is %s, not a budget hub", ErrInvalid, id, ct.Kind())
	}
	if hub.Salaries == nil {
		hub.Salaries = map[string]float64{}
	}
	if hub.Savings == nil {
		hub.Savings = map[string]float64{}
	}
	hub.Salaries[month] = salary
	hub.Savings[month] = savings
	ct.Variant = hub
	list[i] = ct
	c.list.Set(list)

	meta := ct.Meta()
	return c.submit(ctx, model.KeyCounters, func(ctx context.Context, kv store.KV) error {
		return kv.Update(ctx, func(tx store.Tx) error {
			return patchMetas(ctx, tx, func(ms []model.Counter) []model.Counter {
				for j := range ms {
					if ms[j].ID == meta.ID {
						ms[j] = meta
					}
				}
				return ms
			})
		})
	})
}

// Delete removes a counter for good: its metadata entry, value and history
// are purged in one transaction and the id is never loaded again.
func (c *Counters) Delete(ctx context.Context, id string) error {
	if err := c.ready(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.list.Get()
	i := slices.IndexFunc(list, func(ct model.Counter) bool { return ct.ID == id })
	if i < 0 {
		return fmt.Errorf("counter %s: %w", id, ErrNotFound)
	}
	next := slices.Delete(slices.Clone(list), i, i+1)
	c.deleted[id] = struct{}{}
	c.list.Set(next)
	c.settle(len(next) == 0)

	return c.submit(ctx, model.KeyCounters, func(ctx context.Context, kv store.KV) error {
		return purgeCounters(ctx, kv, id)
	})
}

func purgeCounters(ctx context.Context, kv store.KV, ids ...string) error {
	return kv.Update(ctx, func(tx store.Tx) error {
		return PurgeCountersTx(ctx, tx, ids)
	})
}

// patchMetas rewrites the stored metadata list through fn. An unreadable
// list is treated as empty.
func patchMetas(ctx context.Context, tx store.Tx, fn func([]model.Counter) []model.Counter) error {
	var ms []model.Counter
	if _, err := store.GetJSON(ctx, tx, model.KeyCounters, &ms); err != nil {
		if !store.IsCorrupt(err) {
			return err
		}
		ms = nil
	}
	ms = fn(ms)
	if ms == nil {
		ms = []model.Counter{}
	}
	return store.PutJSON(ctx, tx, model.KeyCounters, ms)
}
