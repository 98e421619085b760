package state

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sadopc/tally/internal/model"
	"github.com/sadopc/tally/internal/store"
)

// GoalSnapshot is the savings goal as last loaded or set.
type GoalSnapshot struct {
	Title  string
	Price  float64
	Needed float64
}

// Saved is how much of the price has been put aside.
func (g GoalSnapshot) Saved() float64 {
	saved := g.Price - g.Needed
	if saved < 0 {
		return 0
	}
	return saved
}

// Progress is Saved/Price clamped to 0..1; zero without a price.
func (g GoalSnapshot) Progress() float64 {
	if g.Price <= 0 {
		return 0
	}
	p := g.Saved() / g.Price
	if p > 1 {
		return 1
	}
	return p
}

func (g GoalSnapshot) empty() bool {
	return g.Title == "" && g.Price == 0 && g.Needed == 0
}

// Goal is the savings goal: a title, a price and the amount still needed.
type Goal struct {
	base
	goal *Observable[GoalSnapshot]
}

// NewGoal returns an unloaded goal synchronizer.
func NewGoal(d Deps) *Goal {
	g := &Goal{goal: NewObservable(GoalSnapshot{})}
	g.init(d, "goal")
	return g
}

// Load reads the three goal keys.
func (g *Goal) Load(ctx context.Context) error {
	if err := g.beginLoad(ctx); err != nil {
		return err
	}

	var snap GoalSnapshot
	var errs []error
	var err error

	snap.Title, err = store.GetString(ctx, g.kv, model.KeyGoalTitle, "")
	errs = g.keep(errs, model.KeyGoalTitle, err)
	snap.Price, err = store.GetFloat(ctx, g.kv, model.KeyGoalPrice, 0)
	errs = g.keep(errs, model.KeyGoalPrice, err)
	snap.Needed, err = store.GetFloat(ctx, g.kv, model.KeyGoalNeeded, 0)
	errs = g.keep(errs, model.KeyGoalNeeded, err)

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("load goal: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.goal.Set(snap)
	g.settle(snap.empty())
	return nil
}

// keep logs corrupt values and collects real read errors.
func (g *Goal) keep(errs []error, key string, err error) []error {
	if store.IsCorrupt(err) {
		g.corrupt(key, err)
		return errs
	}
	if err != nil {
		return append(errs, err)
	}
	return errs
}

// Subscribe is called with the goal after every change.
func (g *Goal) Subscribe(fn func(GoalSnapshot)) (unsubscribe func()) {
	return g.goal.Subscribe(fn)
}

// Get returns the current goal.
func (g *Goal) Get() GoalSnapshot {
	return g.goal.Get()
}

// Progress is the fraction of the price already saved.
func (g *Goal) Progress() float64 {
	return g.goal.Get().Progress()
}

// Saved is the amount already saved toward the goal.
func (g *Goal) Saved() float64 {
	return g.goal.Get().Saved()
}

// Set replaces the whole goal. The three keys are written in one
// transaction.
func (g *Goal) Set(ctx context.Context, title string, price, needed float64) error {
	if err := g.ready(); err != nil {
		return err
	}
	title = strings.TrimSpace(title)
	if err := checkGoal(price, needed); err != nil {
		return err
	}
	snap := GoalSnapshot{Title: title, Price: price, Needed: needed}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.goal.Set(snap)
	g.settle(snap.empty())
	return g.submit(ctx, model.KeyGoalTitle, func(ctx context.Context, kv store.KV) error {
		return kv.Update(ctx, func(tx store.Tx) error {
			if err := store.SetString(ctx, tx, model.KeyGoalTitle, snap.Title); err != nil {
				return err
			}
			if err := store.SetFloat(ctx, tx, model.KeyGoalPrice, snap.Price); err != nil {
				return err
			}
			return store.SetFloat(ctx, tx, model.KeyGoalNeeded, snap.Needed)
		})
	})
}

// SetNeeded updates only the amount still needed.
func (g *Goal) SetNeeded(ctx context.Context, needed float64) error {
	if err := g.ready(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	snap := g.goal.Get()
	if err := checkGoal(snap.Price, needed); err != nil {
		return err
	}
	snap.Needed = needed
	g.goal.Set(snap)
	g.settle(snap.empty())
	return g.submit(ctx, model.KeyGoalNeeded, func(ctx context.Context, kv store.KV) error {
		return store.SetFloat(ctx, kv, model.KeyGoalNeeded, needed)
	})
}

func checkGoal(price, needed float64) error {
	if err := checkAmount(price); err != nil {
		return err
	}
	if err := checkAmount(needed); err != nil {
		return err
	}
	if price < 0 || needed < 0 {
		return fmt.Errorf("%w: goal amounts must not be negative", ErrInvalid)
	}
	return nil
}
