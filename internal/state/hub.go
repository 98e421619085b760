package state

import (
	"context"
	"errors"
)

// Hub bundles one synchronizer per feature over the same store and writer.
type Hub struct {
	Habit    *Habit
	Finance  *Finance
	Goal     *Goal
	Counters *Counters
	Events   *Events
	Study    *Study
	Settings *Settings
}

// NewHub builds every synchronizer. Nothing is read until Load.
func NewHub(d Deps) *Hub {
	return &Hub{
		Habit:    NewHabit(d),
		Finance:  NewFinance(d),
		Goal:     NewGoal(d),
		Counters: NewCounters(d),
		Events:   NewEvents(d),
		Study:    NewStudy(d),
		Settings: NewSettings(d),
	}
}

// Load loads every feature. A feature that fails stays NotLoaded; the
// others load regardless.
func (h *Hub) Load(ctx context.Context) error {
	return errors.Join(
		h.Habit.Load(ctx),
		h.Finance.Load(ctx),
		h.Goal.Load(ctx),
		h.Counters.Load(ctx),
		h.Events.Load(ctx),
		h.Study.Load(ctx),
		h.Settings.Load(ctx),
	)
}

// Reload loads every feature again after the store was changed from
// outside, e.g. by an import.
func (h *Hub) Reload(ctx context.Context) error {
	return errors.Join(
		h.Habit.Load(ctx),
		h.Finance.Load(ctx),
		h.Goal.Load(ctx),
		h.Counters.Reload(ctx),
		h.Events.Load(ctx),
		h.Study.Load(ctx),
		h.Settings.Load(ctx),
	)
}
