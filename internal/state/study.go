package state

import (
	"context"
	"fmt"
	"strings"

	"github.com/sadopc/tally/internal/model"
	"github.com/sadopc/tally/internal/store"
)

// MaxLevel is the level at which a card counts as mastered.
const MaxLevel = 5

// Study records per-card review progress. Each card id maps to a level:
// a known answer moves it up by one (up to MaxLevel), a miss drops it to 0.
type Study struct {
	base
	progress *Observable[store.Series]
}

// NewStudy returns an unloaded study synchronizer.
func NewStudy(d Deps) *Study {
	s := &Study{progress: NewObservable(store.Series{})}
	s.init(d, "study")
	return s
}

// Load reads study_progress.
func (s *Study) Load(ctx context.Context) error {
	if err := s.beginLoad(ctx); err != nil {
		return err
	}
	p, err := store.ReadSeries(ctx, s.kv, model.KeyStudyProgress)
	if store.IsCorrupt(err) {
		s.corrupt(model.KeyStudyProgress, err)
		err = nil
	}
	if err != nil {
		return fmt.Errorf("load study: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress.Set(p)
	s.settle(len(p) == 0)
	return nil
}

// Subscribe is called with the whole progress series after every change.
func (s *Study) Subscribe(fn func(store.Series)) (unsubscribe func()) {
	return s.progress.Subscribe(fn)
}

// Level returns a card's level; unseen cards are at 0.
func (s *Study) Level(card string) int {
	return int(s.progress.Get()[card])
}

// Seen is the number of cards reviewed at least once.
func (s *Study) Seen() int {
	return len(s.progress.Get())
}

// KnownCount is the number of cards above level 0.
func (s *Study) KnownCount() int {
	n := 0
	for _, lvl := range s.progress.Get() {
		if lvl > 0 {
			n++
		}
	}
	return n
}

// MasteredCount is the number of cards at MaxLevel.
func (s *Study) MasteredCount() int {
	n := 0
	for _, lvl := range s.progress.Get() {
		if lvl >= MaxLevel {
			n++
		}
	}
	return n
}

// Review records one answer for card and returns its new level.
func (s *Study) Review(ctx context.Context, card string, known bool) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	card = strings.TrimSpace(card)
	if card == "" {
		return 0, fmt.Errorf("%w: empty card id", ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.progress.Get().Clone()
	lvl := 0
	if known {
		lvl = min(int(p[card])+1, MaxLevel)
	}
	p[card] = float64(lvl)
	s.progress.Set(p)
	s.settle(false)
	return lvl, s.submit(ctx, model.KeyStudyProgress, func(ctx context.Context, kv store.KV) error {
		return store.PutInSeries(ctx, kv, model.KeyStudyProgress, card, float64(lvl))
	})
}

// Forget removes a card's progress.
func (s *Study) Forget(ctx context.Context, card string) error {
	if err := s.ready(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.progress.Get()
	if _, ok := p[card]; !ok {
		return nil
	}
	p = p.Clone()
	delete(p, card)
	s.progress.Set(p)
	s.settle(len(p) == 0)
	return s.submit(ctx, model.KeyStudyProgress, func(ctx context.Context, kv store.KV) error {
		return store.DeleteFromSeries(ctx, kv, model.KeyStudyProgress, card)
	})
}
