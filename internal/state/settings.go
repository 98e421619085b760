package state

import (
	"context"
	"fmt"

	"github.com/sadopc/tally/internal/model"
	"github.com/sadopc/tally/internal/store"
)

// Settings holds the theme preference.
type Settings struct {
	base
	theme *Observable[model.Theme]
}

// NewSettings returns an unloaded settings synchronizer.
func NewSettings(d Deps) *Settings {
	s := &Settings{theme: NewObservable(model.ThemeSystem)}
	s.init(d, "settings")
	return s
}

// Load reads theme_preference. An unknown stored theme falls back to SYSTEM.
func (s *Settings) Load(ctx context.Context) error {
	if err := s.beginLoad(ctx); err != nil {
		return err
	}
	raw, err := store.GetString(ctx, s.kv, model.KeyTheme, "")
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	theme := model.ThemeSystem
	if raw != "" {
		t, err := model.ParseTheme(raw)
		if err != nil {
			s.corrupt(model.KeyTheme, err)
		} else {
			theme = t
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.theme.Set(theme)
	s.settle(raw == "")
	return nil
}

// Subscribe is called with the theme after every change.
func (s *Settings) Subscribe(fn func(model.Theme)) (unsubscribe func()) {
	return s.theme.Subscribe(fn)
}

// Theme returns the current theme preference.
func (s *Settings) Theme() model.Theme {
	return s.theme.Get()
}

// SetTheme stores the theme preference.
func (s *Settings) SetTheme(ctx context.Context, t model.Theme) error {
	if err := s.ready(); err != nil {
		return err
	}
	t, err := model.ParseTheme(string(t))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.theme.Set(t)
	s.settle(false)
	return s.submit(ctx, model.KeyTheme, func(ctx context.Context, kv store.KV) error {
		return store.SetString(ctx, kv, model.KeyTheme, string(t))
	})
}
