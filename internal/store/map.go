package store

import (
	"context"
	"slices"
	"sync"
)

var (
	_ KV = (*Store)(nil)
	_ KV = (*Map)(nil)
)

// Map is a non-durable KV held in process memory. It is a drop-in fake for
// tests that do not need SQLite.
type Map struct {
	mu   sync.Mutex
	data map[string]Value
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{data: make(map[string]Value)}
}

func (m *Map) Get(_ context.Context, key string) (Value, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Map) Put(_ context.Context, key string, v Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = v
	return nil
}

func (m *Map) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *Map) Keys(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

// Update holds the map lock for the whole of fn and applies its writes only
// when fn returns nil.
func (m *Map) Update(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &mapTx{base: m.data, staged: make(map[string]*Value)}
	if err := fn(tx); err != nil {
		return err
	}
	for k, v := range tx.staged {
		if v == nil {
			delete(m.data, k)
			continue
		}
		m.data[k] = *v
	}
	return nil
}

func (m *Map) Close() error { return nil }

// mapTx reads through its staged writes; a nil entry is a pending delete.
type mapTx struct {
	base   map[string]Value
	staged map[string]*Value
}

func (t *mapTx) Get(_ context.Context, key string) (Value, bool, error) {
	if v, ok := t.staged[key]; ok {
		if v == nil {
			return Value{}, false, nil
		}
		return *v, true, nil
	}
	v, ok := t.base[key]
	return v, ok, nil
}

func (t *mapTx) Put(_ context.Context, key string, v Value) error {
	t.staged[key] = &v
	return nil
}

func (t *mapTx) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		t.staged[k] = nil
	}
	return nil
}
