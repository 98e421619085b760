package state

import (
	"context"
	"slices"

	"github.com/sadopc/tally/internal/model"
	"github.com/sadopc/tally/internal/store"
)

// ReadCounters reads the counters metadata list and each counter's value and
// history. Values embedded in the metadata are used when the dedicated keys
// are missing. Unreadable values are passed to onCorrupt (if non-nil) and
// replaced by defaults; only read errors are returned.
func ReadCounters(ctx context.Context, r store.Reader, onCorrupt func(key string, err error)) ([]model.Counter, error) {
	report := func(key string, err error) {
		if onCorrupt != nil {
			onCorrupt(key, err)
		}
	}

	var metas []model.Counter
	if _, err := store.GetJSON(ctx, r, model.KeyCounters, &metas); err != nil {
		if !store.IsCorrupt(err) {
			return nil, err
		}
		report(model.KeyCounters, err)
		metas = nil
	}

	out := make([]model.Counter, 0, len(metas))
	for _, m := range metas {
		vkey, hkey := model.CounterValueKey(m.ID), model.CounterHistoryKey(m.ID)

		v, err := store.GetFloat(ctx, r, vkey, m.Value)
		if store.IsCorrupt(err) {
			report(vkey, err)
		} else if err != nil {
			return nil, err
		}
		m.Value = v

		if ok, err := store.Has(ctx, r, hkey); err != nil {
			return nil, err
		} else if ok {
			h, err := store.ReadSeries(ctx, r, hkey)
			if store.IsCorrupt(err) {
				report(hkey, err)
			} else if err != nil {
				return nil, err
			}
			m.History = h
		}
		if m.History == nil {
			m.History = map[string]float64{}
		}
		out = append(out, m)
	}
	return out, nil
}

// ReplaceCountersTx makes list the complete set of counters: metadata, values
// and histories are written and every counter not in list is purged.
func ReplaceCountersTx(ctx context.Context, tx store.Tx, list []model.Counter) error {
	var old []model.Counter
	if _, err := store.GetJSON(ctx, tx, model.KeyCounters, &old); err != nil && !store.IsCorrupt(err) {
		return err
	}
	var dropped []string
	for _, o := range old {
		if !slices.ContainsFunc(list, func(c model.Counter) bool { return c.ID == o.ID }) {
			dropped = append(dropped, o.ID)
		}
	}
	if err := PurgeCountersTx(ctx, tx, dropped); err != nil {
		return err
	}

	metas := make([]model.Counter, len(list))
	for i, c := range list {
		metas[i] = c.Meta()
		if err := store.SetFloat(ctx, tx, model.CounterValueKey(c.ID), c.Value); err != nil {
			return err
		}
		if err := store.PutSeries(ctx, tx, model.CounterHistoryKey(c.ID), c.History); err != nil {
			return err
		}
	}
	return store.PutJSON(ctx, tx, model.KeyCounters, metas)
}

// PurgeCountersTx removes the given counters' metadata entries, values and
// histories.
func PurgeCountersTx(ctx context.Context, tx store.Tx, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := patchMetas(ctx, tx, func(ms []model.Counter) []model.Counter {
		return slices.DeleteFunc(ms, func(m model.Counter) bool {
			return slices.Contains(ids, m.ID)
		})
	})
	if err != nil {
		return err
	}
	keys := make([]string, 0, 2*len(ids))
	for _, id := range ids {
		keys = append(keys, model.CounterValueKey(id), model.CounterHistoryKey(id))
	}
	return tx.Delete(ctx, keys...)
}
