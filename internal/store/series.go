package store

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
)

// Series maps a date (YYYY-MM-DD), month (YYYY-MM) or other string key to a
// number. It is persisted as one flat JSON object under one key, so every
// change rewrites the whole blob.
type Series map[string]float64

// Clone returns a copy; a nil series clones to an empty one.
func (s Series) Clone() Series {
	if s == nil {
		return Series{}
	}
	return maps.Clone(s)
}

// Keys returns the series keys in ascending order. Date and month keys sort
// chronologically.
func (s Series) Keys() []string {
	return slices.Sorted(maps.Keys(s))
}

// Sum adds up every value.
func (s Series) Sum() float64 {
	var total float64
	for _, v := range s {
		total += v
	}
	return total
}

// EncodeSeries serializes s as a JSON object of numbers.
func EncodeSeries(s Series) ([]byte, error) {
	for k, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("series field %q: non-finite value %v", k, v)
		}
	}
	if s == nil {
		s = Series{}
	}
	return json.Marshal(map[string]float64(s))
}

// DecodeSeries parses a JSON object of numbers. A JSON null decodes to an
// empty series.
func DecodeSeries(data []byte) (Series, error) {
	var s Series
	if err := json.Unmarshal(data, &s); err != nil {
		return Series{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if s == nil {
		s = Series{}
	}
	return s, nil
}

// ReadSeries returns the series under key, an empty series when the key is
// missing, and an ErrCorrupt error (with an empty series) when the stored blob
// does not parse.
func ReadSeries(ctx context.Context, r Reader, key string) (Series, error) {
	v, ok, err := r.Get(ctx, key)
	if err != nil {
		return Series{}, err
	}
	if !ok {
		return Series{}, nil
	}
	s, err := DecodeSeries([]byte(v.Raw))
	if err != nil {
		return Series{}, fmt.Errorf("series %q: %w", key, err)
	}
	return s, nil
}

// GetSeries is ReadSeries with malformed blobs swallowed: they read as an
// empty series. Only read errors are returned.
func GetSeries(ctx context.Context, r Reader, key string) (Series, error) {
	s, err := ReadSeries(ctx, r, key)
	if IsCorrupt(err) {
		return Series{}, nil
	}
	return s, err
}

// PutSeries replaces the whole series under key.
func PutSeries(ctx context.Context, w Writer, key string, s Series) error {
	data, err := EncodeSeries(s)
	if err != nil {
		return fmt.Errorf("series %q: %w", key, err)
	}
	return w.Put(ctx, key, JSONValue(data))
}

// UpdateSeries applies fn to the current series under key and writes the
// result back, all inside one kv.Update. Concurrent updates of the same key
// cannot lose each other's changes.
func UpdateSeries(ctx context.Context, kv KV, key string, fn func(Series) error) error {
	return kv.Update(ctx, func(tx Tx) error {
		s, err := GetSeries(ctx, tx, key)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		return PutSeries(ctx, tx, key, s)
	})
}

// PutInSeries sets one field of the series under key, leaving the others
// untouched.
func PutInSeries(ctx context.Context, kv KV, key, field string, v float64) error {
	return UpdateSeries(ctx, kv, key, func(s Series) error {
		s[field] = v
		return nil
	})
}

// AddInSeries adds delta to one field (missing fields start at zero) and
// returns the new value.
func AddInSeries(ctx context.Context, kv KV, key, field string, delta float64) (float64, error) {
	var out float64
	err := UpdateSeries(ctx, kv, key, func(s Series) error {
		s[field] += delta
		out = s[field]
		return nil
	})
	return out, err
}

// DeleteFromSeries removes fields from the series under key.
func DeleteFromSeries(ctx context.Context, kv KV, key string, fields ...string) error {
	return UpdateSeries(ctx, kv, key, func(s Series) error {
		for _, f := range fields {
			delete(s, f)
		}
		return nil
	})
}
