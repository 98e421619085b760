package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// The typed getters never fail for a missing key: they return def. On a read
// error or an undecodable value they return def together with the error so
// the caller can log it and carry on with the default.

func GetString(ctx context.Context, r Reader, key, def string) (string, error) {
	v, ok, err := r.Get(ctx, key)
	if err != nil || !ok {
		return def, err
	}
	return v.Text(), nil
}

func GetInt(ctx context.Context, r Reader, key string, def int) (int, error) {
	v, ok, err := r.Get(ctx, key)
	if err != nil || !ok {
		return def, err
	}
	n, err := v.Int()
	if err != nil {
		return def, fmt.Errorf("key %q: %w", key, err)
	}
	return int(n), nil
}

func GetFloat(ctx context.Context, r Reader, key string, def float64) (float64, error) {
	v, ok, err := r.Get(ctx, key)
	if err != nil || !ok {
		return def, err
	}
	f, err := v.Float()
	if err != nil {
		return def, fmt.Errorf("key %q: %w", key, err)
	}
	return f, nil
}

func GetBool(ctx context.Context, r Reader, key string, def bool) (bool, error) {
	v, ok, err := r.Get(ctx, key)
	if err != nil || !ok {
		return def, err
	}
	b, err := v.Bool()
	if err != nil {
		return def, fmt.Errorf("key %q: %w", key, err)
	}
	return b, nil
}

// Has reports whether key has ever been written.
func Has(ctx context.Context, r Reader, key string) (bool, error) {
	_, ok, err := r.Get(ctx, key)
	return ok, err
}

func SetString(ctx context.Context, w Writer, key, s string) error {
	return w.Put(ctx, key, StringValue(s))
}

func SetInt(ctx context.Context, w Writer, key string, n int) error {
	return w.Put(ctx, key, IntValue(int64(n)))
}

func SetFloat(ctx context.Context, w Writer, key string, f float64) error {
	v, err := FloatValue(f)
	if err != nil {
		return fmt.Errorf("key %q: %w", key, err)
	}
	return w.Put(ctx, key, v)
}

func SetBool(ctx context.Context, w Writer, key string, b bool) error {
	return w.Put(ctx, key, BoolValue(b))
}

// GetJSON decodes the JSON value under key into out. found is false for a
// missing key. A value that does not decode returns found=true and an
// ErrCorrupt error; out is then left in an unspecified state.
func GetJSON(ctx context.Context, r Reader, key string, out any) (found bool, err error) {
	v, ok, err := r.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(v.Raw), out); err != nil {
		return true, fmt.Errorf("key %q: %w: %v", key, ErrCorrupt, err)
	}
	return true, nil
}

// PutJSON stores v encoded as JSON under key.
func PutJSON(ctx context.Context, w Writer, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return w.Put(ctx, key, JSONValue(data))
}

// IsCorrupt reports whether err came from an undecodable stored value.
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCorrupt)
}
