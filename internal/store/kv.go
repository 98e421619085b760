package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrCorrupt marks a stored value that cannot be decoded as the requested
// type.
var ErrCorrupt = errors.New("corrupt value")

// Reader reads single keys.
type Reader interface {
	// Get returns the value stored under key; ok is false when the key was
	// never written.
	Get(ctx context.Context, key string) (v Value, ok bool, err error)
}

// Writer replaces or removes keys. Deleting a missing key is not an error.
type Writer interface {
	Put(ctx context.Context, key string, v Value) error
	Delete(ctx context.Context, keys ...string) error
}

// Tx is the view handed to an Update function. It must be the only handle
// used inside that function.
type Tx interface {
	Reader
	Writer
}

// KV is the storage port every feature depends on.
//
// Writes to different keys may run concurrently. Writes to the same key are
// serialized by the backend and the last one wins. Update runs fn atomically:
// either all of its writes become visible or none do, and no other write can
// interleave between its reads and writes.
type KV interface {
	Tx
	Keys(ctx context.Context) ([]string, error)
	Update(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// Kind tags the encoding of a stored value.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
	KindJSON   Kind = "json"
)

// Value is a stored scalar or blob in its text form.
type Value struct {
	Kind Kind
	Raw  string
}

func StringValue(s string) Value { return Value{Kind: KindString, Raw: s} }
func IntValue(n int64) Value     { return Value{Kind: KindInt, Raw: strconv.FormatInt(n, 10)} }
func BoolValue(b bool) Value     { return Value{Kind: KindBool, Raw: strconv.FormatBool(b)} }
func JSONValue(b []byte) Value   { return Value{Kind: KindJSON, Raw: string(b)} }

// FloatValue encodes f with the shortest representation that parses back
// to the same float64.
func FloatValue(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("non-finite float %v", f)
	}
	return Value{Kind: KindFloat, Raw: strconv.FormatFloat(f, 'g', -1, 64)}, nil
}

// Text returns the raw text of any kind.
func (v Value) Text() string {
	return v.Raw
}

// Int decodes v as an integer. Whole floats and numeric strings coerce.
func (v Value) Int() (int64, error) {
	s := strings.TrimSpace(v.Raw)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrCorrupt, v.Raw)
	}
	return int64(f), nil
}

// Float decodes v as a float64.
func (v Value) Float() (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v.Raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q is not a number", ErrCorrupt, v.Raw)
	}
	return f, nil
}

// Bool decodes v as a boolean.
func (v Value) Bool() (bool, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(v.Raw))
	if err != nil {
		return false, fmt.Errorf("%w: %q is not a boolean", ErrCorrupt, v.Raw)
	}
	return b, nil
}
