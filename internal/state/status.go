// Package state keeps the in-memory copy of every feature's data, loaded once
// from the key/value store and written back through a single background
// writer. Mutations are applied to memory first and persisted afterwards.
package state

import "errors"

var (
	// ErrNotLoaded is returned by mutations issued before Load completed.
	ErrNotLoaded = errors.New("state not loaded")
	// ErrNotFound is returned for an unknown or deleted counter or event.
	ErrNotFound = errors.New("not found")
	// ErrInvalid is returned for out-of-range input.
	ErrInvalid = errors.New("invalid input")
)

// Status tells a consumer whether the in-memory copy can be trusted.
type Status int32

const (
	// NotLoaded means Load has not finished; values are placeholders.
	NotLoaded Status = iota
	// LoadedEmpty means Load finished and the store held nothing.
	LoadedEmpty
	// Loaded means Load finished and data is present.
	Loaded
)

func (s Status) String() string {
	switch s {
	case NotLoaded:
		return "not loaded"
	case LoadedEmpty:
		return "empty"
	case Loaded:
		return "loaded"
	}
	return "unknown"
}
