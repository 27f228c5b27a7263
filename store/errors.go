package store

import "errors"

// ErrNotFound is returned when no row matches the requested baseline or run.
var ErrNotFound = errors.New("store: not found")
