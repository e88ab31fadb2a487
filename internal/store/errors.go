package store

import "errors"

// ErrNotFound is returned when a requested row does not exist.
// Callers surface it directly; it is never retried.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert hits a unique constraint.
// The constraints on (game, tick_number) and (game, team, tick, flag_type)
// are the actual race-safety mechanism for concurrent scheduler wake-ups;
// application-level existence checks are only an optimization. Callers
// treat ErrDuplicate as "row already exists, re-read it".
var ErrDuplicate = errors.New("already exists")
