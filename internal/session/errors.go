package session

import "errors"

// ErrNotFound is returned for unknown session codes and unknown player IDs.
// It is a normal outcome (stale join links, late commands), never a fault.
var ErrNotFound = errors.New("not found")

// ErrInvalidState is returned for transitions that do not apply in the
// session's current state, e.g. starting an already-running quiz. Callers
// treat it as a no-op.
var ErrInvalidState = errors.New("invalid state")
