package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound      = errors.New("not found")
	ErrNoState       = errors.New("no persisted state")
	ErrNoActiveBoard = errors.New("no active board")
)
