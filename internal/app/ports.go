package app

import (
	"context"

	"github.com/hylla/tavla/internal/domain"
)

// Store persists the full board tree as one atomic document.
type Store interface {
	// Load returns the persisted board list. It returns ErrNoState when
	// nothing has been persisted yet.
	Load(ctx context.Context) ([]domain.Board, error)
	// Save replaces the persisted board list with the given tree.
	Save(ctx context.Context, boards []domain.Board) error
}

// Logger receives structured runtime events from the service.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
}

// nopLogger discards all events.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// NopLogger returns a logger that discards all events.
func NopLogger() Logger {
	return nopLogger{}
}
