// Package logger provides structured logging setup using slog.
package logger

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// gameIDKey is the context key for per-game correlation IDs.
type gameIDKey struct{}

// New creates a new structured JSON logger.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// WithGameID returns a new context carrying the given game ID.
func WithGameID(ctx context.Context, gameID uuid.UUID) context.Context {
	return context.WithValue(ctx, gameIDKey{}, gameID)
}

// GameIDFromContext extracts the game ID from the context.
func GameIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(gameIDKey{}).(uuid.UUID)
	return v, ok
}

// FromContext returns a logger with context fields (game ID, etc.) attached.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if gameID, ok := GameIDFromContext(ctx); ok {
		return base.With("game_id", gameID.String())
	}
	return base
}
