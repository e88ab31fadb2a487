// Package checker defines the plugin contract for service checkers and the
// registry they are resolved through.
package checker

import (
	"context"

	"flagrange/internal/store"

	"github.com/google/uuid"
)

// Result is the verdict of one check against one team's target.
type Result struct {
	Status        store.CheckStatus
	SLAPercentage float64
	Message       string
}

// Checker verifies that a team's target is functioning and its flags are
// retrievable. Implementations must honor the context deadline; the
// scheduler converts any returned error (or panic) into an ERROR status
// and never lets it propagate.
type Checker interface {
	Check(ctx context.Context, teamAddr string, gameID uuid.UUID, teamID string, tickNumber int) (Result, error)
}

// Func adapts a plain function to the Checker interface.
type Func func(ctx context.Context, teamAddr string, gameID uuid.UUID, teamID string, tickNumber int) (Result, error)

func (f Func) Check(ctx context.Context, teamAddr string, gameID uuid.UUID, teamID string, tickNumber int) (Result, error) {
	return f(ctx, teamAddr, gameID, teamID, tickNumber)
}

// BoolFunc adapts a boolean probe: true means UP with 100% SLA, false
// means DOWN with 0%.
type BoolFunc func(ctx context.Context, teamAddr string) (bool, error)

func (f BoolFunc) Check(ctx context.Context, teamAddr string, _ uuid.UUID, _ string, _ int) (Result, error) {
	up, err := f(ctx, teamAddr)
	if err != nil {
		return Result{}, err
	}
	if up {
		return Result{Status: store.CheckStatusUp, SLAPercentage: 100}, nil
	}
	return Result{Status: store.CheckStatusDown, SLAPercentage: 0}, nil
}
