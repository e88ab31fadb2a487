// Package deploy provisions per-team vulnerable targets and places flags
// inside them.
package deploy

import (
	"context"
	"errors"

	"flagrange/internal/store"
)

var (
	// ErrNotDeployed is returned when an operation needs a target that the
	// team does not have.
	ErrNotDeployed = errors.New("deploy: team has no deployed target")
)

// Target is a provisioned per-team instance.
type Target struct {
	// Ref identifies the instance to the backend (container ID).
	Ref string
	// Addr is the address checkers and other teams reach the instance on.
	Addr string
}

// Deployer provisions and tears down per-team targets. Implementations must
// be safe for concurrent use; the scheduler injects flags into all teams of
// a tick in parallel.
type Deployer interface {
	// Deploy provisions a target for the team. The team's SSHPort must be
	// allocated before calling.
	Deploy(ctx context.Context, game *store.Game, team *store.GameTeam) (Target, error)

	// InjectFlag writes value to path inside the target, replacing any
	// previous content.
	InjectFlag(ctx context.Context, ref, value, path string) error

	// Stop tears the target down. Stopping an already stopped target is
	// not an error.
	Stop(ctx context.Context, ref string) error
}
