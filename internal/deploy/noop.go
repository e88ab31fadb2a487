package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"flagrange/internal/store"
)

// NoopDeployer fakes deployment for development and tests. Targets get a
// synthetic ref and a loopback address; flags are remembered in memory so
// tests can assert on placement.
type NoopDeployer struct {
	logger *slog.Logger

	mu    sync.Mutex
	seq   int
	flags map[string]map[string]string // ref -> path -> value
}

func NewNoopDeployer(logger *slog.Logger) *NoopDeployer {
	return &NoopDeployer{
		logger: logger,
		flags:  make(map[string]map[string]string),
	}
}

func (n *NoopDeployer) Deploy(ctx context.Context, game *store.Game, team *store.GameTeam) (Target, error) {
	n.mu.Lock()
	n.seq++
	ref := fmt.Sprintf("noop-%d", n.seq)
	n.flags[ref] = make(map[string]string)
	n.mu.Unlock()

	n.logger.Info("noop deploy", "game_id", game.ID, "team_id", team.TeamID, "ref", ref)
	return Target{Ref: ref, Addr: "127.0.0.1"}, nil
}

func (n *NoopDeployer) InjectFlag(ctx context.Context, ref, value, path string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	target, ok := n.flags[ref]
	if !ok {
		return ErrNotDeployed
	}
	target[path] = value
	return nil
}

func (n *NoopDeployer) Stop(ctx context.Context, ref string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.flags, ref)
	return nil
}

// FlagAt reports the flag last written at path inside ref.
func (n *NoopDeployer) FlagAt(ref, path string) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	target, ok := n.flags[ref]
	if !ok {
		return "", false
	}
	v, ok := target[path]
	return v, ok
}
