package deploy

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"flagrange/internal/store"
)

// PortAllocator hands out deterministic host SSH ports. Every game gets a
// contiguous block of maxTeams ports based on its creation ordinal, and each
// team's port is its join-order position inside that block. The same game
// and team always map to the same port, so redeploys are stable.
type PortAllocator struct {
	games    store.GameStore
	teams    store.TeamStore
	base     int
	maxTeams int
}

func NewPortAllocator(games store.GameStore, teams store.TeamStore, base, maxTeams int) *PortAllocator {
	return &PortAllocator{games: games, teams: teams, base: base, maxTeams: maxTeams}
}

// GameBase returns the first port of the game's block.
func (a *PortAllocator) GameBase(ctx context.Context, gameID uuid.UUID) (int, error) {
	all, err := a.games.ListGamesByCreation(ctx)
	if err != nil {
		return 0, fmt.Errorf("list games for port base: %w", err)
	}
	for i, g := range all {
		if g.ID == gameID {
			return a.base + i*a.maxTeams, nil
		}
	}
	return 0, fmt.Errorf("port base for game %s: %w", gameID, store.ErrNotFound)
}

// PortsForGame assigns a port to each team by join order. It fails when the
// game holds more teams than its block can cover.
func (a *PortAllocator) PortsForGame(ctx context.Context, gameID uuid.UUID, teams []*store.GameTeam) (map[string]int, error) {
	if len(teams) > a.maxTeams {
		return nil, fmt.Errorf("game %s has %d teams, port block covers %d", gameID, len(teams), a.maxTeams)
	}
	base, err := a.GameBase(ctx, gameID)
	if err != nil {
		return nil, err
	}
	ports := make(map[string]int, len(teams))
	for i, t := range teams {
		ports[t.TeamID] = base + i + 1
	}
	return ports, nil
}

// CheckConflicts verifies none of the candidate ports is already held by a
// team of another live game. Deterministic assignment makes collisions
// impossible under one allocator, but a misconfigured base can overlap an
// older deployment.
func (a *PortAllocator) CheckConflicts(ctx context.Context, gameID uuid.UUID, ports map[string]int) error {
	held, err := a.teams.ListAllocatedPorts(ctx, gameID)
	if err != nil {
		return fmt.Errorf("list allocated ports: %w", err)
	}
	inUse := make(map[int]store.PortAssignment, len(held))
	for _, p := range held {
		inUse[p.Port] = p
	}
	for teamID, port := range ports {
		if holder, ok := inUse[port]; ok {
			return fmt.Errorf("port %d for team %s already held by team %s of game %s",
				port, teamID, holder.TeamID, holder.GameID)
		}
	}
	return nil
}
