// Package scoring aggregates attack, defense, and SLA points into the
// per-team scoreboard and maintains rankings.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"flagrange/internal/store"

	"github.com/google/uuid"
)

// Points holds the configured point values.
type Points struct {
	UserFlag     int
	RootFlag     int
	SLABase      int // per recorded service status
	DefenseBonus int // per unstolen flag per completed tick
}

// Engine computes score mutations from immutable facts: submissions,
// service statuses, and stolen flags. The total is additive
// (attack + defense + sla); the multiplicative SLA-weighted variant from an
// earlier design was dropped, see DESIGN.md.
type Engine struct {
	scores   store.ScoreStore
	statuses store.StatusStore
	flags    store.FlagStore
	teams    store.TeamStore
	points   Points
	logger   *slog.Logger
}

// NewEngine creates a scoring engine.
func NewEngine(scores store.ScoreStore, statuses store.StatusStore, flags store.FlagStore, teams store.TeamStore, points Points, logger *slog.Logger) *Engine {
	return &Engine{
		scores:   scores,
		statuses: statuses,
		flags:    flags,
		teams:    teams,
		points:   points,
		logger:   logger,
	}
}

// PointsFor returns the capture value of a flag type. ROOT flags are always
// worth strictly more than USER flags.
func (e *Engine) PointsFor(typ store.FlagType) int {
	if typ == store.FlagTypeRoot {
		return e.points.RootFlag
	}
	return e.points.UserFlag
}

// RecordServiceStatus persists a checker verdict and credits SLA points.
// The second record for the same (game, team, tick) is a no-op, so SLA
// points are credited at most once per tick.
func (e *Engine) RecordServiceStatus(ctx context.Context, status *store.ServiceStatus) error {
	inserted, err := e.statuses.InsertServiceStatus(ctx, status)
	if err != nil {
		return err
	}
	if !inserted {
		return nil
	}

	slaPoints := int(math.Round(status.SLAPercentage / 100.0 * float64(e.points.SLABase)))
	if slaPoints > 0 {
		if err := e.scores.AddSLAPoints(ctx, status.GameID, status.TeamID, slaPoints); err != nil {
			return fmt.Errorf("credit sla points: %w", err)
		}
	}
	return nil
}

// ApplyCapture credits an accepted submission: the attacker gains attack
// points and a capture, the victim gains a lost flag.
func (e *Engine) ApplyCapture(ctx context.Context, gameID uuid.UUID, attackerTeamID, victimTeamID string, points int) error {
	if err := e.scores.AddAttackPoints(ctx, gameID, attackerTeamID, points); err != nil {
		return fmt.Errorf("credit attack points: %w", err)
	}
	if err := e.scores.IncrementFlagsLost(ctx, gameID, victimTeamID); err != nil {
		return fmt.Errorf("record lost flag: %w", err)
	}
	return nil
}

// SettleDefense awards the defense bonus for a completed tick: each team
// whose service was UP that tick earns a fixed bonus per flag of that tick
// not marked stolen. Runs once per tick after it closes, never retroactively.
func (e *Engine) SettleDefense(ctx context.Context, gameID uuid.UUID, tick *store.Tick) error {
	teams, err := e.teams.ListTeams(ctx, gameID, true)
	if err != nil {
		return fmt.Errorf("list teams: %w", err)
	}

	for _, team := range teams {
		status, err := e.statuses.GetServiceStatus(ctx, gameID, team.TeamID, tick.ID)
		if errors.Is(err, store.ErrNotFound) {
			continue // no check recorded, no bonus
		}
		if err != nil {
			return err
		}
		if status.Status != store.CheckStatusUp {
			continue
		}

		defended, err := e.flags.CountUnstolenFlags(ctx, gameID, team.TeamID, tick.ID)
		if err != nil {
			return err
		}
		if defended == 0 {
			continue
		}

		bonus := defended * e.points.DefenseBonus
		if err := e.scores.AddDefensePoints(ctx, gameID, team.TeamID, bonus); err != nil {
			return fmt.Errorf("credit defense points: %w", err)
		}
		e.logger.Info("defense settled",
			"game_id", gameID, "team_id", team.TeamID,
			"tick", tick.TickNumber, "defended", defended, "bonus", bonus)
	}
	return nil
}

// UpdateRankings recomputes ranks for a game: total points descending,
// ties broken by team ID so the order is a deterministic total order.
// Recomputing with unchanged inputs yields identical ranks.
func (e *Engine) UpdateRankings(ctx context.Context, gameID uuid.UUID) error {
	boards, err := e.scores.ListScoreboard(ctx, gameID)
	if err != nil {
		return fmt.Errorf("list scoreboard: %w", err)
	}

	sort.Slice(boards, func(i, j int) bool {
		if boards[i].TotalPoints != boards[j].TotalPoints {
			return boards[i].TotalPoints > boards[j].TotalPoints
		}
		return boards[i].TeamID < boards[j].TeamID
	})

	for i, sb := range boards {
		rank := i + 1
		if sb.Rank == rank {
			continue
		}
		if err := e.scores.SetRank(ctx, gameID, sb.TeamID, rank); err != nil {
			return fmt.Errorf("set rank: %w", err)
		}
	}
	return nil
}
