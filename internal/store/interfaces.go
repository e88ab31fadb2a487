package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// GameStore handles game rows and their tick/pause bookkeeping.
type GameStore interface {
	// CreateGame inserts a new game in DRAFT state.
	CreateGame(ctx context.Context, game *Game) error

	// GetGameByID returns a game by its ID.
	GetGameByID(ctx context.Context, id uuid.UUID) (*Game, error)

	// ListGamesByStatus returns games in any of the given statuses.
	ListGamesByStatus(ctx context.Context, statuses ...GameStatus) ([]*Game, error)

	// ListGamesByCreation returns all games ordered by creation time.
	// The ordinal position in this list determines a game's port range.
	ListGamesByCreation(ctx context.Context) ([]*Game, error)

	// UpdateGameState persists status and timing fields of a game.
	UpdateGameState(ctx context.Context, game *Game) error

	// AdvanceGameTick sets current_tick and current_tick_started_at.
	AdvanceGameTick(ctx context.Context, gameID uuid.UUID, tick int, startedAt time.Time) error
}

// TeamStore handles team membership and deployment records.
type TeamStore interface {
	// AddTeam inserts a team membership row. Returns ErrDuplicate if the
	// team is already in the game.
	AddTeam(ctx context.Context, team *GameTeam) error

	// ListTeams returns the teams of a game. With activeOnly, removed
	// teams are excluded.
	ListTeams(ctx context.Context, gameID uuid.UUID, activeOnly bool) ([]*GameTeam, error)

	// GetTeamByToken resolves a submission token to a team membership.
	GetTeamByToken(ctx context.Context, token string) (*GameTeam, error)

	// SetTeamDeployment records the deployed target of a team.
	SetTeamDeployment(ctx context.Context, id uuid.UUID, containerRef, containerAddr string, sshPort int) error

	// ClearTeamDeployment removes a team's target record after teardown.
	ClearTeamDeployment(ctx context.Context, id uuid.UUID) error

	// ListAllocatedPorts returns the SSH ports held by teams of
	// RUNNING/DEPLOYING/PAUSED games, excluding the given game.
	ListAllocatedPorts(ctx context.Context, excludeGame uuid.UUID) ([]PortAssignment, error)
}

// TickStore handles tick rows. Creation is idempotent under the
// (game_id, tick_number) unique index.
type TickStore interface {
	// CreateTick inserts a tick row. Returns false without error when a
	// row for (game, tick_number) already exists.
	CreateTick(ctx context.Context, tick *Tick) (bool, error)

	// GetTick returns the tick with the given number for a game.
	GetTick(ctx context.Context, gameID uuid.UUID, tickNumber int) (*Tick, error)

	// CompleteTick marks a tick COMPLETED with its flags-placed count.
	CompleteTick(ctx context.Context, tickID uuid.UUID, flagsPlaced int) error

	// ErrorTick marks a tick ERROR.
	ErrorTick(ctx context.Context, tickID uuid.UUID) error
}

// FlagStore handles flag rows. Flags are never deleted during a live game.
type FlagStore interface {
	// InsertFlag inserts a flag row. Returns ErrDuplicate on a unique
	// index collision (value or (game, team, tick, type)).
	InsertFlag(ctx context.Context, flag *Flag) error

	// GetFlagForTick returns the flag for (game, team, tick, type).
	GetFlagForTick(ctx context.Context, gameID uuid.UUID, teamID string, tickID uuid.UUID, typ FlagType) (*Flag, error)

	// GetFlagByValue returns a flag by its exact value.
	GetFlagByValue(ctx context.Context, value string) (*Flag, error)

	// MarkFlagStolen sets is_stolen and increments stolen_count as a
	// single atomic statement, so concurrent captures never lose updates.
	MarkFlagStolen(ctx context.Context, flagID uuid.UUID) error

	// ListTeamFlagsForTick returns one team's flags for a tick.
	ListTeamFlagsForTick(ctx context.Context, gameID uuid.UUID, teamID string, tickID uuid.UUID) ([]*Flag, error)

	// CountUnstolenFlags returns how many of a team's flags for a tick
	// were not stolen.
	CountUnstolenFlags(ctx context.Context, gameID uuid.UUID, teamID string, tickID uuid.UUID) (int, error)
}

// SubmissionStore records every submission attempt, accepted or not.
type SubmissionStore interface {
	// CreateSubmission inserts an immutable submission record.
	CreateSubmission(ctx context.Context, sub *FlagSubmission) error

	// HasAcceptedSubmission reports whether the team already has an
	// ACCEPTED submission for the flag.
	HasAcceptedSubmission(ctx context.Context, teamID string, flagID uuid.UUID) (bool, error)
}

// StatusStore records checker verdicts, at most one per (game, team, tick).
type StatusStore interface {
	// InsertServiceStatus inserts a status row. Returns false without
	// error when a row for (game, team, tick) already exists.
	InsertServiceStatus(ctx context.Context, status *ServiceStatus) (bool, error)

	// GetServiceStatus returns the recorded status for (game, team, tick).
	GetServiceStatus(ctx context.Context, gameID uuid.UUID, teamID string, tickID uuid.UUID) (*ServiceStatus, error)
}

// ScoreStore handles scoreboard rows. All point mutations are atomic SQL
// increments that also refresh total_points in the same statement.
type ScoreStore interface {
	// CreateScoreboard inserts a zeroed scoreboard row for a team.
	// Returns ErrDuplicate if the row already exists.
	CreateScoreboard(ctx context.Context, gameID uuid.UUID, teamID string) error

	// GetScoreboard returns one team's scoreboard row.
	GetScoreboard(ctx context.Context, gameID uuid.UUID, teamID string) (*Scoreboard, error)

	// ListScoreboard returns all scoreboard rows of a game ordered by rank.
	ListScoreboard(ctx context.Context, gameID uuid.UUID) ([]*Scoreboard, error)

	// AddAttackPoints adds attack points and increments flags_captured.
	AddAttackPoints(ctx context.Context, gameID uuid.UUID, teamID string, points int) error

	// AddSLAPoints adds SLA points.
	AddSLAPoints(ctx context.Context, gameID uuid.UUID, teamID string, points int) error

	// AddDefensePoints adds defense points.
	AddDefensePoints(ctx context.Context, gameID uuid.UUID, teamID string, points int) error

	// IncrementFlagsLost increments the victim team's lost counter.
	IncrementFlagsLost(ctx context.Context, gameID uuid.UUID, teamID string) error

	// SetRank assigns a rank to one team.
	SetRank(ctx context.Context, gameID uuid.UUID, teamID string, rank int) error
}
