// Package store contains the database layer for flagrange.
package store

import (
	"time"

	"github.com/google/uuid"
)

// GameStatus represents the lifecycle state of a game.
type GameStatus string

const (
	GameStatusDraft     GameStatus = "draft"
	GameStatusDeploying GameStatus = "deploying"
	GameStatusRunning   GameStatus = "running"
	GameStatusPaused    GameStatus = "paused"
	GameStatusFinished  GameStatus = "finished"
)

// Game represents one attack-defense competition instance.
// Tick timing is tracked per game: CurrentTickStartedAt is the wall-clock
// start of the tick in progress, shifted forward on resume so paused time
// never counts as elapsed-in-tick time.
type Game struct {
	ID                   uuid.UUID
	Name                 string
	Status               GameStatus
	Image                string // vulnbox container image for all teams
	CheckerID            string // identifier resolved through the checker registry
	TickDurationSeconds  int
	FlagValidityTicks    int
	MaxTicks             *int
	CurrentTick          int
	StartTime            *time.Time
	EndTime              *time.Time
	CurrentTickStartedAt *time.Time
	PausedAt             *time.Time
	TotalPausedSeconds   float64
	CreatedAt            time.Time
}

// GameTeam is a team's membership in a game, including its deployed target.
type GameTeam struct {
	ID            uuid.UUID
	GameID        uuid.UUID
	TeamID        string
	Token         string // secret submission token, unique across all games
	ContainerRef  *string
	ContainerAddr *string
	SSHPort       *int
	IsActive      bool
	CreatedAt     time.Time
}

// TickStatus represents the state of a tick.
type TickStatus string

const (
	TickStatusPending   TickStatus = "pending"
	TickStatusActive    TickStatus = "active"
	TickStatusCompleted TickStatus = "completed"
	TickStatusError     TickStatus = "error"
)

// Tick is one fixed-duration scoring round of a game.
type Tick struct {
	ID          uuid.UUID
	GameID      uuid.UUID
	TickNumber  int
	Status      TickStatus
	StartTime   *time.Time
	EndTime     *time.Time
	FlagsPlaced int
}

// FlagType distinguishes the two flags placed per team per tick.
type FlagType string

const (
	FlagTypeUser FlagType = "user"
	FlagTypeRoot FlagType = "root"
)

// Flag is a per-team, per-tick secret token placed into a target.
// Value is globally unique; (GameID, TeamID, TickID, Type) is unique.
type Flag struct {
	ID          uuid.UUID
	GameID      uuid.UUID
	TeamID      string
	TickID      uuid.UUID
	Type        FlagType
	Value       string
	ValidUntil  time.Time
	IsStolen    bool
	StolenCount int
	CreatedAt   time.Time
}

// SubmissionStatus is the outcome of a single submission attempt.
// Outcomes are first-class results, not errors: every attempt is recorded.
type SubmissionStatus string

const (
	SubmissionAccepted  SubmissionStatus = "accepted"
	SubmissionRejected  SubmissionStatus = "rejected"
	SubmissionDuplicate SubmissionStatus = "duplicate"
	SubmissionExpired   SubmissionStatus = "expired"
	SubmissionOwnFlag   SubmissionStatus = "own_flag"
	SubmissionInvalid   SubmissionStatus = "invalid"
)

// FlagSubmission is the immutable audit record of one submission attempt.
type FlagSubmission struct {
	ID             uuid.UUID
	GameID         uuid.UUID
	AttackerTeamID string
	FlagID         *uuid.UUID // nil when the submitted value matched no flag
	SubmittedValue string
	SubmitterIP    string
	Status         SubmissionStatus
	Points         int
	SubmittedAt    time.Time
}

// CheckStatus is the verdict of a checker run against one team's target.
type CheckStatus string

const (
	CheckStatusUp    CheckStatus = "up"
	CheckStatusDown  CheckStatus = "down"
	CheckStatusError CheckStatus = "error"
)

// ServiceStatus records at most one checker verdict per (game, team, tick).
type ServiceStatus struct {
	ID              uuid.UUID
	GameID          uuid.UUID
	TeamID          string
	TickID          uuid.UUID
	Status          CheckStatus
	SLAPercentage   float64
	Message         *string
	CheckDurationMS *int
	CreatedAt       time.Time
}

// Scoreboard is the continuously recomputed per-team score aggregate.
type Scoreboard struct {
	ID            uuid.UUID
	GameID        uuid.UUID
	TeamID        string
	AttackPoints  int
	DefensePoints int
	SLAPoints     int
	TotalPoints   int
	Rank          int
	FlagsCaptured int
	FlagsLost     int
	LastUpdated   time.Time
}

// PortAssignment is a currently held SSH port, used for conflict checks.
type PortAssignment struct {
	GameID uuid.UUID
	TeamID string
	Port   int
}
