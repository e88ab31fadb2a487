// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and the gameserver.
package api

import "time"

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// GameResponse describes one game for API consumers.
type GameResponse struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Status              string     `json:"status"`
	CurrentTick         int        `json:"current_tick"`
	TickDurationSeconds int        `json:"tick_duration_seconds"`
	MaxTicks            *int       `json:"max_ticks,omitempty"`
	TeamCount           int        `json:"team_count"`
	StartTime           *time.Time `json:"start_time,omitempty"`
	EndTime             *time.Time `json:"end_time,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

// GameListResponse is the body of a game listing.
type GameListResponse struct {
	Games []GameResponse `json:"games"`
}

// ScoreboardEntry is one team's row on the scoreboard.
type ScoreboardEntry struct {
	TeamID        string    `json:"team_id"`
	Rank          int       `json:"rank"`
	AttackPoints  int       `json:"attack_points"`
	DefensePoints int       `json:"defense_points"`
	SLAPoints     int       `json:"sla_points"`
	TotalPoints   int       `json:"total_points"`
	FlagsCaptured int       `json:"flags_captured"`
	FlagsLost     int       `json:"flags_lost"`
	LastUpdated   time.Time `json:"last_updated"`
}

// ScoreboardResponse is the body of a scoreboard query.
type ScoreboardResponse struct {
	GameID      string            `json:"game_id"`
	GameName    string            `json:"game_name"`
	GameStatus  string            `json:"game_status"`
	CurrentTick int               `json:"current_tick"`
	Entries     []ScoreboardEntry `json:"entries"`
}
