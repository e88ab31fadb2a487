// Package broadcast fans tick-timer and scoreboard events out to the
// websocket viewers of each game.
package broadcast

import "time"

// Message types on the per-game viewer channel.
const (
	TypeInitial          = "initial"
	TypeScoreboard       = "scoreboard"
	TypeTickTimer        = "tick_timer"
	TypeTickChange       = "tick_change"
	TypeScoreboardUpdate = "scoreboard_update"
	TypeGameState        = "game_state"
	TypeError            = "error"
	TypePong             = "pong"
)

// InitialMessage is the snapshot a viewer receives before joining the live
// stream.
type InitialMessage struct {
	Type                string `json:"type"`
	GameID              string `json:"game_id"`
	GameName            string `json:"game_name"`
	GameStatus          string `json:"game_status"`
	CurrentTick         int    `json:"current_tick"`
	MaxTicks            *int   `json:"max_ticks"`
	TickDurationSeconds int    `json:"tick_duration_seconds"`
	SecondsElapsed      int    `json:"seconds_elapsed"`
	SecondsRemaining    int    `json:"seconds_remaining"`
	ServerTime          string `json:"server_time"`
}

// ScoreboardEntry is one team's row in a scoreboard broadcast.
type ScoreboardEntry struct {
	TeamID        string `json:"team_id"`
	AttackPoints  int    `json:"attack_points"`
	DefensePoints int    `json:"defense_points"`
	SLAPoints     int    `json:"sla_points"`
	TotalPoints   int    `json:"total_points"`
	Rank          int    `json:"rank"`
	FlagsCaptured int    `json:"flags_captured"`
	FlagsLost     int    `json:"flags_lost"`
}

// ScoreboardMessage carries the full scoreboard of a game.
type ScoreboardMessage struct {
	Type    string            `json:"type"`
	GameID  string            `json:"game_id"`
	Entries []ScoreboardEntry `json:"entries"`
}

// TickTimerMessage is emitted every second while a game is running.
type TickTimerMessage struct {
	Type                string `json:"type"`
	GameID              string `json:"game_id"`
	CurrentTick         int    `json:"current_tick"`
	TickDurationSeconds int    `json:"tick_duration_seconds"`
	SecondsElapsed      int    `json:"seconds_elapsed"`
	SecondsRemaining    int    `json:"seconds_remaining"`
	ProgressPercent     int    `json:"progress_percent"`
	GameStatus          string `json:"game_status"`
	ServerTime          string `json:"server_time"`
}

// TickChangeMessage is emitted when a game advances to a new tick.
type TickChangeMessage struct {
	Type                string `json:"type"`
	GameID              string `json:"game_id"`
	OldTick             int    `json:"old_tick"`
	NewTick             int    `json:"new_tick"`
	TickDurationSeconds int    `json:"tick_duration_seconds"`
	Timestamp           string `json:"timestamp"`
}

// ScoreboardUpdateMessage signals that scores changed; viewers refetch or
// receive the next scoreboard broadcast.
type ScoreboardUpdateMessage struct {
	Type   string `json:"type"`
	GameID string `json:"game_id"`
	TeamID string `json:"team_id,omitempty"`
}

// GameStateMessage is emitted on pause/resume/finish transitions.
type GameStateMessage struct {
	Type   string `json:"type"`
	GameID string `json:"game_id"`
	Status string `json:"status"`
}

// ErrorMessage is sent to a single viewer on a bad request.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// PongMessage answers a client ping.
type PongMessage struct {
	Type string `json:"type"`
}

// clientMessage is what viewers may send: ping or refresh.
type clientMessage struct {
	Type string `json:"type"`
}

// Timestamp formats t the way all broadcast messages carry time.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
