package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"flagrange/internal/store"

	"github.com/google/uuid"
)

const scoreboardColumns = `id, game_id, team_id, attack_points, defense_points,
	sla_points, total_points, rank, flags_captured, flags_lost, last_updated`

// CreateScoreboard inserts a zeroed scoreboard row for a team.
func (s *Store) CreateScoreboard(ctx context.Context, gameID uuid.UUID, teamID string) error {
	query := `
		INSERT INTO scoreboards (id, game_id, team_id)
		VALUES ($1, $2, $3)
	`
	_, err := s.db.ExecContext(ctx, query, uuid.New(), gameID, teamID)
	if isUniqueViolation(err) {
		return fmt.Errorf("scoreboard for team %s in game %s: %w", teamID, gameID, store.ErrDuplicate)
	}
	return err
}

func (s *Store) GetScoreboard(ctx context.Context, gameID uuid.UUID, teamID string) (*store.Scoreboard, error) {
	query := fmt.Sprintf("SELECT %s FROM scoreboards WHERE game_id = $1 AND team_id = $2", scoreboardColumns)
	sb, err := scanScoreboard(s.db.QueryRowContext(ctx, query, gameID, teamID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scoreboard for team %s in game %s: %w", teamID, gameID, store.ErrNotFound)
	}
	return sb, err
}

func (s *Store) ListScoreboard(ctx context.Context, gameID uuid.UUID) ([]*store.Scoreboard, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM scoreboards
		WHERE game_id = $1
		ORDER BY rank, team_id
	`, scoreboardColumns)
	rows, err := s.db.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("list scoreboard for game %s: %w", gameID, err)
	}
	defer rows.Close()

	var boards []*store.Scoreboard
	for rows.Next() {
		sb, err := scanScoreboard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scoreboard: %w", err)
		}
		boards = append(boards, sb)
	}
	return boards, rows.Err()
}

// AddAttackPoints credits an accepted capture. The increments and the total
// refresh happen in one statement so concurrent submissions never lose
// updates.
func (s *Store) AddAttackPoints(ctx context.Context, gameID uuid.UUID, teamID string, points int) error {
	query := `
		UPDATE scoreboards
		SET attack_points = attack_points + $3,
			flags_captured = flags_captured + 1,
			total_points = attack_points + $3 + defense_points + sla_points,
			last_updated = NOW()
		WHERE game_id = $1 AND team_id = $2
	`
	return s.execScore(ctx, query, gameID, teamID, points)
}

func (s *Store) AddSLAPoints(ctx context.Context, gameID uuid.UUID, teamID string, points int) error {
	query := `
		UPDATE scoreboards
		SET sla_points = sla_points + $3,
			total_points = attack_points + defense_points + sla_points + $3,
			last_updated = NOW()
		WHERE game_id = $1 AND team_id = $2
	`
	return s.execScore(ctx, query, gameID, teamID, points)
}

func (s *Store) AddDefensePoints(ctx context.Context, gameID uuid.UUID, teamID string, points int) error {
	query := `
		UPDATE scoreboards
		SET defense_points = defense_points + $3,
			total_points = attack_points + defense_points + $3 + sla_points,
			last_updated = NOW()
		WHERE game_id = $1 AND team_id = $2
	`
	return s.execScore(ctx, query, gameID, teamID, points)
}

func (s *Store) IncrementFlagsLost(ctx context.Context, gameID uuid.UUID, teamID string) error {
	query := `
		UPDATE scoreboards
		SET flags_lost = flags_lost + 1, last_updated = NOW()
		WHERE game_id = $1 AND team_id = $2
	`
	res, err := s.db.ExecContext(ctx, query, gameID, teamID)
	if err != nil {
		return fmt.Errorf("increment flags_lost for team %s: %w", teamID, err)
	}
	return requireScoreboardRow(res, gameID, teamID)
}

func (s *Store) SetRank(ctx context.Context, gameID uuid.UUID, teamID string, rank int) error {
	query := `
		UPDATE scoreboards
		SET rank = $3
		WHERE game_id = $1 AND team_id = $2
	`
	res, err := s.db.ExecContext(ctx, query, gameID, teamID, rank)
	if err != nil {
		return fmt.Errorf("set rank for team %s: %w", teamID, err)
	}
	return requireScoreboardRow(res, gameID, teamID)
}

func (s *Store) execScore(ctx context.Context, query string, gameID uuid.UUID, teamID string, points int) error {
	res, err := s.db.ExecContext(ctx, query, gameID, teamID, points)
	if err != nil {
		return fmt.Errorf("update score for team %s in game %s: %w", teamID, gameID, err)
	}
	return requireScoreboardRow(res, gameID, teamID)
}

// A missing scoreboard row is a broken invariant (the row is created when
// the team joins), not a recoverable user error.
func requireScoreboardRow(res sql.Result, gameID uuid.UUID, teamID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("scoreboard row missing for team %s in game %s: %w", teamID, gameID, store.ErrNotFound)
	}
	return nil
}

func scanScoreboard(row rowScanner) (*store.Scoreboard, error) {
	var sb store.Scoreboard
	err := row.Scan(
		&sb.ID,
		&sb.GameID,
		&sb.TeamID,
		&sb.AttackPoints,
		&sb.DefensePoints,
		&sb.SLAPoints,
		&sb.TotalPoints,
		&sb.Rank,
		&sb.FlagsCaptured,
		&sb.FlagsLost,
		&sb.LastUpdated,
	)
	if err != nil {
		return nil, err
	}
	return &sb, nil
}
