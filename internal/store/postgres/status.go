package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"flagrange/internal/store"

	"github.com/google/uuid"
)

// InsertServiceStatus records a checker verdict. The (game, team, tick)
// unique index makes the second attempt for the same key a no-op.
func (s *Store) InsertServiceStatus(ctx context.Context, status *store.ServiceStatus) (bool, error) {
	query := `
		INSERT INTO service_statuses (id, game_id, team_id, tick_id, status,
			sla_percentage, message, check_duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (game_id, team_id, tick_id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		status.ID,
		status.GameID,
		status.TeamID,
		status.TickID,
		status.Status,
		status.SLAPercentage,
		status.Message,
		status.CheckDurationMS,
		status.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert service status for team %s tick %s: %w", status.TeamID, status.TickID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Store) GetServiceStatus(ctx context.Context, gameID uuid.UUID, teamID string, tickID uuid.UUID) (*store.ServiceStatus, error) {
	query := `
		SELECT id, game_id, team_id, tick_id, status, sla_percentage,
			message, check_duration_ms, created_at
		FROM service_statuses
		WHERE game_id = $1 AND team_id = $2 AND tick_id = $3
	`
	var st store.ServiceStatus
	err := s.db.QueryRowContext(ctx, query, gameID, teamID, tickID).Scan(
		&st.ID,
		&st.GameID,
		&st.TeamID,
		&st.TickID,
		&st.Status,
		&st.SLAPercentage,
		&st.Message,
		&st.CheckDurationMS,
		&st.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("service status for team %s tick %s: %w", teamID, tickID, store.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}
