package postgres

import (
	"context"
	"fmt"

	"flagrange/internal/store"

	"github.com/google/uuid"
)

// CreateSubmission inserts the immutable audit record of one attempt.
func (s *Store) CreateSubmission(ctx context.Context, sub *store.FlagSubmission) error {
	query := `
		INSERT INTO flag_submissions (id, game_id, attacker_team_id, flag_id,
			submitted_value, submitter_ip, status, points, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		sub.ID,
		sub.GameID,
		sub.AttackerTeamID,
		sub.FlagID,
		sub.SubmittedValue,
		sub.SubmitterIP,
		sub.Status,
		sub.Points,
		sub.SubmittedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("accepted submission by %s for flag %v: %w",
			sub.AttackerTeamID, sub.FlagID, store.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

func (s *Store) HasAcceptedSubmission(ctx context.Context, teamID string, flagID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM flag_submissions
			WHERE attacker_team_id = $1 AND flag_id = $2 AND status = 'accepted'
		)
	`
	var exists bool
	err := s.db.QueryRowContext(ctx, query, teamID, flagID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check accepted submission: %w", err)
	}
	return exists, nil
}
