package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"flagrange/internal/store"

	"github.com/google/uuid"
)

const flagColumns = `id, game_id, team_id, tick_id, flag_type, flag_value,
	valid_until, is_stolen, stolen_count, created_at`

// InsertFlag inserts a flag row. A unique index collision maps to
// store.ErrDuplicate so the flag manager can re-read the winning row.
func (s *Store) InsertFlag(ctx context.Context, flag *store.Flag) error {
	query := `
		INSERT INTO flags (id, game_id, team_id, tick_id, flag_type, flag_value,
			valid_until, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		flag.ID,
		flag.GameID,
		flag.TeamID,
		flag.TickID,
		flag.Type,
		flag.Value,
		flag.ValidUntil,
		flag.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("flag for (%s, %s, %s, %s): %w",
			flag.GameID, flag.TeamID, flag.TickID, flag.Type, store.ErrDuplicate)
	}
	return err
}

func (s *Store) GetFlagForTick(ctx context.Context, gameID uuid.UUID, teamID string, tickID uuid.UUID, typ store.FlagType) (*store.Flag, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM flags
		WHERE game_id = $1 AND team_id = $2 AND tick_id = $3 AND flag_type = $4
	`, flagColumns)
	flag, err := scanFlag(s.db.QueryRowContext(ctx, query, gameID, teamID, tickID, typ))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s flag for team %s tick %s: %w", typ, teamID, tickID, store.ErrNotFound)
	}
	return flag, err
}

func (s *Store) GetFlagByValue(ctx context.Context, value string) (*store.Flag, error) {
	query := fmt.Sprintf("SELECT %s FROM flags WHERE flag_value = $1", flagColumns)
	flag, err := scanFlag(s.db.QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("flag value: %w", store.ErrNotFound)
	}
	return flag, err
}

// MarkFlagStolen flips is_stolen and increments stolen_count in one
// statement. Every capture counts, so the increment is unconditional and
// serialized by the database rather than read-modify-write in Go.
func (s *Store) MarkFlagStolen(ctx context.Context, flagID uuid.UUID) error {
	query := `
		UPDATE flags
		SET is_stolen = TRUE, stolen_count = stolen_count + 1
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query, flagID)
	if err != nil {
		return fmt.Errorf("mark flag %s stolen: %w", flagID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("flag %s: %w", flagID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) ListTeamFlagsForTick(ctx context.Context, gameID uuid.UUID, teamID string, tickID uuid.UUID) ([]*store.Flag, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM flags
		WHERE game_id = $1 AND team_id = $2 AND tick_id = $3
	`, flagColumns)
	rows, err := s.db.QueryContext(ctx, query, gameID, teamID, tickID)
	if err != nil {
		return nil, fmt.Errorf("list flags for team %s tick %s: %w", teamID, tickID, err)
	}
	defer rows.Close()

	var flags []*store.Flag
	for rows.Next() {
		flag, err := scanFlag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan flag: %w", err)
		}
		flags = append(flags, flag)
	}
	return flags, rows.Err()
}

func (s *Store) CountUnstolenFlags(ctx context.Context, gameID uuid.UUID, teamID string, tickID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM flags
		WHERE game_id = $1 AND team_id = $2 AND tick_id = $3 AND NOT is_stolen
	`
	var count int
	err := s.db.QueryRowContext(ctx, query, gameID, teamID, tickID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unstolen flags for team %s tick %s: %w", teamID, tickID, err)
	}
	return count, nil
}

func scanFlag(row rowScanner) (*store.Flag, error) {
	var flag store.Flag
	err := row.Scan(
		&flag.ID,
		&flag.GameID,
		&flag.TeamID,
		&flag.TickID,
		&flag.Type,
		&flag.Value,
		&flag.ValidUntil,
		&flag.IsStolen,
		&flag.StolenCount,
		&flag.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &flag, nil
}
