package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"flagrange/internal/store"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const gameColumns = `id, name, status, image, checker_id, tick_duration_seconds,
	flag_validity_ticks, max_ticks, current_tick, start_time, end_time,
	current_tick_started_at, paused_at, total_paused_seconds, created_at`

// CreateGame inserts a new game row.
func (s *Store) CreateGame(ctx context.Context, game *store.Game) error {
	query := `
		INSERT INTO games (id, name, status, image, checker_id,
			tick_duration_seconds, flag_validity_ticks, max_ticks, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		game.ID,
		game.Name,
		game.Status,
		game.Image,
		game.CheckerID,
		game.TickDurationSeconds,
		game.FlagValidityTicks,
		game.MaxTicks,
		game.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("game %q: %w", game.Name, store.ErrDuplicate)
	}
	return err
}

func (s *Store) GetGameByID(ctx context.Context, id uuid.UUID) (*store.Game, error) {
	query := fmt.Sprintf("SELECT %s FROM games WHERE id = $1", gameColumns)
	game, err := scanGame(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("game %s: %w", id, store.ErrNotFound)
	}
	return game, err
}

func (s *Store) ListGamesByStatus(ctx context.Context, statuses ...store.GameStatus) ([]*store.Game, error) {
	statusStrings := make([]string, len(statuses))
	for i, st := range statuses {
		statusStrings[i] = string(st)
	}

	query := fmt.Sprintf("SELECT %s FROM games WHERE status = ANY($1) ORDER BY created_at", gameColumns)
	rows, err := s.db.QueryContext(ctx, query, pq.Array(statusStrings))
	if err != nil {
		return nil, fmt.Errorf("list games by status: %w", err)
	}
	defer rows.Close()

	return collectGames(rows)
}

func (s *Store) ListGamesByCreation(ctx context.Context) ([]*store.Game, error) {
	query := fmt.Sprintf("SELECT %s FROM games ORDER BY created_at", gameColumns)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	return collectGames(rows)
}

// UpdateGameState persists the mutable status and timing fields.
func (s *Store) UpdateGameState(ctx context.Context, game *store.Game) error {
	query := `
		UPDATE games
		SET status = $2, start_time = $3, end_time = $4,
			current_tick_started_at = $5, paused_at = $6, total_paused_seconds = $7
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		game.ID,
		game.Status,
		game.StartTime,
		game.EndTime,
		game.CurrentTickStartedAt,
		game.PausedAt,
		game.TotalPausedSeconds,
	)
	if err != nil {
		return fmt.Errorf("update game %s: %w", game.ID, err)
	}
	return requireRow(res, game.ID.String())
}

// AdvanceGameTick moves a game to the given tick number.
// current_tick only ever grows: the WHERE clause rejects regressions so a
// stale scheduler cycle can never move a game backwards.
func (s *Store) AdvanceGameTick(ctx context.Context, gameID uuid.UUID, tick int, startedAt time.Time) error {
	query := `
		UPDATE games
		SET current_tick = $2, current_tick_started_at = $3
		WHERE id = $1 AND current_tick < $2
	`
	_, err := s.db.ExecContext(ctx, query, gameID, tick, startedAt)
	if err != nil {
		return fmt.Errorf("advance game %s to tick %d: %w", gameID, tick, err)
	}
	return nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("game %s: %w", id, store.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanGame(row rowScanner) (*store.Game, error) {
	var game store.Game
	err := row.Scan(
		&game.ID,
		&game.Name,
		&game.Status,
		&game.Image,
		&game.CheckerID,
		&game.TickDurationSeconds,
		&game.FlagValidityTicks,
		&game.MaxTicks,
		&game.CurrentTick,
		&game.StartTime,
		&game.EndTime,
		&game.CurrentTickStartedAt,
		&game.PausedAt,
		&game.TotalPausedSeconds,
		&game.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &game, nil
}

func collectGames(rows *sql.Rows) ([]*store.Game, error) {
	var games []*store.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, game)
	}
	return games, rows.Err()
}
