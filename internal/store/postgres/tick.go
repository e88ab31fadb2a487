package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"flagrange/internal/store"

	"github.com/google/uuid"
)

// CreateTick inserts a tick row. The (game_id, tick_number) unique index is
// the guard against duplicate scheduler wake-ups: a losing insert returns
// created=false and the caller skips the tick.
func (s *Store) CreateTick(ctx context.Context, tick *store.Tick) (bool, error) {
	query := `
		INSERT INTO ticks (id, game_id, tick_number, status, start_time)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (game_id, tick_number) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		tick.ID,
		tick.GameID,
		tick.TickNumber,
		tick.Status,
		tick.StartTime,
	)
	if err != nil {
		return false, fmt.Errorf("create tick %d for game %s: %w", tick.TickNumber, tick.GameID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Store) GetTick(ctx context.Context, gameID uuid.UUID, tickNumber int) (*store.Tick, error) {
	query := `
		SELECT id, game_id, tick_number, status, start_time, end_time, flags_placed
		FROM ticks
		WHERE game_id = $1 AND tick_number = $2
	`
	var tick store.Tick
	err := s.db.QueryRowContext(ctx, query, gameID, tickNumber).Scan(
		&tick.ID,
		&tick.GameID,
		&tick.TickNumber,
		&tick.Status,
		&tick.StartTime,
		&tick.EndTime,
		&tick.FlagsPlaced,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tick %d of game %s: %w", tickNumber, gameID, store.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &tick, nil
}

func (s *Store) CompleteTick(ctx context.Context, tickID uuid.UUID, flagsPlaced int) error {
	return s.finishTick(ctx, tickID, store.TickStatusCompleted, flagsPlaced)
}

func (s *Store) ErrorTick(ctx context.Context, tickID uuid.UUID) error {
	return s.finishTick(ctx, tickID, store.TickStatusError, 0)
}

func (s *Store) finishTick(ctx context.Context, tickID uuid.UUID, status store.TickStatus, flagsPlaced int) error {
	query := `
		UPDATE ticks
		SET status = $2, end_time = $3, flags_placed = $4
		WHERE id = $1
	`
	_, err := s.db.ExecContext(ctx, query, tickID, status, time.Now().UTC(), flagsPlaced)
	if err != nil {
		return fmt.Errorf("finish tick %s: %w", tickID, err)
	}
	return nil
}
