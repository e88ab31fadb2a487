package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"flagrange/internal/store"
)

func flagRowsCols() []string {
	return []string{
		"id", "game_id", "team_id", "tick_id", "flag_type", "flag_value",
		"valid_until", "is_stolen", "stolen_count", "created_at",
	}
}

func TestInsertFlag_Duplicate(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectExec(`INSERT INTO flags`).
		WillReturnError(&pq.Error{Code: "23505"})

	err := s.InsertFlag(context.Background(), &store.Flag{
		ID: uuid.New(), GameID: uuid.New(), TeamID: "team-a",
		TickID: uuid.New(), Type: store.FlagTypeUser,
	})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestGetFlagByValue_Success(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	id := uuid.New()
	gameID := uuid.New()
	tickID := uuid.New()
	now := time.Now()
	validUntil := now.Add(5 * time.Minute)
	value := "FLAG{deadbeefdeadbeefdeadbeefdeadbeef_cafecafecafecafecafecafecafecafe}"

	mock.ExpectQuery(`FROM flags WHERE flag_value = \$1`).
		WithArgs(value).
		WillReturnRows(sqlmock.NewRows(flagRowsCols()).
			AddRow(id, gameID, "team-a", tickID, "user", value, validUntil, false, 0, now))

	flag, err := s.GetFlagByValue(context.Background(), value)
	if err != nil {
		t.Fatalf("GetFlagByValue failed: %v", err)
	}
	if flag.ID != id || flag.Type != store.FlagTypeUser || !flag.ValidUntil.Equal(validUntil) {
		t.Errorf("unexpected flag: %+v", flag)
	}
}

func TestGetFlagByValue_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectQuery(`FROM flags WHERE flag_value = \$1`).
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetFlagByValue(context.Background(), "FLAG{nope}")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkFlagStolen_AtomicIncrement(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	flagID := uuid.New()
	mock.ExpectExec(`UPDATE flags\s+SET is_stolen = TRUE, stolen_count = stolen_count \+ 1\s+WHERE id = \$1`).
		WithArgs(flagID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.MarkFlagStolen(context.Background(), flagID); err != nil {
		t.Fatalf("MarkFlagStolen failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestMarkFlagStolen_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectExec(`UPDATE flags`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.MarkFlagStolen(context.Background(), uuid.New())
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCountUnstolenFlags(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	gameID := uuid.New()
	tickID := uuid.New()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM flags`).
		WithArgs(gameID, "team-a", tickID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := s.CountUnstolenFlags(context.Background(), gameID, "team-a", tickID)
	if err != nil {
		t.Fatalf("CountUnstolenFlags failed: %v", err)
	}
	if n != 2 {
		t.Errorf("got %d, want 2", n)
	}
}
