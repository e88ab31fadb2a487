package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"flagrange/internal/store"
)

func TestCreateSubmission_Success(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	flagID := uuid.New()
	sub := &store.FlagSubmission{
		ID:             uuid.New(),
		GameID:         uuid.New(),
		AttackerTeamID: "team-a",
		FlagID:         &flagID,
		SubmittedValue: "FLAG{aaaa_bbbb}",
		SubmitterIP:    "10.0.0.5",
		Status:         store.SubmissionAccepted,
		Points:         50,
		SubmittedAt:    time.Now(),
	}

	mock.ExpectExec(`INSERT INTO flag_submissions`).
		WithArgs(sub.ID, sub.GameID, sub.AttackerTeamID, sub.FlagID,
			sub.SubmittedValue, sub.SubmitterIP, sub.Status, sub.Points, sub.SubmittedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.CreateSubmission(context.Background(), sub); err != nil {
		t.Fatalf("CreateSubmission failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCreateSubmission_AcceptedTwiceIsDuplicate(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	// The partial unique index on accepted (attacker, flag) pairs rejects
	// the second accepted insert.
	mock.ExpectExec(`INSERT INTO flag_submissions`).
		WillReturnError(&pq.Error{Code: "23505"})

	flagID := uuid.New()
	err := s.CreateSubmission(context.Background(), &store.FlagSubmission{
		ID: uuid.New(), GameID: uuid.New(), AttackerTeamID: "team-a",
		FlagID: &flagID, Status: store.SubmissionAccepted, Points: 50,
	})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}
