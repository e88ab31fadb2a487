package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"flagrange/internal/store"
)

func TestInsertServiceStatus_Wins(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	duration := 42
	status := &store.ServiceStatus{
		ID:              uuid.New(),
		GameID:          uuid.New(),
		TeamID:          "team-a",
		TickID:          uuid.New(),
		Status:          store.CheckStatusUp,
		SLAPercentage:   100,
		CheckDurationMS: &duration,
		CreatedAt:       time.Now(),
	}

	mock.ExpectExec(`INSERT INTO service_statuses`).
		WithArgs(status.ID, status.GameID, status.TeamID, status.TickID, status.Status,
			status.SLAPercentage, status.Message, status.CheckDurationMS, status.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	inserted, err := s.InsertServiceStatus(context.Background(), status)
	if err != nil {
		t.Fatalf("InsertServiceStatus failed: %v", err)
	}
	if !inserted {
		t.Error("expected inserted=true for a fresh verdict")
	}
}

func TestInsertServiceStatus_DuplicateVerdict(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectExec(`INSERT INTO service_statuses`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := s.InsertServiceStatus(context.Background(), &store.ServiceStatus{
		ID: uuid.New(), GameID: uuid.New(), TeamID: "team-a", TickID: uuid.New(),
		Status: store.CheckStatusDown, CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("InsertServiceStatus failed: %v", err)
	}
	if inserted {
		t.Error("expected inserted=false when a verdict for the tick already exists")
	}
}
