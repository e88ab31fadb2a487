package broadcast

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"flagrange/internal/store"
)

func timerGame(id uuid.UUID, tick, duration int, startedAt time.Time) *store.Game {
	return &store.Game{
		ID:                   id,
		Status:               store.GameStatusRunning,
		CurrentTick:          tick,
		TickDurationSeconds:  duration,
		CurrentTickStartedAt: &startedAt,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testClient builds a client without a live socket; everything up to the
// write pump can be exercised through the send channel.
func testClient(h *Hub, gameID uuid.UUID) *Client {
	return NewClient(h, nil, gameID, nil, testLogger())
}

func drain(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case payload := <-c.send:
		return payload
	case <-time.After(time.Second):
		t.Fatal("expected a queued message")
		return nil
	}
}

func TestHub_BroadcastToGameViewers(t *testing.T) {
	h := NewHub(testLogger())
	gameA := uuid.New()
	gameB := uuid.New()

	viewerA := testClient(h, gameA)
	viewerB := testClient(h, gameB)
	h.Register(viewerA)
	h.Register(viewerB)

	h.Broadcast(gameA, []byte(`{"type":"tick_timer"}`))

	if got := string(drain(t, viewerA)); got != `{"type":"tick_timer"}` {
		t.Errorf("unexpected payload: %s", got)
	}
	select {
	case payload := <-viewerB.send:
		t.Errorf("viewer of another game received %s", payload)
	default:
	}
}

func TestHub_SlowViewerPruned(t *testing.T) {
	h := NewHub(testLogger())
	gameID := uuid.New()

	slow := testClient(h, gameID)
	h.Register(slow)

	// Fill the buffer past capacity; the overflowing broadcast prunes.
	for i := 0; i < sendBufferSize+1; i++ {
		h.Broadcast(gameID, []byte("x"))
	}

	if got := h.ViewerCount(gameID); got != 0 {
		t.Errorf("expected slow viewer pruned, %d remain", got)
	}
}

func TestHub_UnregisterTwice(t *testing.T) {
	h := NewHub(testLogger())
	c := testClient(h, uuid.New())
	h.Register(c)
	h.Unregister(c)
	// ReadPump and CloseGame can race to unregister; the second call must
	// be harmless.
	h.Unregister(c)
}

func TestHub_CloseGame(t *testing.T) {
	h := NewHub(testLogger())
	gameID := uuid.New()
	c := testClient(h, gameID)
	h.Register(c)

	h.CloseGame(gameID)

	if _, ok := <-c.send; ok {
		t.Error("expected send channel closed")
	}
	if h.ViewerCount(gameID) != 0 {
		t.Error("expected no viewers after close")
	}

	// Sends to a departed viewer must not panic.
	c.Send([]byte("late"))
	if c.TrySend([]byte("late")) {
		t.Error("TrySend to a closed viewer should report failure")
	}
}

func TestTimerSet_UpdateTickBroadcastsChange(t *testing.T) {
	h := NewHub(testLogger())
	ts := NewTimerSet(h)
	defer ts.StopAll()

	gameID := uuid.New()
	startedAt := time.Now()
	ts.RegisterGame(timerGame(gameID, 3, 60, startedAt))

	viewer := testClient(h, gameID)
	h.Register(viewer)

	ts.UpdateTick(gameID, 4, time.Now())

	var msg TickChangeMessage
	if err := json.Unmarshal(drain(t, viewer), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != TypeTickChange {
		t.Errorf("expected tick_change, got %s", msg.Type)
	}
	if msg.OldTick != 3 || msg.NewTick != 4 {
		t.Errorf("expected 3 -> 4, got %d -> %d", msg.OldTick, msg.NewTick)
	}
}

func TestTimerSet_Snapshot(t *testing.T) {
	h := NewHub(testLogger())
	ts := NewTimerSet(h)
	defer ts.StopAll()

	gameID := uuid.New()
	base := time.Now()
	ts.now = func() time.Time { return base.Add(15 * time.Second) }
	ts.RegisterGame(timerGame(gameID, 2, 60, base))

	msg, ok := ts.Snapshot(gameID)
	if !ok {
		t.Fatal("expected a snapshot for a registered game")
	}
	if msg.CurrentTick != 2 {
		t.Errorf("expected tick 2, got %d", msg.CurrentTick)
	}
	if msg.SecondsElapsed != 15 || msg.SecondsRemaining != 45 {
		t.Errorf("expected 15/45 seconds, got %d/%d", msg.SecondsElapsed, msg.SecondsRemaining)
	}
	if msg.ProgressPercent != 25 {
		t.Errorf("expected 25%% progress, got %d", msg.ProgressPercent)
	}

	if _, ok := ts.Snapshot(uuid.New()); ok {
		t.Error("expected no snapshot for an unknown game")
	}
}

func TestTimerSet_UnregisterStopsLoop(t *testing.T) {
	h := NewHub(testLogger())
	ts := NewTimerSet(h)

	gameID := uuid.New()
	ts.RegisterGame(timerGame(gameID, 1, 60, time.Now()))
	ts.UnregisterGame(gameID)
	// Unregistering an unknown game is harmless.
	ts.UnregisterGame(uuid.New())
	ts.StopAll()

	if _, ok := ts.Snapshot(gameID); ok {
		t.Error("expected timer removed")
	}
}
