package broadcast

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"flagrange/internal/store"
)

// gameTimer is the live tick state for one running game.
type gameTimer struct {
	currentTick   int
	tickDuration  int
	status        store.GameStatus
	tickStartedAt time.Time
	stop          chan struct{}
}

// TimerSet runs a once-a-second countdown broadcast per running game so
// viewers can render tick progress without polling.
type TimerSet struct {
	hub *Hub
	now func() time.Time

	mu     sync.Mutex
	timers map[uuid.UUID]*gameTimer
	wg     sync.WaitGroup
}

func NewTimerSet(hub *Hub) *TimerSet {
	return &TimerSet{
		hub:    hub,
		now:    time.Now,
		timers: make(map[uuid.UUID]*gameTimer),
	}
}

// RegisterGame starts the countdown loop for a game. Registering an already
// registered game refreshes its state instead of starting a second loop.
func (ts *TimerSet) RegisterGame(game *store.Game) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	startedAt := ts.now()
	if game.CurrentTickStartedAt != nil {
		startedAt = *game.CurrentTickStartedAt
	}

	if t, ok := ts.timers[game.ID]; ok {
		t.currentTick = game.CurrentTick
		t.tickDuration = game.TickDurationSeconds
		t.status = game.Status
		t.tickStartedAt = startedAt
		return
	}

	t := &gameTimer{
		currentTick:   game.CurrentTick,
		tickDuration:  game.TickDurationSeconds,
		status:        game.Status,
		tickStartedAt: startedAt,
		stop:          make(chan struct{}),
	}
	ts.timers[game.ID] = t

	ts.wg.Add(1)
	go ts.run(game.ID, t)
}

// UpdateTick records a tick advance; the loop picks it up on its next beat
// and a tick_change message is pushed immediately.
func (ts *TimerSet) UpdateTick(gameID uuid.UUID, newTick int, startedAt time.Time) {
	ts.mu.Lock()
	t, ok := ts.timers[gameID]
	var oldTick, duration int
	if ok {
		oldTick = t.currentTick
		duration = t.tickDuration
		t.currentTick = newTick
		t.tickStartedAt = startedAt
	}
	ts.mu.Unlock()
	if !ok {
		return
	}

	ts.hub.BroadcastJSON(gameID, TickChangeMessage{
		Type:                TypeTickChange,
		GameID:              gameID.String(),
		OldTick:             oldTick,
		NewTick:             newTick,
		TickDurationSeconds: duration,
		Timestamp:           Timestamp(ts.now()),
	})
}

// UpdateStatus records a pause/resume and notifies viewers. On resume the
// shifted tick start time must be supplied so the countdown stays accurate.
func (ts *TimerSet) UpdateStatus(gameID uuid.UUID, status store.GameStatus, tickStartedAt *time.Time) {
	ts.mu.Lock()
	t, ok := ts.timers[gameID]
	if ok {
		t.status = status
		if tickStartedAt != nil {
			t.tickStartedAt = *tickStartedAt
		}
	}
	ts.mu.Unlock()
	if !ok {
		return
	}

	ts.hub.BroadcastJSON(gameID, GameStateMessage{
		Type:   TypeGameState,
		GameID: gameID.String(),
		Status: string(status),
	})
}

// UnregisterGame stops a game's countdown loop.
func (ts *TimerSet) UnregisterGame(gameID uuid.UUID) {
	ts.mu.Lock()
	t, ok := ts.timers[gameID]
	if ok {
		delete(ts.timers, gameID)
	}
	ts.mu.Unlock()
	if ok {
		close(t.stop)
	}
}

// StopAll stops every countdown loop and waits for them to exit.
func (ts *TimerSet) StopAll() {
	ts.mu.Lock()
	for id, t := range ts.timers {
		delete(ts.timers, id)
		close(t.stop)
	}
	ts.mu.Unlock()
	ts.wg.Wait()
}

// Snapshot builds the current timer message for a game, for the initial
// viewer snapshot. It reports false when the game has no registered timer.
func (ts *TimerSet) Snapshot(gameID uuid.UUID) (TickTimerMessage, bool) {
	ts.mu.Lock()
	t, ok := ts.timers[gameID]
	if !ok {
		ts.mu.Unlock()
		return TickTimerMessage{}, false
	}
	msg := ts.timerMessage(gameID, t)
	ts.mu.Unlock()
	return msg, true
}

func (ts *TimerSet) run(gameID uuid.UUID, t *gameTimer) {
	defer ts.wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			ts.mu.Lock()
			msg := ts.timerMessage(gameID, t)
			paused := t.status == store.GameStatusPaused
			ts.mu.Unlock()
			if paused {
				continue
			}
			ts.hub.BroadcastJSON(gameID, msg)
		}
	}
}

// timerMessage is called with ts.mu held.
func (ts *TimerSet) timerMessage(gameID uuid.UUID, t *gameTimer) TickTimerMessage {
	elapsed := int(ts.now().Sub(t.tickStartedAt).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := t.tickDuration - elapsed
	if remaining < 0 {
		remaining = 0
	}
	progress := 0
	if t.tickDuration > 0 {
		progress = int(math.Min(100, float64(elapsed)/float64(t.tickDuration)*100))
	}
	return TickTimerMessage{
		Type:                TypeTickTimer,
		GameID:              gameID.String(),
		CurrentTick:         t.currentTick,
		TickDurationSeconds: t.tickDuration,
		SecondsElapsed:      elapsed,
		SecondsRemaining:    remaining,
		ProgressPercent:     progress,
		GameStatus:          string(t.status),
		ServerTime:          Timestamp(ts.now()),
	}
}
