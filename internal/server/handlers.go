package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"flagrange/internal/broadcast"
	"flagrange/internal/store"
	"flagrange/pkg/api"
)

// StoreFactory combines the store interfaces the viewer API reads from.
type StoreFactory interface {
	Ping(ctx context.Context) error
	store.GameStore
	store.TeamStore
	store.ScoreStore
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	store  StoreFactory
	hub    *broadcast.Hub
	logger *slog.Logger

	upgrader websocket.Upgrader
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(s StoreFactory, hub *broadcast.Hub, logger *slog.Logger) *Handlers {
	return &Handlers{
		store:  s,
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Viewers are read-only spectators; any origin may watch.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJson(w, code, api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}

// Health reports process liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJson(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Ready reports database reachability.
func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.httpError(w, "Database unavailable", http.StatusServiceUnavailable)
		return
	}
	h.respondJson(w, http.StatusOK, map[string]string{"status": "ready"})
}

// ListGames returns every game, newest first is not guaranteed; ordering
// follows creation time.
func (h *Handlers) ListGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.store.ListGamesByCreation(r.Context())
	if err != nil {
		h.logger.Error("list games", "error", err)
		h.httpError(w, "Internal error", http.StatusInternalServerError)
		return
	}
	resp := api.GameListResponse{Games: make([]api.GameResponse, 0, len(games))}
	for _, g := range games {
		resp.Games = append(resp.Games, h.gameResponse(r.Context(), g))
	}
	h.respondJson(w, http.StatusOK, resp)
}

// GetGame returns one game by id.
func (h *Handlers) GetGame(w http.ResponseWriter, r *http.Request) {
	g, ok := h.loadGame(w, r)
	if !ok {
		return
	}
	h.respondJson(w, http.StatusOK, h.gameResponse(r.Context(), g))
}

// GetScoreboard returns the ranked scoreboard of one game.
func (h *Handlers) GetScoreboard(w http.ResponseWriter, r *http.Request) {
	g, ok := h.loadGame(w, r)
	if !ok {
		return
	}
	rows, err := h.store.ListScoreboard(r.Context(), g.ID)
	if err != nil {
		h.logger.Error("list scoreboard", "game_id", g.ID, "error", err)
		h.httpError(w, "Internal error", http.StatusInternalServerError)
		return
	}
	h.respondJson(w, http.StatusOK, scoreboardResponse(g, rows))
}

// WatchGame upgrades the connection and attaches the viewer to the game's
// broadcast stream, preceded by an initial snapshot.
func (h *Handlers) WatchGame(w http.ResponseWriter, r *http.Request) {
	g, ok := h.loadGame(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.Debug("websocket upgrade failed", "game_id", g.ID, "error", err)
		return
	}

	client := broadcast.NewClient(h.hub, conn, g.ID, h.resendSnapshot, h.logger)

	// Queue the snapshot before joining the broadcast stream so the viewer
	// always sees the initial state ahead of any live update.
	h.sendSnapshot(r.Context(), client, g)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

// resendSnapshot serves a viewer's refresh request with current state.
func (h *Handlers) resendSnapshot(c *broadcast.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	g, err := h.store.GetGameByID(ctx, c.GameID())
	if err != nil {
		c.SendJSON(broadcast.ErrorMessage{Type: broadcast.TypeError, Message: "game not found"})
		return
	}
	h.sendSnapshot(ctx, c, g)
}

func (h *Handlers) sendSnapshot(ctx context.Context, c *broadcast.Client, g *store.Game) {
	elapsed, remaining := tickClock(g, time.Now())
	c.SendJSON(broadcast.InitialMessage{
		Type:                broadcast.TypeInitial,
		GameID:              g.ID.String(),
		GameName:            g.Name,
		GameStatus:          string(g.Status),
		CurrentTick:         g.CurrentTick,
		MaxTicks:            g.MaxTicks,
		TickDurationSeconds: g.TickDurationSeconds,
		SecondsElapsed:      elapsed,
		SecondsRemaining:    remaining,
		ServerTime:          broadcast.Timestamp(time.Now()),
	})

	rows, err := h.store.ListScoreboard(ctx, g.ID)
	if err != nil {
		h.logger.Error("snapshot scoreboard", "game_id", g.ID, "error", err)
		return
	}
	msg := broadcast.ScoreboardMessage{
		Type:    broadcast.TypeScoreboard,
		GameID:  g.ID.String(),
		Entries: make([]broadcast.ScoreboardEntry, 0, len(rows)),
	}
	for _, row := range rows {
		msg.Entries = append(msg.Entries, broadcast.ScoreboardEntry{
			TeamID:        row.TeamID,
			AttackPoints:  row.AttackPoints,
			DefensePoints: row.DefensePoints,
			SLAPoints:     row.SLAPoints,
			TotalPoints:   row.TotalPoints,
			Rank:          row.Rank,
			FlagsCaptured: row.FlagsCaptured,
			FlagsLost:     row.FlagsLost,
		})
	}
	c.SendJSON(msg)
}

func (h *Handlers) loadGame(w http.ResponseWriter, r *http.Request) (*store.Game, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid game id", http.StatusBadRequest)
		return nil, false
	}
	g, err := h.store.GetGameByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.httpError(w, "Game not found", http.StatusNotFound)
			return nil, false
		}
		h.logger.Error("load game", "game_id", id, "error", err)
		h.httpError(w, "Internal error", http.StatusInternalServerError)
		return nil, false
	}
	return g, true
}

func (h *Handlers) gameResponse(ctx context.Context, g *store.Game) api.GameResponse {
	teamCount := 0
	if teams, err := h.store.ListTeams(ctx, g.ID, true); err == nil {
		teamCount = len(teams)
	}
	return api.GameResponse{
		ID:                  g.ID.String(),
		Name:                g.Name,
		Status:              string(g.Status),
		CurrentTick:         g.CurrentTick,
		TickDurationSeconds: g.TickDurationSeconds,
		MaxTicks:            g.MaxTicks,
		TeamCount:           teamCount,
		StartTime:           g.StartTime,
		EndTime:             g.EndTime,
		CreatedAt:           g.CreatedAt,
	}
}

func scoreboardResponse(g *store.Game, rows []*store.Scoreboard) api.ScoreboardResponse {
	resp := api.ScoreboardResponse{
		GameID:      g.ID.String(),
		GameName:    g.Name,
		GameStatus:  string(g.Status),
		CurrentTick: g.CurrentTick,
		Entries:     make([]api.ScoreboardEntry, 0, len(rows)),
	}
	for _, row := range rows {
		resp.Entries = append(resp.Entries, api.ScoreboardEntry{
			TeamID:        row.TeamID,
			Rank:          row.Rank,
			AttackPoints:  row.AttackPoints,
			DefensePoints: row.DefensePoints,
			SLAPoints:     row.SLAPoints,
			TotalPoints:   row.TotalPoints,
			FlagsCaptured: row.FlagsCaptured,
			FlagsLost:     row.FlagsLost,
			LastUpdated:   row.LastUpdated,
		})
	}
	return resp
}

// tickClock reports elapsed and remaining seconds of the current tick.
func tickClock(g *store.Game, now time.Time) (elapsed, remaining int) {
	if g.Status != store.GameStatusRunning || g.CurrentTickStartedAt == nil {
		return 0, g.TickDurationSeconds
	}
	elapsed = int(now.Sub(*g.CurrentTickStartedAt).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}
	remaining = g.TickDurationSeconds - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return elapsed, remaining
}
