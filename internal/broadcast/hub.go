package broadcast

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Hub tracks connected viewers grouped by game and pushes messages to them.
// Slow viewers whose buffers fill up are dropped rather than allowed to
// stall the broadcast.
type Hub struct {
	mu      sync.RWMutex
	viewers map[uuid.UUID]map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		viewers: make(map[uuid.UUID]map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a viewer to its game's set.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.viewers[c.gameID]
	if !ok {
		set = make(map[*Client]struct{})
		h.viewers[c.gameID] = set
	}
	set[c] = struct{}{}
	h.logger.Debug("viewer registered", "game_id", c.gameID, "viewers", len(set))
}

// Unregister removes a viewer and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.viewers[c.gameID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.viewers, c.gameID)
	}
}

// ViewerCount reports how many viewers a game currently has.
func (h *Hub) ViewerCount(gameID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers[gameID])
}

// Broadcast sends a payload to every viewer of a game. Viewers that cannot
// keep up are pruned.
func (h *Hub) Broadcast(gameID uuid.UUID, payload []byte) {
	h.mu.RLock()
	set := h.viewers[gameID]
	clients := make([]*Client, 0, len(set))
	for c := range set {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	var slow []*Client
	for _, c := range clients {
		if !c.TrySend(payload) {
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		h.logger.Warn("dropping slow viewer", "game_id", gameID)
		h.Unregister(c)
	}
}

// BroadcastJSON marshals v and broadcasts it to a game's viewers.
func (h *Hub) BroadcastJSON(gameID uuid.UUID, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("marshal broadcast message", "error", err)
		return
	}
	h.Broadcast(gameID, payload)
}

// CloseGame disconnects every viewer of a game.
func (h *Hub) CloseGame(gameID uuid.UUID) {
	h.mu.Lock()
	set := h.viewers[gameID]
	delete(h.viewers, gameID)
	h.mu.Unlock()
	for c := range set {
		close(c.send)
	}
}
