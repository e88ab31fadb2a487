// Package storetest provides an in-memory store implementation for tests.
// It mirrors the uniqueness guarantees the postgres schema enforces, so the
// idempotency paths that rely on ErrDuplicate and created=false results can
// be exercised without a database.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"flagrange/internal/store"
)

// Memory implements every store interface against process memory.
type Memory struct {
	mu sync.Mutex

	games    map[uuid.UUID]*store.Game
	teams    []*store.GameTeam
	ticks    []*store.Tick
	flags    []*store.Flag
	subs     []*store.FlagSubmission
	statuses []*store.ServiceStatus
	boards   []*store.Scoreboard
}

func New() *Memory {
	return &Memory{games: make(map[uuid.UUID]*store.Game)}
}

// Ping always succeeds.
func (m *Memory) Ping(ctx context.Context) error { return nil }

func cloneGame(g *store.Game) *store.Game {
	c := *g
	return &c
}

func cloneTeam(t *store.GameTeam) *store.GameTeam {
	c := *t
	return &c
}

// --- GameStore ---

func (m *Memory) CreateGame(ctx context.Context, game *store.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[game.ID]; ok {
		return store.ErrDuplicate
	}
	if game.CreatedAt.IsZero() {
		game.CreatedAt = time.Now()
	}
	m.games[game.ID] = cloneGame(game)
	return nil
}

func (m *Memory) GetGameByID(ctx context.Context, id uuid.UUID) (*store.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneGame(g), nil
}

func (m *Memory) ListGamesByStatus(ctx context.Context, statuses ...store.GameStatus) ([]*store.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.Game
	for _, g := range m.games {
		for _, s := range statuses {
			if g.Status == s {
				out = append(out, cloneGame(g))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) ListGamesByCreation(ctx context.Context) ([]*store.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*store.Game, 0, len(m.games))
	for _, g := range m.games {
		out = append(out, cloneGame(g))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) UpdateGameState(ctx context.Context, game *store.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[game.ID]; !ok {
		return store.ErrNotFound
	}
	m.games[game.ID] = cloneGame(game)
	return nil
}

func (m *Memory) AdvanceGameTick(ctx context.Context, gameID uuid.UUID, tick int, startedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[gameID]
	if !ok {
		return store.ErrNotFound
	}
	if g.CurrentTick >= tick {
		return nil
	}
	g.CurrentTick = tick
	g.CurrentTickStartedAt = &startedAt
	return nil
}

// --- TeamStore ---

func (m *Memory) AddTeam(ctx context.Context, team *store.GameTeam) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.teams {
		if t.GameID == team.GameID && t.TeamID == team.TeamID {
			return store.ErrDuplicate
		}
		if t.Token == team.Token {
			return store.ErrDuplicate
		}
	}
	if team.CreatedAt.IsZero() {
		team.CreatedAt = time.Now()
	}
	m.teams = append(m.teams, cloneTeam(team))
	return nil
}

func (m *Memory) ListTeams(ctx context.Context, gameID uuid.UUID, activeOnly bool) ([]*store.GameTeam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.GameTeam
	for _, t := range m.teams {
		if t.GameID != gameID {
			continue
		}
		if activeOnly && !t.IsActive {
			continue
		}
		out = append(out, cloneTeam(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].TeamID < out[j].TeamID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) GetTeamByToken(ctx context.Context, token string) (*store.GameTeam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.teams {
		if t.Token == token {
			return cloneTeam(t), nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Memory) SetTeamDeployment(ctx context.Context, id uuid.UUID, containerRef, containerAddr string, sshPort int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.teams {
		if t.ID == id {
			ref, addr, port := containerRef, containerAddr, sshPort
			t.ContainerRef = &ref
			t.ContainerAddr = &addr
			t.SSHPort = &port
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *Memory) ClearTeamDeployment(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.teams {
		if t.ID == id {
			t.ContainerRef = nil
			t.ContainerAddr = nil
			t.SSHPort = nil
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *Memory) ListAllocatedPorts(ctx context.Context, excludeGame uuid.UUID) ([]store.PortAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.PortAssignment
	for _, t := range m.teams {
		if t.GameID == excludeGame || t.SSHPort == nil {
			continue
		}
		g, ok := m.games[t.GameID]
		if !ok {
			continue
		}
		switch g.Status {
		case store.GameStatusDeploying, store.GameStatusRunning, store.GameStatusPaused:
			out = append(out, store.PortAssignment{GameID: t.GameID, TeamID: t.TeamID, Port: *t.SSHPort})
		}
	}
	return out, nil
}

// --- TickStore ---

func (m *Memory) CreateTick(ctx context.Context, tick *store.Tick) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.ticks {
		if t.GameID == tick.GameID && t.TickNumber == tick.TickNumber {
			return false, nil
		}
	}
	c := *tick
	m.ticks = append(m.ticks, &c)
	return true, nil
}

func (m *Memory) GetTick(ctx context.Context, gameID uuid.UUID, tickNumber int) (*store.Tick, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.ticks {
		if t.GameID == gameID && t.TickNumber == tickNumber {
			c := *t
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Memory) CompleteTick(ctx context.Context, tickID uuid.UUID, flagsPlaced int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.ticks {
		if t.ID == tickID {
			now := time.Now()
			t.Status = store.TickStatusCompleted
			t.EndTime = &now
			t.FlagsPlaced = flagsPlaced
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *Memory) ErrorTick(ctx context.Context, tickID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.ticks {
		if t.ID == tickID {
			t.Status = store.TickStatusError
			return nil
		}
	}
	return store.ErrNotFound
}

// --- FlagStore ---

func (m *Memory) InsertFlag(ctx context.Context, flag *store.Flag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.flags {
		if f.Value == flag.Value {
			return store.ErrDuplicate
		}
		if f.GameID == flag.GameID && f.TeamID == flag.TeamID && f.TickID == flag.TickID && f.Type == flag.Type {
			return store.ErrDuplicate
		}
	}
	c := *flag
	m.flags = append(m.flags, &c)
	return nil
}

func (m *Memory) GetFlagForTick(ctx context.Context, gameID uuid.UUID, teamID string, tickID uuid.UUID, typ store.FlagType) (*store.Flag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.flags {
		if f.GameID == gameID && f.TeamID == teamID && f.TickID == tickID && f.Type == typ {
			c := *f
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Memory) GetFlagByValue(ctx context.Context, value string) (*store.Flag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.flags {
		if f.Value == value {
			c := *f
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Memory) MarkFlagStolen(ctx context.Context, flagID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.flags {
		if f.ID == flagID {
			f.IsStolen = true
			f.StolenCount++
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *Memory) ListTeamFlagsForTick(ctx context.Context, gameID uuid.UUID, teamID string, tickID uuid.UUID) ([]*store.Flag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.Flag
	for _, f := range m.flags {
		if f.GameID == gameID && f.TeamID == teamID && f.TickID == tickID {
			c := *f
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *Memory) CountUnstolenFlags(ctx context.Context, gameID uuid.UUID, teamID string, tickID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, f := range m.flags {
		if f.GameID == gameID && f.TeamID == teamID && f.TickID == tickID && !f.IsStolen {
			count++
		}
	}
	return count, nil
}

// --- SubmissionStore ---

func (m *Memory) CreateSubmission(ctx context.Context, sub *store.FlagSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Mirrors the partial unique index on accepted (attacker, flag) pairs.
	if sub.Status == store.SubmissionAccepted && sub.FlagID != nil {
		for _, s := range m.subs {
			if s.Status == store.SubmissionAccepted && s.AttackerTeamID == sub.AttackerTeamID &&
				s.FlagID != nil && *s.FlagID == *sub.FlagID {
				return store.ErrDuplicate
			}
		}
	}
	c := *sub
	m.subs = append(m.subs, &c)
	return nil
}

func (m *Memory) HasAcceptedSubmission(ctx context.Context, teamID string, flagID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.AttackerTeamID == teamID && s.FlagID != nil && *s.FlagID == flagID && s.Status == store.SubmissionAccepted {
			return true, nil
		}
	}
	return false, nil
}

// Submissions returns a copy of all recorded submissions, for assertions.
func (m *Memory) Submissions() []store.FlagSubmission {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.FlagSubmission, 0, len(m.subs))
	for _, s := range m.subs {
		out = append(out, *s)
	}
	return out
}

// --- StatusStore ---

func (m *Memory) InsertServiceStatus(ctx context.Context, status *store.ServiceStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.statuses {
		if s.GameID == status.GameID && s.TeamID == status.TeamID && s.TickID == status.TickID {
			return false, nil
		}
	}
	c := *status
	m.statuses = append(m.statuses, &c)
	return true, nil
}

func (m *Memory) GetServiceStatus(ctx context.Context, gameID uuid.UUID, teamID string, tickID uuid.UUID) (*store.ServiceStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.statuses {
		if s.GameID == gameID && s.TeamID == teamID && s.TickID == tickID {
			c := *s
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

// --- ScoreStore ---

func (m *Memory) CreateScoreboard(ctx context.Context, gameID uuid.UUID, teamID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.boards {
		if b.GameID == gameID && b.TeamID == teamID {
			return store.ErrDuplicate
		}
	}
	m.boards = append(m.boards, &store.Scoreboard{
		ID:          uuid.New(),
		GameID:      gameID,
		TeamID:      teamID,
		LastUpdated: time.Now(),
	})
	return nil
}

func (m *Memory) GetScoreboard(ctx context.Context, gameID uuid.UUID, teamID string) (*store.Scoreboard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.board(gameID, teamID)
	if err != nil {
		return nil, err
	}
	c := *b
	return &c, nil
}

func (m *Memory) ListScoreboard(ctx context.Context, gameID uuid.UUID) ([]*store.Scoreboard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.Scoreboard
	for _, b := range m.boards {
		if b.GameID == gameID {
			c := *b
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].TeamID < out[j].TeamID
	})
	return out, nil
}

func (m *Memory) AddAttackPoints(ctx context.Context, gameID uuid.UUID, teamID string, points int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.board(gameID, teamID)
	if err != nil {
		return err
	}
	b.AttackPoints += points
	b.FlagsCaptured++
	b.TotalPoints = b.AttackPoints + b.DefensePoints + b.SLAPoints
	b.LastUpdated = time.Now()
	return nil
}

func (m *Memory) AddSLAPoints(ctx context.Context, gameID uuid.UUID, teamID string, points int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.board(gameID, teamID)
	if err != nil {
		return err
	}
	b.SLAPoints += points
	b.TotalPoints = b.AttackPoints + b.DefensePoints + b.SLAPoints
	b.LastUpdated = time.Now()
	return nil
}

func (m *Memory) AddDefensePoints(ctx context.Context, gameID uuid.UUID, teamID string, points int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.board(gameID, teamID)
	if err != nil {
		return err
	}
	b.DefensePoints += points
	b.TotalPoints = b.AttackPoints + b.DefensePoints + b.SLAPoints
	b.LastUpdated = time.Now()
	return nil
}

func (m *Memory) IncrementFlagsLost(ctx context.Context, gameID uuid.UUID, teamID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.board(gameID, teamID)
	if err != nil {
		return err
	}
	b.FlagsLost++
	b.LastUpdated = time.Now()
	return nil
}

func (m *Memory) SetRank(ctx context.Context, gameID uuid.UUID, teamID string, rank int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.board(gameID, teamID)
	if err != nil {
		return err
	}
	b.Rank = rank
	return nil
}

// board is called with m.mu held.
func (m *Memory) board(gameID uuid.UUID, teamID string) (*store.Scoreboard, error) {
	for _, b := range m.boards {
		if b.GameID == gameID && b.TeamID == teamID {
			return b, nil
		}
	}
	return nil, store.ErrNotFound
}
