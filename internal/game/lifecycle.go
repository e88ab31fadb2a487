// Package game implements the game lifecycle state machine: draft, deploy,
// run, pause, resume, finish.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"flagrange/internal/broadcast"
	"flagrange/internal/deploy"
	"flagrange/internal/store"
)

// ErrInvalidTransition is returned when an operation is not legal in the
// game's current state.
var ErrInvalidTransition = errors.New("game: invalid state transition")

// Lifecycle drives games through their states. All transitions are persisted
// before side effects are visible to viewers.
type Lifecycle struct {
	games  store.GameStore
	teams  store.TeamStore
	scores store.ScoreStore

	deployer deploy.Deployer
	ports    *deploy.PortAllocator
	timers   *broadcast.TimerSet

	logger *slog.Logger
	now    func() time.Time
}

func NewLifecycle(
	games store.GameStore,
	teams store.TeamStore,
	scores store.ScoreStore,
	deployer deploy.Deployer,
	ports *deploy.PortAllocator,
	timers *broadcast.TimerSet,
	logger *slog.Logger,
) *Lifecycle {
	return &Lifecycle{
		games:    games,
		teams:    teams,
		scores:   scores,
		deployer: deployer,
		ports:    ports,
		timers:   timers,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateGame inserts a new game in DRAFT state.
func (l *Lifecycle) CreateGame(ctx context.Context, game *store.Game) error {
	if game.ID == uuid.Nil {
		game.ID = uuid.New()
	}
	game.Status = store.GameStatusDraft
	game.CurrentTick = 0
	if err := l.games.CreateGame(ctx, game); err != nil {
		return fmt.Errorf("create game: %w", err)
	}
	l.logger.Info("game created", "game_id", game.ID, "name", game.Name)
	return nil
}

// AddTeam registers a team in a DRAFT game. The team receives a fresh
// submission token and a zeroed scoreboard row.
func (l *Lifecycle) AddTeam(ctx context.Context, gameID uuid.UUID, teamID string) (*store.GameTeam, error) {
	game, err := l.games.GetGameByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game.Status != store.GameStatusDraft {
		return nil, fmt.Errorf("add team to %s game: %w", game.Status, ErrInvalidTransition)
	}

	team := &store.GameTeam{
		ID:       uuid.New(),
		GameID:   gameID,
		TeamID:   teamID,
		Token:    uuid.NewString(),
		IsActive: true,
	}
	if err := l.teams.AddTeam(ctx, team); err != nil {
		return nil, fmt.Errorf("add team %s: %w", teamID, err)
	}
	if err := l.scores.CreateScoreboard(ctx, gameID, teamID); err != nil && !errors.Is(err, store.ErrDuplicate) {
		return nil, fmt.Errorf("create scoreboard for %s: %w", teamID, err)
	}
	l.logger.Info("team added", "game_id", gameID, "team_id", teamID)
	return team, nil
}

// Start deploys every active team's target and moves the game to RUNNING.
// Only DRAFT games can start. On any deployment failure the already
// provisioned targets are torn down and the game returns to DRAFT, so a
// partial range never scores.
func (l *Lifecycle) Start(ctx context.Context, gameID uuid.UUID) error {
	game, err := l.games.GetGameByID(ctx, gameID)
	if err != nil {
		return err
	}
	if game.Status != store.GameStatusDraft {
		return fmt.Errorf("start %s game: %w", game.Status, ErrInvalidTransition)
	}

	teams, err := l.teams.ListTeams(ctx, gameID, true)
	if err != nil {
		return fmt.Errorf("list teams: %w", err)
	}
	if len(teams) == 0 {
		return fmt.Errorf("start game %s: no active teams", gameID)
	}

	ports, err := l.ports.PortsForGame(ctx, gameID, teams)
	if err != nil {
		return err
	}
	if err := l.ports.CheckConflicts(ctx, gameID, ports); err != nil {
		return err
	}

	game.Status = store.GameStatusDeploying
	if err := l.games.UpdateGameState(ctx, game); err != nil {
		return fmt.Errorf("mark game deploying: %w", err)
	}

	var deployed []*store.GameTeam
	for _, team := range teams {
		port := ports[team.TeamID]
		team.SSHPort = &port
		target, err := l.deployer.Deploy(ctx, game, team)
		if err != nil {
			l.rollback(ctx, game, deployed)
			return fmt.Errorf("deploy team %s: %w", team.TeamID, err)
		}
		if err := l.teams.SetTeamDeployment(ctx, team.ID, target.Ref, target.Addr, port); err != nil {
			l.deployer.Stop(ctx, target.Ref)
			l.rollback(ctx, game, deployed)
			return fmt.Errorf("record deployment for %s: %w", team.TeamID, err)
		}
		team.ContainerRef = &target.Ref
		team.ContainerAddr = &target.Addr
		deployed = append(deployed, team)
	}

	now := l.now()
	game.Status = store.GameStatusRunning
	game.StartTime = &now
	game.CurrentTickStartedAt = &now
	// CurrentTick stays 0; the scheduler executes tick 1 on its next wake.
	if err := l.games.UpdateGameState(ctx, game); err != nil {
		l.rollback(ctx, game, deployed)
		return fmt.Errorf("mark game running: %w", err)
	}

	l.timers.RegisterGame(game)
	l.logger.Info("game started", "game_id", gameID, "teams", len(teams))
	return nil
}

// Pause freezes a RUNNING game. The tick clock stops accruing.
func (l *Lifecycle) Pause(ctx context.Context, gameID uuid.UUID) error {
	game, err := l.games.GetGameByID(ctx, gameID)
	if err != nil {
		return err
	}
	if game.Status != store.GameStatusRunning {
		return fmt.Errorf("pause %s game: %w", game.Status, ErrInvalidTransition)
	}

	now := l.now()
	game.Status = store.GameStatusPaused
	game.PausedAt = &now
	if err := l.games.UpdateGameState(ctx, game); err != nil {
		return fmt.Errorf("pause game: %w", err)
	}

	l.timers.UpdateStatus(gameID, store.GameStatusPaused, nil)
	l.logger.Info("game paused", "game_id", gameID)
	return nil
}

// Resume unfreezes a PAUSED game. The current tick's start time shifts
// forward by the paused duration, so teams keep exactly the in-tick time
// they had at pause.
func (l *Lifecycle) Resume(ctx context.Context, gameID uuid.UUID) error {
	game, err := l.games.GetGameByID(ctx, gameID)
	if err != nil {
		return err
	}
	if game.Status != store.GameStatusPaused {
		return fmt.Errorf("resume %s game: %w", game.Status, ErrInvalidTransition)
	}

	now := l.now()
	if game.PausedAt != nil {
		paused := now.Sub(*game.PausedAt)
		game.TotalPausedSeconds += paused.Seconds()
		if game.CurrentTickStartedAt != nil {
			shifted := game.CurrentTickStartedAt.Add(paused)
			game.CurrentTickStartedAt = &shifted
		}
	}
	game.Status = store.GameStatusRunning
	game.PausedAt = nil
	if err := l.games.UpdateGameState(ctx, game); err != nil {
		return fmt.Errorf("resume game: %w", err)
	}

	l.timers.UpdateStatus(gameID, store.GameStatusRunning, game.CurrentTickStartedAt)
	l.logger.Info("game resumed", "game_id", gameID, "total_paused_seconds", game.TotalPausedSeconds)
	return nil
}

// Finish ends a RUNNING or PAUSED game and tears down every target. Flags
// and submission history stay in the database.
func (l *Lifecycle) Finish(ctx context.Context, gameID uuid.UUID) error {
	game, err := l.games.GetGameByID(ctx, gameID)
	if err != nil {
		return err
	}
	if game.Status != store.GameStatusRunning && game.Status != store.GameStatusPaused {
		return fmt.Errorf("finish %s game: %w", game.Status, ErrInvalidTransition)
	}

	now := l.now()
	game.Status = store.GameStatusFinished
	game.EndTime = &now
	game.PausedAt = nil
	if err := l.games.UpdateGameState(ctx, game); err != nil {
		return fmt.Errorf("finish game: %w", err)
	}

	teams, err := l.teams.ListTeams(ctx, gameID, false)
	if err != nil {
		return fmt.Errorf("list teams for teardown: %w", err)
	}
	for _, team := range teams {
		if team.ContainerRef == nil {
			continue
		}
		if err := l.deployer.Stop(ctx, *team.ContainerRef); err != nil {
			l.logger.Warn("stop target failed", "game_id", gameID, "team_id", team.TeamID, "error", err)
			continue
		}
		if err := l.teams.ClearTeamDeployment(ctx, team.ID); err != nil {
			l.logger.Warn("clear deployment failed", "game_id", gameID, "team_id", team.TeamID, "error", err)
		}
	}

	l.timers.UpdateStatus(gameID, store.GameStatusFinished, nil)
	l.timers.UnregisterGame(gameID)
	l.logger.Info("game finished", "game_id", gameID)
	return nil
}

// rollback tears down the targets deployed so far and returns the game to
// DRAFT after a failed start.
func (l *Lifecycle) rollback(ctx context.Context, game *store.Game, deployed []*store.GameTeam) {
	for _, team := range deployed {
		if team.ContainerRef == nil {
			continue
		}
		if err := l.deployer.Stop(ctx, *team.ContainerRef); err != nil {
			l.logger.Warn("rollback stop failed", "game_id", game.ID, "team_id", team.TeamID, "error", err)
			continue
		}
		if err := l.teams.ClearTeamDeployment(ctx, team.ID); err != nil {
			l.logger.Warn("rollback clear failed", "game_id", game.ID, "team_id", team.TeamID, "error", err)
		}
	}

	game.Status = store.GameStatusDraft
	game.StartTime = nil
	game.CurrentTickStartedAt = nil
	if err := l.games.UpdateGameState(ctx, game); err != nil {
		l.logger.Error("rollback to draft failed", "game_id", game.ID, "error", err)
	}
	l.logger.Warn("game start rolled back", "game_id", game.ID, "deployed", len(deployed))
}
