// Package scheduler runs the tick and checker loops that drive all running
// games forward.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"flagrange/internal/broadcast"
	"flagrange/internal/deploy"
	"flagrange/internal/flag"
	"flagrange/internal/game"
	"flagrange/internal/logger"
	"flagrange/internal/observability"
	"flagrange/internal/scoring"
	"flagrange/internal/store"
)

// TickScheduler wakes on a short poll interval, finds games whose current
// tick has run out, and executes the next tick: new flags placed, previous
// tick's defense settled, rankings refreshed. Tick creation is guarded by
// the (game_id, tick_number) unique index, so concurrent executions of the
// same tick collapse to one.
type TickScheduler struct {
	games store.GameStore
	teams store.TeamStore
	ticks store.TickStore

	flags     *flag.Manager
	scoring   *scoring.Engine
	deployer  deploy.Deployer
	lifecycle *game.Lifecycle
	hub       *broadcast.Hub
	timers    *broadcast.TimerSet
	metrics   *observability.GameMetrics

	userFlagPath string
	rootFlagPath string
	pollInterval time.Duration

	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	inflight map[uuid.UUID]struct{}
	wg       sync.WaitGroup
	done     chan struct{}
}

// TickSchedulerOptions wires a TickScheduler's collaborators.
type TickSchedulerOptions struct {
	Games     store.GameStore
	Teams     store.TeamStore
	Ticks     store.TickStore
	Flags     *flag.Manager
	Scoring   *scoring.Engine
	Deployer  deploy.Deployer
	Lifecycle *game.Lifecycle
	Hub       *broadcast.Hub
	Timers    *broadcast.TimerSet
	Metrics   *observability.GameMetrics

	UserFlagPath string
	RootFlagPath string
	PollInterval time.Duration

	Logger *slog.Logger
}

func NewTickScheduler(opts TickSchedulerOptions) *TickScheduler {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	return &TickScheduler{
		games:        opts.Games,
		teams:        opts.Teams,
		ticks:        opts.Ticks,
		flags:        opts.Flags,
		scoring:      opts.Scoring,
		deployer:     opts.Deployer,
		lifecycle:    opts.Lifecycle,
		hub:          opts.Hub,
		timers:       opts.Timers,
		metrics:      opts.Metrics,
		userFlagPath: opts.UserFlagPath,
		rootFlagPath: opts.RootFlagPath,
		pollInterval: interval,
		logger:       opts.Logger,
		now:          time.Now,
		inflight:     make(map[uuid.UUID]struct{}),
		done:         make(chan struct{}),
	}
}

// Done is closed once Run has returned and all in-flight ticks finished.
func (s *TickScheduler) Done() <-chan struct{} {
	return s.done
}

// Run polls until the context is canceled. A tick that is still executing
// when the next poll fires is skipped, not doubled.
func (s *TickScheduler) Run(ctx context.Context) {
	s.logger.Info("tick scheduler started", "poll_interval", s.pollInterval)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("tick scheduler stopping")
			s.wg.Wait()
			close(s.done)
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *TickScheduler) poll(ctx context.Context) {
	games, err := s.games.ListGamesByStatus(ctx, store.GameStatusRunning)
	if err != nil {
		s.logger.Error("list running games", "error", err)
		return
	}

	for _, g := range games {
		// Keeps viewer countdowns alive across a server restart.
		s.timers.RegisterGame(g)

		if !s.claim(g.ID) {
			continue
		}
		s.wg.Add(1)
		go func(g *store.Game) {
			defer s.wg.Done()
			defer s.release(g.ID)
			ctx := logger.WithGameID(ctx, g.ID)
			if err := s.advance(ctx, g); err != nil {
				logger.FromContext(ctx, s.logger).Error("tick advance failed", "error", err)
			}
		}(g)
	}
}

func (s *TickScheduler) claim(gameID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[gameID]; busy {
		return false
	}
	s.inflight[gameID] = struct{}{}
	return true
}

func (s *TickScheduler) release(gameID uuid.UUID) {
	s.mu.Lock()
	delete(s.inflight, gameID)
	s.mu.Unlock()
}

// advance executes the next tick if the game is due one. A freshly started
// game (tick 0) gets tick 1 immediately rather than waiting a full duration.
func (s *TickScheduler) advance(ctx context.Context, g *store.Game) error {
	if g.CurrentTick == 0 {
		return s.executeTick(ctx, g, 1)
	}
	if s.tickElapsed(g) >= time.Duration(g.TickDurationSeconds)*time.Second {
		return s.executeTick(ctx, g, g.CurrentTick+1)
	}
	return nil
}

// tickElapsed reports how long the current tick has been running, excluding
// paused time. Games persisted before per-tick timestamps existed fall back
// to deriving the start from the game clock.
func (s *TickScheduler) tickElapsed(g *store.Game) time.Duration {
	if g.CurrentTickStartedAt != nil {
		return s.now().Sub(*g.CurrentTickStartedAt)
	}
	if g.StartTime == nil {
		return 0
	}
	gameElapsed := s.now().Sub(*g.StartTime) - time.Duration(g.TotalPausedSeconds*float64(time.Second))
	priorTicks := time.Duration(g.CurrentTick-1) * time.Duration(g.TickDurationSeconds) * time.Second
	return gameElapsed - priorTicks
}

func (s *TickScheduler) executeTick(ctx context.Context, g *store.Game, tickNumber int) error {
	now := s.now()
	tick := &store.Tick{
		ID:         uuid.New(),
		GameID:     g.ID,
		TickNumber: tickNumber,
		Status:     store.TickStatusActive,
		StartTime:  &now,
	}
	created, err := s.ticks.CreateTick(ctx, tick)
	if err != nil {
		return err
	}
	if !created {
		// Another actor inserted this tick. Re-issue the guarded advance so
		// a crash between insert and advance cannot stall the game forever;
		// the current_tick < tick condition makes the retry a no-op once the
		// game has moved on.
		startedAt := now
		if existing, err := s.ticks.GetTick(ctx, g.ID, tickNumber); err == nil {
			if existing.StartTime != nil {
				startedAt = *existing.StartTime
			}
			// The interrupted run may have generated flags without getting
			// them onto the vulnboxes. Injection overwrites the flag file,
			// so replaying it is safe.
			s.reinjectFlags(ctx, g, existing)
		}
		return s.games.AdvanceGameTick(ctx, g.ID, tickNumber, startedAt)
	}

	log := logger.FromContext(ctx, s.logger).With("tick", tickNumber)
	log.Info("executing tick")

	teams, err := s.teams.ListTeams(ctx, g.ID, true)
	if err != nil {
		s.ticks.ErrorTick(ctx, tick.ID)
		return err
	}

	placed := 0
	for _, team := range teams {
		for _, typ := range []store.FlagType{store.FlagTypeUser, store.FlagTypeRoot} {
			f, err := s.flags.Create(ctx, g, team.TeamID, tick, typ)
			if err != nil {
				log.Error("create flag", "team_id", team.TeamID, "type", typ, "error", err)
				continue
			}
			if team.ContainerRef != nil {
				path := s.userFlagPath
				if typ == store.FlagTypeRoot {
					path = s.rootFlagPath
				}
				if err := s.deployer.InjectFlag(ctx, *team.ContainerRef, f.Value, path); err != nil {
					log.Error("inject flag", "team_id", team.TeamID, "type", typ, "error", err)
					continue
				}
			}
			placed++
		}
	}

	if err := s.ticks.CompleteTick(ctx, tick.ID, placed); err != nil {
		log.Error("complete tick", "error", err)
	}
	if err := s.games.AdvanceGameTick(ctx, g.ID, tickNumber, now); err != nil {
		return err
	}
	g.CurrentTick = tickNumber
	g.CurrentTickStartedAt = &now

	s.settlePrevious(ctx, g, tickNumber, log)

	if err := s.scoring.UpdateRankings(ctx, g.ID); err != nil {
		log.Error("update rankings", "error", err)
	}

	s.timers.UpdateTick(g.ID, tickNumber, now)
	s.hub.BroadcastJSON(g.ID, broadcast.ScoreboardUpdateMessage{
		Type:   broadcast.TypeScoreboardUpdate,
		GameID: g.ID.String(),
	})
	s.metrics.CountTick(ctx)
	log.Info("tick executed", "flags_placed", placed)

	if g.MaxTicks != nil && tickNumber >= *g.MaxTicks {
		log.Info("max ticks reached, finishing game")
		if err := s.lifecycle.Finish(ctx, g.ID); err != nil {
			log.Error("finish game", "error", err)
		}
	}
	return nil
}

// reinjectFlags replays flag injection for a tick whose execution was cut
// short, pushing any flags that made it to storage back onto the vulnboxes.
func (s *TickScheduler) reinjectFlags(ctx context.Context, g *store.Game, tick *store.Tick) {
	log := logger.FromContext(ctx, s.logger).With("tick", tick.TickNumber)

	teams, err := s.teams.ListTeams(ctx, g.ID, true)
	if err != nil {
		log.Error("list teams for reinjection", "error", err)
		return
	}
	for _, team := range teams {
		if team.ContainerRef == nil {
			continue
		}
		flags, err := s.flags.ForTick(ctx, g.ID, team.TeamID, tick.ID)
		if err != nil {
			log.Error("load flags for reinjection", "team_id", team.TeamID, "error", err)
			continue
		}
		for _, f := range flags {
			path := s.userFlagPath
			if f.Type == store.FlagTypeRoot {
				path = s.rootFlagPath
			}
			if err := s.deployer.InjectFlag(ctx, *team.ContainerRef, f.Value, path); err != nil {
				log.Error("reinject flag", "team_id", team.TeamID, "type", f.Type, "error", err)
			}
		}
	}
}

// settlePrevious awards defense points for the tick that just ended. Tick N
// settles when tick N+1 starts, so the full window for stealing has passed.
func (s *TickScheduler) settlePrevious(ctx context.Context, g *store.Game, tickNumber int, log *slog.Logger) {
	if tickNumber < 2 {
		return
	}
	prev, err := s.ticks.GetTick(ctx, g.ID, tickNumber-1)
	if err != nil {
		log.Error("load previous tick", "error", err)
		return
	}
	if err := s.scoring.SettleDefense(ctx, g.ID, prev); err != nil {
		log.Error("settle defense", "error", err)
	}
}
