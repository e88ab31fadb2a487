package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"flagrange/internal/checker"
	"flagrange/internal/observability"
	"flagrange/internal/scoring"
	"flagrange/internal/store"
)

// CheckScheduler probes every team target of every running game at a fixed
// cadence and records the verdicts as SLA evidence. At most one verdict per
// (game, team, tick) is stored; re-checks inside the same tick are no-ops.
type CheckScheduler struct {
	games store.GameStore
	teams store.TeamStore
	ticks store.TickStore

	registry *checker.Registry
	scoring  *scoring.Engine
	metrics  *observability.GameMetrics

	pollInterval time.Duration
	checkTimeout time.Duration
	concurrency  int

	logger *slog.Logger
	now    func() time.Time

	wg   sync.WaitGroup
	done chan struct{}
}

// CheckSchedulerOptions wires a CheckScheduler's collaborators.
type CheckSchedulerOptions struct {
	Games    store.GameStore
	Teams    store.TeamStore
	Ticks    store.TickStore
	Registry *checker.Registry
	Scoring  *scoring.Engine
	Metrics  *observability.GameMetrics

	PollInterval time.Duration
	CheckTimeout time.Duration
	Concurrency  int

	Logger *slog.Logger
}

func NewCheckScheduler(opts CheckSchedulerOptions) *CheckScheduler {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	timeout := opts.CheckTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	return &CheckScheduler{
		games:        opts.Games,
		teams:        opts.Teams,
		ticks:        opts.Ticks,
		registry:     opts.Registry,
		scoring:      opts.Scoring,
		metrics:      opts.Metrics,
		pollInterval: interval,
		checkTimeout: timeout,
		concurrency:  concurrency,
		logger:       opts.Logger,
		now:          time.Now,
		done:         make(chan struct{}),
	}
}

// Done is closed once Run has returned and all in-flight checks finished.
func (s *CheckScheduler) Done() <-chan struct{} {
	return s.done
}

// Run polls until the context is canceled.
func (s *CheckScheduler) Run(ctx context.Context) {
	s.logger.Info("check scheduler started",
		"poll_interval", s.pollInterval,
		"check_timeout", s.checkTimeout,
		"concurrency", s.concurrency,
	)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	// Semaphore to limit concurrent checks across all games.
	sem := make(chan struct{}, s.concurrency)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("check scheduler stopping")
			s.wg.Wait()
			close(s.done)
			return
		case <-ticker.C:
			s.poll(ctx, sem)
		}
	}
}

func (s *CheckScheduler) poll(ctx context.Context, sem chan struct{}) {
	games, err := s.games.ListGamesByStatus(ctx, store.GameStatusRunning)
	if err != nil {
		s.logger.Error("list running games", "error", err)
		return
	}

	for _, g := range games {
		if g.CurrentTick < 1 {
			// No tick to attach verdicts to yet.
			continue
		}
		tick, err := s.ticks.GetTick(ctx, g.ID, g.CurrentTick)
		if err != nil {
			s.logger.Error("load current tick", "game_id", g.ID, "tick", g.CurrentTick, "error", err)
			continue
		}
		chk, err := s.registry.Resolve(g.CheckerID)
		if err != nil {
			s.logger.Error("resolve checker", "game_id", g.ID, "error", err)
			continue
		}
		teams, err := s.teams.ListTeams(ctx, g.ID, true)
		if err != nil {
			s.logger.Error("list teams", "game_id", g.ID, "error", err)
			continue
		}

		for _, team := range teams {
			sem <- struct{}{}
			s.wg.Add(1)
			go func(g *store.Game, tick *store.Tick, team *store.GameTeam) {
				defer s.wg.Done()
				defer func() { <-sem }()
				s.checkTeam(ctx, g, tick, team, chk)
			}(g, tick, team)
		}
	}
}

// checkTeam runs one check and records its verdict. Checker errors and
// panics become ERROR verdicts; nothing from a checker ever takes the
// scheduler down.
func (s *CheckScheduler) checkTeam(ctx context.Context, g *store.Game, tick *store.Tick, team *store.GameTeam, chk checker.Checker) {
	addr := ""
	if team.ContainerAddr != nil {
		addr = *team.ContainerAddr
	}

	checkCtx, cancel := context.WithTimeout(ctx, s.checkTimeout)
	defer cancel()

	start := s.now()
	result, err := s.runChecker(checkCtx, chk, addr, g.ID, team.TeamID, tick.TickNumber)
	durationMS := int(s.now().Sub(start).Milliseconds())

	if err != nil {
		msg := err.Error()
		result = checker.Result{
			Status:        store.CheckStatusError,
			SLAPercentage: 0,
			Message:       msg,
		}
		s.logger.Warn("check failed",
			"game_id", g.ID, "team_id", team.TeamID, "tick", tick.TickNumber, "error", err)
	}

	status := &store.ServiceStatus{
		ID:              uuid.New(),
		GameID:          g.ID,
		TeamID:          team.TeamID,
		TickID:          tick.ID,
		Status:          result.Status,
		SLAPercentage:   result.SLAPercentage,
		CheckDurationMS: &durationMS,
		CreatedAt:       start,
	}
	if result.Message != "" {
		status.Message = &result.Message
	}

	if err := s.scoring.RecordServiceStatus(ctx, status); err != nil {
		s.logger.Error("record service status",
			"game_id", g.ID, "team_id", team.TeamID, "tick", tick.TickNumber, "error", err)
		return
	}
	s.metrics.CountCheck(ctx, string(result.Status))
}

// runChecker invokes the checker with panic isolation.
func (s *CheckScheduler) runChecker(ctx context.Context, chk checker.Checker, addr string, gameID uuid.UUID, teamID string, tickNumber int) (result checker.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("checker panic: %v", r)
		}
	}()
	return chk.Check(ctx, addr, gameID, teamID, tickNumber)
}
