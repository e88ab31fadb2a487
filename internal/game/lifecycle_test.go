package game

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"flagrange/internal/broadcast"
	"flagrange/internal/deploy"
	"flagrange/internal/store"
	"flagrange/internal/store/storetest"
)

type lifecycleFixture struct {
	mem       *storetest.Memory
	lifecycle *Lifecycle
	deployer  deploy.Deployer
}

func newLifecycleFixture(t *testing.T, deployer deploy.Deployer) *lifecycleFixture {
	t.Helper()
	mem := storetest.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	hub := broadcast.NewHub(logger)
	timers := broadcast.NewTimerSet(hub)
	t.Cleanup(timers.StopAll)

	if deployer == nil {
		deployer = deploy.NewNoopDeployer(logger)
	}
	ports := deploy.NewPortAllocator(mem, mem, 2200, 50)
	lc := NewLifecycle(mem, mem, mem, deployer, ports, timers, logger)

	return &lifecycleFixture{mem: mem, lifecycle: lc, deployer: deployer}
}

func (f *lifecycleFixture) createGame(t *testing.T, teamIDs ...string) *store.Game {
	t.Helper()
	g := &store.Game{Name: "test-game", TickDurationSeconds: 60, FlagValidityTicks: 5}
	if err := f.lifecycle.CreateGame(context.Background(), g); err != nil {
		t.Fatalf("create game: %v", err)
	}
	for _, teamID := range teamIDs {
		if _, err := f.lifecycle.AddTeam(context.Background(), g.ID, teamID); err != nil {
			t.Fatalf("add team: %v", err)
		}
	}
	return g
}

func (f *lifecycleFixture) reload(t *testing.T, id uuid.UUID) *store.Game {
	t.Helper()
	g, err := f.mem.GetGameByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload game: %v", err)
	}
	return g
}

func TestCreateGame_StartsAsDraft(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	g := f.createGame(t)

	stored := f.reload(t, g.ID)
	if stored.Status != store.GameStatusDraft {
		t.Errorf("expected draft, got %s", stored.Status)
	}
	if stored.CurrentTick != 0 {
		t.Errorf("expected tick 0, got %d", stored.CurrentTick)
	}
}

func TestAddTeam(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	g := f.createGame(t)

	team, err := f.lifecycle.AddTeam(context.Background(), g.ID, "team-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if team.Token == "" {
		t.Error("expected a submission token")
	}

	// Scoreboard row exists immediately.
	if _, err := f.mem.GetScoreboard(context.Background(), g.ID, "team-a"); err != nil {
		t.Errorf("expected scoreboard row: %v", err)
	}

	// Same team twice is rejected.
	if _, err := f.lifecycle.AddTeam(context.Background(), g.ID, "team-a"); !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("expected duplicate error, got %v", err)
	}
}

func TestAddTeam_OnlyInDraft(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	g := f.createGame(t, "team-a")

	if err := f.lifecycle.Start(context.Background(), g.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.lifecycle.AddTeam(context.Background(), g.ID, "late-team"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected invalid transition, got %v", err)
	}
}

func TestStart(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	g := f.createGame(t, "team-a", "team-b")

	if err := f.lifecycle.Start(context.Background(), g.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := f.reload(t, g.ID)
	if stored.Status != store.GameStatusRunning {
		t.Errorf("expected running, got %s", stored.Status)
	}
	if stored.StartTime == nil || stored.CurrentTickStartedAt == nil {
		t.Error("expected start timestamps set")
	}
	if stored.CurrentTick != 0 {
		t.Errorf("current tick must stay 0 until the scheduler fires, got %d", stored.CurrentTick)
	}

	teams, _ := f.mem.ListTeams(context.Background(), g.ID, true)
	seenPorts := make(map[int]bool)
	for _, team := range teams {
		if team.ContainerRef == nil || team.ContainerAddr == nil || team.SSHPort == nil {
			t.Fatalf("team %s not fully deployed", team.TeamID)
		}
		if seenPorts[*team.SSHPort] {
			t.Errorf("port %d assigned twice", *team.SSHPort)
		}
		seenPorts[*team.SSHPort] = true
	}
}

func TestStart_RequiresDraft(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	g := f.createGame(t, "team-a")

	if err := f.lifecycle.Start(context.Background(), g.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := f.lifecycle.Start(context.Background(), g.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected invalid transition on double start, got %v", err)
	}
}

func TestStart_RequiresTeams(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	g := f.createGame(t)

	if err := f.lifecycle.Start(context.Background(), g.ID); err == nil {
		t.Fatal("expected an error starting a game without teams")
	}
	if stored := f.reload(t, g.ID); stored.Status != store.GameStatusDraft {
		t.Errorf("expected game back in draft, got %s", stored.Status)
	}
}

// failingDeployer succeeds until the nth deploy, then fails.
type failingDeployer struct {
	*deploy.NoopDeployer
	failAfter int
	deploys   int
	stops     int
}

func (d *failingDeployer) Deploy(ctx context.Context, game *store.Game, team *store.GameTeam) (deploy.Target, error) {
	d.deploys++
	if d.deploys > d.failAfter {
		return deploy.Target{}, errors.New("deploy harness failure")
	}
	return d.NoopDeployer.Deploy(ctx, game, team)
}

func (d *failingDeployer) Stop(ctx context.Context, ref string) error {
	d.stops++
	return d.NoopDeployer.Stop(ctx, ref)
}

func TestStart_RollbackOnPartialFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fd := &failingDeployer{NoopDeployer: deploy.NewNoopDeployer(logger), failAfter: 1}
	f := newLifecycleFixture(t, fd)
	g := f.createGame(t, "team-a", "team-b")

	if err := f.lifecycle.Start(context.Background(), g.ID); err == nil {
		t.Fatal("expected start to fail")
	}

	stored := f.reload(t, g.ID)
	if stored.Status != store.GameStatusDraft {
		t.Errorf("expected rollback to draft, got %s", stored.Status)
	}
	if stored.StartTime != nil {
		t.Error("expected start time cleared after rollback")
	}
	if fd.stops != 1 {
		t.Errorf("expected the one provisioned target stopped, got %d stops", fd.stops)
	}

	teams, _ := f.mem.ListTeams(context.Background(), g.ID, true)
	for _, team := range teams {
		if team.ContainerRef != nil {
			t.Errorf("team %s still has a target after rollback", team.TeamID)
		}
	}
}

func TestPauseResume(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	g := f.createGame(t, "team-a")
	if err := f.lifecycle.Start(context.Background(), g.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	tickStartBefore := *f.reload(t, g.ID).CurrentTickStartedAt

	if err := f.lifecycle.Pause(context.Background(), g.ID); err != nil {
		t.Fatalf("pause: %v", err)
	}
	stored := f.reload(t, g.ID)
	if stored.Status != store.GameStatusPaused || stored.PausedAt == nil {
		t.Fatalf("expected paused with timestamp, got %s", stored.Status)
	}

	// Pausing a paused game is invalid.
	if err := f.lifecycle.Pause(context.Background(), g.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected invalid transition, got %v", err)
	}

	if err := f.lifecycle.Resume(context.Background(), g.ID); err != nil {
		t.Fatalf("resume: %v", err)
	}
	stored = f.reload(t, g.ID)
	if stored.Status != store.GameStatusRunning {
		t.Errorf("expected running after resume, got %s", stored.Status)
	}
	if stored.PausedAt != nil {
		t.Error("expected paused_at cleared")
	}
	if stored.CurrentTickStartedAt.Before(tickStartBefore) {
		t.Error("tick start must shift forward, never backward")
	}

	// Resuming a running game is invalid.
	if err := f.lifecycle.Resume(context.Background(), g.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected invalid transition, got %v", err)
	}
}

func TestFinish(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	g := f.createGame(t, "team-a")
	if err := f.lifecycle.Start(context.Background(), g.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := f.lifecycle.Finish(context.Background(), g.ID); err != nil {
		t.Fatalf("finish: %v", err)
	}

	stored := f.reload(t, g.ID)
	if stored.Status != store.GameStatusFinished {
		t.Errorf("expected finished, got %s", stored.Status)
	}
	if stored.EndTime == nil {
		t.Error("expected end time set")
	}

	teams, _ := f.mem.ListTeams(context.Background(), g.ID, false)
	for _, team := range teams {
		if team.ContainerRef != nil {
			t.Errorf("team %s target not torn down", team.TeamID)
		}
	}

	// A finished game accepts no further transitions.
	if err := f.lifecycle.Finish(context.Background(), g.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected invalid transition, got %v", err)
	}
	if err := f.lifecycle.Pause(context.Background(), g.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected invalid transition, got %v", err)
	}
}

func TestFinish_FromPaused(t *testing.T) {
	f := newLifecycleFixture(t, nil)
	g := f.createGame(t, "team-a")
	if err := f.lifecycle.Start(context.Background(), g.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := f.lifecycle.Pause(context.Background(), g.ID); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := f.lifecycle.Finish(context.Background(), g.ID); err != nil {
		t.Fatalf("finish from paused: %v", err)
	}
	if stored := f.reload(t, g.ID); stored.Status != store.GameStatusFinished {
		t.Errorf("expected finished, got %s", stored.Status)
	}
}
