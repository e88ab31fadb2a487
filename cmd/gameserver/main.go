// Package main is the entry point for the flagrange gameserver.
package main

import (
	"context"
	stdflag "flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flagrange/internal/broadcast"
	"flagrange/internal/checker"
	"flagrange/internal/config"
	"flagrange/internal/deploy"
	"flagrange/internal/flag"
	"flagrange/internal/game"
	"flagrange/internal/logger"
	"flagrange/internal/observability"
	"flagrange/internal/scheduler"
	"flagrange/internal/scoring"
	"flagrange/internal/server"
	"flagrange/internal/store/postgres"
	"flagrange/internal/submission"
)

func main() {
	migrateFlag := stdflag.Bool("migrate", false, "Run database migrations before starting")
	configPath := stdflag.String("config", "", "Path to config file (default: flagrange.yaml in current directory)")
	stdflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogger := logger.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.New(ctx, cfg.DatabaseURL, slogger)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.Close()

	if *migrateFlag {
		slogger.Info("running database migrations")
		if err := postgres.Migrate(db.DB()); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		slogger.Info("migrations completed")
	}

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "flagrange-gameserver", cfg.OTELEndpoint)
	if err != nil {
		log.Fatalf("Failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			slogger.Warn("tracer shutdown", "error", err)
		}
	}()

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to init metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			slogger.Warn("metrics shutdown", "error", err)
		}
	}()
	gameMetrics, err := observability.NewGameMetrics()
	if err != nil {
		log.Fatalf("Failed to init game metrics: %v", err)
	}

	// Broadcast plumbing
	hub := broadcast.NewHub(slogger)
	timers := broadcast.NewTimerSet(hub)

	// Checker registry. Games reference these ids in their checker_id.
	registry := checker.NewRegistry()
	registry.Register("tcp-ssh", &checker.TCPChecker{Port: 22, Timeout: cfg.CheckTimeout})
	registry.Register("http", &checker.HTTPChecker{Port: 80, Path: "/"})

	// Deployment backend
	var deployer deploy.Deployer
	switch cfg.Deployer {
	case "docker":
		deployer, err = deploy.NewDockerDeployer(slogger)
		if err != nil {
			log.Fatalf("Failed to create docker deployer: %v", err)
		}
	case "noop":
		deployer = deploy.NewNoopDeployer(slogger)
	default:
		log.Fatalf("Unknown deployer %q (want docker or noop)", cfg.Deployer)
	}

	ports := deploy.NewPortAllocator(db, db, cfg.SSHPortBase, cfg.MaxTeamsPerGame)
	lifecycle := game.NewLifecycle(db, db, db, deployer, ports, timers, slogger)

	flagManager := flag.NewManager(db, cfg.FlagSigningKey)
	engine := scoring.NewEngine(db, db, db, db, scoring.Points{
		UserFlag:     cfg.UserFlagPoints,
		RootFlag:     cfg.RootFlagPoints,
		SLABase:      cfg.SLABasePoints,
		DefenseBonus: cfg.DefenseBonus,
	}, slogger)

	// Flag submission over TCP
	validator := submission.NewValidator(db, db, db, flagManager, engine, gameMetrics, slogger)
	submissionSrv := submission.NewServer(fmt.Sprintf(":%d", cfg.SubmissionPort), validator, slogger)
	go func() {
		slogger.Info("submission server starting", "port", cfg.SubmissionPort)
		if err := submissionSrv.Run(ctx); err != nil {
			slogger.Error("submission server stopped", "error", err)
		}
	}()

	// Schedulers
	tickSched := scheduler.NewTickScheduler(scheduler.TickSchedulerOptions{
		Games:        db,
		Teams:        db,
		Ticks:        db,
		Flags:        flagManager,
		Scoring:      engine,
		Deployer:     deployer,
		Lifecycle:    lifecycle,
		Hub:          hub,
		Timers:       timers,
		Metrics:      gameMetrics,
		UserFlagPath: cfg.UserFlagPath,
		RootFlagPath: cfg.RootFlagPath,
		PollInterval: cfg.TickPollInterval,
		Logger:       slogger,
	})
	go tickSched.Run(ctx)

	checkSched := scheduler.NewCheckScheduler(scheduler.CheckSchedulerOptions{
		Games:        db,
		Teams:        db,
		Ticks:        db,
		Registry:     registry,
		Scoring:      engine,
		Metrics:      gameMetrics,
		PollInterval: cfg.CheckPollInterval,
		CheckTimeout: cfg.CheckTimeout,
		Concurrency:  cfg.CheckConcurrency,
		Logger:       slogger,
	})
	go checkSched.Run(ctx)

	// Viewer HTTP + websocket server
	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	httpSrv := server.New(addr, server.NewHandlers(db, hub, slogger), metricsHandler)
	go func() {
		slogger.Info("gameserver starting", "addr", addr)
		if err := httpSrv.Run(ctx); err != nil {
			slogger.Error("http server stopped", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slogger.Info("shutting down")
	cancel()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer waitCancel()
	for _, done := range []<-chan struct{}{tickSched.Done(), checkSched.Done()} {
		select {
		case <-done:
		case <-waitCtx.Done():
			slogger.Warn("scheduler did not stop in time")
		}
	}
	timers.StopAll()
	slogger.Info("gameserver exited")
}
