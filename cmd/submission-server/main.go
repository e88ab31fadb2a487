// Package main is the entry point for the standalone flag submission server.
// It speaks the plain-text SUBMIT protocol over TCP and can be scaled
// separately from the gameserver; all coordination happens through the
// database.
package main

import (
	"context"
	stdflag "flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"flagrange/internal/config"
	"flagrange/internal/flag"
	"flagrange/internal/logger"
	"flagrange/internal/observability"
	"flagrange/internal/scoring"
	"flagrange/internal/store/postgres"
	"flagrange/internal/submission"
)

func main() {
	configPath := stdflag.String("config", "", "Path to config file (default: flagrange.yaml in current directory)")
	metricsAddr := stdflag.String("metrics-addr", ":6362", "Address for the metrics endpoint")
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

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "flagrange-submission", cfg.OTELEndpoint)
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

	flagManager := flag.NewManager(db, cfg.FlagSigningKey)
	engine := scoring.NewEngine(db, db, db, db, scoring.Points{
		UserFlag:     cfg.UserFlagPoints,
		RootFlag:     cfg.RootFlagPoints,
		SLABase:      cfg.SLABasePoints,
		DefenseBonus: cfg.DefenseBonus,
	}, slogger)
	validator := submission.NewValidator(db, db, db, flagManager, engine, gameMetrics, slogger)

	srv := submission.NewServer(fmt.Sprintf(":%d", cfg.SubmissionPort), validator, slogger)
	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		slogger.Info("submission server starting", "port", cfg.SubmissionPort)
		if err := srv.Run(ctx); err != nil {
			slogger.Error("submission server stopped", "error", err)
		}
	}()

	// Dedicated metrics server
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metricsHandler)
		slogger.Info("metrics listening", "addr", *metricsAddr)
		if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
			slogger.Error("metrics server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slogger.Info("shutting down submission server")
	cancel()
	<-serverDone
}
