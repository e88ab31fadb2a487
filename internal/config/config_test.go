package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("FLAGRANGE_DATABASE_URL", "postgres://localhost:5432/flagrange?sslmode=disable")
	t.Setenv("FLAGRANGE_FLAG_SIGNING_KEY", "test-signing-key")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HTTPPort != 6300 {
		t.Errorf("got http port %d, want 6300", cfg.HTTPPort)
	}
	if cfg.SubmissionPort != 6301 {
		t.Errorf("got submission port %d, want 6301", cfg.SubmissionPort)
	}
	if cfg.UserFlagPoints != 50 || cfg.RootFlagPoints != 150 {
		t.Errorf("got flag points %d/%d, want 50/150", cfg.UserFlagPoints, cfg.RootFlagPoints)
	}
	if cfg.SLABasePoints != 100 || cfg.DefenseBonus != 25 {
		t.Errorf("got sla/defense %d/%d, want 100/25", cfg.SLABasePoints, cfg.DefenseBonus)
	}
	if cfg.FlagValidityTicks != 5 {
		t.Errorf("got flag validity %d, want 5", cfg.FlagValidityTicks)
	}
	if cfg.UserFlagPath != "/home/ctf/flag1.txt" || cfg.RootFlagPath != "/root/flag2.txt" {
		t.Errorf("unexpected flag paths: %s, %s", cfg.UserFlagPath, cfg.RootFlagPath)
	}
	if cfg.SSHPortBase != 2200 || cfg.MaxTeamsPerGame != 50 {
		t.Errorf("got port base %d max teams %d, want 2200/50", cfg.SSHPortBase, cfg.MaxTeamsPerGame)
	}
	if cfg.TickPollInterval != time.Second || cfg.CheckPollInterval != 5*time.Second {
		t.Errorf("unexpected poll intervals: %s, %s", cfg.TickPollInterval, cfg.CheckPollInterval)
	}
	if cfg.Deployer != "docker" {
		t.Errorf("got deployer %q, want docker", cfg.Deployer)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FLAGRANGE_HTTP_PORT", "8080")
	t.Setenv("FLAGRANGE_DEPLOYER", "noop")
	t.Setenv("FLAGRANGE_CHECK_TIMEOUT", "30s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTPPort != 8080 {
		t.Errorf("got http port %d, want 8080", cfg.HTTPPort)
	}
	if cfg.Deployer != "noop" {
		t.Errorf("got deployer %q, want noop", cfg.Deployer)
	}
	if cfg.CheckTimeout != 30*time.Second {
		t.Errorf("got check timeout %s, want 30s", cfg.CheckTimeout)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "flagrange.yaml")
	content := "http_port: 7000\nsubmission_port: 7001\nmax_teams_per_game: 10\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTPPort != 7000 || cfg.SubmissionPort != 7001 {
		t.Errorf("got ports %d/%d, want 7000/7001", cfg.HTTPPort, cfg.SubmissionPort)
	}
	if cfg.MaxTeamsPerGame != 10 {
		t.Errorf("got max teams %d, want 10", cfg.MaxTeamsPerGame)
	}
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("FLAGRANGE_DATABASE_URL", "")
	t.Setenv("FLAGRANGE_FLAG_SIGNING_KEY", "key")

	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("expected missing database url error, got %v", err)
	}
}

func TestLoad_MissingSigningKey(t *testing.T) {
	t.Setenv("FLAGRANGE_DATABASE_URL", "postgres://localhost/db")
	t.Setenv("FLAGRANGE_FLAG_SIGNING_KEY", "")

	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "FLAG_SIGNING_KEY") {
		t.Errorf("expected missing signing key error, got %v", err)
	}
}

func TestLoad_RootPointsMustExceedUserPoints(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FLAGRANGE_USER_FLAG_POINTS", "150")
	t.Setenv("FLAGRANGE_ROOT_FLAG_POINTS", "150")

	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "must exceed") {
		t.Errorf("expected point ordering error, got %v", err)
	}
}
