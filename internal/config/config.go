// Package config handles configuration loading for the gameserver processes.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values for the application.
type Config struct {
	// Database connection string
	DatabaseURL string

	// HTTP server port (websocket + read-only API + health)
	HTTPPort int

	// TCP flag submission server port
	SubmissionPort int

	// OTLP collector endpoint for traces
	OTELEndpoint string

	// Deployer selects the deployment backend: "docker" or "noop"
	Deployer string

	// Key for the HMAC flag signature. Anyone holding it can forge flags.
	FlagSigningKey string

	// How many ticks a flag stays valid after placement
	FlagValidityTicks int

	// Filesystem paths inside the vulnbox where flags are written
	UserFlagPath string
	RootFlagPath string

	// Point values
	UserFlagPoints    int
	RootFlagPoints    int
	SLABasePoints     int // per recorded service status
	DefenseBonus      int // per unstolen flag per completed tick

	// Port allocation
	SSHPortBase     int
	MaxTeamsPerGame int

	// Scheduler cadence
	TickPollInterval  time.Duration
	CheckPollInterval time.Duration
	CheckTimeout      time.Duration
	CheckConcurrency  int
}

// Load reads configuration from an optional YAML file and FLAGRANGE_*
// environment variables. Environment variables win.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("http_port", 6300)
	v.SetDefault("submission_port", 6301)
	v.SetDefault("otel_endpoint", "localhost:4317")
	v.SetDefault("deployer", "docker")
	v.SetDefault("flag_validity_ticks", 5)
	v.SetDefault("user_flag_path", "/home/ctf/flag1.txt")
	v.SetDefault("root_flag_path", "/root/flag2.txt")
	v.SetDefault("user_flag_points", 50)
	v.SetDefault("root_flag_points", 150)
	v.SetDefault("sla_base_points", 100)
	v.SetDefault("defense_bonus", 25)
	v.SetDefault("ssh_port_base", 2200)
	v.SetDefault("max_teams_per_game", 50)
	v.SetDefault("tick_poll_interval", time.Second)
	v.SetDefault("check_poll_interval", 5*time.Second)
	v.SetDefault("check_timeout", 10*time.Second)
	v.SetDefault("check_concurrency", 8)

	v.SetEnvPrefix("FLAGRANGE")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("flagrange")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		// Missing file is fine, env vars may carry everything.
		_ = v.ReadInConfig()
	}

	cfg := &Config{
		DatabaseURL:       v.GetString("database_url"),
		HTTPPort:          v.GetInt("http_port"),
		SubmissionPort:    v.GetInt("submission_port"),
		OTELEndpoint:      v.GetString("otel_endpoint"),
		Deployer:          v.GetString("deployer"),
		FlagSigningKey:    v.GetString("flag_signing_key"),
		FlagValidityTicks: v.GetInt("flag_validity_ticks"),
		UserFlagPath:      v.GetString("user_flag_path"),
		RootFlagPath:      v.GetString("root_flag_path"),
		UserFlagPoints:    v.GetInt("user_flag_points"),
		RootFlagPoints:    v.GetInt("root_flag_points"),
		SLABasePoints:     v.GetInt("sla_base_points"),
		DefenseBonus:      v.GetInt("defense_bonus"),
		SSHPortBase:       v.GetInt("ssh_port_base"),
		MaxTeamsPerGame:   v.GetInt("max_teams_per_game"),
		TickPollInterval:  v.GetDuration("tick_poll_interval"),
		CheckPollInterval: v.GetDuration("check_poll_interval"),
		CheckTimeout:      v.GetDuration("check_timeout"),
		CheckConcurrency:  v.GetInt("check_concurrency"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("FLAGRANGE_DATABASE_URL is required")
	}
	if cfg.FlagSigningKey == "" {
		return nil, fmt.Errorf("FLAGRANGE_FLAG_SIGNING_KEY is required")
	}
	if cfg.RootFlagPoints <= cfg.UserFlagPoints {
		return nil, fmt.Errorf("root_flag_points (%d) must exceed user_flag_points (%d)",
			cfg.RootFlagPoints, cfg.UserFlagPoints)
	}

	return cfg, nil
}
