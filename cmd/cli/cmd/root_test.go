package cmd

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestRootCommand_EnvVarBinding(t *testing.T) {
	resetViper()

	t.Setenv("FLAGRANGE_TOKEN", "env-token-value")
	t.Setenv("FLAGRANGE_SERVER", "http://custom-url:8080")
	t.Setenv("FLAGRANGE_SUBMIT_ADDR", "flags.example.org:31337")

	if got := viper.GetString("token"); got != "env-token-value" {
		t.Errorf("expected token from env var, got: %s", got)
	}
	if got := viper.GetString("server"); got != "http://custom-url:8080" {
		t.Errorf("expected server from env var, got: %s", got)
	}
	if got := viper.GetString("submit_addr"); got != "flags.example.org:31337" {
		t.Errorf("expected submit addr from env var, got: %s", got)
	}
}

func TestRootCommand_ExecuteHelp(t *testing.T) {
	resetViper()

	rootCmd.SetArgs([]string{"--help"})
	if err := rootCmd.Execute(); err != nil {
		t.Errorf("root command should execute without error: %v", err)
	}
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	want := map[string]bool{
		"games":                false,
		"status [game_id]":     false,
		"scoreboard [game_id]": false,
		"submit [flag]":        false,
	}
	for _, cmd := range rootCmd.Commands() {
		if _, ok := want[cmd.Use]; ok {
			want[cmd.Use] = true
		}
	}
	for use, found := range want {
		if !found {
			t.Errorf("expected %q subcommand to be registered", use)
		}
	}
}

func TestExecute_UnknownCommand(t *testing.T) {
	resetViper()

	rootCmd.SetArgs([]string{"unknown-command-xyz"})
	if err := Execute(); err == nil {
		t.Error("expected error for unknown command")
	}
}

func TestRootCommand_CustomConfigFile(t *testing.T) {
	resetViper()

	tmpFile, err := os.CreateTemp("", "rangectl-test-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	tmpFile.WriteString("server: http://custom-from-config:9999\ntoken: config-token\n")
	tmpFile.Close()

	cfgFile = tmpFile.Name()
	initConfig()

	if got := viper.GetString("server"); got != "http://custom-from-config:9999" {
		t.Errorf("expected server from config file, got: %s", got)
	}
	if got := viper.GetString("token"); got != "config-token" {
		t.Errorf("expected token from config file, got: %s", got)
	}

	cfgFile = ""
}
