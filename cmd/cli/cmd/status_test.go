package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"flagrange/pkg/api"
)

func TestStatusCommand_Success(t *testing.T) {
	resetViper()

	gameID := "11111111-1111-1111-1111-111111111111"
	started := time.Now().Add(-2 * time.Hour)
	maxTicks := 100

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/games/"+gameID {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(api.GameResponse{
			ID:                  gameID,
			Name:                "spring-finals",
			Status:              "running",
			CurrentTick:         7,
			TickDurationSeconds: 60,
			MaxTicks:            &maxTicks,
			TeamCount:           4,
			StartTime:           &started,
		})
	}))
	defer server.Close()

	viper.Set("server", server.URL)

	output := runCommand(t, "status", gameID)
	if !strings.Contains(output, "spring-finals") {
		t.Errorf("expected game name, got: %s", output)
	}
	if !strings.Contains(output, "7 / 100") {
		t.Errorf("expected tick progress, got: %s", output)
	}
	if !strings.Contains(output, "(2h ago)") {
		t.Errorf("expected relative start time, got: %s", output)
	}
}

func TestStatusCommand_NotFound(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(api.ErrorResponse{Error: "Game not found", Code: "404"})
	}))
	defer server.Close()

	viper.Set("server", server.URL)

	output := runCommand(t, "status", "22222222-2222-2222-2222-222222222222")
	if !strings.Contains(output, "Failed to get game") {
		t.Errorf("expected failure message, got: %s", output)
	}
}

func TestRelativeTime(t *testing.T) {
	cases := []struct {
		ago  time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{5 * time.Minute, "5m"},
		{3 * time.Hour, "3h"},
		{24 * time.Hour, "1 day"},
		{72 * time.Hour, "3 days"},
	}
	for _, tc := range cases {
		got := relativeTime(time.Now().Add(-tc.ago))
		if got != tc.want {
			t.Errorf("relativeTime(-%s) = %q, want %q", tc.ago, got, tc.want)
		}
	}
}

func TestFormatTimeWithRelative_Nil(t *testing.T) {
	if got := formatTimeWithRelative(nil); got != "-" {
		t.Errorf("got %q, want -", got)
	}
}
