package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"flagrange/pkg/api"
)

func TestScoreboardCommand_Success(t *testing.T) {
	resetViper()

	gameID := "11111111-1111-1111-1111-111111111111"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/games/"+gameID+"/scoreboard" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(api.ScoreboardResponse{
			GameID:      gameID,
			GameName:    "spring-finals",
			GameStatus:  "running",
			CurrentTick: 7,
			Entries: []api.ScoreboardEntry{
				{TeamID: "red-team", Rank: 1, AttackPoints: 350, DefensePoints: 100, SLAPoints: 600, TotalPoints: 1050, FlagsCaptured: 4, FlagsLost: 1},
				{TeamID: "blue-team", Rank: 2, AttackPoints: 50, DefensePoints: 150, SLAPoints: 600, TotalPoints: 800, FlagsCaptured: 1, FlagsLost: 4},
			},
		})
	}))
	defer server.Close()

	viper.Set("server", server.URL)

	output := runCommand(t, "scoreboard", gameID)
	if !strings.Contains(output, "spring-finals") {
		t.Errorf("expected game name, got: %s", output)
	}
	if !strings.Contains(output, "red-team") || !strings.Contains(output, "blue-team") {
		t.Errorf("expected both teams, got: %s", output)
	}
	if !strings.Contains(output, "1050") {
		t.Errorf("expected total points, got: %s", output)
	}
	if !strings.Contains(output, "1st") {
		t.Errorf("expected rank label, got: %s", output)
	}
}

func TestScoreboardCommand_Empty(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.ScoreboardResponse{
			GameID: "x", GameName: "empty-game", GameStatus: "draft",
			Entries: []api.ScoreboardEntry{},
		})
	}))
	defer server.Close()

	viper.Set("server", server.URL)

	output := runCommand(t, "scoreboard", "33333333-3333-3333-3333-333333333333")
	if !strings.Contains(output, "No teams on the scoreboard yet") {
		t.Errorf("expected empty message, got: %s", output)
	}
}

func TestRankLabel(t *testing.T) {
	if got := rankLabel(1); !strings.Contains(got, "1st") {
		t.Errorf("got %q, want 1st", got)
	}
	if got := rankLabel(2); got != "2nd" {
		t.Errorf("got %q, want 2nd", got)
	}
	if got := rankLabel(11); !strings.Contains(got, "11th") {
		t.Errorf("got %q, want 11th", got)
	}
	if got := rankLabel(22); !strings.Contains(got, "22nd") {
		t.Errorf("got %q, want 22nd", got)
	}
	if got := rankLabel(0); !strings.Contains(got, "-") {
		t.Errorf("got %q, want placeholder for unranked", got)
	}
}
