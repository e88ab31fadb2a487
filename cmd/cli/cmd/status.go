package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"flagrange/pkg/api"
)

var statusCmd = &cobra.Command{
	Use:   "status [game_id]",
	Short: "Get status of a game",
	Long:  `Retrieve the current state of a game: its lifecycle status, current tick, tick duration, and team count.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		gameID := args[0]

		client := NewGameClient(viper.GetString("server"))
		game, err := client.GetGame(gameID)
		if err != nil {
			cmd.Printf("Failed to get game: %v\n", err)
			return
		}

		printGame(cmd, *game)
	},
}

func printGame(cmd *cobra.Command, game api.GameResponse) {
	cmd.Printf("%sGame Details%s\n", colorBold, colorReset)
	cmd.Println("──────────────────────────────")

	cmd.Printf("%sID:%s        %s\n", colorDim, colorReset, game.ID)
	cmd.Printf("%sName:%s      %s\n", colorDim, colorReset, game.Name)
	cmd.Printf("%sStatus:%s    %s\n", colorDim, colorReset, colorizeGameStatus(game.Status))

	if game.MaxTicks != nil {
		cmd.Printf("%sTick:%s      %d / %d (%ds each)\n", colorDim, colorReset,
			game.CurrentTick, *game.MaxTicks, game.TickDurationSeconds)
	} else {
		cmd.Printf("%sTick:%s      %d (%ds each)\n", colorDim, colorReset,
			game.CurrentTick, game.TickDurationSeconds)
	}

	cmd.Printf("%sTeams:%s     %d\n", colorDim, colorReset, game.TeamCount)
	cmd.Printf("%sStarted:%s   %s\n", colorDim, colorReset, formatTimeWithRelative(game.StartTime))
	if game.EndTime != nil {
		cmd.Printf("%sEnded:%s     %s\n", colorDim, colorReset, formatTimeWithRelative(game.EndTime))
	}
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func colorizeGameStatus(status string) string {
	switch status {
	case "running":
		return colorGreen + status + colorReset
	case "paused":
		return colorYellow + status + colorReset
	case "finished":
		return colorCyan + status + colorReset
	case "deploying":
		return colorYellow + status + colorReset
	default:
		return status
	}
}

func formatTimeWithRelative(t *time.Time) string {
	if t == nil {
		return "-"
	}
	relative := relativeTime(*t)
	return fmt.Sprintf("%s %s(%s ago)%s", t.Format("Mon, 02 Jan 2006 15:04:05 MST"), colorDim, relative, colorReset)
}

func relativeTime(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	} else if duration < time.Hour {
		return fmt.Sprintf("%dm", int(duration.Minutes()))
	} else if duration < 24*time.Hour {
		return fmt.Sprintf("%dh", int(duration.Hours()))
	} else {
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
