package cmd

import (
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var scoreboardCmd = &cobra.Command{
	Use:   "scoreboard [game_id]",
	Short: "Show the scoreboard of a game",
	Long:  `Retrieve the ranked scoreboard of a game with each team's attack, defense, SLA, and total points.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		gameID := args[0]

		client := NewGameClient(viper.GetString("server"))
		board, err := client.GetScoreboard(gameID)
		if err != nil {
			cmd.Printf("Failed to get scoreboard: %v\n", err)
			return
		}

		cmd.Printf("%s%s%s  (%s, tick %d)\n", colorBold, board.GameName, colorReset,
			colorizeGameStatus(board.GameStatus), board.CurrentTick)
		cmd.Println("──────────────────────────────────────────────────────────────────")

		if len(board.Entries) == 0 {
			cmd.Println("No teams on the scoreboard yet")
			return
		}

		cmd.Printf("%s%-5s %-20s %8s %8s %8s %8s %5s %5s%s\n",
			colorBold, "RANK", "TEAM", "ATTACK", "DEFENSE", "SLA", "TOTAL", "CAP", "LOST", colorReset)
		for _, e := range board.Entries {
			rank := rankLabel(e.Rank)
			cmd.Printf("%-5s %-20s %8d %8d %8d %s%8d%s %5d %5d\n",
				rank, truncate(e.TeamID, 20),
				e.AttackPoints, e.DefensePoints, e.SLAPoints,
				colorBold, e.TotalPoints, colorReset,
				e.FlagsCaptured, e.FlagsLost)
		}
	},
}

func rankLabel(rank int) string {
	switch rank {
	case 1:
		return colorYellow + "1st" + colorReset
	case 2:
		return "2nd"
	case 3:
		return "3rd"
	default:
		return intToOrdinal(rank)
	}
}

func intToOrdinal(n int) string {
	if n <= 0 {
		return "-"
	}
	suffix := "th"
	switch n % 10 {
	case 1:
		if n%100 != 11 {
			suffix = "st"
		}
	case 2:
		if n%100 != 12 {
			suffix = "nd"
		}
	case 3:
		if n%100 != 13 {
			suffix = "rd"
		}
	}
	return colorDim + strconv.Itoa(n) + suffix + colorReset
}

func init() {
	rootCmd.AddCommand(scoreboardCmd)
}
