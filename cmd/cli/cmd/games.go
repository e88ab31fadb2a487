package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var gamesCmd = &cobra.Command{
	Use:   "games",
	Short: "List games on the server",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		client := NewGameClient(viper.GetString("server"))

		resp, err := client.ListGames()
		if err != nil {
			cmd.Printf("Failed to list games: %v\n", err)
			return
		}

		if len(resp.Games) == 0 {
			cmd.Println("No games found")
			return
		}

		cmd.Printf("%s%-36s  %-20s  %-10s  %-6s  %s%s\n",
			colorBold, "ID", "NAME", "STATUS", "TICK", "TEAMS", colorReset)
		for _, g := range resp.Games {
			cmd.Printf("%-36s  %-20s  %-10s  %-6d  %d\n",
				g.ID, truncate(g.Name, 20), colorizeGameStatus(g.Status), g.CurrentTick, g.TeamCount)
		}
	},
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func init() {
	rootCmd.AddCommand(gamesCmd)
}
