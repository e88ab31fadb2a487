package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "rangectl",
	Short: "Rangectl is a command line tool for playing on the flagrange platform",
	Long: `rangectl is the command-line interface for the flagrange attack-defense
competition platform.

Each team defends its own vulnerable instance while attacking the others.
Fresh flags are planted in every instance each tick; stealing an opponent's
flag and submitting it scores attack points, keeping your own flags safe
scores defense points, and keeping your services healthy scores SLA points.

Common workflows:

  List games:
    rangectl games

  Watch a game:
    rangectl status <game-id>
    rangectl scoreboard <game-id>

  Submit a captured flag:
    rangectl submit 'FLAG{...}'

Configuration:
  Set endpoints and credentials via environment variables or a config file:
    FLAGRANGE_SERVER       Gameserver URL (default: http://localhost:6300)
    FLAGRANGE_SUBMIT_ADDR  Submission server host:port (default: localhost:6301)
    FLAGRANGE_TOKEN        Team submission token`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".rangectl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".rangectl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "FLAGRANGE_VARNAME"
	viper.SetEnvPrefix("FLAGRANGE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.rangectl.yaml)")

	rootCmd.PersistentFlags().String("server", "http://localhost:6300", "Gameserver URL")
	viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))

	rootCmd.PersistentFlags().String("submit-addr", "localhost:6301", "Flag submission server address")
	viper.BindPFlag("submit_addr", rootCmd.PersistentFlags().Lookup("submit-addr"))

	rootCmd.PersistentFlags().StringP("token", "t", "", "Team submission token")
	viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
}
