package cmd

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var submitCmd = &cobra.Command{
	Use:   "submit [flag]",
	Short: "Submit a captured flag",
	Long: `Submit a flag captured from an opponent's instance to the flag
submission server. The server answers with the points awarded or the reason
the flag was rejected (expired, duplicate, your own flag, or invalid).`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		flagValue := args[0]

		addr := viper.GetString("submit_addr")
		token := viper.GetString("token")

		if token == "" {
			cmd.Println("Team token not found. Please set it using the --token flag or the FLAGRANGE_TOKEN environment variable")
			return
		}

		status, detail, err := sendSubmission(addr, token, flagValue)
		if err != nil {
			cmd.Printf("Submission failed: %v\n", err)
			return
		}

		if status == "OK" {
			cmd.Printf("%s✓ Flag accepted:%s %s points\n", colorGreen, colorReset, detail)
			return
		}
		cmd.Printf("%s✗ Flag rejected:%s %s\n", colorRed, colorReset, detail)
	},
}

// sendSubmission speaks one round of the plain-text submission protocol:
// "SUBMIT <token> <flag>\n" answered by "OK <points>" or "ERROR <reason>".
func sendSubmission(addr, token, flagValue string) (status, detail string, err error) {
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return "", "", fmt.Errorf("connect to %s: %w", addr, err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(15 * time.Second))
	if _, err := fmt.Fprintf(conn, "SUBMIT %s %s\n", token, flagValue); err != nil {
		return "", "", fmt.Errorf("send: %w", err)
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return "", "", fmt.Errorf("read response: %w", err)
	}

	line = strings.TrimSpace(line)
	parts := strings.SplitN(line, " ", 2)
	status = parts[0]
	if len(parts) > 1 {
		detail = parts[1]
	}
	if status != "OK" && status != "ERROR" {
		return "", "", fmt.Errorf("unexpected response %q", line)
	}
	return status, detail, nil
}

func init() {
	rootCmd.AddCommand(submitCmd)
}
