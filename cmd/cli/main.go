// Package main is the entry point for the flagrange CLI.
// The CLI is the player terminal tool for submitting flags and watching the
// scoreboard.
package main

import (
	"os"

	"flagrange/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
