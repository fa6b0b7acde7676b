package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"fitchallenge/internal/config"
	"fitchallenge/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "fitchallenge",
	Short:         "Fitness challenge tracker",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func main() {
	rootCmd.AddCommand(serveCmd, migrateCmd, calendarCmd)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log := logging.New("info", "text", os.Stderr)
		log.Fatal(err)
	}
}

// loadConfig reads .env, config.yaml and the environment.
func loadConfig() (config.Config, error) {
	return config.Load()
}
