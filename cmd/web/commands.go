package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"fitchallenge/internal/analytics"
	"fitchallenge/internal/db"
	"fitchallenge/internal/logging"
	"fitchallenge/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE:  runMigrate,
}

var calendarMonth string

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Print the perfect days of a month as JSON",
	RunE:  runCalendar,
}

func init() {
	calendarCmd.Flags().StringVar(&calendarMonth, "month", "", "month as YYYY-MM (default: current month)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	return server.Run(cfg, log)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()
	database, err := db.Connect(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.Migrate(ctx); err != nil {
		return err
	}
	logging.For(log, "DB").Info("migrations applied")
	return nil
}

func runCalendar(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	month := time.Now().In(cfg.Location)
	if calendarMonth != "" {
		month, err = time.ParseInLocation("2006-01", calendarMonth, cfg.Location)
		if err != nil {
			return fmt.Errorf("parsing --month: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	gw, err := server.OpenGateway(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer gw.Close()

	cal, err := analytics.NewQueries(gw, cfg.Location).GetPerfectDays(ctx, month)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(cal)
}
