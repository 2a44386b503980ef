package main

import (
	"fmt"
	"os"

	"github.com/shenikar/incident_triage/internal/config"
	"github.com/shenikar/incident_triage/pkg/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfg *config.Config
	log *logrus.Logger
)

// @title Incident Triage API
// @version 1.0
// @description Incident reports with spam and category classification, moderation, geofenced alerts and live events.
// @host localhost:8080
// @BasePath /
var rootCmd = &cobra.Command{
	Use:   "incidentd",
	Short: "Incident triage and geofenced alert service",
	Long:  "Accepts incident reports, classifies them, keeps them for moderation, alerts nearby subscribers and streams live events.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		log = logger.New(cfg.LogLevel)
		return nil
	},
	SilenceUsage: true,
	// Без подкоманды запускается HTTP-сервер
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
