package cli

import (
	"fmt"

	"telemetry-server/confs"
	"telemetry-server/db"
	applog "telemetry-server/logger"

	"github.com/spf13/cobra"
)

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "telemetry-server",
	Short: "Telemetry ingestion server",
	Long: `Receives sensor readings and LiDAR/profile captures from devices,
groups them into sessions and batches, and enforces per-user storage quotas.

Running without a subcommand starts the HTTP server.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "optional YAML config file")
	rootCmd.AddCommand(serveCmd, migrateCmd, userCmd)
}

// bootstrap loads configuration, builds the logger and opens the database.
func bootstrap() (*confs.Config, *applog.Logger, db.Database, error) {
	cfg, errs := confs.Load(configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Println("config error:", err)
		}
		return nil, nil, nil, fmt.Errorf("invalid configuration (%d errors)", len(errs))
	}

	log, err := applog.New(cfg.LogMode)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build logger: %w", err)
	}

	database, err := db.Connect(cfg.Database, cfg.IsProduction(), log)
	if err != nil {
		log.Sync()
		return nil, nil, nil, err
	}
	return cfg, log, database, nil
}
