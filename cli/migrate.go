package cli

import (
	"telemetry-server/db"
	applog "telemetry-server/logger"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, database, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()
		return migrate(database, log)
	},
}

func migrate(database db.Database, log *applog.Logger) error {
	if err := db.Migrate(database); err != nil {
		log.Error("migration failed", "error", err)
		return err
	}
	log.Info("Database migrated")
	return nil
}
