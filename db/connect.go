package db

import (
	"fmt"
	"strings"

	"telemetry-server/confs"
	"telemetry-server/entities"
	applog "telemetry-server/logger"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the configured database and configures its pool. It does not
// migrate; call Migrate for that.
func Connect(cfg confs.DatabaseConfig, production bool, log *applog.Logger) (Database, error) {
	gormLogLevel := logger.Info
	if production {
		gormLogLevel = logger.Warn
	}
	gormCfg := &gorm.Config{
		Logger:      NewGormLogger(log, gormLogLevel),
		PrepareStmt: true,
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath)
		log.Info("Connecting to sqlite database", "path", cfg.SQLitePath)
	default:
		dsn, sslMode := postgresDSN(cfg)
		dialector = postgres.Open(dsn)
		log.Info("Connecting to postgres database", "sslmode", sslMode, "from_url", cfg.URL != "")
	}

	gdb, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if cfg.Driver == "sqlite" {
		// one writer; avoids SQLITE_BUSY between pooled connections
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(0)
	}

	log.Info("Database connection established")
	return &GormDatabase{DB: gdb}, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(database Database) error {
	if err := database.GetDB().AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Models lists the persisted entities in dependency order.
func Models() []interface{} {
	return []interface{}{
		&entities.User{},
		&entities.Subscription{},
		&entities.Device{},
		&entities.DataSession{},
		&entities.DataBatch{},
		&entities.SensorReading{},
		&entities.CombinedCapture{},
	}
}

func postgresDSN(cfg confs.DatabaseConfig) (string, string) {
	if cfg.URL != "" {
		dsn := cfg.URL
		// hosted databases expect TLS unless told otherwise
		if !strings.Contains(dsn, "sslmode=") {
			if strings.Contains(dsn, "?") {
				dsn += "&sslmode=require"
			} else {
				dsn += "?sslmode=require"
			}
		}
		return dsn, "from-url"
	}

	sslMode := "require"
	if cfg.Host == "localhost" || cfg.Host == "127.0.0.1" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port, sslMode)
	return dsn, sslMode
}
