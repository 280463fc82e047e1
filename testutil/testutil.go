// Package testutil provides an in-memory database and seed helpers shared by
// package tests.
package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"telemetry-server/db"
	"telemetry-server/entities"
	applog "telemetry-server/logger"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// DB opens a fresh, migrated in-memory sqlite database private to tb.
func DB(tb testing.TB) db.Database {
	tb.Helper()
	name := fmt.Sprintf("file:testdb_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), dbSeq.Add(1))
	gdb, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		Logger: db.NewGormLogger(applog.Nop(), logger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		tb.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	database := &db.GormDatabase{DB: gdb}
	if err := db.Migrate(database); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return database
}

// Logger returns a logger that discards output.
func Logger(tb testing.TB) *applog.Logger {
	tb.Helper()
	return applog.Nop()
}

// TestPassword is the plaintext password of every seeded user.
const TestPassword = "correct horse battery"

func SeedUser(tb testing.TB, database db.Database, email, role string) *entities.User {
	tb.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		tb.Fatalf("hash password: %v", err)
	}
	user := &entities.User{Email: email, Role: role, PasswordHash: string(hash)}
	if err := database.GetDB().WithContext(context.Background()).Create(user).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return user
}

// SeedDevice creates an active device for userID. apiKeyHash may be empty.
func SeedDevice(tb testing.TB, database db.Database, id, userID, apiKeyHash string) *entities.Device {
	tb.Helper()
	device := &entities.Device{
		ID:         id,
		UserID:     userID,
		Name:       id,
		IsActive:   true,
		APIKeyHash: apiKeyHash,
	}
	if apiKeyHash == "" {
		device.APIKeyHash = "unset-" + id
	}
	if err := database.GetDB().Create(device).Error; err != nil {
		tb.Fatalf("seed device: %v", err)
	}
	return device
}

// SeedSubscription creates an active subscription with no expiry.
func SeedSubscription(tb testing.TB, database db.Database, userID string, totalSpace int64, distanceLimit float64) *entities.Subscription {
	tb.Helper()
	sub := &entities.Subscription{
		UserID:        userID,
		TotalSpace:    totalSpace,
		DistanceLimit: distanceLimit,
		IsActive:      true,
	}
	if err := database.GetDB().Create(sub).Error; err != nil {
		tb.Fatalf("seed subscription: %v", err)
	}
	return sub
}
