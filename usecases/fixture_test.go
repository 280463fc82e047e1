package usecases

import (
	"context"
	"testing"
	"time"

	"telemetry-server/auth"
	"telemetry-server/cache"
	"telemetry-server/db"
	"telemetry-server/entities"
	"telemetry-server/metrics"
	"telemetry-server/repositories"
	"telemetry-server/testutil"
)

type fixture struct {
	db            db.Database
	metrics       *metrics.Metrics
	sessions      *SessionUseCase
	ingest        *IngestUseCase
	quota         *QuotaEnforcer
	captures      *CaptureUseCase
	devices       *DeviceUseCase
	users         *UserUseCase
	subscriptions *SubscriptionUseCase
	cache         *cache.MemoryCache

	owner  *entities.User
	device *entities.Device
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := testutil.DB(t)
	log := testutil.Logger(t)
	m := metrics.NewMetrics()

	f := &fixture{db: database, metrics: m, cache: cache.NewMemoryCache(time.Minute)}
	f.sessions = NewSessionUseCase(database, m, log)
	f.ingest = NewIngestUseCase(database, f.sessions, m, log)
	f.quota = NewQuotaEnforcer(m)
	f.captures = NewCaptureUseCase(database, f.quota, m, log)
	f.devices = NewDeviceUseCase(database, f.cache, log)
	f.users = NewUserUseCase(database, auth.NewJWTService("test-secret", time.Hour), log)
	f.subscriptions = NewSubscriptionUseCase(database, log)

	f.owner = testutil.SeedUser(t, database, "owner@example.com", entities.RoleCustomer)
	f.device = testutil.SeedDevice(t, database, "RASPBERRY_PI_001", f.owner.ID, "")
	return f
}

func (f *fixture) countRows(t *testing.T, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := f.db.GetDB().WithContext(context.Background()).Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func floatPtr(f float64) *float64 { return &f }

func newRepos(f *fixture) *repositories.Repositories { return repositories.New(f.db) }
