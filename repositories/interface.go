package repositories

import (
	"context"
	"time"

	"telemetry-server/db"
	"telemetry-server/entities"
)

type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id string) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
}

type DeviceRepository interface {
	Create(ctx context.Context, device *entities.Device) error
	GetByID(ctx context.Context, id string) (*entities.Device, error)
	GetByAPIKeyHash(ctx context.Context, hash string) (*entities.Device, error)
	GetAll(ctx context.Context) ([]entities.Device, error)
	GetByUserID(ctx context.Context, userID string) ([]entities.Device, error)
	// Delete removes the device with its sessions, batches and readings.
	Delete(ctx context.Context, id string) error
}

type SessionRepository interface {
	// CreateIfAbsent inserts session unless its ID is taken and reports
	// whether this call created it.
	CreateIfAbsent(ctx context.Context, session *entities.DataSession) (bool, error)
	GetByID(ctx context.Context, id string) (*entities.DataSession, error)
	List(ctx context.Context, filter SessionFilter) ([]entities.DataSession, error)
	Close(ctx context.Context, id string, at time.Time) error
}

type BatchRepository interface {
	CreateIfAbsent(ctx context.Context, batch *entities.DataBatch) (bool, error)
	GetByID(ctx context.Context, id string) (*entities.DataBatch, error)
	// IncrementCount adds n to the batch count in a single UPDATE.
	IncrementCount(ctx context.Context, id string, n int64) error
}

type ReadingRepository interface {
	CreateMany(ctx context.Context, readings []*entities.SensorReading) error
	List(ctx context.Context, filter ReadingFilter) ([]entities.SensorReading, error)
	CountBySession(ctx context.Context, sessionID string) (int64, error)
}

type CaptureRepository interface {
	GetBySessionID(ctx context.Context, sessionID string) (*entities.CombinedCapture, error)
	// GetBySessionIDForUpdate reads the capture and locks its row until the
	// surrounding transaction ends.
	GetBySessionIDForUpdate(ctx context.Context, sessionID string) (*entities.CombinedCapture, error)
	// CreateIfAbsent inserts capture unless its session already holds one and
	// reports whether this call created it.
	CreateIfAbsent(ctx context.Context, capture *entities.CombinedCapture) (bool, error)
	// Save fully rewrites an existing capture.
	Save(ctx context.Context, capture *entities.CombinedCapture) error
	List(ctx context.Context, userID string, limit int) ([]entities.CombinedCapture, error)
}

type SubscriptionRepository interface {
	GetByUserID(ctx context.Context, userID string) (*entities.Subscription, error)
	Upsert(ctx context.Context, sub *entities.Subscription) error
	// Consume charges delta bytes to the user's subscription. A positive
	// delta that would overflow the allowance is rejected with QuotaExceeded.
	Consume(ctx context.Context, userID string, delta int64) error
}

// SessionFilter narrows session listings. Empty fields do not filter.
type SessionFilter struct {
	UserID   string
	DeviceID string
	IsActive *bool
	Limit    int
}

// ReadingFilter narrows reading listings. Empty fields do not filter.
type ReadingFilter struct {
	UserID     string
	DeviceID   string
	SessionID  string
	SensorType string
	Start      *time.Time
	End        *time.Time
	Limit      int
}

// Repositories bundles every repository bound to one Database handle, so a
// transaction can be threaded through all of them at once.
type Repositories struct {
	Users         UserRepository
	Devices       DeviceRepository
	Sessions      SessionRepository
	Batches       BatchRepository
	Readings      ReadingRepository
	Captures      CaptureRepository
	Subscriptions SubscriptionRepository
}

func New(database db.Database) *Repositories {
	return &Repositories{
		Users:         NewUserPgRepository(database),
		Devices:       NewDevicePgRepository(database),
		Sessions:      NewSessionPgRepository(database),
		Batches:       NewBatchPgRepository(database),
		Readings:      NewReadingPgRepository(database),
		Captures:      NewCapturePgRepository(database),
		Subscriptions: NewSubscriptionPgRepository(database),
	}
}
