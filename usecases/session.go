package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"telemetry-server/apperr"
	"telemetry-server/db"
	"telemetry-server/entities"
	applog "telemetry-server/logger"
	"telemetry-server/metrics"
	"telemetry-server/repositories"

	"github.com/google/uuid"
)

const MaxTokenLength = 100

// ValidateToken checks a client-supplied session or batch token.
func ValidateToken(kind, token string) error {
	if token == "" {
		return apperr.InvalidArgument("%s must not be empty", kind)
	}
	if len(token) > MaxTokenLength {
		return apperr.InvalidArgument("%s exceeds %d characters", kind, MaxTokenLength)
	}
	for _, r := range token {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '-', r == '.', r == ':':
		default:
			return apperr.InvalidArgument("%s contains invalid character %q", kind, r)
		}
	}
	return nil
}

// GenerateSessionToken returns session_<YYYYMMDD_HHMMSS>_<8 hex>.
func GenerateSessionToken(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("session_%s_%s", now.UTC().Format("20060102_150405"), suffix)
}

type SessionUseCase struct {
	db      db.Database
	metrics *metrics.Metrics
	log     *applog.Logger
	now     func() time.Time
}

func NewSessionUseCase(database db.Database, m *metrics.Metrics, log *applog.Logger) *SessionUseCase {
	return &SessionUseCase{db: database, metrics: m, log: log, now: time.Now}
}

// Resolve finds or creates the session for (deviceID, token). An empty token
// always yields a new session with a generated token.
func (uc *SessionUseCase) Resolve(ctx context.Context, deviceID, token, description string) (*entities.DataSession, bool, error) {
	var (
		session *entities.DataSession
		created bool
	)
	err := uc.db.Transaction(ctx, func(tx db.Database) error {
		repos := repositories.New(tx)
		if _, err := repos.Devices.GetByID(ctx, deviceID); err != nil {
			return err
		}
		var err error
		session, created, err = uc.resolve(ctx, repos, deviceID, token, description)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return session, created, nil
}

// ResolveBatch finds or creates the batch token inside session.
func (uc *SessionUseCase) ResolveBatch(ctx context.Context, session *entities.DataSession, token string) (*entities.DataBatch, error) {
	var batch *entities.DataBatch
	err := uc.db.Transaction(ctx, func(tx db.Database) error {
		var err error
		batch, err = uc.resolveBatch(ctx, repositories.New(tx), session, token)
		return err
	})
	return batch, err
}

func (uc *SessionUseCase) resolve(ctx context.Context, repos *repositories.Repositories, deviceID, token, description string) (*entities.DataSession, bool, error) {
	generated := token == ""
	if !generated {
		if err := ValidateToken("session_id", token); err != nil {
			return nil, false, err
		}
	}

	// a generated token only collides if two land in the same second with
	// the same random suffix; retry rather than reuse
	for attempt := 0; attempt < 3; attempt++ {
		if generated {
			token = GenerateSessionToken(uc.now())
		}
		candidate := &entities.DataSession{
			ID:          token,
			DeviceID:    deviceID,
			StartTime:   uc.now().UTC(),
			IsActive:    true,
			Description: description,
		}
		created, err := repos.Sessions.CreateIfAbsent(ctx, candidate)
		if err != nil {
			return nil, false, err
		}
		if created {
			uc.metrics.IncSessionsCreated(generated)
			uc.log.Debug("session created", "session_id", token, "device_id", deviceID)
			return candidate, true, nil
		}
		if generated {
			continue
		}

		existing, err := repos.Sessions.GetByID(ctx, token)
		if err != nil {
			return nil, false, err
		}
		if existing.DeviceID != deviceID {
			return nil, false, apperr.InvalidArgument("session_id %q is already used by another device", token)
		}
		return existing, false, nil
	}
	return nil, false, apperr.Internal("could not allocate a session token", nil)
}

func (uc *SessionUseCase) resolveBatch(ctx context.Context, repos *repositories.Repositories, session *entities.DataSession, token string) (*entities.DataBatch, error) {
	if err := ValidateToken("batch_id", token); err != nil {
		return nil, err
	}
	candidate := &entities.DataBatch{
		ID:        token,
		SessionID: session.ID,
		DeviceID:  session.DeviceID,
		DataCount: 0,
	}
	created, err := repos.Batches.CreateIfAbsent(ctx, candidate)
	if err != nil {
		return nil, err
	}
	if created {
		return candidate, nil
	}
	existing, err := repos.Batches.GetByID(ctx, token)
	if err != nil {
		return nil, err
	}
	if existing.SessionID != session.ID {
		return nil, apperr.InvalidArgument("batch_id %q belongs to another session", token)
	}
	return existing, nil
}

// ClosedSession is a closed session with the number of readings it holds.
type ClosedSession struct {
	*entities.DataSession
	ReadingCount int64 `json:"reading_count"`
}

// Close marks the session inactive and stamps its end time. Closing an already
// closed session returns it unchanged.
func (uc *SessionUseCase) Close(ctx context.Context, deviceID, sessionID string) (*ClosedSession, error) {
	var closed *ClosedSession
	err := uc.db.Transaction(ctx, func(tx db.Database) error {
		repos := repositories.New(tx)
		s, err := repos.Sessions.GetByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if s.DeviceID != deviceID {
			return apperr.Forbidden("session belongs to another device")
		}
		if s.IsActive {
			end := uc.now().UTC()
			if err := repos.Sessions.Close(ctx, s.ID, end); err != nil {
				return err
			}
			s.IsActive = false
			s.EndTime = &end
		}
		n, err := repos.Readings.CountBySession(ctx, s.ID)
		if err != nil {
			return err
		}
		closed = &ClosedSession{DataSession: s, ReadingCount: n}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info("session closed", "device_id", deviceID, "session_id", sessionID, "readings", closed.ReadingCount)
	return closed, nil
}

func (uc *SessionUseCase) List(ctx context.Context, filter repositories.SessionFilter) ([]entities.DataSession, error) {
	return repositories.New(uc.db).Sessions.List(ctx, filter)
}
