package usecases

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"telemetry-server/apperr"
	"telemetry-server/db"
	"telemetry-server/entities"
	applog "telemetry-server/logger"
	"telemetry-server/metrics"
	"telemetry-server/repositories"
)

// CaptureRequest is the combined-capture body.
type CaptureRequest struct {
	UserID    string          `json:"user_id"`
	SessionID string          `json:"session_id"`
	Distance  *float64        `json:"distance"`
	Payload   json.RawMessage `json:"json_data"`
}

type CaptureUseCase struct {
	db      db.Database
	quota   *QuotaEnforcer
	metrics *metrics.Metrics
	log     *applog.Logger
	now     func() time.Time
}

func NewCaptureUseCase(database db.Database, quota *QuotaEnforcer, m *metrics.Metrics, log *applog.Logger) *CaptureUseCase {
	return &CaptureUseCase{db: database, quota: quota, metrics: m, log: log, now: time.Now}
}

// Write stores the capture for req.SessionID, replacing any previous payload
// for that session. The quota is checked before anything is written, and the
// payload plus the storage charge commit together. Rewrites are charged the
// byte difference from the stored payload.
func (uc *CaptureUseCase) Write(ctx context.Context, req CaptureRequest) (*entities.CombinedCapture, bool, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, false, apperr.InvalidArgument("user_id is required")
	}
	if err := ValidateToken("session_id", req.SessionID); err != nil {
		return nil, false, err
	}
	if req.Distance == nil {
		return nil, false, apperr.InvalidArgument("distance is required")
	}
	if len(req.Payload) == 0 {
		return nil, false, apperr.InvalidArgument("json_data is required")
	}
	payload, err := entities.DecodeCapturePayload(req.Payload)
	if err != nil {
		return nil, false, apperr.InvalidArgument("json_data must be a JSON object")
	}
	newBytes := int64(len(payload.Bytes()))

	var (
		capture *entities.CombinedCapture
		created bool
	)
	err = uc.db.Transaction(ctx, func(tx db.Database) error {
		repos := repositories.New(tx)

		existing, err := lockCapture(ctx, repos, req)
		if err != nil {
			return err
		}
		if existing == nil {
			if _, err := uc.quota.Check(ctx, repos.Subscriptions, req.UserID, *req.Distance, newBytes); err != nil {
				return err
			}
			fresh := &entities.CombinedCapture{
				SessionID: req.SessionID,
				UserID:    req.UserID,
				Distance:  *req.Distance,
				Timestamp: uc.now().UTC(),
			}
			fresh.SetPayload(payload)
			ok, err := repos.Captures.CreateIfAbsent(ctx, fresh)
			if err != nil {
				return err
			}
			if ok {
				capture, created = fresh, true
				return repos.Subscriptions.Consume(ctx, req.UserID, newBytes)
			}

			// a concurrent writer created it first; rewrite theirs
			if existing, err = lockCapture(ctx, repos, req); err != nil {
				return err
			}
			if existing == nil {
				return apperr.Internal("capture missing after insert conflict", nil)
			}
		}

		delta := newBytes - existing.PayloadBytes
		if _, err := uc.quota.Check(ctx, repos.Subscriptions, req.UserID, *req.Distance, delta); err != nil {
			return err
		}
		existing.Distance = *req.Distance
		existing.Timestamp = uc.now().UTC()
		existing.SetPayload(payload)
		if err := repos.Captures.Save(ctx, existing); err != nil {
			return err
		}
		capture = existing
		return repos.Subscriptions.Consume(ctx, req.UserID, delta)
	})
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindQuotaExceeded:
			uc.metrics.IncCaptureWrites(metrics.ResultDenied)
		case apperr.KindInternal:
			uc.metrics.IncCaptureWrites(metrics.ResultFailed)
		}
		return nil, false, err
	}

	if created {
		uc.metrics.IncCaptureWrites(metrics.ResultCreated)
	} else {
		uc.metrics.IncCaptureWrites(metrics.ResultUpdated)
	}
	uc.metrics.ObserveCaptureBytes(capture.PayloadBytes)
	uc.log.Info("capture stored",
		"session_id", capture.SessionID,
		"user_id", capture.UserID,
		"bytes", capture.PayloadBytes,
		"point_count", capture.PointCount,
		"created", created,
	)
	return capture, created, nil
}

// lockCapture returns the session's capture locked for this transaction, or
// nil when there is none. A capture owned by another user is rejected.
func lockCapture(ctx context.Context, repos *repositories.Repositories, req CaptureRequest) (*entities.CombinedCapture, error) {
	existing, err := repos.Captures.GetBySessionIDForUpdate(ctx, req.SessionID)
	switch {
	case err == nil:
		if existing.UserID != req.UserID {
			return nil, apperr.InvalidArgument("session_id %q already holds another user's capture", req.SessionID)
		}
		return existing, nil
	case apperr.Is(err, apperr.KindNotFound):
		return nil, nil
	default:
		return nil, err
	}
}

func (uc *CaptureUseCase) List(ctx context.Context, userID string, limit int) ([]entities.CombinedCapture, error) {
	return repositories.New(uc.db).Captures.List(ctx, userID, limit)
}

func (uc *CaptureUseCase) Get(ctx context.Context, sessionID string) (*entities.CombinedCapture, error) {
	return repositories.New(uc.db).Captures.GetBySessionID(ctx, sessionID)
}
