package repositories

import (
	"context"

	"telemetry-server/db"
	"telemetry-server/entities"

	"gorm.io/gorm/clause"
)

type capturePgRepository struct {
	db db.Database
}

func NewCapturePgRepository(database db.Database) CaptureRepository {
	return &capturePgRepository{db: database}
}

func (r *capturePgRepository) GetBySessionID(ctx context.Context, sessionID string) (*entities.CombinedCapture, error) {
	var capture entities.CombinedCapture
	if err := r.db.GetDB().WithContext(ctx).Where("session_id = ?", sessionID).First(&capture).Error; err != nil {
		return nil, translate(err, "get capture", "capture")
	}
	return &capture, nil
}

func (r *capturePgRepository) GetBySessionIDForUpdate(ctx context.Context, sessionID string) (*entities.CombinedCapture, error) {
	var capture entities.CombinedCapture
	err := r.db.GetDB().WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("session_id = ?", sessionID).
		First(&capture).Error
	if err != nil {
		return nil, translate(err, "lock capture", "capture")
	}
	return &capture, nil
}

func (r *capturePgRepository) CreateIfAbsent(ctx context.Context, capture *entities.CombinedCapture) (bool, error) {
	res := r.db.GetDB().WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "session_id"}}, DoNothing: true}).
		Create(capture)
	if res.Error != nil {
		return false, translate(res.Error, "create capture", "capture")
	}
	return res.RowsAffected == 1, nil
}

func (r *capturePgRepository) Save(ctx context.Context, capture *entities.CombinedCapture) error {
	return translate(r.db.GetDB().WithContext(ctx).Save(capture).Error, "save capture", "capture")
}

func (r *capturePgRepository) List(ctx context.Context, userID string, limit int) ([]entities.CombinedCapture, error) {
	q := r.db.GetDB().WithContext(ctx).Model(&entities.CombinedCapture{})
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	if limit <= 0 || limit > MaxReadingLimit {
		limit = DefaultReadingLimit
	}
	var captures []entities.CombinedCapture
	err := q.Order("created_at DESC").Limit(limit).Find(&captures).Error
	return captures, translate(err, "list captures", "capture")
}
