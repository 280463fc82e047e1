package repositories

import (
	"context"
	"time"

	"telemetry-server/db"
	"telemetry-server/entities"

	"gorm.io/gorm/clause"
)

type sessionPgRepository struct {
	db db.Database
}

func NewSessionPgRepository(database db.Database) SessionRepository {
	return &sessionPgRepository{db: database}
}

func (r *sessionPgRepository) CreateIfAbsent(ctx context.Context, session *entities.DataSession) (bool, error) {
	res := r.db.GetDB().WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(session)
	if res.Error != nil {
		return false, translate(res.Error, "create session", "session")
	}
	return res.RowsAffected == 1, nil
}

func (r *sessionPgRepository) GetByID(ctx context.Context, id string) (*entities.DataSession, error) {
	var session entities.DataSession
	if err := r.db.GetDB().WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		return nil, translate(err, "get session", "session")
	}
	return &session, nil
}

func (r *sessionPgRepository) List(ctx context.Context, filter SessionFilter) ([]entities.DataSession, error) {
	q := r.db.GetDB().WithContext(ctx).Model(&entities.DataSession{})
	if filter.UserID != "" {
		q = q.Joins("JOIN devices ON devices.id = data_sessions.device_id").
			Where("devices.user_id = ?", filter.UserID)
	}
	if filter.DeviceID != "" {
		q = q.Where("data_sessions.device_id = ?", filter.DeviceID)
	}
	if filter.IsActive != nil {
		q = q.Where("data_sessions.is_active = ?", *filter.IsActive)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var sessions []entities.DataSession
	err := q.Order("data_sessions.start_time DESC").Find(&sessions).Error
	return sessions, translate(err, "list sessions", "session")
}

func (r *sessionPgRepository) Close(ctx context.Context, id string, at time.Time) error {
	res := r.db.GetDB().WithContext(ctx).Model(&entities.DataSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active": false,
			"end_time":  at,
		})
	if res.Error != nil {
		return translate(res.Error, "close session", "session")
	}
	if res.RowsAffected == 0 {
		return translate(gormNotFound, "close session", "session")
	}
	return nil
}
