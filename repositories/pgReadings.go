package repositories

import (
	"context"

	"telemetry-server/db"
	"telemetry-server/entities"
)

const (
	DefaultReadingLimit = 100
	MaxReadingLimit     = 1000
	insertBatchSize     = 200
)

type readingPgRepository struct {
	db db.Database
}

func NewReadingPgRepository(database db.Database) ReadingRepository {
	return &readingPgRepository{db: database}
}

func (r *readingPgRepository) CreateMany(ctx context.Context, readings []*entities.SensorReading) error {
	if len(readings) == 0 {
		return nil
	}
	err := r.db.GetDB().WithContext(ctx).CreateInBatches(readings, insertBatchSize).Error
	return translate(err, "create readings", "reading")
}

func (r *readingPgRepository) List(ctx context.Context, filter ReadingFilter) ([]entities.SensorReading, error) {
	q := r.db.GetDB().WithContext(ctx).Model(&entities.SensorReading{})
	if filter.UserID != "" {
		q = q.Joins("JOIN devices ON devices.id = sensor_readings.device_id").
			Where("devices.user_id = ?", filter.UserID)
	}
	if filter.DeviceID != "" {
		q = q.Where("sensor_readings.device_id = ?", filter.DeviceID)
	}
	if filter.SessionID != "" {
		q = q.Where("sensor_readings.session_id = ?", filter.SessionID)
	}
	if filter.SensorType != "" {
		q = q.Where("sensor_readings.sensor_type = ?", filter.SensorType)
	}
	if filter.Start != nil {
		q = q.Where("sensor_readings.timestamp >= ?", *filter.Start)
	}
	if filter.End != nil {
		q = q.Where("sensor_readings.timestamp < ?", *filter.End)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultReadingLimit
	}
	if limit > MaxReadingLimit {
		limit = MaxReadingLimit
	}

	var readings []entities.SensorReading
	err := q.Order("sensor_readings.timestamp DESC").Limit(limit).Find(&readings).Error
	return readings, translate(err, "list readings", "reading")
}

func (r *readingPgRepository) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	var n int64
	err := r.db.GetDB().WithContext(ctx).Model(&entities.SensorReading{}).
		Where("session_id = ?", sessionID).Count(&n).Error
	return n, translate(err, "count readings", "reading")
}
