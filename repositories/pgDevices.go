package repositories

import (
	"context"

	"telemetry-server/db"
	"telemetry-server/entities"
)

type devicePgRepository struct {
	db db.Database
}

func NewDevicePgRepository(database db.Database) DeviceRepository {
	return &devicePgRepository{db: database}
}

func (r *devicePgRepository) Create(ctx context.Context, device *entities.Device) error {
	return translate(r.db.GetDB().WithContext(ctx).Create(device).Error, "create device", "device")
}

func (r *devicePgRepository) GetByID(ctx context.Context, id string) (*entities.Device, error) {
	var device entities.Device
	err := r.db.GetDB().WithContext(ctx).Where("id = ?", id).First(&device).Error
	if err != nil {
		return nil, translate(err, "get device", "device")
	}
	return &device, nil
}

func (r *devicePgRepository) GetByAPIKeyHash(ctx context.Context, hash string) (*entities.Device, error) {
	var device entities.Device
	err := r.db.GetDB().WithContext(ctx).Where("api_key_hash = ?", hash).First(&device).Error
	if err != nil {
		return nil, translate(err, "get device by key", "device")
	}
	return &device, nil
}

func (r *devicePgRepository) GetAll(ctx context.Context) ([]entities.Device, error) {
	var devices []entities.Device
	err := r.db.GetDB().WithContext(ctx).Order("created_at DESC").Find(&devices).Error
	return devices, translate(err, "list devices", "device")
}

func (r *devicePgRepository) GetByUserID(ctx context.Context, userID string) ([]entities.Device, error) {
	var devices []entities.Device
	err := r.db.GetDB().WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&devices).Error
	return devices, translate(err, "list user devices", "device")
}

func (r *devicePgRepository) Delete(ctx context.Context, id string) error {
	tx := r.db.GetDB().WithContext(ctx)
	// children first; sqlite does not enforce foreign keys by default
	if err := tx.Where("device_id = ?", id).Delete(&entities.SensorReading{}).Error; err != nil {
		return translate(err, "delete device readings", "device")
	}
	if err := tx.Where("device_id = ?", id).Delete(&entities.DataBatch{}).Error; err != nil {
		return translate(err, "delete device batches", "device")
	}
	if err := tx.Where("device_id = ?", id).Delete(&entities.DataSession{}).Error; err != nil {
		return translate(err, "delete device sessions", "device")
	}
	res := tx.Where("id = ?", id).Delete(&entities.Device{})
	if res.Error != nil {
		return translate(res.Error, "delete device", "device")
	}
	if res.RowsAffected == 0 {
		return translate(gormNotFound, "delete device", "device")
	}
	return nil
}
