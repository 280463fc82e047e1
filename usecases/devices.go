package usecases

import (
	"context"
	"strings"

	"telemetry-server/apperr"
	"telemetry-server/auth"
	"telemetry-server/cache"
	"telemetry-server/db"
	"telemetry-server/entities"
	applog "telemetry-server/logger"
	"telemetry-server/repositories"
)

type RegisterDeviceRequest struct {
	DeviceID string  `json:"device_id"`
	UserID   string  `json:"user_id"`
	VendorID *string `json:"vendor_id"`
	Name     string  `json:"name"`
	Type     string  `json:"device_type"`
	Location string  `json:"location"`
}

type DeviceUseCase struct {
	db    db.Database
	cache cache.CredentialCache
	log   *applog.Logger
}

func NewDeviceUseCase(database db.Database, c cache.CredentialCache, log *applog.Logger) *DeviceUseCase {
	return &DeviceUseCase{db: database, cache: c, log: log}
}

// Register creates a device and returns it with its plaintext API key. The key
// is not stored and cannot be recovered later.
func (uc *DeviceUseCase) Register(ctx context.Context, req RegisterDeviceRequest) (*entities.Device, string, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, "", apperr.InvalidArgument("user_id is required")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, "", apperr.InvalidArgument("device name is required")
	}
	if req.DeviceID != "" {
		if err := ValidateToken("device_id", req.DeviceID); err != nil {
			return nil, "", err
		}
	}

	plain, hash, err := auth.GenerateAPIKey()
	if err != nil {
		return nil, "", apperr.Internal("could not generate api key", err)
	}
	device := &entities.Device{
		ID:         req.DeviceID,
		UserID:     req.UserID,
		VendorID:   req.VendorID,
		Name:       req.Name,
		Type:       req.Type,
		Location:   req.Location,
		IsActive:   true,
		APIKeyHash: hash,
	}

	err = uc.db.Transaction(ctx, func(tx db.Database) error {
		repos := repositories.New(tx)
		if _, err := repos.Users.GetByID(ctx, req.UserID); err != nil {
			return err
		}
		if device.ID != "" {
			_, err := repos.Devices.GetByID(ctx, device.ID)
			if err == nil {
				return apperr.Conflict("device %q is already registered", device.ID)
			}
			if !apperr.Is(err, apperr.KindNotFound) {
				return err
			}
		}
		return repos.Devices.Create(ctx, device)
	})
	if err != nil {
		return nil, "", err
	}
	uc.log.Info("device registered", "device_id", device.ID, "user_id", device.UserID)
	return device, plain, nil
}

func (uc *DeviceUseCase) Get(ctx context.Context, id string) (*entities.Device, error) {
	if id == "" {
		return nil, apperr.InvalidArgument("device id is required")
	}
	return repositories.New(uc.db).Devices.GetByID(ctx, id)
}

// List returns userID's devices, or every device when userID is empty.
func (uc *DeviceUseCase) List(ctx context.Context, userID string) ([]entities.Device, error) {
	repo := repositories.New(uc.db).Devices
	if userID == "" {
		return repo.GetAll(ctx)
	}
	return repo.GetByUserID(ctx, userID)
}

// Delete removes the device with its sessions, batches and readings and
// revokes its cached credential.
func (uc *DeviceUseCase) Delete(ctx context.Context, id string) error {
	var keyHash string
	err := uc.db.Transaction(ctx, func(tx db.Database) error {
		repos := repositories.New(tx)
		device, err := repos.Devices.GetByID(ctx, id)
		if err != nil {
			return err
		}
		keyHash = device.APIKeyHash
		return repos.Devices.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	if uc.cache != nil && keyHash != "" {
		if err := uc.cache.Delete(ctx, keyHash); err != nil {
			uc.log.Warn("credential cache delete failed", "device_id", id, "error", err)
		}
	}
	uc.log.Info("device deleted", "device_id", id)
	return nil
}
