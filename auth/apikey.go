// Package auth holds device API keys, user bearer tokens, password hashing
// and the capability checks evaluated at the request boundary.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"telemetry-server/apperr"
	"telemetry-server/cache"
	applog "telemetry-server/logger"
	"telemetry-server/repositories"
)

const apiKeyPrefix = "tk_"

// GenerateAPIKey returns a new plaintext key and the hash to persist.
func GenerateAPIKey() (plain string, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate api key: %w", err)
	}
	plain = apiKeyPrefix + hex.EncodeToString(buf)
	return plain, HashAPIKey(plain), nil
}

func HashAPIKey(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// DeviceAuthenticator resolves an API key to the device it belongs to,
// consulting the credential cache before the database.
type DeviceAuthenticator struct {
	devices repositories.DeviceRepository
	cache   cache.CredentialCache
	log     *applog.Logger
}

func NewDeviceAuthenticator(devices repositories.DeviceRepository, c cache.CredentialCache, log *applog.Logger) *DeviceAuthenticator {
	return &DeviceAuthenticator{devices: devices, cache: c, log: log}
}

// Authenticate returns the device ID for key, or Unauthorized.
func (a *DeviceAuthenticator) Authenticate(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", apperr.Unauthorized("missing api key")
	}
	hash := HashAPIKey(key)

	if a.cache != nil {
		deviceID, ok, err := a.cache.Get(ctx, hash)
		if err != nil {
			a.log.Warn("credential cache lookup failed", "error", err)
		} else if ok {
			return deviceID, nil
		}
	}

	device, err := a.devices.GetByAPIKeyHash(ctx, hash)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return "", apperr.Unauthorized("invalid api key")
		}
		return "", err
	}
	if !device.IsActive {
		return "", apperr.Unauthorized("device is deactivated")
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, hash, device.ID); err != nil {
			a.log.Warn("credential cache store failed", "error", err)
		}
	}
	return device.ID, nil
}

// Forget drops any cached entry for hash.
func (a *DeviceAuthenticator) Forget(ctx context.Context, hash string) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Delete(ctx, hash); err != nil {
		a.log.Warn("credential cache delete failed", "error", err)
	}
}
