package auth

import (
	"telemetry-server/apperr"
	"telemetry-server/entities"
)

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == entities.RoleAdmin
}

// CanIngestForDevice reports whether the device authenticated by its API key
// may submit data addressed to targetDeviceID.
func CanIngestForDevice(authenticatedDeviceID, targetDeviceID string) error {
	if authenticatedDeviceID == "" {
		return apperr.Unauthorized("device not authenticated")
	}
	if authenticatedDeviceID != targetDeviceID {
		return apperr.Forbidden("api key does not belong to device %s", targetDeviceID)
	}
	return nil
}

// CanWriteCapture allows a user to write their own captures; admins may write
// on behalf of anyone.
func CanWriteCapture(p *Principal, userID string) error {
	if p == nil {
		return apperr.Unauthorized("authentication required")
	}
	if p.UserID != userID && !p.IsAdmin() {
		return apperr.Forbidden("cannot write captures for another user")
	}
	return nil
}

// CanReadUserData allows reading a user's captures and quota.
func CanReadUserData(p *Principal, userID string) error {
	if p == nil {
		return apperr.Unauthorized("authentication required")
	}
	if p.UserID != userID && !p.IsAdmin() {
		return apperr.Forbidden("cannot read another user's data")
	}
	return nil
}

func RequireAdmin(p *Principal) error {
	if p == nil {
		return apperr.Unauthorized("authentication required")
	}
	if !p.IsAdmin() {
		return apperr.Forbidden("admin role required")
	}
	return nil
}

func CanManageSubscriptions(p *Principal) error {
	return RequireAdmin(p)
}

func CanManageDevice(p *Principal, device *entities.Device) error {
	if p == nil {
		return apperr.Unauthorized("authentication required")
	}
	if device.UserID != p.UserID && !p.IsAdmin() {
		return apperr.Forbidden("device belongs to another user")
	}
	return nil
}

// ScopeUserID returns the user a listing should be restricted to. Admins see
// everything.
func ScopeUserID(p *Principal) string {
	if p.IsAdmin() {
		return ""
	}
	return p.UserID
}
