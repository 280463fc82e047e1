package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DefaultDeviceType = "Raspberry Pi"

// Device is a physical sensing unit. Its ID is the identifier the unit
// reports with every payload. Ingestion only ever reads it.
type Device struct {
	ID               string    `gorm:"primaryKey;size:100" json:"device_id"`
	UserID           string    `gorm:"index;type:varchar(36);not null" json:"user_id"`
	VendorID         *string   `gorm:"index;type:varchar(36)" json:"vendor_id,omitempty"`
	Name             string    `gorm:"size:100" json:"name"`
	Type             string    `gorm:"size:50" json:"device_type"`
	Location         string    `gorm:"size:200" json:"location"`
	IsActive         bool      `json:"is_active"`
	HasIssues        bool      `json:"has_issues"`
	IssueDescription string    `json:"issue_description"`
	APIKeyHash       string    `gorm:"uniqueIndex;size:64" json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (d *Device) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.Type == "" {
		d.Type = DefaultDeviceType
	}
	return nil
}
