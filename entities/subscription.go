package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Subscription caps how much capture data a user may store and how far a
// single capture may reach. Space is counted in bytes of stored payload.
type Subscription struct {
	ID            string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID        string     `gorm:"uniqueIndex;type:varchar(36);not null" json:"user_id"`
	TotalSpace    int64      `gorm:"not null" json:"total_space"`
	SpaceConsumed int64      `gorm:"not null" json:"space_consumed"`
	DistanceLimit float64    `gorm:"not null" json:"distance_limit"`
	IsActive      bool       `json:"is_active"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// RemainingSpace never goes below zero.
func (s *Subscription) RemainingSpace() int64 {
	if s.SpaceConsumed >= s.TotalSpace {
		return 0
	}
	return s.TotalSpace - s.SpaceConsumed
}
