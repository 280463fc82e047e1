package entities

import "time"

// DataSession is a bounded recording interval for one device. ID is the
// session token, unique across all devices.
type DataSession struct {
	ID          string     `gorm:"primaryKey;size:100" json:"session_id"`
	DeviceID    string     `gorm:"index;size:100;not null" json:"device_id"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	IsActive    bool       `json:"is_active"`
	Description string     `json:"description"`
}

// DataBatch sub-groups readings inside a session. ID is the batch token.
type DataBatch struct {
	ID        string    `gorm:"primaryKey;size:100" json:"batch_id"`
	SessionID string    `gorm:"index;size:100;not null" json:"session_id"`
	DeviceID  string    `gorm:"index;size:100;not null" json:"device_id"`
	DataCount int64     `gorm:"not null" json:"data_count"`
	CreatedAt time.Time `json:"created_at"`
}
