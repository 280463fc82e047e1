package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SensorReading is one scalar measurement.
type SensorReading struct {
	ID             string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SessionID      string         `gorm:"index;size:100;not null" json:"session_id"`
	DeviceID       string         `gorm:"index:idx_reading_device_time,priority:1;size:100;not null" json:"device_id"`
	SensorType     string         `gorm:"index;size:50;not null" json:"sensor_type"`
	Value          float64        `gorm:"not null" json:"value"`
	Unit           string         `gorm:"size:20" json:"unit"`
	Timestamp      time.Time      `gorm:"index:idx_reading_device_time,priority:2;not null" json:"timestamp"`
	GPSLatitude    *float64       `json:"gps_latitude,omitempty"`
	GPSLongitude   *float64       `json:"gps_longitude,omitempty"`
	AdditionalData datatypes.JSON `json:"additional_data"`
}

func (r *SensorReading) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	if len(r.AdditionalData) == 0 {
		r.AdditionalData = datatypes.JSON([]byte("{}"))
	}
	return nil
}
