package entities

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrPayloadNotObject = errors.New("json_data must be a JSON object")

// CombinedCapture holds one profiling + LiDAR payload per session. The
// Has*/PointCount/CaptureDuration fields are recomputed from Payload on every
// save and cannot be set independently.
type CombinedCapture struct {
	ID              string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SessionID       string         `gorm:"uniqueIndex;size:100;not null" json:"session_id"`
	UserID          string         `gorm:"index;type:varchar(36);not null" json:"user_id"`
	Distance        float64        `gorm:"not null" json:"distance"`
	Timestamp       time.Time      `json:"timestamp"`
	Payload         datatypes.JSON `gorm:"not null" json:"json_data"`
	PayloadBytes    int64          `gorm:"not null" json:"payload_bytes"`
	HasProfileData  bool           `json:"has_profile_data"`
	HasPointData    bool           `json:"has_point_data"`
	PointCount      int            `gorm:"not null" json:"point_count"`
	CaptureDuration *float64       `json:"capture_duration"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (c *CombinedCapture) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}
	return nil
}

// BeforeSave keeps the derived fields a function of the stored payload.
func (c *CombinedCapture) BeforeSave(tx *gorm.DB) (err error) {
	p, err := DecodeCapturePayload(c.Payload)
	if err != nil {
		return err
	}
	c.SetPayload(p)
	return nil
}

// SetPayload stores p and its summary on the capture.
func (c *CombinedCapture) SetPayload(p *CapturePayload) {
	s := p.Summary()
	c.Payload = datatypes.JSON(p.Bytes())
	c.PayloadBytes = int64(len(p.Bytes()))
	c.HasProfileData = s.HasProfileData
	c.HasPointData = s.HasPointData
	c.PointCount = s.PointCount
	c.CaptureDuration = s.CaptureDuration
}

// CaptureSummary is the set of fields derived from a capture payload.
type CaptureSummary struct {
	HasProfileData  bool     `json:"has_profile_data"`
	HasPointData    bool     `json:"has_point_data"`
	PointCount      int      `json:"point_count"`
	CaptureDuration *float64 `json:"capture_duration"`
}

// CapturePayload is the decoded form of a capture's json_data. A key that is
// absent, null, or of the wrong shape decodes to its empty default.
type CapturePayload struct {
	// Profile is profile_data when it is a JSON object.
	Profile map[string]json.RawMessage
	// Points is lidar_data when it is a JSON array.
	Points []json.RawMessage

	compact []byte
}

// DecodeCapturePayload parses raw once. Only a non-object top level is an
// error; inner shape problems degrade to empty defaults.
func DecodeCapturePayload(raw []byte) (*CapturePayload, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrPayloadNotObject
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &top); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, err
	}
	p := &CapturePayload{compact: buf.Bytes()}

	if v, ok := top["profile_data"]; ok {
		var profile map[string]json.RawMessage
		if json.Unmarshal(v, &profile) == nil {
			p.Profile = profile
		}
	}
	if v, ok := top["lidar_data"]; ok {
		var points []json.RawMessage
		if json.Unmarshal(v, &points) == nil {
			p.Points = points
		}
	}
	return p, nil
}

// Bytes returns the compacted payload as stored.
func (p *CapturePayload) Bytes() []byte { return p.compact }

// Summary derives the capture fields. It is a pure function of the payload.
func (p *CapturePayload) Summary() CaptureSummary {
	var s CaptureSummary

	if traits, ok := p.Profile["personality_traits"]; ok {
		s.HasProfileData = truthyJSON(traits)
	}

	s.HasPointData = len(p.Points) > 0
	if !s.HasPointData {
		return s
	}
	s.PointCount = len(p.Points)

	var (
		minTS, maxTS float64
		seen         int
	)
	for _, raw := range p.Points {
		ts, ok := pointTimestamp(raw)
		if !ok {
			continue
		}
		if seen == 0 || ts < minTS {
			minTS = ts
		}
		if seen == 0 || ts > maxTS {
			maxTS = ts
		}
		seen++
	}
	if seen >= 2 {
		d := maxTS - minTS
		s.CaptureDuration = &d
	}
	return s
}

// pointTimestamp extracts a numeric timestamp_sec from one point. Points that
// are not objects, or whose offset is null or non-numeric, carry none.
func pointTimestamp(raw json.RawMessage) (float64, bool) {
	var point map[string]json.RawMessage
	if json.Unmarshal(raw, &point) != nil {
		return 0, false
	}
	v, ok := point["timestamp_sec"]
	if !ok {
		return 0, false
	}
	var ts *float64
	if json.Unmarshal(v, &ts) != nil || ts == nil {
		return 0, false
	}
	return *ts, true
}

// truthyJSON treats null, false, 0, "", {} and [] as empty.
func truthyJSON(raw json.RawMessage) bool {
	var v any
	if json.Unmarshal(raw, &v) != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case map[string]any:
		return len(t) > 0
	case []any:
		return len(t) > 0
	default:
		return true
	}
}
