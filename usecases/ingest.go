package usecases

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"telemetry-server/apperr"
	"telemetry-server/db"
	"telemetry-server/entities"
	applog "telemetry-server/logger"
	"telemetry-server/metrics"
	"telemetry-server/repositories"

	"gorm.io/datatypes"
)

const (
	ReasonMissingSensorType = "missing sensor_type"
	ReasonMissingValue      = "missing value"
	ReasonInvalidValue      = "invalid value"
	ReasonInvalidUnit       = "invalid unit"
	ReasonInvalidAdditional = "invalid additional_data"
)

// ReadingInput is one element of sensor_readings. It decodes leniently so a
// malformed element becomes an item error instead of failing the request.
type ReadingInput struct {
	SensorType     string
	Value          *float64
	Unit           string
	AdditionalData json.RawMessage

	problem string
}

func (r *ReadingInput) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil || fields == nil {
		// not an object at all
		r.problem = ReasonMissingSensorType
		return nil
	}

	if raw, ok := fields["sensor_type"]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			r.SensorType = strings.TrimSpace(s)
		}
	}
	if r.SensorType == "" {
		r.problem = ReasonMissingSensorType
		return nil
	}

	raw, ok := fields["value"]
	if !ok || isJSONNull(raw) {
		r.problem = ReasonMissingValue
		return nil
	}
	v, ok := parseNumber(raw)
	if !ok {
		r.problem = ReasonInvalidValue
		return nil
	}
	r.Value = &v

	if raw, ok := fields["unit"]; ok && !isJSONNull(raw) {
		if json.Unmarshal(raw, &r.Unit) != nil {
			r.problem = ReasonInvalidUnit
			return nil
		}
	}
	if raw, ok := fields["additional_data"]; ok && !isJSONNull(raw) {
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			r.problem = ReasonInvalidAdditional
			return nil
		}
		r.AdditionalData = trimmed
	}
	return nil
}

// Problem returns the reason this reading cannot be stored, or "".
func (r *ReadingInput) Problem() string {
	if r.problem != "" {
		return r.problem
	}
	if r.SensorType == "" {
		return ReasonMissingSensorType
	}
	if r.Value == nil {
		return ReasonMissingValue
	}
	if math.IsNaN(*r.Value) || math.IsInf(*r.Value, 0) {
		return ReasonInvalidValue
	}
	return ""
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// parseNumber accepts a JSON number or a string holding one.
func parseNumber(raw json.RawMessage) (float64, bool) {
	var f float64
	if json.Unmarshal(raw, &f) == nil {
		return f, true
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// IngestRequest is the multi-reading ingest body.
type IngestRequest struct {
	DeviceID     string         `json:"device_id"`
	SessionID    string         `json:"session_id"`
	BatchID      string         `json:"batch_id"`
	Readings     []ReadingInput `json:"sensor_readings"`
	GPSLatitude  *float64       `json:"gps_latitude"`
	GPSLongitude *float64       `json:"gps_longitude"`
	Timestamp    string         `json:"timestamp"`
	Description  string         `json:"description"`
}

// ParseTimestamp reads an RFC 3339 timestamp. Empty means "not supplied".
func ParseTimestamp(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperr.InvalidArgument("timestamp %q is not RFC 3339", raw)
}

type ItemError struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

type IngestResult struct {
	AcceptedCount  int                   `json:"accepted_count"`
	Session        *entities.DataSession `json:"session"`
	SessionCreated bool                  `json:"session_created"`
	BatchID        *string               `json:"batch_id"`
	BatchCount     *int64                `json:"batch_count,omitempty"`
	Errors         []ItemError           `json:"errors"`
}

type IngestUseCase struct {
	db       db.Database
	sessions *SessionUseCase
	metrics  *metrics.Metrics
	log      *applog.Logger
}

func NewIngestUseCase(database db.Database, sessions *SessionUseCase, m *metrics.Metrics, log *applog.Logger) *IngestUseCase {
	return &IngestUseCase{db: database, sessions: sessions, metrics: m, log: log}
}

// Ingest resolves the session (and batch), stores every well-formed reading
// and bumps the batch count by the number stored, all in one transaction.
// Malformed readings are reported in Errors and do not abort the call.
func (uc *IngestUseCase) Ingest(ctx context.Context, req IngestRequest, source string) (*IngestResult, error) {
	if strings.TrimSpace(req.DeviceID) == "" {
		return nil, apperr.InvalidArgument("device_id is required")
	}
	ts, err := ParseTimestamp(req.Timestamp)
	if err != nil {
		return nil, err
	}

	result := &IngestResult{Errors: make([]ItemError, 0)}
	readings := make([]*entities.SensorReading, 0, len(req.Readings))
	for i := range req.Readings {
		in := &req.Readings[i]
		if reason := in.Problem(); reason != "" {
			result.Errors = append(result.Errors, ItemError{Index: i, Reason: reason})
			continue
		}
		reading := &entities.SensorReading{
			DeviceID:     req.DeviceID,
			SensorType:   in.SensorType,
			Value:        *in.Value,
			Unit:         in.Unit,
			GPSLatitude:  req.GPSLatitude,
			GPSLongitude: req.GPSLongitude,
		}
		if ts != nil {
			reading.Timestamp = *ts
		}
		if len(in.AdditionalData) > 0 {
			reading.AdditionalData = datatypes.JSON(in.AdditionalData)
		}
		readings = append(readings, reading)
	}

	err = uc.db.Transaction(ctx, func(tx db.Database) error {
		repos := repositories.New(tx)
		if _, err := repos.Devices.GetByID(ctx, req.DeviceID); err != nil {
			return err
		}

		session, created, err := uc.sessions.resolve(ctx, repos, req.DeviceID, req.SessionID, req.Description)
		if err != nil {
			return err
		}
		result.Session = session
		result.SessionCreated = created

		var batch *entities.DataBatch
		if req.BatchID != "" {
			if batch, err = uc.sessions.resolveBatch(ctx, repos, session, req.BatchID); err != nil {
				return err
			}
		}

		for _, r := range readings {
			r.SessionID = session.ID
		}
		if err := repos.Readings.CreateMany(ctx, readings); err != nil {
			return err
		}

		if batch != nil {
			n := int64(len(readings))
			if err := repos.Batches.IncrementCount(ctx, batch.ID, n); err != nil {
				return err
			}
			fresh, err := repos.Batches.GetByID(ctx, batch.ID)
			if err != nil {
				return err
			}
			result.BatchID = &fresh.ID
			result.BatchCount = &fresh.DataCount
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.AcceptedCount = len(readings)
	uc.metrics.AddReadings(source, result.AcceptedCount, len(result.Errors))
	uc.log.Debug("readings ingested",
		"device_id", req.DeviceID,
		"session_id", result.Session.ID,
		"accepted", result.AcceptedCount,
		"rejected", len(result.Errors),
	)
	return result, nil
}

func (uc *IngestUseCase) ListReadings(ctx context.Context, filter repositories.ReadingFilter) ([]entities.SensorReading, error) {
	return repositories.New(uc.db).Readings.List(ctx, filter)
}
