package httpHandler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"telemetry-server/auth"
	applog "telemetry-server/logger"
	"telemetry-server/repositories"
	"telemetry-server/usecases"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

type QueryHandler struct {
	ingest   *usecases.IngestUseCase
	sessions *usecases.SessionUseCase
	log      *applog.Logger
}

func NewQueryHandler(ingest *usecases.IngestUseCase, sessions *usecases.SessionUseCase, log *applog.Logger) *QueryHandler {
	return &QueryHandler{ingest: ingest, sessions: sessions, log: log}
}

// GetReadings handles GET /api/v1/readings
// Filters: device_id, session_id, sensor_type, start_date, end_date (YYYY-MM-DD,
// both inclusive), limit.
func (h *QueryHandler) GetReadings(c *gin.Context) {
	filter := repositories.ReadingFilter{
		UserID:     auth.ScopeUserID(principalFrom(c)),
		DeviceID:   c.Query("device_id"),
		SessionID:  c.Query("session_id"),
		SensorType: c.Query("sensor_type"),
		Limit:      repositories.DefaultReadingLimit,
	}
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	if raw := c.Query("start_date"); raw != "" {
		d, err := time.Parse(dateLayout, raw)
		if err != nil {
			badRequest(c, "start_date must be YYYY-MM-DD", err)
			return
		}
		filter.Start = &d
	}
	if raw := c.Query("end_date"); raw != "" {
		d, err := time.Parse(dateLayout, raw)
		if err != nil {
			badRequest(c, "end_date must be YYYY-MM-DD", err)
			return
		}
		end := d.AddDate(0, 0, 1)
		filter.End = &end
	}

	readings, err := h.ingest.ListReadings(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  readings,
		"count": len(readings),
		"filters_applied": gin.H{
			"device_id":   filter.DeviceID,
			"session_id":  filter.SessionID,
			"sensor_type": filter.SensorType,
			"limit":       filter.Limit,
			"start_date":  c.Query("start_date"),
			"end_date":    c.Query("end_date"),
		},
	})
}

// GetSessions handles GET /api/v1/sessions
func (h *QueryHandler) GetSessions(c *gin.Context) {
	filter := repositories.SessionFilter{
		UserID:   auth.ScopeUserID(principalFrom(c)),
		DeviceID: c.Query("device_id"),
	}
	if raw := c.Query("is_active"); raw != "" {
		active := strings.EqualFold(raw, "true")
		filter.IsActive = &active
	}

	sessions, err := h.sessions.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions, "count": len(sessions)})
}
