package httpHandler

import (
	"net/http"

	"telemetry-server/auth"
	applog "telemetry-server/logger"
	"telemetry-server/metrics"
	"telemetry-server/usecases"

	"github.com/gin-gonic/gin"
)

type IngestHandler struct {
	ingest   *usecases.IngestUseCase
	sessions *usecases.SessionUseCase
	log      *applog.Logger
}

func NewIngestHandler(ingest *usecases.IngestUseCase, sessions *usecases.SessionUseCase, log *applog.Logger) *IngestHandler {
	return &IngestHandler{ingest: ingest, sessions: sessions, log: log}
}

// Ingest handles POST /api/v1/ingest
func (h *IngestHandler) Ingest(c *gin.Context) {
	var req usecases.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	if req.DeviceID == "" {
		badRequest(c, "device_id is required", nil)
		return
	}
	if err := auth.CanIngestForDevice(deviceFrom(c), req.DeviceID); err != nil {
		respondError(c, h.log, err)
		return
	}

	res, err := h.ingest.Ingest(c.Request.Context(), req, metrics.SourceHTTP)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// CloseSession handles POST /api/v1/sessions/:session_id/close
func (h *IngestHandler) CloseSession(c *gin.Context) {
	session, err := h.sessions.Close(c.Request.Context(), deviceFrom(c), c.Param("session_id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": session})
}
