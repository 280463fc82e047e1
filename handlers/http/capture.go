package httpHandler

import (
	"net/http"
	"strconv"

	"telemetry-server/auth"
	applog "telemetry-server/logger"
	"telemetry-server/usecases"

	"github.com/gin-gonic/gin"
)

type CaptureHandler struct {
	captures *usecases.CaptureUseCase
	log      *applog.Logger
}

func NewCaptureHandler(captures *usecases.CaptureUseCase, log *applog.Logger) *CaptureHandler {
	return &CaptureHandler{captures: captures, log: log}
}

// WriteCapture handles POST /api/v1/captures
func (h *CaptureHandler) WriteCapture(c *gin.Context) {
	var req usecases.CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	p := principalFrom(c)
	if req.UserID == "" && p != nil {
		req.UserID = p.UserID
	}
	if err := auth.CanWriteCapture(p, req.UserID); err != nil {
		respondError(c, h.log, err)
		return
	}

	capture, _, err := h.captures.Write(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, capture)
}

// GetCaptures handles GET /api/v1/captures
func (h *CaptureHandler) GetCaptures(c *gin.Context) {
	p := principalFrom(c)
	userID := auth.ScopeUserID(p)
	if q := c.Query("user_id"); q != "" {
		if err := auth.CanReadUserData(p, q); err != nil {
			respondError(c, h.log, err)
			return
		}
		userID = q
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	captures, err := h.captures.List(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": captures, "count": len(captures)})
}

// GetCapture handles GET /api/v1/captures/:session_id
func (h *CaptureHandler) GetCapture(c *gin.Context) {
	capture, err := h.captures.Get(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := auth.CanReadUserData(principalFrom(c), capture.UserID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": capture})
}
