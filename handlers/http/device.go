package httpHandler

import (
	"net/http"

	"telemetry-server/auth"
	"telemetry-server/entities"
	applog "telemetry-server/logger"
	"telemetry-server/usecases"
	"telemetry-server/ws"

	"github.com/gin-gonic/gin"
)

type DeviceHandler struct {
	useCase *usecases.DeviceUseCase
	streams *ws.Manager
	log     *applog.Logger
}

func NewDeviceHandler(useCase *usecases.DeviceUseCase, streams *ws.Manager, log *applog.Logger) *DeviceHandler {
	return &DeviceHandler{useCase: useCase, streams: streams, log: log}
}

// CreateDevice handles POST /api/v1/devices
func (h *DeviceHandler) CreateDevice(c *gin.Context) {
	var req usecases.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	p := principalFrom(c)
	if req.UserID == "" {
		req.UserID = p.UserID
	}
	if err := auth.CanManageDevice(p, &entities.Device{UserID: req.UserID}); err != nil {
		respondError(c, h.log, err)
		return
	}

	device, apiKey, err := h.useCase.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Device created successfully",
		"data":    device,
		"api_key": apiKey,
	})
}

// GetDevice handles GET /api/v1/devices/:id
func (h *DeviceHandler) GetDevice(c *gin.Context) {
	device, err := h.useCase.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := auth.CanManageDevice(principalFrom(c), device); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":      device,
		"connected": h.streams.IsConnected(device.ID),
	})
}

// GetAllDevices handles GET /api/v1/devices
func (h *DeviceHandler) GetAllDevices(c *gin.Context) {
	devices, err := h.useCase.List(c.Request.Context(), auth.ScopeUserID(principalFrom(c)))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": devices, "count": len(devices)})
}

// DeleteDevice handles DELETE /api/v1/devices/:id
func (h *DeviceHandler) DeleteDevice(c *gin.Context) {
	ctx := c.Request.Context()
	device, err := h.useCase.Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := auth.CanManageDevice(principalFrom(c), device); err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := h.useCase.Delete(ctx, device.ID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Device deleted successfully"})
}
