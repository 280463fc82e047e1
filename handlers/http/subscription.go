package httpHandler

import (
	"net/http"

	"telemetry-server/auth"
	applog "telemetry-server/logger"
	"telemetry-server/usecases"

	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	subscriptions *usecases.SubscriptionUseCase
	log           *applog.Logger
}

func NewSubscriptionHandler(subscriptions *usecases.SubscriptionUseCase, log *applog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions, log: log}
}

// PutSubscription handles PUT /api/v1/subscriptions/:user_id (admin only)
func (h *SubscriptionHandler) PutSubscription(c *gin.Context) {
	if err := auth.CanManageSubscriptions(principalFrom(c)); err != nil {
		respondError(c, h.log, err)
		return
	}
	var req usecases.SubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	sub, err := h.subscriptions.Set(c.Request.Context(), c.Param("user_id"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sub})
}

// GetSubscription handles GET /api/v1/subscriptions/:user_id
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	userID := c.Param("user_id")
	if err := auth.CanReadUserData(principalFrom(c), userID); err != nil {
		respondError(c, h.log, err)
		return
	}
	sub, err := h.subscriptions.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":            sub,
		"remaining_space": sub.RemainingSpace(),
	})
}
