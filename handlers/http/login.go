package httpHandler

import (
	"net/http"

	applog "telemetry-server/logger"
	"telemetry-server/usecases"

	"github.com/gin-gonic/gin"
)

type LoginHandler struct {
	users *usecases.UserUseCase
	log   *applog.Logger
}

func NewLoginHandler(users *usecases.UserUseCase, log *applog.Logger) *LoginHandler {
	return &LoginHandler{users: users, log: log}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/v1/auth/login
func (h *LoginHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request", err)
		return
	}

	res, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      res.Token,
		"expires_at": res.ExpiresAt,
		"user_id":    res.User.ID,
		"role":       res.User.Role,
		"success":    true,
	})
}
