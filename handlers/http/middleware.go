package httpHandler

import (
	"strings"
	"time"

	"telemetry-server/apperr"
	"telemetry-server/auth"
	applog "telemetry-server/logger"

	"github.com/gin-gonic/gin"
)

const (
	APIKeyHeader = "X-API-KEY"

	ctxDeviceID  = "auth.device_id"
	ctxPrincipal = "auth.principal"
)

// RequestLogger logs one line per request at a level chosen by status.
func RequestLogger(log *applog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if id := c.GetString(ctxDeviceID); id != "" {
			fields = append(fields, "device_id", id)
		}
		if p := principalFrom(c); p != nil {
			fields = append(fields, "user_id", p.UserID)
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}

// RequireDevice authenticates the X-API-KEY header and stores the device ID.
func RequireDevice(authn *auth.DeviceAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID, err := authn.Authenticate(c.Request.Context(), strings.TrimSpace(c.GetHeader(APIKeyHeader)))
		if err != nil {
			respondError(c, nil, err)
			return
		}
		c.Set(ctxDeviceID, deviceID)
		c.Next()
	}
}

// RequireUser verifies the bearer token and stores the principal.
func RequireUser(jwt *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			respondError(c, nil, apperr.Unauthorized("missing or invalid token"))
			return
		}
		p, err := jwt.Verify(token)
		if err != nil {
			respondError(c, nil, apperr.Unauthorized("%s", err.Error()))
			return
		}
		c.Set(ctxPrincipal, p)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func deviceFrom(c *gin.Context) string {
	return c.GetString(ctxDeviceID)
}

// PrincipalFrom returns the user RequireUser authenticated, or nil.
func PrincipalFrom(c *gin.Context) *auth.Principal {
	return principalFrom(c)
}

func principalFrom(c *gin.Context) *auth.Principal {
	v, ok := c.Get(ctxPrincipal)
	if !ok {
		return nil
	}
	p, _ := v.(*auth.Principal)
	return p
}
