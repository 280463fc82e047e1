package httpHandler

import (
	"errors"

	"telemetry-server/apperr"
	applog "telemetry-server/logger"

	"github.com/gin-gonic/gin"
)

// respondError renders err as {"error", "kind", "details"} with the status
// its kind maps to. Internal errors are logged and hidden from the client.
func respondError(c *gin.Context, log *applog.Logger, err error) {
	status := apperr.HTTPStatus(err)
	kind := apperr.KindOf(err)
	body := gin.H{
		"error": apperr.PublicMessage(err),
		"kind":  kind,
	}
	var e *apperr.Error
	if errors.As(err, &e) && e.Details != nil && kind != apperr.KindInternal {
		body["details"] = e.Details
	}
	if kind == apperr.KindInternal && log != nil {
		log.Error("request failed", "path", c.FullPath(), "error", err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, msg string, err error) {
	e := apperr.InvalidArgument("%s", msg)
	if err != nil {
		e = e.WithDetails(err.Error())
	}
	respondError(c, nil, e)
}
