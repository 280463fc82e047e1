package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"telemetry-server/apperr"
	"telemetry-server/auth"
	httpHandler "telemetry-server/handlers/http"
	applog "telemetry-server/logger"
	"telemetry-server/metrics"
	"telemetry-server/usecases"
	"telemetry-server/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	msgSensorReadings = "sensor_readings"
	msgCloseSession   = "close_session"
	msgHeartbeat      = "heartbeat"

	maxMessageSize = 1 << 20
	pongWait       = 60 * time.Second
)

// incomingMessage is the envelope every device frame carries. The remaining
// fields depend on Type.
type incomingMessage struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
	SessionID string `json:"session_id"`
}

type ackMessage struct {
	Type      string                 `json:"type"`
	MessageID string                 `json:"message_id,omitempty"`
	Result    *usecases.IngestResult `json:"result,omitempty"`
	Session   interface{}            `json:"session,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Kind      apperr.Kind            `json:"kind,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// WSHandler streams device readings through the same resolver and
// aggregator as the HTTP ingest endpoint.
type WSHandler struct {
	mgr      *ws.Manager
	authn    *auth.DeviceAuthenticator
	ingest   *usecases.IngestUseCase
	sessions *usecases.SessionUseCase
	log      *applog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(mgr *ws.Manager, authn *auth.DeviceAuthenticator, ingest *usecases.IngestUseCase, sessions *usecases.SessionUseCase, log *applog.Logger) *WSHandler {
	return &WSHandler{
		mgr:      mgr,
		authn:    authn,
		ingest:   ingest,
		sessions: sessions,
		log:      log.With("component", "ws"),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// HandleDeviceWS upgrades to websocket and reads messages from a device.
// GET /ws?device_id=<device_id> with the X-API-KEY header
func (h *WSHandler) HandleDeviceWS(c *gin.Context) {
	deviceID := c.Query("device_id")
	if deviceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing device_id", "kind": apperr.KindInvalidArgument})
		return
	}
	authDeviceID, err := h.authn.Authenticate(c.Request.Context(), strings.TrimSpace(c.GetHeader("X-API-KEY")))
	if err == nil {
		err = auth.CanIngestForDevice(authDeviceID, deviceID)
	}
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.PublicMessage(err), "kind": apperr.KindOf(err)})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "device_id", deviceID, "error", err)
		return
	}
	client := ws.NewClient(deviceID, c.ClientIP(), conn)
	h.mgr.Register(client)
	h.log.Info("device connected", "device_id", deviceID)
	defer func() {
		h.mgr.Unregister(client)
		h.log.Info("device disconnected", "device_id", deviceID)
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("read error", "device_id", deviceID, "error", err)
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		client.Touch()

		if ack := h.handleMessage(c, deviceID, message); ack != nil {
			if err := client.WriteJSON(ack); err != nil {
				h.log.Warn("write ack failed", "device_id", deviceID, "error", err)
				return
			}
		}
	}
}

func (h *WSHandler) handleMessage(c *gin.Context, deviceID string, message []byte) *ackMessage {
	ctx := c.Request.Context()
	var base incomingMessage
	if err := json.Unmarshal(message, &base); err != nil {
		return errorAck("", apperr.InvalidArgument("invalid json"))
	}

	switch base.Type {
	case msgSensorReadings:
		var req usecases.IngestRequest
		if err := json.Unmarshal(message, &req); err != nil {
			return errorAck(base.MessageID, apperr.InvalidArgument("invalid sensor_readings payload"))
		}
		// the connection is bound to one device
		req.DeviceID = deviceID
		res, err := h.ingest.Ingest(ctx, req, metrics.SourceStream)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindInternal {
				h.log.Error("stream ingest failed", "device_id", deviceID, "error", err)
			}
			return errorAck(base.MessageID, err)
		}
		return &ackMessage{Type: "ack", MessageID: base.MessageID, Result: res, Timestamp: time.Now().UTC()}

	case msgCloseSession:
		session, err := h.sessions.Close(ctx, deviceID, base.SessionID)
		if err != nil {
			return errorAck(base.MessageID, err)
		}
		return &ackMessage{Type: "ack", MessageID: base.MessageID, Session: session, Timestamp: time.Now().UTC()}

	case msgHeartbeat:
		return &ackMessage{Type: "heartbeat_ack", MessageID: base.MessageID, Timestamp: time.Now().UTC()}

	default:
		return errorAck(base.MessageID, apperr.InvalidArgument("unknown message type %q", base.Type))
	}
}

func errorAck(messageID string, err error) *ackMessage {
	return &ackMessage{
		Type:      "error",
		MessageID: messageID,
		Error:     apperr.PublicMessage(err),
		Kind:      apperr.KindOf(err),
		Timestamp: time.Now().UTC(),
	}
}

// GetConnectedDevices GET /api/v1/devices/connected
func (h *WSHandler) GetConnectedDevices(c *gin.Context) {
	if err := auth.RequireAdmin(httpHandler.PrincipalFrom(c)); err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.PublicMessage(err), "kind": apperr.KindOf(err)})
		return
	}
	devices := h.mgr.List()
	c.JSON(http.StatusOK, gin.H{"devices": devices, "count": len(devices)})
}
