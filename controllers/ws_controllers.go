package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/hospital-app/realtime"
	"github.com/yeremiapane/hospital-app/services"
	"github.com/yeremiapane/hospital-app/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // tighten per deployment
	},
}

// WSController serves the live notification stream
type WSController struct {
	Hub   *realtime.Hub
	Store *services.NotificationStore
}

func NewWSController(hub *realtime.Hub, store *services.NotificationStore) *WSController {
	return &WSController{Hub: hub, Store: store}
}

// NotificationStream -> WebSocket endpoint. The session registers with the
// hub on connect and is always unregistered on exit, including abrupt
// disconnects that surface as read errors.
func (wc *WSController) NotificationStream(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	sess := wc.Hub.Register(userID, ws)
	defer wc.Hub.Unregister(sess)

	audit := services.AuditContext{
		ActorID:   userID,
		SessionID: c.Request.Header.Get("Sec-WebSocket-Key"),
		ClientIP:  c.ClientIP(),
	}

	for {
		raw, err := sess.ReadMessage()
		if err != nil {
			break
		}
		wc.handleMessage(sess, userID, raw, audit)
	}
}

func (wc *WSController) handleMessage(sess *realtime.Session, userID uint, raw []byte, audit services.AuditContext) {
	var msg realtime.ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		sess.Send(realtime.ErrorFrame("Invalid JSON format"))
		return
	}

	switch msg.Type {
	case realtime.MsgMarkNotificationRead:
		if _, err := wc.Store.MarkRead(msg.NotificationID, userID, audit); err != nil {
			utils.InfoLogger.Printf("mark_notification_read %s for user %d: %v", msg.NotificationID, userID, err)
		}
	case realtime.MsgGetUnreadCount:
		count, err := wc.Store.UnreadCount(userID)
		if err != nil {
			sess.Send(realtime.ErrorFrame("Could not load unread count"))
			return
		}
		sess.Send(realtime.UnreadCountFrame(count))
	default:
		sess.Send(realtime.ErrorFrame("Unknown message type"))
	}
}
