package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/expo-access/internal/model"
	"github.com/iliyamo/expo-access/internal/notify"
	"github.com/iliyamo/expo-access/internal/service"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsReadLimit  = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The token check already ran; dashboards are served from other origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NotificationHandler serves the notification inbox of the caller and its
// live feed.  Admins read the shared admin inbox; exhibitor staff read the
// inbox of their company.
type NotificationHandler struct {
	Store *notify.Store
	Hub   *notify.Hub
	Admin string
	Log   *zap.Logger
}

func NewNotificationHandler(store *notify.Store, hub *notify.Hub, admin string, log *zap.Logger) *NotificationHandler {
	if store == nil || hub == nil {
		panic("nil dependency passed to NewNotificationHandler")
	}
	return &NotificationHandler{Store: store, Hub: hub, Admin: admin, Log: log}
}

// wsMessage is the envelope of every frame pushed to the live feed.
type wsMessage struct {
	Type         string              `json:"type"`
	Notification *model.Notification `json:"notification,omitempty"`
	Unread       *int64              `json:"unread,omitempty"`
}

func (h *NotificationHandler) recipient(c echo.Context) (string, error) {
	if exh, scoped := exhibitorScope(c); scoped {
		if exh == 0 {
			return "", service.ErrForbidden
		}
		return notify.ExhibitorRecipient(exh), nil
	}
	if getRole(c) == model.RoleAdmin {
		return h.Admin, nil
	}
	return "", service.ErrForbidden
}

// storeError reports a failed inbox call; connection failures become a 502
// naming redis.
func (h *NotificationHandler) storeError(c echo.Context, err error) error {
	return respondError(c, h.Log, service.Unreachable("redis", err))
}

// List handles GET /v1/notifications?limit=.
func (h *NotificationHandler) List(c echo.Context) error {
	rcpt, err := h.recipient(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	limit, err := queryInt(c, "limit", 50)
	if err != nil || limit <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "limit must be a positive integer"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	out, err := h.Store.List(ctx, rcpt, limit)
	if err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(http.StatusOK, items(out))
}

// UnreadCount handles GET /v1/notifications/unread-count.
func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	rcpt, err := h.recipient(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	n, err := h.Store.UnreadCount(ctx, rcpt)
	if err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"unread": n})
}

// MarkRead handles POST /v1/notifications/:id/read.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	rcpt, err := h.recipient(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	changed, err := h.Store.MarkRead(ctx, rcpt, c.Param("id"))
	if err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": c.Param("id"), "changed": changed})
}

// MarkAllRead handles POST /v1/notifications/read-all.
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	rcpt, err := h.recipient(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Store.MarkAllRead(ctx, rcpt); err != nil {
		return h.storeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Live handles GET /v1/notifications/ws.  After the upgrade the server
// sends a "hello" frame with the unread count, then one "notification"
// frame per new notification.  Notifications raised while the socket is
// closed are only available through List.
func (h *NotificationHandler) Live(c echo.Context) error {
	rcpt, err := h.recipient(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.Log.Debug("websocket upgrade failed", zap.Error(err))
		return nil
	}
	sub := h.Hub.Subscribe(rcpt)
	h.Log.Debug("live feed connected", zap.String("recipient", rcpt), zap.Int("subscribers", h.Hub.Len()))

	var unread *int64
	if n, err := h.Store.UnreadCount(c.Request().Context(), rcpt); err == nil {
		unread = &n
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(wsMessage{Type: "hello", Unread: unread}); err != nil {
		h.Hub.Unsubscribe(sub)
		_ = conn.Close()
		return nil
	}

	done := make(chan struct{})
	go h.readPump(conn, done)
	h.writePump(conn, sub, done)

	h.Hub.Unsubscribe(sub)
	_ = conn.Close()
	h.Log.Debug("live feed closed", zap.String("recipient", rcpt))
	return nil
}

// readPump discards client frames and keeps the read deadline moving on
// pongs.  done is closed when the client goes away.
func (h *NotificationHandler) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.Log.Debug("live feed read failed", zap.Error(err))
			}
			return
		}
	}
}

func (h *NotificationHandler) writePump(conn *websocket.Conn, sub *notify.Subscriber, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case n, ok := <-sub.C():
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := conn.WriteJSON(wsMessage{Type: "notification", Notification: &n}); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
