package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"platewatch/internal/logger"
	"platewatch/internal/service"
	ws "platewatch/internal/service/websocket"

	"github.com/gorilla/websocket"
)

const (
	feedWriteTimeout = 5 * time.Second
	feedReadLimit    = 512
)

var feedUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// feedHello is the first message on a decision feed, so a viewer that joins
// mid-run sees the current state before the next decision arrives.
type feedHello struct {
	Type   string         `json:"type"`
	Status service.Status `json:"status"`
}

// DecisionFeedHandler streams every reported decision to the viewer as JSON.
// Viewers only listen; anything they send is discarded.
func DecisionFeedHandler(hub *ws.HubService, status StatusProvider, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := feedUpgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("Decision feed upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		// the hub owns writes once registered
		hello, _ := json.Marshal(feedHello{Type: "status", Status: status.Status()})
		conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
			logger.Warning("Decision feed %s dropped before registering: %v", r.RemoteAddr, err)
			return
		}
		conn.SetWriteDeadline(time.Time{})

		hub.Register(conn)
		defer hub.Unregister(conn)
		logger.Info("Decision feed opened for %s", r.RemoteAddr)

		conn.SetReadLimit(feedReadLimit)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Decision feed closed by %s", r.RemoteAddr)
				} else {
					logger.Warning("Decision feed for %s ended: %v", r.RemoteAddr, err)
				}
				return
			}
		}
	}
}
