package mediamodule

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/merchly/catalogmedia/internal/events"
	"github.com/merchly/catalogmedia/internal/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The admin console is served from a different origin in dev
	CheckOrigin: func(r *http.Request) bool { return true },
}

// progressStreamHandler handles GET /api/media/sessions/:id/progress.
// It upgrades to a websocket and forwards the session's event stream
// (transcode, upload progress, batch outcome) until the client leaves.
func (m *Module) progressStreamHandler(c *gin.Context) {
	sessionID := c.Param("id")
	if _, ok := m.manager.GetSession(sessionID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	eventBus := events.GetGlobalEventBus()
	if eventBus == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event bus unavailable"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("Failed to upgrade progress stream for session %s: %v", sessionID, err)
		return
	}
	defer conn.Close()

	// Buffered so a slow client drops events instead of stalling the bus
	stream := make(chan events.Event, 64)

	filter := events.EventFilter{Targets: []string{sessionID}}
	subscription, err := eventBus.Subscribe(c.Request.Context(), filter, func(event events.Event) error {
		select {
		case stream <- event:
		default:
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to subscribe progress stream for session %s: %v", sessionID, err)
		return
	}
	defer eventBus.Unsubscribe(subscription.ID)

	// Reader goroutine: we only care about the close handshake
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case event := <-stream:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
