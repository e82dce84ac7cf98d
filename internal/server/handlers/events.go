package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/clipforge/clipforge/internal/events"
	"github.com/clipforge/clipforge/internal/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Same-origin policy is enforced upstream; the API is open by design
	// for local and reverse-proxied deployments.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// EventStream upgrades the connection to a websocket and forwards bus
// events to the client. Query parameters "types" and "sources" narrow the
// subscription; the recent event buffer is replayed on connect.
func EventStream(c *gin.Context) {
	bus := events.GetGlobalEventBus()
	if bus == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event bus unavailable"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	filter := filterFromQuery(c)

	// Serialize writes: the subscription handler and the ping loop both
	// touch the connection.
	var writeMu sync.Mutex
	send := func(event events.Event) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(event)
	}

	for _, event := range bus.RecentEvents() {
		if !filter.Matches(event) {
			continue
		}
		if err := send(event); err != nil {
			return
		}
	}

	closed := make(chan struct{})
	var closeOnce sync.Once

	sub, err := bus.Subscribe(filter, func(event events.Event) error {
		if err := send(event); err != nil {
			closeOnce.Do(func() { close(closed) })
			return err
		}
		return nil
	})
	if err != nil {
		logger.Warn("event subscription failed", "error", err)
		return
	}
	defer bus.Unsubscribe(sub.ID)

	// Reader loop: we ignore client messages but need the read pump to
	// notice disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeOnce.Do(func() { close(closed) })
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func filterFromQuery(c *gin.Context) events.EventFilter {
	var filter events.EventFilter
	for _, t := range c.QueryArray("types") {
		filter.Types = append(filter.Types, events.EventType(t))
	}
	filter.Sources = c.QueryArray("sources")
	return filter
}
