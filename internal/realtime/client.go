package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"family-lists-go/internal/wire"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	visibilityWait = 5 * time.Second
)

type Client struct {
	id     string
	userID string
	hub    *Hub
	conn   *websocket.Conn
	send   chan wire.Event

	mu    sync.RWMutex
	lists map[string]struct{}
}

func (c *Client) subscribed(listID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.lists[listID]
	return ok
}

func (c *Client) subscribe(listID string) {
	c.mu.Lock()
	c.lists[listID] = struct{}{}
	c.mu.Unlock()
}

func (c *Client) unsubscribe(listID string) {
	c.mu.Lock()
	delete(c.lists, listID)
	c.mu.Unlock()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Warn("realtime.read: connection closed", "client_id", c.id, "err", err)
			}
			return
		}

		var cmd wire.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.hub.log.Debug("realtime.read: bad frame", "client_id", c.id, "err", err)
			continue
		}
		c.handleCommand(cmd)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			event.Time = time.Now().Unix()
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleCommand(cmd wire.Command) {
	listID := strings.TrimSpace(cmd.ListID)
	switch cmd.Type {
	case wire.CommandSubscribe:
		if listID == "" {
			return
		}
		if c.hub.canView != nil {
			ctx, cancel := context.WithTimeout(context.Background(), visibilityWait)
			allowed := c.hub.canView(ctx, c.userID, listID)
			cancel()
			if !allowed {
				c.hub.log.Info("realtime.subscribe: list not visible", "client_id", c.id, "user_id", c.userID, "list_id", listID)
				return
			}
		}
		c.subscribe(listID)
		c.hub.sendTo(c, wire.Event{Type: wire.EventSubscribed, ListID: listID})

	case wire.CommandUnsubscribe:
		if listID == "" {
			return
		}
		c.unsubscribe(listID)
		c.hub.sendTo(c, wire.Event{Type: wire.EventUnsubscribed, ListID: listID})

	case wire.CommandPing:
		c.hub.sendTo(c, wire.Event{Type: wire.EventPong})

	default:
		c.hub.log.Debug("realtime.read: unknown command", "client_id", c.id, "type", cmd.Type)
	}
}
