// Package realtime fans list change events out to websocket subscribers.
package realtime

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"family-lists-go/internal/wire"
	"family-lists-go/pkg/logger"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var errHubStopped = errors.New("realtime hub stopped")

// VisibilityFunc reports whether userID may watch listID.
type VisibilityFunc func(ctx context.Context, userID, listID string) bool

type Options struct {
	AllowedOrigins []string
	CanView        VisibilityFunc
}

// Hub keeps the connected clients. Run owns the client set; everything else
// talks to it over channels.
type Hub struct {
	log      logger.Logger
	upgrader websocket.Upgrader
	canView  VisibilityFunc

	register   chan *Client
	unregister chan *Client
	broadcast  chan wire.Event
	done       chan struct{}

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func NewHub(log logger.Logger, opts Options) *Hub {
	h := &Hub{
		log:        logger.OrNop(log),
		canView:    opts.CanView,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan wire.Event, 256),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(opts.AllowedOrigins),
	}
	return h
}

func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowed[origin] = struct{}{}
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

// Run processes registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("realtime.register: client connected", "client_id", client.id, "user_id", client.userID, "clients", total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.log.Debug("realtime.unregister: client disconnected", "client_id", client.id, "user_id", client.userID)

		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

func (h *Hub) deliver(event wire.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if !client.subscribed(event.ListID) {
			continue
		}
		select {
		case client.send <- event:
		default:
			h.log.Warn("realtime.broadcast: slow client dropped", "client_id", client.id, "user_id", client.userID)
			close(client.send)
			delete(h.clients, client)
		}
	}
}

// sendTo delivers a reply to one client if it is still registered.
func (h *Hub) sendTo(client *Client, event wire.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	select {
	case client.send <- event:
	default:
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues an event without blocking the caller.
func (h *Hub) Publish(event wire.Event) {
	select {
	case h.broadcast <- event:
	default:
		h.log.Warn("realtime.publish: queue full, event dropped", "type", event.Type, "list_id", event.ListID)
	}
}

func (h *Hub) ListChanged(listID, itemID string) {
	eventType := wire.EventListUpdate
	if itemID != "" {
		eventType = wire.EventItemUpdate
	}
	h.Publish(wire.Event{Type: eventType, ListID: listID, ItemID: itemID})
}

func (h *Hub) ListDeleted(listID string) {
	h.Publish(wire.Event{Type: wire.EventListDeleted, ListID: listID})
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and starts the client pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &Client{
		id:     "client_" + uuid.NewString(),
		userID: userID,
		hub:    h,
		conn:   conn,
		send:   make(chan wire.Event, 64),
		lists:  make(map[string]struct{}),
	}
	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return errHubStopped
	}

	go client.writePump()
	go client.readPump()
	return nil
}
