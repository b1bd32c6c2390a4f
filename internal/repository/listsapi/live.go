package listsapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"family-lists-go/internal/wire"
	"family-lists-go/pkg/logger"
	"github.com/gorilla/websocket"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = (livePongWait * 9) / 10
	liveMinBackoff = time.Second
	liveMaxBackoff = 30 * time.Second
)

// ChangeHandler receives change notifications; the coordinator satisfies it.
type ChangeHandler interface {
	HandleRemoteChange(ctx context.Context, listID string) error
	HandleRemoteDelete(listID string)
}

// Live keeps a websocket to the service open and forwards list change events.
// Subscriptions survive reconnects.
type Live struct {
	url    string
	token  TokenFunc
	target ChangeHandler
	dialer *websocket.Dialer
	log    logger.Logger

	mu   sync.Mutex
	conn *websocket.Conn
	subs map[string]struct{}
}

func NewLive(baseURL string, token TokenFunc, target ChangeHandler, log logger.Logger) *Live {
	return &Live{
		url:    websocketURL(baseURL),
		token:  token,
		target: target,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		log:    logger.OrNop(log),
		subs:   make(map[string]struct{}),
	}
}

func websocketURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/api/ws"
}

// Run connects and reads events until ctx is done, reconnecting with backoff.
func (l *Live) Run(ctx context.Context) error {
	backoff := liveMinBackoff
	for {
		err := l.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			l.log.Warn("listsapi.live: connection lost", "err", err, "retry_in", backoff)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > liveMaxBackoff {
			backoff = liveMaxBackoff
		}
	}
}

func (l *Live) session(ctx context.Context) error {
	conn, err := l.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	l.mu.Lock()
	l.conn = conn
	ids := make([]string, 0, len(l.subs))
	for id := range l.subs {
		ids = append(ids, id)
	}
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.conn = nil
		l.mu.Unlock()
	}()

	for _, id := range ids {
		if err := l.send(wire.Command{Type: wire.CommandSubscribe, ListID: id}); err != nil {
			return err
		}
	}

	stop := make(chan struct{})
	defer close(stop)
	go l.keepAlive(ctx, conn, stop)

	_ = conn.SetReadDeadline(time.Now().Add(livePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		var event wire.Event
		if err := json.Unmarshal(data, &event); err != nil {
			l.log.Debug("listsapi.live: bad frame", "err", err)
			continue
		}
		if !event.Changed() {
			continue
		}
		if event.Type == wire.EventListDeleted {
			l.target.HandleRemoteDelete(event.ListID)
			continue
		}
		if err := l.target.HandleRemoteChange(ctx, event.ListID); err != nil {
			l.log.Warn("listsapi.live: refresh failed", "err", err, "list_id", event.ListID)
		}
	}
}

func (l *Live) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if l.token != nil {
		token, err := l.token(ctx)
		if err != nil {
			return nil, err
		}
		if token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}
	conn, _, err := l.dialer.DialContext(ctx, l.url, header)
	return conn, err
}

func (l *Live) keepAlive(ctx context.Context, conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(livePingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			l.mu.Lock()
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(liveWriteWait))
			l.mu.Unlock()
			_ = conn.Close()
			return
		case <-stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteWait))
			l.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// Subscribe starts forwarding events for a list. It is remembered while
// disconnected and replayed on the next connection.
func (l *Live) Subscribe(listID string) error {
	l.mu.Lock()
	l.subs[listID] = struct{}{}
	l.mu.Unlock()
	return l.sendIfConnected(wire.Command{Type: wire.CommandSubscribe, ListID: listID})
}

func (l *Live) Unsubscribe(listID string) error {
	l.mu.Lock()
	delete(l.subs, listID)
	l.mu.Unlock()
	return l.sendIfConnected(wire.Command{Type: wire.CommandUnsubscribe, ListID: listID})
}

var errNotConnected = errors.New("live connection not established")

func (l *Live) sendIfConnected(cmd wire.Command) error {
	err := l.send(cmd)
	if errors.Is(err, errNotConnected) {
		return nil
	}
	return err
}

func (l *Live) send(cmd wire.Command) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return errNotConnected
	}
	_ = l.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	return l.conn.WriteJSON(cmd)
}
