package wire

// Realtime frames sent over the /api/ws websocket.
const (
	EventListUpdate   = "list_update"
	EventItemUpdate   = "item_update"
	EventListDeleted  = "list_deleted"
	EventSubscribed   = "subscribed"
	EventUnsubscribed = "unsubscribed"
	EventPong         = "pong"

	CommandSubscribe   = "subscribe"
	CommandUnsubscribe = "unsubscribe"
	CommandPing        = "ping"
)

// Event is a server-to-client frame.
type Event struct {
	Type   string `json:"type"`
	ListID string `json:"listId,omitempty"`
	ItemID string `json:"itemId,omitempty"`
	Time   int64  `json:"time"`
}

// Command is a client-to-server frame.
type Command struct {
	Type   string `json:"type"`
	ListID string `json:"listId,omitempty"`
}

// Changed reports whether the event means a list's content moved on.
func (e Event) Changed() bool {
	switch e.Type {
	case EventListUpdate, EventItemUpdate, EventListDeleted:
		return e.ListID != ""
	default:
		return false
	}
}
