package realtime

import (
	"net/http"

	realtimehub "family-lists-go/internal/realtime"
	"family-lists-go/internal/transport/httpserver/middleware"
	"family-lists-go/pkg/logger"
)

type Handlers struct {
	hub *realtimehub.Hub
	log logger.Logger
}

func New(hub *realtimehub.Hub, log logger.Logger) *Handlers {
	return &Handlers{hub: hub, log: logger.OrNop(log)}
}

// Subscribe upgrades to a websocket; anonymous viewers may follow public lists.
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	if err := h.hub.ServeWS(w, r, actor.ID); err != nil {
		// The upgrader has already written the error response.
		h.log.BusinessError("realtime.subscribe: upgrade failed", err, "user_id", actor.ID)
	}
}
