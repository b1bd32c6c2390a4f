package lists

import (
	"net/http"

	listsdomain "family-lists-go/internal/domain/lists"
	"family-lists-go/internal/transport/httpserver/middleware"
	"family-lists-go/internal/wire"
	"github.com/go-chi/chi/v5"
)

func (h *Handlers) AddItem(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	listID := chi.URLParam(r, "list_id")

	var req wire.CreateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json")
		return
	}

	view, err := h.Lists.AddItem(r.Context(), actor, listsdomain.CreateItemInput{
		ListID:      listID,
		Text:        req.Text,
		ImageURL:    req.ImageURL,
		Priority:    req.Priority,
		Details:     req.Details,
		Brand:       req.Brand,
		Store:       req.Store,
		ApproxPrice: req.ApproxPrice,
	})
	if err != nil {
		h.writeDomainError(w, "items.add", err, "user_id", actor.ID, "list_id", listID)
		return
	}

	writeData(w, http.StatusCreated, itemPayload(view.Item, view.UserRating))
}

func (h *Handlers) ToggleItem(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	listID := chi.URLParam(r, "list_id")
	itemID := chi.URLParam(r, "item_id")

	item, err := h.Lists.ToggleItem(r.Context(), actor, listID, itemID)
	if err != nil {
		h.writeDomainError(w, "items.toggle", err, "user_id", actor.ID, "list_id", listID, "item_id", itemID)
		return
	}

	writeData(w, http.StatusOK, wire.TogglePayload{IsCompleted: wire.Ptr(item.IsCompleted)})
}

func (h *Handlers) DeleteItem(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	listID := chi.URLParam(r, "list_id")
	itemID := chi.URLParam(r, "item_id")

	if err := h.Lists.DeleteItem(r.Context(), actor, listID, itemID); err != nil {
		h.writeDomainError(w, "items.delete", err, "user_id", actor.ID, "list_id", listID, "item_id", itemID)
		return
	}

	writeData[any](w, http.StatusOK, nil)
}
