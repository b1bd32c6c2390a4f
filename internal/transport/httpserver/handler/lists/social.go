package lists

import (
	"net/http"

	"family-lists-go/internal/transport/httpserver/middleware"
	"family-lists-go/internal/wire"
	"github.com/go-chi/chi/v5"
)

func (h *Handlers) RateItem(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	listID := chi.URLParam(r, "list_id")
	itemID := chi.URLParam(r, "item_id")

	var req wire.RateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json")
		return
	}

	result, err := h.Lists.RateItem(r.Context(), actor, listID, itemID, req.Rating)
	if err != nil {
		h.writeDomainError(w, "items.rate", err, "user_id", actor.ID, "list_id", listID, "item_id", itemID)
		return
	}

	writeData(w, http.StatusOK, wire.RatingPayload{
		AverageRating: result.AverageRating,
		TotalRatings:  wire.Ptr(result.TotalRatings),
		UserRating:    result.UserRating,
	})
}

func (h *Handlers) ListComments(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	listID := chi.URLParam(r, "list_id")
	itemID := chi.URLParam(r, "item_id")

	comments, err := h.Lists.ListComments(r.Context(), actor, listID, itemID)
	if err != nil {
		h.writeDomainError(w, "comments.list", err, "user_id", actor.ID, "list_id", listID, "item_id", itemID)
		return
	}

	payloads := make([]wire.CommentPayload, 0, len(comments))
	for _, comment := range comments {
		payloads = append(payloads, commentPayload(comment))
	}
	writeData(w, http.StatusOK, payloads)
}

func (h *Handlers) AddComment(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	listID := chi.URLParam(r, "list_id")
	itemID := chi.URLParam(r, "item_id")

	var req wire.CommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json")
		return
	}

	result, err := h.Lists.AddComment(r.Context(), actor, listID, itemID, req.Text)
	if err != nil {
		h.writeDomainError(w, "comments.add", err, "user_id", actor.ID, "list_id", listID, "item_id", itemID)
		return
	}

	payload := commentPayload(result.Comment)
	payload.ItemCommentsCount = wire.Ptr(result.ItemCommentsCount)
	writeData(w, http.StatusCreated, payload)
}
