package lists

import (
	"net/http"
	"strings"

	listsdomain "family-lists-go/internal/domain/lists"
	"family-lists-go/internal/transport/httpserver/middleware"
	"family-lists-go/internal/wire"
	"github.com/go-chi/chi/v5"
)

func (h *Handlers) ListLists(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())

	query := r.URL.Query()
	limit, err := parseIntParam(query.Get("limit"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return
	}
	offset, err := parseIntParam(query.Get("offset"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid offset")
		return
	}
	scope := listsdomain.Scope(strings.ToLower(strings.TrimSpace(query.Get("scope"))))
	if scope == "" {
		scope = listsdomain.ScopePublic
	}

	views, err := h.Lists.ListLists(r.Context(), actor, listsdomain.ListFilter{
		Scope:  scope,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.writeDomainError(w, "lists.list", err, "user_id", actor.ID, "scope", scope)
		return
	}

	writeData(w, http.StatusOK, listPayloads(views, actor.ID))
}

func (h *Handlers) GetList(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	listID := chi.URLParam(r, "list_id")

	view, err := h.Lists.GetList(r.Context(), actor, listID)
	if err != nil {
		h.writeDomainError(w, "lists.get", err, "user_id", actor.ID, "list_id", listID)
		return
	}

	writeData(w, http.StatusOK, listPayload(*view, actor.ID))
}

func (h *Handlers) CreateList(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())

	var req wire.CreateListRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json")
		return
	}

	view, err := h.Lists.CreateList(r.Context(), actor, listsdomain.CreateListInput{
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		h.writeDomainError(w, "lists.create", err, "user_id", actor.ID)
		return
	}

	writeData(w, http.StatusCreated, listPayload(*view, actor.ID))
}

func (h *Handlers) UpdateList(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	listID := chi.URLParam(r, "list_id")

	var req wire.UpdateListRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json")
		return
	}

	view, err := h.Lists.UpdateList(r.Context(), actor, listsdomain.UpdateListInput{
		ID:          listID,
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		h.writeDomainError(w, "lists.update", err, "user_id", actor.ID, "list_id", listID)
		return
	}

	writeData(w, http.StatusOK, listPayload(*view, actor.ID))
}

func (h *Handlers) DeleteList(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	listID := chi.URLParam(r, "list_id")

	if err := h.Lists.DeleteList(r.Context(), actor, listID); err != nil {
		h.writeDomainError(w, "lists.delete", err, "user_id", actor.ID, "list_id", listID)
		return
	}

	writeData[any](w, http.StatusOK, nil)
}

func (h *Handlers) ToggleStar(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	listID := chi.URLParam(r, "list_id")

	result, err := h.Lists.ToggleStar(r.Context(), actor, listID)
	if err != nil {
		h.writeDomainError(w, "lists.star", err, "user_id", actor.ID, "list_id", listID)
		return
	}

	writeData(w, http.StatusOK, wire.StarPayload{
		StarsCount: result.StarsCount,
		IsStarred:  result.IsStarred,
	})
}

func (h *Handlers) CopyList(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	listID := chi.URLParam(r, "list_id")

	list, err := h.Lists.CopyList(r.Context(), actor, listID)
	if err != nil {
		h.writeDomainError(w, "lists.copy", err, "user_id", actor.ID, "list_id", listID)
		return
	}

	writeData(w, http.StatusCreated, wire.CopyPayload{
		ID:    wire.Ptr(list.ID),
		Title: list.Title,
	})
}
