package lists

import (
	"errors"
	"net/http"

	listsdomain "family-lists-go/internal/domain/lists"
	commonhandler "family-lists-go/internal/transport/httpserver/handler/common"
)

func writeError(w http.ResponseWriter, status int, code, message string) {
	commonhandler.WriteError(w, status, code, message)
}

func writeData[T any](w http.ResponseWriter, status int, data T) {
	commonhandler.WriteData(w, status, data)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	return commonhandler.DecodeJSON(r, dst)
}

func parseIntParam(value string, fallback int) (int, error) {
	return commonhandler.ParseIntParam(value, fallback)
}

// writeDomainError maps service errors to a status and logs them under op.
func (h *Handlers) writeDomainError(w http.ResponseWriter, op string, err error, args ...any) {
	switch {
	case errors.Is(err, listsdomain.ErrListNotFound):
		h.log.BusinessError(op+": list not found", err, args...)
		writeError(w, http.StatusNotFound, "list_not_found", "list not found")
	case errors.Is(err, listsdomain.ErrItemNotFound):
		h.log.BusinessError(op+": item not found", err, args...)
		writeError(w, http.StatusNotFound, "item_not_found", "item not found")
	case errors.Is(err, listsdomain.ErrForbidden):
		h.log.BusinessError(op+": forbidden", err, args...)
		writeError(w, http.StatusForbidden, "forbidden", "forbidden")
	case errors.Is(err, listsdomain.ErrUnauthenticated):
		h.log.BusinessError(op+": unauthenticated", err, args...)
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
	case errors.Is(err, listsdomain.ErrInvalidInput):
		h.log.BusinessError(op+": invalid input", err, args...)
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		h.log.InternalError(op+": failed", err, args...)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
