package common

import (
	"encoding/json"
	"net/http"

	"family-lists-go/internal/wire"
)

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, wire.Envelope[any]{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeData[T any](w http.ResponseWriter, status int, data T) {
	writeJSON(w, status, wire.OK(data))
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeError(w, status, code, message)
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	writeJSON(w, status, payload)
}

// WriteData wraps data in a success envelope.
func WriteData[T any](w http.ResponseWriter, status int, data T) {
	writeData(w, status, data)
}

func DecodeJSON(r *http.Request, dst interface{}) error {
	return decodeJSON(r, dst)
}
