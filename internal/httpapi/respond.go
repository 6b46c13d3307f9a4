package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"yuchat/internal/chat"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errBody struct {
	Error string `json:"error"`
}

// writeErr maps the service taxonomy onto HTTP statuses. Not-found and
// not-owned deliberately share one response.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errBody{Error: err.Error()})
	case errors.Is(err, chat.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errBody{Error: "not found"})
	case errors.Is(err, chat.ErrConstraint):
		writeJSON(w, http.StatusConflict, errBody{Error: err.Error()})
	case errors.Is(err, chat.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errBody{Error: "storage unavailable"})
	default:
		writeJSON(w, http.StatusInternalServerError, errBody{Error: "internal error"})
	}
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
