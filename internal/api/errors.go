package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Error is the body of a failed JSON endpoint. The io/ RPC paths answer
// in text/plain instead.
type Error struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v) //nolint:errcheck // client may be gone
	}
}

// writeError answers with an Error whose code is the snake_case status
// text, e.g. "not_found", and echoes the request id for log correlation.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	id, _ := r.Context().Value(ctxKeyRequestID).(string)
	writeJSON(w, status, Error{
		Status:    status,
		Code:      strings.ReplaceAll(strings.ToLower(http.StatusText(status)), " ", "_"),
		Message:   message,
		RequestID: id,
	})
}
