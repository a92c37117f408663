package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/applyo/prospector/internal/apperr"
	"github.com/applyo/prospector/pkg/log"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

// writeAppError maps a typed error to its status; untyped errors are logged and hidden.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.TypeOf(err).HTTPStatus()
	if status == http.StatusInternalServerError {
		log.Error("%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeError(w, status, apperr.PublicMessage(err))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}
