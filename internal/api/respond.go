package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/careerlens/careerlens/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the service error taxonomy onto HTTP statuses. Anything
// that is not a ServiceError is a 500 with a generic message so internal
// details never leak to clients.
func writeError(w http.ResponseWriter, err error) {
	se, ok := services.AsServiceError(err)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	status := http.StatusInternalServerError
	switch se.Code {
	case services.ErrorInvalid, services.ErrorInvalidState:
		status = http.StatusBadRequest
	case services.ErrorUnauthorized:
		status = http.StatusUnauthorized
	case services.ErrorForbidden:
		status = http.StatusForbidden
	case services.ErrorNotFound:
		status = http.StatusNotFound
	case services.ErrorConflict:
		status = http.StatusConflict
	case services.ErrorBadGateway:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": se.Message, "code": string(se.Code)})
}

// reportIDField accepts the two shapes the workflow engine emits for a
// report identifier: a plain JSON string, or an object wrapping the value
// under an "answer" key. Normalization happens here once so the services
// only ever see a bare id.
type reportIDField string

func (f *reportIDField) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = reportIDField(strings.TrimSpace(s))
		return nil
	}
	var wrapped struct {
		Answer string `json:"answer"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	*f = reportIDField(strings.TrimSpace(wrapped.Answer))
	return nil
}
