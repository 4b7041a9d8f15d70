package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/careerlens/careerlens/internal/middleware"
	"github.com/careerlens/careerlens/internal/services"
	"github.com/careerlens/careerlens/internal/survey"
)

// handleSessionScoped routes GET/PUT/DELETE /api/sessions/{surveyID}.
// Snapshots are stored per user; the survey id comes from the path.
func (rt *Router) handleSessionScoped(w http.ResponseWriter, r *http.Request) {
	surveyID := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	if surveyID == "" || strings.Contains(surveyID, "/") {
		http.NotFound(w, r)
		return
	}
	uid, _ := middleware.UserIDFromContext(r.Context())

	switch r.Method {
	case http.MethodGet:
		sess, err := rt.store.LoadSession(uid, surveyID)
		if err != nil {
			writeError(w, err)
			return
		}
		if sess == nil {
			writeError(w, services.NewNotFoundError("no session"))
			return
		}
		writeJSON(w, http.StatusOK, sess)
	case http.MethodPut:
		var sess survey.Session
		if err := json.NewDecoder(r.Body).Decode(&sess); err != nil {
			writeError(w, services.NewInvalidError("invalid body"))
			return
		}
		if sess.Responses == nil {
			sess.Responses = map[string]json.RawMessage{}
		}
		if sess.CompletedSections == nil {
			sess.CompletedSections = []int{}
		}
		if sess.SubmissionStatus == "" {
			sess.SubmissionStatus = survey.SubmissionIdle
		}
		// Positions are clamped against the stored definition so a stale
		// client snapshot cannot save an out-of-range index.
		if def, err := rt.store.GetSurveyDefinition(surveyID); err == nil && def != nil {
			sess.Clamp(def)
		}
		if err := rt.store.SaveSession(uid, surveyID, &sess); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"saved": true})
	case http.MethodDelete:
		if err := rt.store.ClearSession(uid, surveyID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
