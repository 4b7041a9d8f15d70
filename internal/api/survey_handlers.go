package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/careerlens/careerlens/internal/middleware"
	"github.com/careerlens/careerlens/internal/services"
	"github.com/careerlens/careerlens/internal/survey"
)

type submitBody struct {
	SurveyID     string          `json:"survey_id"`
	SurveyTitle  string          `json:"survey_title,omitempty"`
	AccessCodeID string          `json:"access_code_id"`
	Responses    json.RawMessage `json:"responses"`
}

// handleSurveyScoped routes everything under /api/surveys/:
// GET /api/surveys/{id}, POST /api/surveys/submit, POST /api/surveys/retry.
func (rt *Router) handleSurveyScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/surveys/")
	switch {
	case rest == "submit":
		rt.handleSubmit(w, r, false)
	case rest == "retry":
		rt.handleSubmit(w, r, true)
	case rest != "" && !strings.Contains(rest, "/"):
		rt.handleSurveyDefinition(w, r, rest)
	default:
		http.NotFound(w, r)
	}
}

// GET /api/surveys/{id}
func (rt *Router) handleSurveyDefinition(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	def, err := rt.store.GetSurveyDefinition(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if def == nil {
		writeError(w, services.NewNotFoundError("survey not found"))
		return
	}
	writeJSON(w, http.StatusOK, def)
}

// POST /api/surveys/submit and /api/surveys/retry. The stored session
// snapshot is loaded so the submission status transitions survive in it;
// a missing snapshot just means a fresh session.
func (rt *Router) handleSubmit(w http.ResponseWriter, r *http.Request, retry bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, services.NewUnauthorizedError("authentication required"))
		return
	}
	var req submitBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewInvalidError("invalid body"))
		return
	}
	sess, err := rt.store.LoadSession(uid, req.SurveyID)
	if err != nil {
		writeError(w, err)
		return
	}
	if sess == nil {
		sess = survey.NewSession()
	}
	sreq := services.SubmitRequest{
		SurveyID:     req.SurveyID,
		SurveyTitle:  req.SurveyTitle,
		AccessCodeID: req.AccessCodeID,
		Responses:    req.Responses,
	}
	var result *services.SubmitResult
	if retry {
		result, err = rt.submissions.Retry(r.Context(), uid, sess, sreq)
	} else {
		result, err = rt.submissions.Submit(r.Context(), uid, sess, sreq)
	}
	if err != nil {
		// A dispatch failure still produced a persisted submission; report
		// both so the client can show the report as failed instead of
		// prompting a resubmit.
		if result != nil {
			if se, ok := services.AsServiceError(err); ok && se.Code == services.ErrorBadGateway {
				writeJSON(w, http.StatusBadGateway, map[string]any{
					"success":   false,
					"error":     se.Message,
					"report_id": result.ReportID,
					"answer_id": result.AnswerID,
				})
				return
			}
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"report_id": result.ReportID,
		"answer_id": result.AnswerID,
		"replayed":  result.Replayed,
	})
}
