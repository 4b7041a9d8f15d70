package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/careerlens/careerlens/internal/services"
)

// webhookBody is the common callback envelope. ReportID tolerates both the
// bare-string and the wrapped {"answer": "..."} shapes the workflow engine
// has been observed to send.
type webhookBody struct {
	ReportID reportIDField           `json:"report_id"`
	Sections []services.SectionInput `json:"sections,omitempty"`
}

// handleWebhook routes POST /api/webhooks/{event}. Callbacks authenticate
// with the shared workflow bearer token when one is configured.
func (rt *Router) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !rt.workflowAuthorized(r) {
		writeError(w, services.NewUnauthorizedError("invalid workflow token"))
		return
	}
	event := strings.TrimPrefix(r.URL.Path, "/api/webhooks/")
	var body webhookBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, services.NewInvalidError("invalid body"))
		return
	}
	reportID := string(body.ReportID)
	if reportID == "" {
		writeError(w, services.NewInvalidError("report_id required"))
		return
	}

	var err error
	switch event {
	case "pending-review":
		err = rt.reports.MarkPendingReview(reportID)
	case "analysis-completed":
		err = rt.reports.MarkAnalysisCompleted(r.Context(), reportID)
	case "career-sections-completed":
		err = rt.reports.CompleteCareerSections(r.Context(), reportID, body.Sections)
	case "chat-session-complete":
		err = rt.reports.CompleteChatSession(reportID)
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// POST /api/chat-session/init
func (rt *Router) handleChatInit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body webhookBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, services.NewInvalidError("invalid body"))
		return
	}
	if body.ReportID == "" {
		writeError(w, services.NewInvalidError("report_id required"))
		return
	}
	if err := rt.reports.InitChatSession(r.Context(), string(body.ReportID)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (rt *Router) workflowAuthorized(r *http.Request) bool {
	if rt.workflowToken == "" {
		return true
	}
	got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return got == rt.workflowToken
}
