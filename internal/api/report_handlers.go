package api

import (
	"net/http"
	"strings"

	"github.com/careerlens/careerlens/internal/middleware"
)

// GET /api/reports
func (rt *Router) handleReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid, _ := middleware.UserIDFromContext(r.Context())
	reports, err := rt.reports.List(uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

// handleReportScoped routes GET/DELETE /api/reports/{id} and
// DELETE /api/reports/{id}/sections/{sid}. Ownership is enforced in the
// service, so a foreign report id answers 403 regardless of method.
func (rt *Router) handleReportScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/reports/")
	parts := strings.Split(rest, "/")
	uid, _ := middleware.UserIDFromContext(r.Context())

	switch {
	case len(parts) == 1 && parts[0] != "":
		reportID := parts[0]
		switch r.Method {
		case http.MethodGet:
			report, sections, err := rt.reports.Get(uid, reportID)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"report": report, "sections": sections})
		case http.MethodDelete:
			if err := rt.reports.Delete(uid, reportID); err != nil {
				writeError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	case len(parts) == 3 && parts[1] == "sections" && parts[2] != "":
		if r.Method != http.MethodDelete {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := rt.reports.DeleteSection(uid, parts[0], parts[2]); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}
