package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/careerlens/careerlens/internal/models"
)

// submitReport walks one submission through the authed submit endpoint and
// returns the created report id.
func submitReport(t *testing.T, env *testEnv, token string) string {
	t.Helper()
	env.seedCode(t, "ac1", "CL-ABCD1234")
	var res struct {
		ReportID string `json:"report_id"`
	}
	code := env.do(t, http.MethodPost, "/api/surveys/submit", token, map[string]any{
		"survey_id":      "career_v1",
		"survey_title":   "Career Assessment",
		"access_code_id": "ac1",
		"responses":      map[string]string{"q1": "agree"},
	}, &res)
	if code != http.StatusOK || res.ReportID == "" {
		t.Fatalf("submit = %d, report %q", code, res.ReportID)
	}
	return res.ReportID
}

func (e *testEnv) webhook(t *testing.T, event, body string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/"+event, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer wf-secret")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec.Code
}

func (e *testEnv) reportStatus(t *testing.T, id string) models.ReportStatus {
	t.Helper()
	r, err := e.store.GetReport(id)
	if err != nil || r == nil {
		t.Fatalf("report %s not found (err %v)", id, err)
	}
	return r.Status
}

func TestWebhookLifecycleSequence(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "maya@example.com")
	id := submitReport(t, env, token)

	if code := env.webhook(t, "pending-review", `{"report_id":"`+id+`"}`); code != http.StatusOK {
		t.Fatalf("pending-review = %d", code)
	}
	if got := env.reportStatus(t, id); got != models.ReportPendingReview {
		t.Fatalf("status = %s, want pending_review", got)
	}

	if code := env.webhook(t, "analysis-completed", `{"report_id":"`+id+`"}`); code != http.StatusOK {
		t.Fatalf("analysis-completed = %d", code)
	}
	if got := env.reportStatus(t, id); got != models.ReportCompleted {
		t.Fatalf("status = %s, want completed", got)
	}
	if len(env.mailer.sent) != 1 || env.mailer.sent[0] != "maya@example.com" {
		t.Fatalf("mail deliveries = %v, want one to owner", env.mailer.sent)
	}

	body := `{"report_id":"` + id + `","sections":[{"section_type":"strengths","title":"Strengths","content":"<p>...</p>"}]}`
	if code := env.webhook(t, "career-sections-completed", body); code != http.StatusOK {
		t.Fatalf("career-sections-completed = %d", code)
	}
	if got := env.reportStatus(t, id); got != models.ReportFinalReady {
		t.Fatalf("status = %s, want final_report_ready", got)
	}
	secs, _ := env.store.ListReportSections(id)
	if len(secs) != 1 || secs[0].SectionType != "strengths" {
		t.Fatalf("sections = %+v, want one strengths block", secs)
	}
}

func TestWebhookAcceptsWrappedReportID(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "maya@example.com")
	id := submitReport(t, env, token)

	if code := env.webhook(t, "pending-review", `{"report_id":{"answer":"`+id+`"}}`); code != http.StatusOK {
		t.Fatalf("wrapped report_id = %d, want 200", code)
	}
	if got := env.reportStatus(t, id); got != models.ReportPendingReview {
		t.Fatalf("status = %s, want pending_review", got)
	}
}

func TestWebhookDuplicateDeliveryIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "maya@example.com")
	id := submitReport(t, env, token)

	for i := 0; i < 2; i++ {
		if code := env.webhook(t, "pending-review", `{"report_id":"`+id+`"}`); code != http.StatusOK {
			t.Fatalf("delivery %d = %d, want 200", i, code)
		}
	}
	if got := env.reportStatus(t, id); got != models.ReportPendingReview {
		t.Fatalf("status = %s, want pending_review", got)
	}
}

func TestWebhookRejectsStatusRegression(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "maya@example.com")
	id := submitReport(t, env, token)

	env.webhook(t, "pending-review", `{"report_id":"`+id+`"}`)
	env.webhook(t, "analysis-completed", `{"report_id":"`+id+`"}`)

	// A stale pending-review arriving after completed must not move the
	// report backwards.
	if code := env.webhook(t, "pending-review", `{"report_id":"`+id+`"}`); code != http.StatusBadRequest {
		t.Fatalf("stale delivery = %d, want 400", code)
	}
	if got := env.reportStatus(t, id); got != models.ReportCompleted {
		t.Fatalf("status = %s, want completed", got)
	}
}

func TestWebhookChatCompleteGuard(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "maya@example.com")
	id := submitReport(t, env, token)

	env.webhook(t, "pending-review", `{"report_id":"`+id+`"}`)
	env.webhook(t, "analysis-completed", `{"report_id":"`+id+`"}`)
	env.webhook(t, "career-sections-completed", `{"report_id":"`+id+`","sections":[]}`)

	if code := env.webhook(t, "chat-session-complete", `{"report_id":"`+id+`"}`); code != http.StatusOK {
		t.Fatalf("chat-session-complete = %d", code)
	}
	if got := env.reportStatus(t, id); got != models.ReportFinalReady {
		t.Fatalf("status = %s, final report must not regress", got)
	}
}

func TestWebhookTokenRequired(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/pending-review", strings.NewReader(`{"report_id":"r1"}`))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("webhook without token = %d, want 401", rec.Code)
	}
}

func TestWebhookUnknownReport(t *testing.T) {
	env := newTestEnv(t)
	if code := env.webhook(t, "pending-review", `{"report_id":"rep_missing"}`); code != http.StatusNotFound {
		t.Fatalf("unknown report = %d, want 404", code)
	}
	if code := env.webhook(t, "no-such-event", `{"report_id":"rep_missing"}`); code != http.StatusNotFound {
		t.Fatalf("unknown event = %d, want 404", code)
	}
}

func TestChatInitRequiresPendingReview(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "maya@example.com")
	id := submitReport(t, env, token)

	if code := env.do(t, http.MethodPost, "/api/chat-session/init", token,
		map[string]string{"report_id": id}, nil); code != http.StatusBadRequest {
		t.Fatalf("chat init on processing = %d, want 400", code)
	}
	if len(env.chat.calls) != 0 {
		t.Fatalf("chat dispatched on guard failure: %v", env.chat.calls)
	}

	env.webhook(t, "pending-review", `{"report_id":"`+id+`"}`)
	if code := env.do(t, http.MethodPost, "/api/chat-session/init", token,
		map[string]string{"report_id": id}, nil); code != http.StatusOK {
		t.Fatalf("chat init on pending_review = %d, want 200", code)
	}
	if len(env.chat.calls) != 1 || env.chat.calls[0] != id {
		t.Fatalf("chat calls = %v, want [%s]", env.chat.calls, id)
	}
}
