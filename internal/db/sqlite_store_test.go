package db

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/careerlens/careerlens/internal/models"
	"github.com/careerlens/careerlens/internal/survey"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "careerlens.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestConsumeAccessCodeGuard(t *testing.T) {
	store := openTestStore(t)
	now := time.Now().UTC()
	code := &models.AccessCode{
		ID: "ac1", Code: "CL-TEST0001", ExpiresAt: now.Add(time.Hour),
		MaxUsage: 1, CreatedAt: now,
	}
	if err := store.InsertAccessCode(code); err != nil {
		t.Fatalf("insert: %v", err)
	}

	ok, err := store.ConsumeAccessCode("ac1", now)
	if err != nil || !ok {
		t.Fatalf("first consume = %v, %v, want success", ok, err)
	}
	ok, err = store.ConsumeAccessCode("ac1", now)
	if err != nil || ok {
		t.Fatalf("second consume = %v, %v, want refusal", ok, err)
	}

	rec, err := store.GetAccessCode("ac1")
	if err != nil || rec.UsageCount != 1 {
		t.Fatalf("usage count = %d (err %v), want 1", rec.UsageCount, err)
	}
	if rec.UsedAt == nil {
		t.Fatalf("used_at not stamped")
	}
}

func TestReportTransitionGuardInSQL(t *testing.T) {
	store := openTestStore(t)
	now := time.Now().UTC()
	r := &models.Report{
		ID: "rep1", UserID: "u1", SurveyID: "career_v1",
		Status: models.ReportProcessing, CreatedAt: now, UpdatedAt: now,
	}
	if err := store.InsertReport(r); err != nil {
		t.Fatalf("insert: %v", err)
	}

	ok, err := store.TransitionReportStatus("rep1", models.ReportPendingReview,
		[]models.ReportStatus{models.ReportProcessing}, now)
	if err != nil || !ok {
		t.Fatalf("forward transition = %v, %v", ok, err)
	}

	// The same delivery again matches no source row.
	ok, err = store.TransitionReportStatus("rep1", models.ReportPendingReview,
		[]models.ReportStatus{models.ReportProcessing}, now)
	if err != nil || ok {
		t.Fatalf("replayed transition = %v, %v, want no match", ok, err)
	}

	got, err := store.GetReport("rep1")
	if err != nil || got.Status != models.ReportPendingReview {
		t.Fatalf("status = %v (err %v), want pending_review", got.Status, err)
	}
}

func TestAnswerUniquePerSurveyAndCode(t *testing.T) {
	store := openTestStore(t)
	now := time.Now().UTC()
	a := &models.Answer{
		ID: "ans1", SurveyID: "career_v1", AccessCodeID: "ac1", UserID: "u1",
		Responses: json.RawMessage(`{"q1":"agree"}`), SubmittedAt: now,
	}
	if err := store.InsertAnswer(a); err != nil {
		t.Fatalf("insert: %v", err)
	}
	dup := *a
	dup.ID = "ans2"
	if err := store.InsertAnswer(&dup); err == nil {
		t.Fatalf("duplicate insert succeeded, want constraint error")
	}

	found, err := store.FindAnswer("career_v1", "ac1")
	if err != nil || found == nil || found.ID != "ans1" {
		t.Fatalf("find = %+v (err %v), want ans1", found, err)
	}
}

func TestSessionSnapshotPersistence(t *testing.T) {
	store := openTestStore(t)
	sess := survey.NewSession()
	sess.SectionIndex = 1
	sess.QuestionIndex = 3
	sess.SetResponse("q1", json.RawMessage(`"agree"`))

	if err := store.SaveSession("u1", "career_v1", sess); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.LoadSession("u1", "career_v1")
	if err != nil || got == nil {
		t.Fatalf("load = %v, err %v", got, err)
	}
	if got.SectionIndex != 1 || got.QuestionIndex != 3 || len(got.Responses) != 1 {
		t.Fatalf("restored = %+v", got)
	}

	// Saving over an existing snapshot replaces it.
	sess.QuestionIndex = 4
	if err := store.SaveSession("u1", "career_v1", sess); err != nil {
		t.Fatalf("re-save: %v", err)
	}
	got, _ = store.LoadSession("u1", "career_v1")
	if got.QuestionIndex != 4 {
		t.Fatalf("question index = %d, want 4", got.QuestionIndex)
	}

	if err := store.ClearSession("u1", "career_v1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, err = store.LoadSession("u1", "career_v1")
	if err != nil || got != nil {
		t.Fatalf("cleared load = %v, err %v, want nil", got, err)
	}
}

func TestReportDeleteCascade(t *testing.T) {
	store := openTestStore(t)
	now := time.Now().UTC()
	if err := store.InsertReport(&models.Report{
		ID: "rep1", UserID: "u1", SurveyID: "career_v1",
		Status: models.ReportFinalReady, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("insert report: %v", err)
	}
	if err := store.InsertReportSection(&models.ReportSection{
		ID: "sec1", ReportID: "rep1", SectionType: "strengths", Content: "x", CreatedAt: now,
	}); err != nil {
		t.Fatalf("insert section: %v", err)
	}

	ok, err := store.DeleteReportCascade("rep1")
	if err != nil || !ok {
		t.Fatalf("delete = %v, %v", ok, err)
	}
	secs, err := store.ListReportSections("rep1")
	if err != nil || len(secs) != 0 {
		t.Fatalf("sections after cascade = %v (err %v), want none", secs, err)
	}
}
