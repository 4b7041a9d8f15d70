package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/careerlens/careerlens/internal/models"
)

// ReportStore abstracts persistence for reports, their sections, and the
// owning user's profile.
type ReportStore interface {
	InsertReport(r *models.Report) error
	GetReport(id string) (*models.Report, error)
	ListReportsByUser(userID string) ([]*models.Report, error)
	// TransitionReportStatus sets the status only while the current status
	// is one of from; reports false otherwise. The conditional write is
	// what keeps racing webhook deliveries from regressing the status.
	TransitionReportStatus(id string, to models.ReportStatus, from []models.ReportStatus, at time.Time) (bool, error)
	SetReportStatus(id string, to models.ReportStatus, at time.Time) (bool, error)
	InsertReportSection(sec *models.ReportSection) error
	ListReportSections(reportID string) ([]*models.ReportSection, error)
	DeleteReportSection(reportID, sectionID string) (bool, error)
	// DeleteReportCascade removes the report's sections first, then the
	// report row itself.
	DeleteReportCascade(id string) (bool, error)
	GetUser(id string) (*models.User, error)
}

// Mailer sends notification email. Implemented by internal/mail.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// ChatDispatcher triggers the external chat workflow for a report.
type ChatDispatcher interface {
	DispatchChat(ctx context.Context, reportID string) error
}

// SectionInput is one content block delivered by the analysis pipeline.
type SectionInput struct {
	SectionType string `json:"section_type"`
	Title       string `json:"title,omitempty"`
	Content     string `json:"content"`
}

// ReportService owns the report lifecycle: creation at submission, the
// webhook-driven status pipeline, and user-facing reads and deletes.
type ReportService struct {
	store  ReportStore
	mailer Mailer
	chat   ChatDispatcher
	logger *zap.Logger
	now    func() time.Time
	idGen  func(prefix string, n int) string

	// AllowStatusRegression restores the legacy behavior where a
	// chat-session-complete callback could pull a final_report_ready
	// report back to completed. Off by default.
	AllowStatusRegression bool
}

func NewReportService(store ReportStore, mailer Mailer, chat ChatDispatcher, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		store:  store,
		mailer: mailer,
		chat:   chat,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		idGen:  func(prefix string, n int) string { return prefix + shortID(n) },
	}
}

// Create inserts a new report in processing status for the acting user.
func (s *ReportService) Create(userID, accessCodeID, surveyID, title string, payload []byte) (*models.Report, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, NewInvalidError("user id required")
	}
	if strings.TrimSpace(surveyID) == "" {
		return nil, NewInvalidError("survey id required")
	}
	now := s.now()
	r := &models.Report{
		ID:           s.idGen("rpt", 12),
		UserID:       userID,
		AccessCodeID: accessCodeID,
		SurveyID:     surveyID,
		Title:        title,
		Status:       models.ReportProcessing,
		Payload:      payload,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.InsertReport(r); err != nil {
		return nil, err
	}
	return r, nil
}

// Get returns a report with its sections, enforcing ownership.
func (s *ReportService) Get(userID, reportID string) (*models.Report, []*models.ReportSection, error) {
	r, err := s.ownedReport(userID, reportID)
	if err != nil {
		return nil, nil, err
	}
	secs, err := s.store.ListReportSections(reportID)
	if err != nil {
		return nil, nil, err
	}
	return r, secs, nil
}

// List returns the acting user's reports.
func (s *ReportService) List(userID string) ([]*models.Report, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, NewInvalidError("user id required")
	}
	return s.store.ListReportsByUser(userID)
}

// Delete removes a report and all of its sections.
func (s *ReportService) Delete(userID, reportID string) error {
	if _, err := s.ownedReport(userID, reportID); err != nil {
		return err
	}
	ok, err := s.store.DeleteReportCascade(reportID)
	if err != nil {
		return err
	}
	if !ok {
		return NewNotFoundError("report not found")
	}
	return nil
}

// DeleteSection removes a single section from one of the user's reports.
func (s *ReportService) DeleteSection(userID, reportID, sectionID string) error {
	if _, err := s.ownedReport(userID, reportID); err != nil {
		return err
	}
	ok, err := s.store.DeleteReportSection(reportID, sectionID)
	if err != nil {
		return err
	}
	if !ok {
		return NewNotFoundError("section not found")
	}
	return nil
}

func (s *ReportService) ownedReport(userID, reportID string) (*models.Report, error) {
	if strings.TrimSpace(reportID) == "" {
		return nil, NewInvalidError("report id required")
	}
	r, err := s.store.GetReport(reportID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, NewNotFoundError("report not found")
	}
	if r.UserID != userID {
		return nil, NewForbiddenError("forbidden")
	}
	return r, nil
}

// transition advances a report to target, tolerating duplicate deliveries
// (already at target is a no-op) and rejecting backward moves.
func (s *ReportService) transition(reportID string, target models.ReportStatus) (*models.Report, error) {
	if strings.TrimSpace(reportID) == "" {
		return nil, NewInvalidError("report id required")
	}
	r, err := s.store.GetReport(reportID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, NewNotFoundError("report not found")
	}
	if r.Status == target {
		return r, nil
	}
	if !r.Status.CanTransition(target) {
		return nil, NewInvalidStateError(fmt.Sprintf("cannot move report from %s to %s", r.Status, target))
	}
	from := forwardSources(target)
	ok, err := s.store.TransitionReportStatus(reportID, target, from, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race to a concurrent delivery; re-read and tolerate an
		// equal-or-later status.
		cur, gerr := s.store.GetReport(reportID)
		if gerr != nil {
			return nil, gerr
		}
		if cur != nil && (cur.Status == target || !cur.Status.CanTransition(target)) {
			return cur, nil
		}
		return nil, NewInvalidStateError(fmt.Sprintf("cannot move report to %s", target))
	}
	r.Status = target
	return r, nil
}

func forwardSources(target models.ReportStatus) []models.ReportStatus {
	switch target {
	case models.ReportPendingReview:
		return []models.ReportStatus{models.ReportProcessing}
	case models.ReportCompleted:
		return []models.ReportStatus{models.ReportProcessing, models.ReportPendingReview}
	case models.ReportFinalReady:
		return []models.ReportStatus{models.ReportProcessing, models.ReportPendingReview, models.ReportCompleted}
	case models.ReportFailed:
		return []models.ReportStatus{models.ReportProcessing}
	default:
		return nil
	}
}

// MarkPendingReview is the upstream callback fired once the analysis has
// produced enough data for a review chat.
func (s *ReportService) MarkPendingReview(reportID string) error {
	_, err := s.transition(reportID, models.ReportPendingReview)
	return err
}

// MarkFailed records a workflow dispatch failure. Only a processing report
// can fail.
func (s *ReportService) MarkFailed(reportID string) error {
	_, err := s.transition(reportID, models.ReportFailed)
	return err
}

// InitChatSession triggers the external chat workflow. The report must
// already be pending_review; no webhook is dispatched otherwise.
func (s *ReportService) InitChatSession(ctx context.Context, reportID string) error {
	if strings.TrimSpace(reportID) == "" {
		return NewInvalidError("report id required")
	}
	r, err := s.store.GetReport(reportID)
	if err != nil {
		return err
	}
	if r == nil {
		return NewNotFoundError("report not found")
	}
	if r.Status != models.ReportPendingReview {
		return NewInvalidStateError(fmt.Sprintf("chat session requires pending_review, report is %s", r.Status))
	}
	if s.chat == nil {
		return NewBadGatewayError("chat workflow not configured")
	}
	if err := s.chat.DispatchChat(ctx, reportID); err != nil {
		return NewBadGatewayError("chat workflow dispatch failed")
	}
	return nil
}

// MarkAnalysisCompleted advances the report to completed and mails the
// owner. A missing profile or email fails the callback, but the status
// update has already been applied and is not rolled back.
func (s *ReportService) MarkAnalysisCompleted(ctx context.Context, reportID string) error {
	r, err := s.transition(reportID, models.ReportCompleted)
	if err != nil {
		return err
	}
	u, err := s.store.GetUser(r.UserID)
	if err != nil {
		return err
	}
	if u == nil || strings.TrimSpace(u.Email) == "" {
		return NewNotFoundError("owner email not found")
	}
	if err := s.sendMail(ctx, u.Email, "Your career report is ready",
		reportReadyBody(r.Title)); err != nil {
		return NewBadGatewayError("notification email failed")
	}
	return nil
}

// CompleteCareerSections stores the delivered section blocks, advances the
// report to final_report_ready, and sends the richer notification. A bad
// section row or a failed email is logged and does not fail the callback.
func (s *ReportService) CompleteCareerSections(ctx context.Context, reportID string, sections []SectionInput) error {
	r, err := s.transition(reportID, models.ReportFinalReady)
	if err != nil {
		return err
	}
	now := s.now()
	inserted := 0
	for _, in := range sections {
		if strings.TrimSpace(in.Content) == "" {
			continue
		}
		sec := &models.ReportSection{
			ID:          s.idGen("sec", 12),
			ReportID:    reportID,
			SectionType: in.SectionType,
			Title:       in.Title,
			Content:     in.Content,
			CreatedAt:   now,
		}
		if err := s.store.InsertReportSection(sec); err != nil {
			s.logger.Warn("report section insert failed",
				zap.String("report_id", reportID),
				zap.String("section_type", in.SectionType),
				zap.Error(err))
			continue
		}
		inserted++
	}
	if u, uerr := s.store.GetUser(r.UserID); uerr == nil && u != nil && u.Email != "" {
		if merr := s.sendMail(ctx, u.Email, "Your full career report is ready",
			finalReportBody(r.Title, inserted)); merr != nil {
			s.logger.Warn("final report email failed",
				zap.String("report_id", reportID), zap.Error(merr))
		}
	}
	return nil
}

// CompleteChatSession is the coarse post-chat "mark done" signal. By
// default it is guarded: a report already at final_report_ready stays
// there. With AllowStatusRegression it reproduces the legacy unconditional
// write.
func (s *ReportService) CompleteChatSession(reportID string) error {
	if strings.TrimSpace(reportID) == "" {
		return NewInvalidError("report id required")
	}
	r, err := s.store.GetReport(reportID)
	if err != nil {
		return err
	}
	if r == nil {
		return NewNotFoundError("report not found")
	}
	if r.Status == models.ReportFinalReady && !s.AllowStatusRegression {
		return nil
	}
	ok, err := s.store.SetReportStatus(reportID, models.ReportCompleted, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return NewNotFoundError("report not found")
	}
	return nil
}

func (s *ReportService) sendMail(ctx context.Context, to, subject, html string) error {
	if s.mailer == nil {
		return fmt.Errorf("mailer not configured")
	}
	return s.mailer.Send(ctx, to, subject, html)
}

func reportReadyBody(title string) string {
	if title == "" {
		title = "Your assessment"
	}
	return fmt.Sprintf("<p>%s has finished processing. Sign in to review your report and start your review chat.</p>", title)
}

func finalReportBody(title string, sections int) string {
	if title == "" {
		title = "Your assessment"
	}
	return fmt.Sprintf("<p>%s is complete: your final report with %d career sections is ready to read.</p>", title, sections)
}
