package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/careerlens/careerlens/internal/models"
	"github.com/careerlens/careerlens/internal/survey"
)

// AnswerStore persists immutable answer records. The (survey_id,
// access_code_id) pair is unique, which is what makes a replayed
// submission safe.
type AnswerStore interface {
	FindAnswer(surveyID, accessCodeID string) (*models.Answer, error)
	InsertAnswer(a *models.Answer) error
}

// SurveyDispatcher forwards a submitted payload to the external workflow
// engine that generates the report.
type SurveyDispatcher interface {
	DispatchSurvey(ctx context.Context, reportID string, payload json.RawMessage) error
}

// SubmitRequest carries one final submission.
type SubmitRequest struct {
	SurveyID     string
	SurveyTitle  string
	AccessCodeID string
	Responses    json.RawMessage
	// OnComplete, when set, receives the final responses after the
	// submission status reaches submitted.
	OnComplete func(responses json.RawMessage)
}

// SubmitResult reports what the submission produced.
type SubmitResult struct {
	AnswerID string `json:"answer_id"`
	ReportID string `json:"report_id"`
	// Replayed is true when an identical earlier submission was found and
	// no new answer row was written.
	Replayed bool `json:"replayed,omitempty"`
}

// SubmissionService drives a survey session's submission status through
// idle -> submitting -> submitted|failed, persisting the session snapshot
// after every status change.
type SubmissionService struct {
	answers  AnswerStore
	access   *AccessService
	reports  *ReportService
	forward  SurveyDispatcher
	sessions survey.Store
	logger   *zap.Logger
	now      func() time.Time
	idGen    func(prefix string, n int) string
}

func NewSubmissionService(answers AnswerStore, access *AccessService, reports *ReportService, forward SurveyDispatcher, sessions survey.Store, logger *zap.Logger) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{
		answers:  answers,
		access:   access,
		reports:  reports,
		forward:  forward,
		sessions: sessions,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		idGen:    func(prefix string, n int) string { return prefix + shortID(n) },
	}
}

// Submit persists the answers, consumes the access code, creates the
// report, and forwards the payload to the workflow engine.
//
// Failure handling is deliberately asymmetric: a persistence failure marks
// the session failed and keeps the responses for retry, while a consume
// failure after successful persistence is logged and the submission still
// counts. A workflow dispatch failure marks the report failed and is
// returned to the caller, but the answers stay submitted.
func (s *SubmissionService) Submit(ctx context.Context, userID string, sess *survey.Session, req SubmitRequest) (*SubmitResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, NewInvalidError("user id required")
	}
	if strings.TrimSpace(req.SurveyID) == "" {
		return nil, NewInvalidError("survey id required")
	}
	if strings.TrimSpace(req.AccessCodeID) == "" {
		return nil, NewInvalidError("access code id required")
	}
	if len(req.Responses) == 0 {
		return nil, NewInvalidError("responses required")
	}
	if sess == nil {
		sess = survey.NewSession()
	}

	s.setStatus(userID, req.SurveyID, sess, survey.SubmissionSubmitting)

	result := &SubmitResult{}
	existing, err := s.answers.FindAnswer(req.SurveyID, req.AccessCodeID)
	if err != nil {
		s.setStatus(userID, req.SurveyID, sess, survey.SubmissionFailed)
		return nil, err
	}
	if existing != nil {
		result.AnswerID = existing.ID
		result.Replayed = true
	} else {
		answer := &models.Answer{
			ID:           s.idGen("ans", 12),
			SurveyID:     req.SurveyID,
			AccessCodeID: req.AccessCodeID,
			UserID:       userID,
			Responses:    req.Responses,
			SubmittedAt:  s.now(),
		}
		if err := s.answers.InsertAnswer(answer); err != nil {
			// Responses stay in the session store so a retry can resubmit
			// identical data.
			s.setStatus(userID, req.SurveyID, sess, survey.SubmissionFailed)
			return nil, err
		}
		result.AnswerID = answer.ID

		// Usage bookkeeping only happens for a fresh answer row; replaying
		// a stored submission must not burn a second use. A consume
		// failure does not undo the submission.
		if err := s.access.Consume(req.AccessCodeID); err != nil {
			s.logger.Warn("access code consume failed after answer persisted",
				zap.String("access_code_id", req.AccessCodeID),
				zap.String("survey_id", req.SurveyID),
				zap.Error(err))
		}
	}

	report, err := s.reports.Create(userID, req.AccessCodeID, req.SurveyID, req.SurveyTitle, req.Responses)
	if err != nil {
		s.setStatus(userID, req.SurveyID, sess, survey.SubmissionFailed)
		return nil, err
	}
	result.ReportID = report.ID

	if err := s.forward.DispatchSurvey(ctx, report.ID, req.Responses); err != nil {
		if ferr := s.reports.MarkFailed(report.ID); ferr != nil {
			s.logger.Error("marking report failed after dispatch error",
				zap.String("report_id", report.ID), zap.Error(ferr))
		}
		// The answers are persisted and the code consumed: the submission
		// itself stands even though report generation could not start.
		s.setStatus(userID, req.SurveyID, sess, survey.SubmissionSubmitted)
		return result, NewBadGatewayError("workflow dispatch failed")
	}

	s.setStatus(userID, req.SurveyID, sess, survey.SubmissionSubmitted)
	if req.OnComplete != nil {
		req.OnComplete(req.Responses)
	}
	return result, nil
}

// Retry resets a failed submission to idle and replays it with the same
// in-memory responses.
func (s *SubmissionService) Retry(ctx context.Context, userID string, sess *survey.Session, req SubmitRequest) (*SubmitResult, error) {
	if sess == nil {
		return nil, NewInvalidError("session required")
	}
	if sess.SubmissionStatus != survey.SubmissionFailed {
		return nil, NewInvalidStateError("retry requires a failed submission")
	}
	s.setStatus(userID, req.SurveyID, sess, survey.SubmissionIdle)
	return s.Submit(ctx, userID, sess, req)
}

// setStatus updates the session and persists the snapshot. Snapshot write
// failures never fail the submission; they only cost recovery visibility.
func (s *SubmissionService) setStatus(userID, surveyID string, sess *survey.Session, status survey.SubmissionStatus) {
	sess.SubmissionStatus = status
	if s.sessions == nil {
		return
	}
	if err := s.sessions.SaveSession(userID, surveyID, sess); err != nil {
		s.logger.Warn("session snapshot save failed",
			zap.String("survey_id", surveyID), zap.Error(err))
	}
}
