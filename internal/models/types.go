package models

import (
	"encoding/json"
	"time"
)

// AccessCode is a purchased, time-limited credential that unlocks a number
// of assessment attempts. Codes are stored uppercase and compared
// case-insensitively.
type AccessCode struct {
	ID         string     `json:"id"`
	Code       string     `json:"code"`
	SurveyType string     `json:"survey_type,omitempty"`
	ExpiresAt  time.Time  `json:"expires_at"`
	UsageCount int        `json:"usage_count"`
	MaxUsage   int        `json:"max_usage"`
	UsedAt     *time.Time `json:"used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Active reports whether the code can still be redeemed at the given time.
func (c *AccessCode) Active(now time.Time) bool {
	return now.Before(c.ExpiresAt) && c.UsageCount < c.MaxUsage
}

// Purchase records a completed checkout that produced an access code.
type Purchase struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id,omitempty"`
	AccessCodeID string    `json:"access_code_id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	Country      string    `json:"country,omitempty"`
	SessionID    string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// ReportStatus is the lifecycle stage of a generated report.
type ReportStatus string

const (
	ReportProcessing    ReportStatus = "processing"
	ReportPendingReview ReportStatus = "pending_review"
	ReportCompleted     ReportStatus = "completed"
	ReportFinalReady    ReportStatus = "final_report_ready"
	ReportFailed        ReportStatus = "failed"
)

var reportStatusRank = map[ReportStatus]int{
	ReportProcessing:    0,
	ReportPendingReview: 1,
	ReportCompleted:     2,
	ReportFinalReady:    3,
}

// Known reports whether s is a recognized status value.
func (s ReportStatus) Known() bool {
	if s == ReportFailed {
		return true
	}
	_, ok := reportStatusRank[s]
	return ok
}

// CanTransition reports whether moving from s to next is a forward move.
// failed is reachable from processing only; nothing leaves failed.
func (s ReportStatus) CanTransition(next ReportStatus) bool {
	if next == ReportFailed {
		return s == ReportProcessing
	}
	from, ok := reportStatusRank[s]
	if !ok {
		return false
	}
	to, ok := reportStatusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// Report is the persisted output artifact of one completed assessment.
// Owned exclusively by the user who created it.
type Report struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	AccessCodeID string          `json:"access_code_id,omitempty"`
	SurveyID     string          `json:"survey_id"`
	Title        string          `json:"title"`
	Status       ReportStatus    `json:"status"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ReportSection is one titled content block within a report, written by the
// external analysis pipeline. Immutable once created except for deletion.
type ReportSection struct {
	ID          string    `json:"id"`
	ReportID    string    `json:"report_id"`
	SectionType string    `json:"section_type"`
	Title       string    `json:"title,omitempty"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// Answer is the immutable record of one submitted response set, keyed by
// (survey_id, access_code_id) so that a retried submission cannot create a
// second row.
type Answer struct {
	ID           string          `json:"id"`
	SurveyID     string          `json:"survey_id"`
	AccessCodeID string          `json:"access_code_id"`
	UserID       string          `json:"user_id"`
	Responses    json.RawMessage `json:"responses"`
	SubmittedAt  time.Time       `json:"submitted_at"`
}

// User is an authenticated account. The email doubles as the notification
// address for report-ready mail.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	PassHash  []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
