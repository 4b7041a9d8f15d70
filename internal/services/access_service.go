package services

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/careerlens/careerlens/internal/models"
)

// AccessStore abstracts persistence for the access-code ledger.
type AccessStore interface {
	GetAccessCodeByCode(code string) (*models.AccessCode, error)
	GetAccessCode(id string) (*models.AccessCode, error)
	InsertAccessCode(c *models.AccessCode) error
	// ConsumeAccessCode increments usage_count and stamps used_at in a
	// single conditional write guarded by usage_count < max_usage. It
	// reports false when the guard fails or no row matches.
	ConsumeAccessCode(id string, usedAt time.Time) (bool, error)
}

// Verification reasons surfaced to the caller. All of them mean the user
// should be routed to checkout.
const (
	ReasonNotFound       = "not_found"
	ReasonExpired        = "expired"
	ReasonExhaustedUsage = "exhausted_usage"
)

// VerifyResult is the outcome of a code check.
type VerifyResult struct {
	Valid         bool               `json:"valid"`
	AccessCode    *models.AccessCode `json:"accessCode,omitempty"`
	Reason        string             `json:"error,omitempty"`
	NeedsPurchase bool               `json:"needsPurchase,omitempty"`
}

// AccessService is the ledger of purchased access codes.
type AccessService struct {
	store AccessStore
	now   func() time.Time
	idGen func(prefix string, n int) string
}

func NewAccessService(store AccessStore) *AccessService {
	return &AccessService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: func(prefix string, n int) string { return prefix + shortID(n) },
	}
}

// NormalizeCode canonicalizes user input before lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Verify checks a code without consuming it.
func (s *AccessService) Verify(code string) (*VerifyResult, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, NewInvalidError("code required")
	}
	rec, err := s.store.GetAccessCodeByCode(code)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return &VerifyResult{Reason: ReasonNotFound, NeedsPurchase: true}, nil
	}
	now := s.now()
	if !now.Before(rec.ExpiresAt) {
		return &VerifyResult{Reason: ReasonExpired, NeedsPurchase: true}, nil
	}
	if rec.UsageCount >= rec.MaxUsage {
		return &VerifyResult{Reason: ReasonExhaustedUsage, NeedsPurchase: true}, nil
	}
	return &VerifyResult{Valid: true, AccessCode: rec}, nil
}

// Consume burns one usage. The store applies the increment conditionally,
// so two near-simultaneous calls against a code with one remaining use
// cannot both succeed.
func (s *AccessService) Consume(id string) error {
	if strings.TrimSpace(id) == "" {
		return NewInvalidError("access code id required")
	}
	ok, err := s.store.ConsumeAccessCode(id, s.now())
	if err != nil {
		return err
	}
	if !ok {
		rec, gerr := s.store.GetAccessCode(id)
		if gerr == nil && rec == nil {
			return NewNotFoundError("access code not found")
		}
		return NewConflictError("access code usage exhausted")
	}
	return nil
}

// CodePrefix heads every generated code so support can recognize them.
const CodePrefix = "CL-"

// codeValidity is how long a purchased code stays redeemable.
const codeValidity = 365 * 24 * time.Hour

// CreateFromPurchase mints a fresh single-use code at payment completion.
func (s *AccessService) CreateFromPurchase(surveyType string) (*models.AccessCode, error) {
	now := s.now()
	code := &models.AccessCode{
		ID:         s.idGen("ac", 12),
		Code:       CodePrefix + strings.ToUpper(shortID(10)),
		SurveyType: surveyType,
		ExpiresAt:  now.Add(codeValidity),
		UsageCount: 0,
		MaxUsage:   1,
		CreatedAt:  now,
	}
	if err := s.store.InsertAccessCode(code); err != nil {
		return nil, err
	}
	return code, nil
}

func shortID(n int) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n > len(id) {
		n = len(id)
	}
	return id[:n]
}
