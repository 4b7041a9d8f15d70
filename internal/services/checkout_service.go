package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/careerlens/careerlens/internal/models"
)

// PaymentClient creates hosted checkout sessions with the external payment
// provider. Implemented by internal/payment.
type PaymentClient interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}

// CheckoutRequest is the buyer information collected before redirecting to
// the provider-hosted checkout page.
type CheckoutRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Country   string `json:"country"`
}

// CheckoutSession is the provider-hosted session the user is redirected to.
type CheckoutSession struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// PurchaseStore persists completed purchases.
type PurchaseStore interface {
	InsertPurchase(p *models.Purchase) error
	GetPurchaseBySession(sessionID string) (*models.Purchase, error)
	ListPurchasesByUser(userID string) ([]*models.Purchase, error)
}

// CheckoutService fronts the payment provider and turns a completed
// payment into an access code.
type CheckoutService struct {
	payments PaymentClient
	access   *AccessService
	store    PurchaseStore
	mailer   Mailer
	logger   *zap.Logger
	now      func() time.Time
	idGen    func(prefix string, n int) string
}

func NewCheckoutService(payments PaymentClient, access *AccessService, store PurchaseStore, mailer Mailer, logger *zap.Logger) *CheckoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutService{
		payments: payments,
		access:   access,
		store:    store,
		mailer:   mailer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		idGen:    func(prefix string, n int) string { return prefix + shortID(n) },
	}
}

// CreateCheckout opens a provider-hosted checkout session.
func (s *CheckoutService) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if strings.TrimSpace(req.Email) == "" || !strings.Contains(req.Email, "@") {
		return nil, NewInvalidError("valid email required")
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return nil, NewInvalidError("first and last name required")
	}
	if s.payments == nil {
		return nil, NewBadGatewayError("payment provider not configured")
	}
	sess, err := s.payments.CreateCheckoutSession(ctx, req)
	if err != nil {
		return nil, NewBadGatewayError("checkout session creation failed")
	}
	return sess, nil
}

// CompletePaymentRequest is delivered after a successful provider checkout.
type CompletePaymentRequest struct {
	SessionID  string `json:"sessionId"`
	Email      string `json:"email"`
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Country    string `json:"country,omitempty"`
	UserID     string `json:"user_id,omitempty"`
	SurveyType string `json:"survey_type,omitempty"`
}

// PaymentOutcome bundles what a completed payment produced.
type PaymentOutcome struct {
	AccessCode *models.AccessCode `json:"accessCode"`
	Purchase   *models.Purchase   `json:"purchase"`
}

// CompletePayment mints an access code, records the purchase, and emails
// the code to the buyer. A failed email is logged only: the paid-for code
// must not be lost because the mail provider hiccuped.
func (s *CheckoutService) CompletePayment(ctx context.Context, req CompletePaymentRequest) (*PaymentOutcome, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, NewInvalidError("session id required")
	}
	if strings.TrimSpace(req.Email) == "" {
		return nil, NewInvalidError("email required")
	}
	// A provider retry of the success callback must not mint a second code.
	if prev, err := s.store.GetPurchaseBySession(req.SessionID); err != nil {
		return nil, err
	} else if prev != nil {
		code, err := s.access.store.GetAccessCode(prev.AccessCodeID)
		if err != nil {
			return nil, err
		}
		return &PaymentOutcome{AccessCode: code, Purchase: prev}, nil
	}

	code, err := s.access.CreateFromPurchase(req.SurveyType)
	if err != nil {
		return nil, err
	}
	purchase := &models.Purchase{
		ID:           s.idGen("pur", 12),
		UserID:       req.UserID,
		AccessCodeID: code.ID,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Country:      req.Country,
		SessionID:    req.SessionID,
		CreatedAt:    s.now(),
	}
	if err := s.store.InsertPurchase(purchase); err != nil {
		return nil, err
	}

	if s.mailer != nil {
		body := fmt.Sprintf("<p>Thank you for your purchase. Your access code is <strong>%s</strong>. It is valid for one assessment within the next year.</p>", code.Code)
		if err := s.mailer.Send(ctx, req.Email, "Your assessment access code", body); err != nil {
			s.logger.Warn("access code email failed",
				zap.String("purchase_id", purchase.ID), zap.Error(err))
		}
	}
	return &PaymentOutcome{AccessCode: code, Purchase: purchase}, nil
}

// ListPurchases returns the acting user's purchases.
func (s *CheckoutService) ListPurchases(userID string) ([]*models.Purchase, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, NewInvalidError("user id required")
	}
	return s.store.ListPurchasesByUser(userID)
}
