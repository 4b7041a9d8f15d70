package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/careerlens/careerlens/internal/middleware"
	"github.com/careerlens/careerlens/internal/services"
)

// RouterConfig carries the external collaborators the handlers depend on.
// Leaving a field nil degrades that concern (log-only mail, no workflow
// forwarding) rather than failing construction, which keeps local runs and
// tests cheap to wire.
type RouterConfig struct {
	SurveyDispatcher      services.SurveyDispatcher
	ChatDispatcher        services.ChatDispatcher
	Mailer                services.Mailer
	Payments              services.PaymentClient
	WorkflowToken         string
	AllowStatusRegression bool
	Logger                *zap.Logger
}

type Router struct {
	store         Store
	logger        *zap.Logger
	workflowToken string

	auth        *services.AuthService
	access      *services.AccessService
	reports     *services.ReportService
	submissions *services.SubmissionService
	checkout    *services.CheckoutService
}

func NewRouter(store Store, cfg RouterConfig) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	mailer := cfg.Mailer
	access := services.NewAccessService(store)
	reports := services.NewReportService(store, mailer, cfg.ChatDispatcher, logger)
	reports.AllowStatusRegression = cfg.AllowStatusRegression
	return &Router{
		store:         store,
		logger:        logger,
		workflowToken: cfg.WorkflowToken,
		auth:          services.NewAuthService(store, middleware.SignToken),
		access:        access,
		reports:       reports,
		submissions:   services.NewSubmissionService(store, access, reports, cfg.SurveyDispatcher, store, logger),
		checkout:      services.NewCheckoutService(cfg.Payments, access, store, mailer, logger),
	}
}

// Register mounts every handler on mux. Authenticated routes are wrapped
// individually; webhook routes authenticate with the shared workflow token
// instead of a user JWT.
func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/auth/register", rt.handleRegister)
	mux.HandleFunc("/api/auth/login", rt.handleLogin)
	mux.HandleFunc("/api/access-codes/verify", rt.handleVerify)
	mux.HandleFunc("/api/checkout", rt.handleCheckout)
	mux.HandleFunc("/api/checkout/complete", rt.handleCheckoutComplete)
	mux.HandleFunc("/api/chat-session/init", rt.handleChatInit)
	mux.HandleFunc("/api/webhooks/", rt.handleWebhook)
	mux.HandleFunc("/api/surveys/", rt.handleSurveyScoped)
	mux.Handle("/api/purchases", middleware.RequireAuth(http.HandlerFunc(rt.handlePurchases)))
	mux.Handle("/api/reports", middleware.RequireAuth(http.HandlerFunc(rt.handleReports)))
	mux.Handle("/api/reports/", middleware.RequireAuth(http.HandlerFunc(rt.handleReportScoped)))
	mux.Handle("/api/sessions/", middleware.RequireAuth(http.HandlerFunc(rt.handleSessionScoped)))
	mux.HandleFunc("/health", rt.handleHealth)
	mux.HandleFunc("/version", rt.handleVersion)
}

// Handler returns the fully wrapped HTTP handler: auth claims extraction,
// then the route table.
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	rt.Register(mux)
	return middleware.WithAuth(mux)
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

var version = "dev"

func (rt *Router) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": version})
}
