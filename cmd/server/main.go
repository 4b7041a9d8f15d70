package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/careerlens/careerlens/internal/api"
	"github.com/careerlens/careerlens/internal/config"
	"github.com/careerlens/careerlens/internal/db"
	"github.com/careerlens/careerlens/internal/mail"
	"github.com/careerlens/careerlens/internal/middleware"
	"github.com/careerlens/careerlens/internal/payment"
	"github.com/careerlens/careerlens/internal/services"
	"github.com/careerlens/careerlens/internal/workflow"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	store, cleanup, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer cleanup()

	if dir := os.Getenv("CAREERLENS_SURVEY_DIR"); dir != "" {
		if err := seedSurveyDefinitions(store, dir); err != nil {
			logger.Fatal("seed survey definitions", zap.String("dir", dir), zap.Error(err))
		}
	}

	var mailer services.Mailer
	if cfg.EmailAPIKey != "" {
		mailer = mail.NewClient(cfg.EmailAPIKey, cfg.EmailFrom)
	} else {
		logger.Warn("no email api key configured, mail is log-only")
		mailer = mail.NewLogMailer(logger)
	}

	var payments services.PaymentClient
	if cfg.PaymentSecretKey != "" {
		payments = payment.NewClient(cfg.PaymentSecretKey, cfg.CheckoutSuccess, cfg.CheckoutCancel)
	} else {
		logger.Warn("no payment secret key configured, checkout is disabled")
	}

	dispatcher := workflow.NewDispatcher(cfg.SurveyWebhookURL, cfg.ChatWebhookURL, cfg.WorkflowToken, logger)

	router := api.NewRouter(store, api.RouterConfig{
		SurveyDispatcher:      dispatcher,
		ChatDispatcher:        dispatcher,
		Mailer:                mailer,
		Payments:              payments,
		WorkflowToken:         cfg.WorkflowToken,
		AllowStatusRegression: cfg.AllowStatusRegression,
		Logger:                logger,
	})

	handler := middleware.CORS(cfg.AllowedOrigins,
		middleware.SecureHeaders(
			middleware.NoStore(router.Handler())))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

// openStore picks the durable SQLite store when a path is configured and
// the in-memory store otherwise.
func openStore(cfg *config.Config, logger *zap.Logger) (api.Store, func(), error) {
	if cfg.SQLitePath == "" {
		logger.Warn("no sqlite path configured, data is in-memory only")
		return api.NewMemoryStore(), func() {}, nil
	}
	store, err := db.Open(cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("sqlite store ready", zap.String("path", cfg.SQLitePath))
	return store, func() { store.Close() }, nil
}
