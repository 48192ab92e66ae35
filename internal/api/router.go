package api

import (
	"net/http"

	"github.com/ayo6706/invest-ledger/internal/api/handler"
	"github.com/ayo6706/invest-ledger/internal/api/middleware"
	"github.com/ayo6706/invest-ledger/internal/api/spec"
	"github.com/ayo6706/invest-ledger/internal/config"
	"github.com/ayo6706/invest-ledger/internal/domain"
	"github.com/ayo6706/invest-ledger/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// Deps carries the collaborators the HTTP surface is built from.
type Deps struct {
	DB          handler.Pinger
	Redis       redis.Cmdable
	Auth        *middleware.JWTAuth
	Idempotency middleware.ResponseStore
	Settings    handler.SettingsStore
	Batches     handler.BatchRunner

	Accounts       *service.AccountService
	Activations    *service.ActivationService
	Investments    *service.InvestmentService
	Withdrawals    *service.WithdrawalService
	Transfers      *service.TransferService
	Profit         *service.ProfitService
	Reconciliation *service.ReconciliationService
	Webhooks       *service.WebhookService
	Audit          *service.AuditService
}

type Router struct {
	cfg    *config.Config
	logger *zap.Logger
	deps   Deps
}

func NewRouter(cfg *config.Config, logger *zap.Logger, deps Deps) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{cfg: cfg, logger: logger, deps: deps}
}

func (api *Router) Routes() chi.Router {
	d := api.deps

	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)

	healthHandler := handler.NewHealthHandler(d.DB, d.Redis)
	authHandler := handler.NewAuthHandler(d.Accounts, d.Auth)
	accountHandler := handler.NewAccountHandler(d.Accounts)
	investmentHandler := handler.NewInvestmentHandler(d.Investments, d.Activations)
	withdrawalHandler := handler.NewWithdrawalHandler(d.Withdrawals, d.Audit)
	transferHandler := handler.NewTransferHandler(d.Transfers)
	webhookHandler := handler.NewWebhookHandler(d.Webhooks)
	adminHandler := handler.NewAdminHandler(d.Settings, d.Batches, d.Profit, d.Activations, d.Reconciliation)

	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	// Public routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))
		r.Post("/v1/auth/login", authHandler.Login)
		r.Post("/v1/accounts", accountHandler.Register)
		r.Post("/v1/webhooks/deposit", webhookHandler.HandleDepositWebhook)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(d.Auth.Middleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))
		idem := middleware.IdempotencyMiddleware(d.Idempotency, api.logger)

		r.Get("/v1/me", accountHandler.Me)
		r.Get("/v1/me/incomes", accountHandler.Incomes)
		r.Get("/v1/me/team-rewards", accountHandler.TeamRewards)
		r.Get("/v1/accounts/{id}", accountHandler.Get)

		r.With(idem).Post("/v1/investments", investmentHandler.Invest)
		r.Get("/v1/investments", investmentHandler.List)
		r.Post("/v1/activations", investmentHandler.Activate)
		r.Get("/v1/activations/today", investmentHandler.TodayActivation)

		r.With(idem).Post("/v1/withdrawals", withdrawalHandler.Request)
		r.Get("/v1/withdrawals", withdrawalHandler.ListMine)
		r.Get("/v1/withdrawals/{id}", withdrawalHandler.Get)

		r.With(idem).Post("/v1/transfers", transferHandler.UserToUser)
		r.With(idem).Post("/v1/transfers/self", transferHandler.Self)

		r.Route("/v1/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleAdmin))

			r.Get("/withdrawals", withdrawalHandler.List)
			r.With(idem).Post("/withdrawals/{id}/approve", withdrawalHandler.Approve)
			r.With(idem).Post("/withdrawals/{id}/reject", withdrawalHandler.Reject)
			r.Get("/withdrawals/{id}/history", withdrawalHandler.History)

			r.With(idem).Post("/accounts/{id}/credit", transferHandler.AdminCredit)
			r.Post("/accounts/{id}/block", accountHandler.Block)
			r.Post("/accounts/{id}/unblock", accountHandler.Unblock)

			r.Get("/settings", adminHandler.GetSettings)
			r.Put("/settings", adminHandler.PutSettings)

			r.Post("/profit/override", adminHandler.OverrideProfit)
			r.Post("/batches/profit", adminHandler.RunProfit)
			r.Post("/batches/commission", adminHandler.RunCommission)
			r.Post("/reconciliation/run", adminHandler.RunReconciliation)
			r.Post("/activations/sync", adminHandler.SyncActivations)
		})
	})

	return r
}
