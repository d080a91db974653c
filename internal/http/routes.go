package http

import (
	"dataspot/internal/config"
	"dataspot/internal/http/handlers"
	"dataspot/internal/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RegisterRoutes mounts the full API surface onto the engine.
func RegisterRoutes(r *gin.Engine, db *pgxpool.Pool, cfg *config.Config, version string) *handlers.Handler {
	h := handlers.NewHandler(db, cfg)
	healthHandler := handlers.NewHealthHandler(db, h.Hub, version)

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit(cfg.APIRateLimit, cfg.APIRateWindow))
	registerAPIRoutes(v1, h)

	// Legacy unversioned routes, same handlers
	api := r.Group("/api")
	api.Use(middleware.RedisRateLimit(cfg.APIRateLimit, cfg.APIRateWindow))
	registerAPIRoutes(api, h)

	// WebSocket deposit settlement stream; JWT arrives as a query token
	// because browsers cannot set headers on the upgrade request.
	r.GET("/ws/deposits", middleware.JWT(), h.DepositStream)

	return h
}

func registerAPIRoutes(api *gin.RouterGroup, h *handlers.Handler) {
	// Deposits
	api.POST("/deposit", middleware.JWT(), h.Deposit)
	api.GET("/verify-payment", h.VerifyPayment)
	api.POST("/verify-pending-transaction/:transactionId", middleware.JWT(), h.VerifyPendingTransaction)
	api.GET("/user-transactions/:userId", middleware.JWT(), h.UserTransactions)

	// Gateway webhook; authenticated by signature, not JWT
	api.POST("/paystack/webhook", h.PaystackWebhook)

	// Result checkers
	api.GET("/checker-products", h.CheckerProducts)
	api.POST("/purchase-checker", middleware.JWT(), h.PurchaseChecker)
	api.GET("/my-checkers", middleware.JWT(), h.CheckerHistory)
}
