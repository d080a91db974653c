package handlers

import (
	"dataspot/internal/config"
	"dataspot/internal/datamart"
	"dataspot/internal/paystack"
	"dataspot/internal/service"
	"dataspot/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Handler owns the services behind the HTTP surface.
type Handler struct {
	DB            *pgxpool.Pool
	Deposits      *service.DepositService
	Checkers      *service.CheckerService
	Hub           *ws.Hub
	WebhookSecret string
}

// NewHandler wires the gateway adapters and services from config.
func NewHandler(db *pgxpool.Pool, cfg *config.Config) *Handler {
	gateway := paystack.NewClient(cfg.PaystackBaseURL, cfg.PaystackSecretKey)
	reseller := datamart.NewClient(cfg.DatamartBaseURL, cfg.DatamartAPIKey)

	deposits := service.NewDepositService(db, gateway, service.DepositConfig{
		Rules: service.DepositRules{
			FeePercentage: cfg.FeePercentage,
			Tolerance:     cfg.AmountTolerance,
			MinDeposit:    cfg.MinDeposit,
			MaxDeposit:    cfg.MaxDeposit,
		},
		CallbackURL: cfg.CallbackURL,
		LockTTL:     cfg.ProcessingLockTTL,
	})

	hub := ws.NewHub()
	deposits.SetNotifier(hub)

	return &Handler{
		DB:            db,
		Deposits:      deposits,
		Checkers:      service.NewCheckerService(db, reseller),
		Hub:           hub,
		WebhookSecret: cfg.PaystackSecretKey,
	}
}

func getUserID(c *gin.Context) (int64, bool) {
	uidVal, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	switch v := uidVal.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
