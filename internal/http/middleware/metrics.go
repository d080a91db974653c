package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RLRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_requests_total",
			Help: "Total requests seen by the rate limiter",
		},
		[]string{"endpoint"},
	)
	RLBlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_blocked_total",
			Help: "Total requests blocked by the rate limiter",
		},
		[]string{"endpoint"},
	)

	DepositsInitiated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deposits_initiated_total",
			Help: "Deposit initiations accepted and sent to the gateway",
		},
	)
	DepositsSettled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deposits_settled_total",
			Help: "Deposit reconciliations by terminal outcome",
		},
		[]string{"outcome"},
	)
	FraudFlagsRaised = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fraud_flags_raised_total",
			Help: "Advisory fraud flags attached to deposits",
		},
	)
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paystack_webhook_deliveries_total",
			Help: "Webhook deliveries by disposition",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(RLRequests)
	prometheus.MustRegister(RLBlocked)
	prometheus.MustRegister(DepositsInitiated)
	prometheus.MustRegister(DepositsSettled)
	prometheus.MustRegister(FraudFlagsRaised)
	prometheus.MustRegister(WebhookDeliveries)
}
