package handlers

import (
	"errors"
	"io"
	"net/http"

	"dataspot/internal/http/middleware"
	"dataspot/internal/logger"
	"dataspot/internal/paystack"
	"dataspot/internal/service"

	"github.com/gin-gonic/gin"
)

// PaystackWebhook receives gateway events. The signature is checked over the
// raw body before any parsing; unsigned or tampered payloads are rejected.
// Events other than charge.success are acknowledged without action so the
// gateway stops redelivering them.
func (h *Handler) PaystackWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		middleware.WebhookDeliveries.WithLabelValues("read_error").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	signature := c.GetHeader(paystack.SignatureHeader)
	if !paystack.ValidateSignature(body, signature, h.WebhookSecret) {
		logger.Warn("webhook signature mismatch", "remote_addr", c.ClientIP())
		middleware.WebhookDeliveries.WithLabelValues("bad_signature").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	event, err := paystack.ParseEvent(body)
	if err != nil {
		middleware.WebhookDeliveries.WithLabelValues("bad_payload").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	if event.Event != paystack.EventChargeSuccess {
		middleware.WebhookDeliveries.WithLabelValues("ignored").Inc()
		c.JSON(http.StatusOK, gin.H{"message": "Event received"})
		return
	}

	outcome, err := h.Deposits.ProcessGatewayConfirmation(c.Request.Context(), event.Data.Reference, &event.Data)
	if err != nil {
		if errors.Is(err, service.ErrTransactionNotFound) {
			// Unknown reference: acknowledge so the gateway does not retry
			// a payment we never initiated.
			middleware.WebhookDeliveries.WithLabelValues("unknown_reference").Inc()
			logger.Warn("webhook for unknown reference", "reference", event.Data.Reference)
			c.JSON(http.StatusOK, gin.H{"message": "Event received"})
			return
		}
		middleware.WebhookDeliveries.WithLabelValues("error").Inc()
		logger.Error("webhook processing failed", "reference", event.Data.Reference, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process webhook"})
		return
	}

	switch outcome.Code {
	case service.OutcomeSuccess:
		middleware.WebhookDeliveries.WithLabelValues("settled").Inc()
		middleware.DepositsSettled.WithLabelValues("completed").Inc()
		middleware.FraudFlagsRaised.Add(float64(len(outcome.FraudFlags)))
		c.JSON(http.StatusOK, gin.H{
			"message":    "Deposit completed successfully",
			"amount":     outcome.Amount,
			"newBalance": outcome.NewBalance,
		})
	case service.OutcomeAlreadyProcessed:
		middleware.WebhookDeliveries.WithLabelValues("duplicate").Inc()
		c.JSON(http.StatusOK, gin.H{"message": "Transaction already processed"})
	case service.OutcomeVerificationFailed:
		middleware.WebhookDeliveries.WithLabelValues("amount_mismatch").Inc()
		middleware.DepositsSettled.WithLabelValues("failed").Inc()
		c.JSON(http.StatusBadRequest, gin.H{
			"error": outcome.Message,
			"code":  "PAYMENT_VERIFICATION_FAILED",
		})
	default:
		c.JSON(http.StatusOK, gin.H{"message": outcome.Message})
	}
}
