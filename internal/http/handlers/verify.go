package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"dataspot/internal/http/middleware"
	"dataspot/internal/logger"
	"dataspot/internal/service"

	"github.com/gin-gonic/gin"
)

// VerifyPayment is the polled verification endpoint hit by the payment
// callback page. Completed transactions short-circuit without a gateway call.
func (h *Handler) VerifyPayment(c *gin.Context) {
	reference := c.Query("reference")
	if reference == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Reference is required"})
		return
	}

	outcome, err := h.Deposits.VerifyPayment(c.Request.Context(), reference)
	if err != nil {
		h.renderVerifyError(c, err)
		return
	}
	h.renderVerifyOutcome(c, outcome)
}

// VerifyPendingTransaction re-checks a pending deposit by internal id. This
// is the manual path, so a payment the gateway reports failed is finalized
// here rather than left pending forever.
func (h *Handler) VerifyPendingTransaction(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("transactionId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid transaction ID"})
		return
	}

	outcome, err := h.Deposits.VerifyPendingTransaction(c.Request.Context(), id)
	if err != nil {
		h.renderVerifyError(c, err)
		return
	}
	h.renderVerifyOutcome(c, outcome)
}

func (h *Handler) renderVerifyOutcome(c *gin.Context, outcome *service.VerifyOutcome) {
	data := gin.H{
		"reference": outcome.Reference,
		"amount":    outcome.Amount,
		"status":    outcome.Status,
	}
	if outcome.NewBalance != nil {
		data["newBalance"] = *outcome.NewBalance
	}
	if outcome.PaystackStatus != "" {
		data["paystackStatus"] = outcome.PaystackStatus
	}

	resp := gin.H{
		"success": outcome.Success,
		"message": outcome.Message,
		"data":    data,
	}
	if outcome.Code != "" && !outcome.Success {
		resp["code"] = string(outcome.Code)
	}

	if outcome.Success {
		if outcome.NewBalance != nil {
			middleware.DepositsSettled.WithLabelValues("completed").Inc()
		}
		c.JSON(http.StatusOK, resp)
		return
	}
	if outcome.Code == service.OutcomeVerificationFailed {
		middleware.DepositsSettled.WithLabelValues("failed").Inc()
		c.JSON(http.StatusBadRequest, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) renderVerifyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTransactionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Transaction not found"})
	case errors.Is(err, service.ErrGatewayUnavailable):
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to verify with Paystack"})
	default:
		logger.Error("payment verification failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to verify payment"})
	}
}
