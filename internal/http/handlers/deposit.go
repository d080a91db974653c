package handlers

import (
	"errors"
	"net/http"

	"dataspot/internal/http/middleware"
	"dataspot/internal/logger"
	"dataspot/internal/service"

	"github.com/gin-gonic/gin"
)

type depositRequest struct {
	UserID             int64       `json:"userId"`
	Amount             interface{} `json:"amount"`
	TotalAmountWithFee interface{} `json:"totalAmountWithFee"`
	Email              string      `json:"email"`
}

// Deposit creates a pending deposit and returns the gateway authorization URL.
func (h *Handler) Deposit(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body",
			"code":    "INVALID_INPUT",
		})
		return
	}

	uid, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
		return
	}
	// A userId in the body must match the authenticated caller.
	if req.UserID != 0 && req.UserID != uid {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Cannot deposit for another user"})
		return
	}

	if req.Amount == nil || req.TotalAmountWithFee == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "userId, amount, and totalAmountWithFee are required",
			"code":    "INVALID_INPUT",
		})
		return
	}

	result, err := h.Deposits.InitiateDeposit(c.Request.Context(), uid, req.Amount, req.TotalAmountWithFee, req.Email)
	if err != nil {
		h.renderDepositError(c, err)
		return
	}

	middleware.DepositsInitiated.Inc()
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Deposit initiated successfully",
		"paystackUrl": result.PaystackURL,
		"reference":   result.Reference,
		"amount":      result.Amount,
		"totalAmount": result.Total,
	})
}

func (h *Handler) renderDepositError(c *gin.Context, err error) {
	var amtErr *service.AmountError
	var disabledErr *service.AccountDisabledError

	switch {
	case errors.As(err, &amtErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   amtErr.Message,
			"code":    "INVALID_AMOUNT_CALCULATION",
		})
	case errors.As(err, &disabledErr):
		c.JSON(http.StatusForbidden, gin.H{
			"success":       false,
			"error":         "Account is disabled",
			"message":       "Your account has been disabled. Please contact support.",
			"disableReason": disabledErr.Reason,
		})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "User not found"})
	default:
		logger.Error("deposit initiation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to initiate deposit",
		})
	}
}
