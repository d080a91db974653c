package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"dataspot/internal/logger"
	"dataspot/internal/service"

	"github.com/gin-gonic/gin"
)

// CheckerProducts returns the result-checker catalogue.
func (h *Handler) CheckerProducts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.Checkers.Products(),
	})
}

type purchaseCheckerRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	CheckerType string `json:"checkerType"`
}

// PurchaseChecker buys a result-checker PIN from the wallet balance.
func (h *Handler) PurchaseChecker(c *gin.Context) {
	var req purchaseCheckerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}

	uid, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
		return
	}

	purchase, err := h.Checkers.Purchase(c.Request.Context(), uid, req.PhoneNumber, req.CheckerType)
	if err != nil {
		h.renderCheckerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Checker purchased successfully",
		"purchase": purchase,
	})
}

// CheckerHistory lists the caller's checker purchases, newest first.
func (h *Handler) CheckerHistory(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	purchases, err := h.Checkers.History(c.Request.Context(), uid, limit)
	if err != nil {
		logger.Error("failed to list checker purchases", "user_id", uid, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch purchases"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": purchases})
}

func (h *Handler) renderCheckerError(c *gin.Context, err error) {
	var disabledErr *service.AccountDisabledError

	switch {
	case errors.Is(err, service.ErrUnknownCheckerType):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Unknown checker type"})
	case errors.Is(err, service.ErrInvalidPhoneNumber):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid Ghana phone number"})
	case errors.Is(err, service.ErrInsufficientFunds):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Insufficient wallet balance"})
	case errors.As(err, &disabledErr):
		c.JSON(http.StatusForbidden, gin.H{
			"success":       false,
			"error":         "Account is disabled",
			"disableReason": disabledErr.Reason,
		})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "User not found"})
	case errors.Is(err, service.ErrGatewayUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error":   "Checker provider unavailable, your wallet has been refunded",
		})
	default:
		logger.Error("checker purchase failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to purchase checker"})
	}
}
