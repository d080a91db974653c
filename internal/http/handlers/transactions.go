package handlers

import (
	"math"
	"net/http"
	"strconv"

	"dataspot/internal/logger"

	"github.com/gin-gonic/gin"
)

// UserTransactions lists the caller's deposit history with pagination.
func (h *Handler) UserTransactions(c *gin.Context) {
	pathUserID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid user ID"})
		return
	}

	uid, ok := getUserID(c)
	if !ok || uid != pathUserID {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Cannot view another user's transactions"})
		return
	}

	status := c.Query("status")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	txs, total, err := h.Deposits.ListDeposits(c.Request.Context(), uid, status, page, limit)
	if err != nil {
		logger.Error("failed to list transactions", "user_id", uid, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch transactions"})
		return
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	pages := int64(math.Ceil(float64(total) / float64(limit)))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"transactions": txs,
			"pagination": gin.H{
				"total": total,
				"page":  page,
				"limit": limit,
				"pages": pages,
			},
		},
	})
}
