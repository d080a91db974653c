package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"dataspot/internal/domain"
	"dataspot/internal/http/handlers"
	"dataspot/internal/service"

	"github.com/gin-gonic/gin"
)

// A freshly initiated deposit must come back through the transactions
// endpoint as a pending row carrying the base amount, not the fee-inclusive
// total Paystack charges.
func TestUserTransactions_ListsInitiatedDeposit(t *testing.T) {
	db := connectTestDB(t)
	userID := createTestUser(t, db)

	deposits := service.NewDepositService(db, &fakeGateway{}, testDepositCfg)
	result, err := deposits.InitiateDeposit(context.Background(), userID, 100.0, 103.0, "")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	gin.SetMode(gin.TestMode)
	h := &handlers.Handler{Deposits: deposits}
	r := gin.New()
	r.GET("/user-transactions/:userId", func(c *gin.Context) {
		c.Set("user_id", userID)
		h.UserTransactions(c)
	})

	req := httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/user-transactions/%d?page=1&limit=10", userID), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Transactions []domain.Transaction `json:"transactions"`
			Pagination   struct {
				Total int64 `json:"total"`
				Page  int   `json:"page"`
				Limit int   `json:"limit"`
				Pages int64 `json:"pages"`
			} `json:"pagination"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Fatal("expected success envelope")
	}

	if len(resp.Data.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(resp.Data.Transactions))
	}
	tx := resp.Data.Transactions[0]
	if tx.Reference != result.Reference {
		t.Fatalf("expected reference %s, got %s", result.Reference, tx.Reference)
	}
	if tx.Status != domain.TxStatusPending {
		t.Fatalf("expected pending, got %s", tx.Status)
	}
	if tx.Amount != 100 {
		t.Fatalf("expected base amount 100, got %v", tx.Amount)
	}

	p := resp.Data.Pagination
	if p.Total != 1 || p.Page != 1 || p.Limit != 10 || p.Pages != 1 {
		t.Fatalf("unexpected pagination: %+v", p)
	}
}

// The status filter drives a second SQL placeholder; make sure both shapes of
// the query run against a real database.
func TestUserTransactions_StatusFilter(t *testing.T) {
	db := connectTestDB(t)
	userID := createTestUser(t, db)

	deposits := service.NewDepositService(db, &fakeGateway{}, testDepositCfg)
	if _, err := deposits.InitiateDeposit(context.Background(), userID, 100.0, 103.0, ""); err != nil {
		t.Fatalf("initiate: %v", err)
	}

	txs, total, err := deposits.ListDeposits(context.Background(), userID, domain.TxStatusCompleted, 1, 10)
	if err != nil {
		t.Fatalf("list completed: %v", err)
	}
	if total != 0 || len(txs) != 0 {
		t.Fatalf("expected no completed deposits, got total %d rows %d", total, len(txs))
	}

	txs, total, err = deposits.ListDeposits(context.Background(), userID, domain.TxStatusPending, 1, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if total != 1 || len(txs) != 1 {
		t.Fatalf("expected one pending deposit, got total %d rows %d", total, len(txs))
	}
}
