package integration

import (
	"context"
	"errors"
	"testing"

	"dataspot/internal/datamart"
	"dataspot/internal/domain"
	"dataspot/internal/service"
)

type fakeFulfiller struct {
	fail bool
}

func (f *fakeFulfiller) PurchaseChecker(_ context.Context, req datamart.CheckerRequest) (*datamart.CheckerResult, error) {
	if f.fail {
		return nil, errors.New("provider timeout")
	}
	return &datamart.CheckerResult{
		SerialNumber: "WRN123456789",
		Pin:          "123456789012",
		Reference:    "DM-" + req.Reference,
	}, nil
}

func TestCheckerPurchase_DebitsAndFulfils(t *testing.T) {
	db := connectTestDB(t)
	userID := createTestUser(t, db)

	if _, err := db.Exec(context.Background(),
		`UPDATE users SET wallet_balance = 50 WHERE id = $1`, userID); err != nil {
		t.Fatalf("seed wallet: %v", err)
	}

	checkers := service.NewCheckerService(db, &fakeFulfiller{})
	purchase, err := checkers.Purchase(context.Background(), userID, "0241234567", domain.CheckerWAEC)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if purchase.Status != domain.CheckerStatusCompleted {
		t.Fatalf("expected completed, got %s", purchase.Status)
	}
	if purchase.Pin == "" || purchase.SerialNumber == "" {
		t.Fatalf("missing credential: %+v", purchase)
	}
	if got := walletBalance(t, db, userID); got != 31 {
		t.Fatalf("expected wallet 31 after 19.00 debit, got %v", got)
	}
}

func TestCheckerPurchase_InsufficientFunds(t *testing.T) {
	db := connectTestDB(t)
	userID := createTestUser(t, db)

	checkers := service.NewCheckerService(db, &fakeFulfiller{})
	_, err := checkers.Purchase(context.Background(), userID, "0241234567", domain.CheckerBECE)
	if !errors.Is(err, service.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if got := walletBalance(t, db, userID); got != 0 {
		t.Fatalf("failed purchase moved money: %v", got)
	}
}

func TestCheckerPurchase_RefundsOnFulfilmentFailure(t *testing.T) {
	db := connectTestDB(t)
	userID := createTestUser(t, db)

	if _, err := db.Exec(context.Background(),
		`UPDATE users SET wallet_balance = 25 WHERE id = $1`, userID); err != nil {
		t.Fatalf("seed wallet: %v", err)
	}

	checkers := service.NewCheckerService(db, &fakeFulfiller{fail: true})
	_, err := checkers.Purchase(context.Background(), userID, "0551234567", domain.CheckerWAEC)
	if err == nil {
		t.Fatal("expected fulfilment failure")
	}
	if got := walletBalance(t, db, userID); got != 25 {
		t.Fatalf("expected full refund to 25, got %v", got)
	}
}
