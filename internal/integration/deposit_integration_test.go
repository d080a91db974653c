package integration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"dataspot/internal/domain"
	"dataspot/internal/paystack"
	"dataspot/internal/repository"
	"dataspot/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
)

var testDepositCfg = service.DepositConfig{
	Rules: service.DepositRules{
		FeePercentage: 3,
		Tolerance:     0.01,
		MinDeposit:    10,
		MaxDeposit:    100000,
	},
	CallbackURL: "https://example.test/payment/callback",
	LockTTL:     10 * time.Minute,
}

type fakeGateway struct {
	verify    paystack.VerifyData
	verifyErr error
}

func (f *fakeGateway) Initialize(_ context.Context, req paystack.InitializeRequest) (*paystack.InitializeData, error) {
	return &paystack.InitializeData{
		AuthorizationURL: "https://checkout.test/" + req.Reference,
		Reference:        req.Reference,
	}, nil
}

func (f *fakeGateway) Verify(_ context.Context, _ string) (*paystack.VerifyData, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	v := f.verify
	return &v, nil
}

func connectTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	db, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)
	applyMigrations(t, db)
	return db
}

func applyMigrations(t *testing.T, db *pgxpool.Pool) {
	t.Helper()
	migDir := filepath.Join("..", "..", "internal", "migrations")
	files, err := os.ReadDir(migDir)
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	for _, f := range files {
		b, err := os.ReadFile(filepath.Join(migDir, f.Name()))
		if err != nil {
			t.Fatalf("read file: %v", err)
		}
		if _, err := db.Exec(context.Background(), string(b)); err != nil {
			t.Fatalf("apply migration %s: %v", f.Name(), err)
		}
	}
}

// createTestUser inserts a month-old user so the age heuristics stay quiet.
func createTestUser(t *testing.T, db *pgxpool.Pool) int64 {
	t.Helper()
	var id int64
	email := fmt.Sprintf("deposit-%d@test.local", time.Now().UnixNano())
	err := db.QueryRow(context.Background(), `
		INSERT INTO users (name, email, wallet_balance, approval_status, created_at)
		VALUES ('Test User', $1, 0, 'approved', now() - interval '30 days')
		RETURNING id
	`, email).Scan(&id)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return id
}

func walletBalance(t *testing.T, db *pgxpool.Pool, userID int64) float64 {
	t.Helper()
	var balance float64
	if err := db.QueryRow(context.Background(),
		`SELECT wallet_balance FROM users WHERE id = $1`, userID).Scan(&balance); err != nil {
		t.Fatalf("read balance: %v", err)
	}
	return balance
}

func TestDeposit_CreditsExactlyOnce(t *testing.T) {
	db := connectTestDB(t)
	userID := createTestUser(t, db)

	gw := &fakeGateway{}
	deposits := service.NewDepositService(db, gw, testDepositCfg)

	result, err := deposits.InitiateDeposit(context.Background(), userID, 100.0, 103.0, "")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if result.PaystackURL == "" || result.Reference == "" {
		t.Fatalf("incomplete initiate result: %+v", result)
	}

	outcome, err := deposits.ProcessGatewayConfirmation(context.Background(), result.Reference, &paystack.VerifyData{
		Status:    "success",
		Amount:    10300,
		Reference: result.Reference,
	})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if outcome.Code != service.OutcomeSuccess {
		t.Fatalf("expected success, got %s (%s)", outcome.Code, outcome.Message)
	}
	if outcome.NewBalance != 100 {
		t.Fatalf("expected new balance 100, got %v", outcome.NewBalance)
	}
	if got := walletBalance(t, db, userID); got != 100 {
		t.Fatalf("expected wallet 100, got %v", got)
	}

	// replaying the same confirmation must be a no-op
	outcome, err = deposits.ProcessGatewayConfirmation(context.Background(), result.Reference, &paystack.VerifyData{
		Status: "success", Amount: 10300, Reference: result.Reference,
	})
	if err != nil {
		t.Fatalf("replay confirm: %v", err)
	}
	if outcome.Code != service.OutcomeAlreadyProcessed {
		t.Fatalf("expected already-processed, got %s", outcome.Code)
	}
	if got := walletBalance(t, db, userID); got != 100 {
		t.Fatalf("replay changed the wallet: %v", got)
	}
}

func TestDeposit_GatewayAmountMismatchBlocks(t *testing.T) {
	db := connectTestDB(t)
	userID := createTestUser(t, db)

	deposits := service.NewDepositService(db, &fakeGateway{}, testDepositCfg)

	result, err := deposits.InitiateDeposit(context.Background(), userID, 100.0, 103.0, "")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	// gateway charged less than the ledger expects
	outcome, err := deposits.ProcessGatewayConfirmation(context.Background(), result.Reference, &paystack.VerifyData{
		Status: "success", Amount: 9900, Reference: result.Reference,
	})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if outcome.Code != service.OutcomeVerificationFailed {
		t.Fatalf("expected verification failure, got %s", outcome.Code)
	}
	if got := walletBalance(t, db, userID); got != 0 {
		t.Fatalf("mismatched charge credited the wallet: %v", got)
	}

	tx, err := repository.NewTransactionRepository(db).GetByReference(context.Background(), result.Reference)
	if err != nil || tx == nil {
		t.Fatalf("load transaction: %v", err)
	}
	if tx.Status != domain.TxStatusFailed {
		t.Fatalf("expected failed, got %s", tx.Status)
	}

	// failed is terminal: a later matching confirmation cannot revive it
	outcome, err = deposits.ProcessGatewayConfirmation(context.Background(), result.Reference, &paystack.VerifyData{
		Status: "success", Amount: 10300, Reference: result.Reference,
	})
	if err != nil {
		t.Fatalf("revive confirm: %v", err)
	}
	if outcome.Code != service.OutcomeAlreadyProcessed {
		t.Fatalf("expected already-processed, got %s", outcome.Code)
	}
	if got := walletBalance(t, db, userID); got != 0 {
		t.Fatalf("terminal transaction credited the wallet: %v", got)
	}
}

func TestDeposit_ConcurrentConfirmations(t *testing.T) {
	db := connectTestDB(t)
	userID := createTestUser(t, db)

	deposits := service.NewDepositService(db, &fakeGateway{}, testDepositCfg)

	result, err := deposits.InitiateDeposit(context.Background(), userID, 100.0, 103.0, "")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	const racers = 5
	var wg sync.WaitGroup
	outcomes := make([]*service.ConfirmOutcome, racers)
	errs := make([]error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = deposits.ProcessGatewayConfirmation(context.Background(), result.Reference, &paystack.VerifyData{
				Status: "success", Amount: 10300, Reference: result.Reference,
			})
		}(i)
	}
	wg.Wait()

	successes := 0
	for i := 0; i < racers; i++ {
		if errs[i] != nil {
			t.Fatalf("racer %d: %v", i, errs[i])
		}
		if outcomes[i].Code == service.OutcomeSuccess {
			successes++
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one success, got %d", successes)
	}
	if got := walletBalance(t, db, userID); got != 100 {
		t.Fatalf("expected wallet 100 after race, got %v", got)
	}
}

func TestVerifyPendingTransaction_FinalizesGatewayFailure(t *testing.T) {
	db := connectTestDB(t)
	userID := createTestUser(t, db)

	gw := &fakeGateway{verify: paystack.VerifyData{Status: "failed"}}
	deposits := service.NewDepositService(db, gw, testDepositCfg)

	result, err := deposits.InitiateDeposit(context.Background(), userID, 50.0, 51.5, "")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	tx, err := repository.NewTransactionRepository(db).GetByReference(context.Background(), result.Reference)
	if err != nil || tx == nil {
		t.Fatalf("load transaction: %v", err)
	}

	outcome, err := deposits.VerifyPendingTransaction(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("verify pending: %v", err)
	}
	if outcome.Status != domain.TxStatusFailed {
		t.Fatalf("expected finalized failure, got %s", outcome.Status)
	}
	if got := walletBalance(t, db, userID); got != 0 {
		t.Fatalf("failed payment credited the wallet: %v", got)
	}
}

// A manual verification can read a transaction as pending, block on the
// gateway, and come back with a stale "failed" after a webhook already
// completed and credited it. The finalization predicate must refuse to move
// the status backward.
func TestMarkStatus_NeverMovesCompletedBackward(t *testing.T) {
	db := connectTestDB(t)
	userID := createTestUser(t, db)

	deposits := service.NewDepositService(db, &fakeGateway{}, testDepositCfg)
	result, err := deposits.InitiateDeposit(context.Background(), userID, 100.0, 103.0, "")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	repo := repository.NewTransactionRepository(db)
	tx, err := repo.GetByReference(context.Background(), result.Reference)
	if err != nil || tx == nil {
		t.Fatalf("load transaction: %v", err)
	}

	// webhook wins the race and credits
	outcome, err := deposits.ProcessGatewayConfirmation(context.Background(), result.Reference, &paystack.VerifyData{
		Status: "success", Amount: 10300, Reference: result.Reference,
	})
	if err != nil || outcome.Code != service.OutcomeSuccess {
		t.Fatalf("confirm: %v %+v", err, outcome)
	}

	// the stale manual finalization must be a no-op
	finalized, err := repo.MarkStatus(context.Background(), tx.ID, domain.TxStatusFailed)
	if err != nil {
		t.Fatalf("mark status: %v", err)
	}
	if finalized {
		t.Fatal("completed transaction was finalized failed")
	}

	cur, err := repo.GetByReference(context.Background(), result.Reference)
	if err != nil || cur == nil {
		t.Fatalf("reload transaction: %v", err)
	}
	if cur.Status != domain.TxStatusCompleted {
		t.Fatalf("status moved backward to %s", cur.Status)
	}
	if got := walletBalance(t, db, userID); got != 100 {
		t.Fatalf("expected wallet 100, got %v", got)
	}
}

func TestMarkStatus_SkipsLockedTransaction(t *testing.T) {
	db := connectTestDB(t)
	userID := createTestUser(t, db)

	deposits := service.NewDepositService(db, &fakeGateway{}, testDepositCfg)
	result, err := deposits.InitiateDeposit(context.Background(), userID, 100.0, 103.0, "")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	repo := repository.NewTransactionRepository(db)
	tx, err := repo.GetByReference(context.Background(), result.Reference)
	if err != nil || tx == nil {
		t.Fatalf("load transaction: %v", err)
	}

	// another reconciler holds the processing lock
	if _, err := db.Exec(context.Background(),
		`UPDATE transactions SET processing = true WHERE id = $1`, tx.ID); err != nil {
		t.Fatalf("seed lock: %v", err)
	}

	finalized, err := repo.MarkStatus(context.Background(), tx.ID, domain.TxStatusFailed)
	if err != nil {
		t.Fatalf("mark status: %v", err)
	}
	if finalized {
		t.Fatal("locked transaction was finalized out from under its reconciler")
	}
}

func TestProcessGatewayConfirmation_UnknownReference(t *testing.T) {
	db := connectTestDB(t)

	deposits := service.NewDepositService(db, &fakeGateway{}, testDepositCfg)
	_, err := deposits.ProcessGatewayConfirmation(context.Background(), "DEP-does-not-exist-1", &paystack.VerifyData{
		Status: "success", Amount: 10300, Reference: "DEP-does-not-exist-1",
	})
	if !errors.Is(err, service.ErrTransactionNotFound) {
		t.Fatalf("expected transaction-not-found, got %v", err)
	}
}

func TestVerifyPayment_MismatchReportsFailedStatus(t *testing.T) {
	db := connectTestDB(t)
	userID := createTestUser(t, db)

	// gateway says success but charged less than the ledger expects
	gw := &fakeGateway{verify: paystack.VerifyData{Status: "success", Amount: 9900}}
	deposits := service.NewDepositService(db, gw, testDepositCfg)

	result, err := deposits.InitiateDeposit(context.Background(), userID, 100.0, 103.0, "")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	outcome, err := deposits.VerifyPayment(context.Background(), result.Reference)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if outcome.Success {
		t.Fatal("mismatched charge reported success")
	}
	if outcome.Code != service.OutcomeVerificationFailed {
		t.Fatalf("expected verification failure, got %s", outcome.Code)
	}
	if outcome.Status != domain.TxStatusFailed {
		t.Fatalf("expected reported status failed, got %s", outcome.Status)
	}
	if got := walletBalance(t, db, userID); got != 0 {
		t.Fatalf("mismatched charge credited the wallet: %v", got)
	}
}

func TestVerifyPayment_PendingStaysPending(t *testing.T) {
	db := connectTestDB(t)
	userID := createTestUser(t, db)

	gw := &fakeGateway{verify: paystack.VerifyData{Status: "abandoned"}}
	deposits := service.NewDepositService(db, gw, testDepositCfg)

	result, err := deposits.InitiateDeposit(context.Background(), userID, 20.0, 20.6, "")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	outcome, err := deposits.VerifyPayment(context.Background(), result.Reference)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if outcome.Success {
		t.Fatal("abandoned payment reported success")
	}
	if outcome.Status != domain.TxStatusPending {
		t.Fatalf("expected still pending, got %s", outcome.Status)
	}
}
