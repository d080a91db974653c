package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"dataspot/internal/datamart"
	"dataspot/internal/domain"
	"dataspot/internal/logger"
	"dataspot/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrInsufficientFunds  = errors.New("insufficient wallet balance")
	ErrUnknownCheckerType = errors.New("unknown checker type")
	ErrInvalidPhoneNumber = errors.New("invalid phone number")
)

// Fixed checker pricing in GHS.
var checkerPricing = map[string]float64{
	domain.CheckerWAEC: 19.00,
	domain.CheckerBECE: 19.00,
}

// CheckerFulfiller is the boundary with the reseller that issues PINs.
type CheckerFulfiller interface {
	PurchaseChecker(ctx context.Context, req datamart.CheckerRequest) (*datamart.CheckerResult, error)
}

// CheckerService sells result-checker PINs against the wallet. The debit
// follows the same discipline as deposits: balance check and deduction are
// one atomic statement, paired with the transaction record in one database
// transaction.
type CheckerService struct {
	db           *pgxpool.Pool
	reseller     CheckerFulfiller
	users        *repository.UserRepository
	transactions *repository.TransactionRepository
	checkers     *repository.CheckerRepository
}

func NewCheckerService(db *pgxpool.Pool, reseller CheckerFulfiller) *CheckerService {
	return &CheckerService{
		db:           db,
		reseller:     reseller,
		users:        repository.NewUserRepository(db),
		transactions: repository.NewTransactionRepository(db),
		checkers:     repository.NewCheckerRepository(db),
	}
}

// Products returns the fixed storefront catalogue.
func (s *CheckerService) Products() []domain.CheckerProduct {
	return []domain.CheckerProduct{
		{
			ID:          "waec",
			Name:        "WAEC Result Checker",
			Description: "Check your WAEC examination results online",
			Price:       checkerPricing[domain.CheckerWAEC],
			Type:        domain.CheckerWAEC,
			Features:    []string{"View results online", "Print certificates", "Share results"},
		},
		{
			ID:          "bece",
			Name:        "BECE Result Checker",
			Description: "Check your BECE examination results online",
			Price:       checkerPricing[domain.CheckerBECE],
			Type:        domain.CheckerBECE,
			Features:    []string{"View results online", "Print certificates", "Share results"},
		},
	}
}

// Purchase debits the wallet and asks the reseller for a credential. A
// fulfilment failure after the debit is refunded in a second transaction.
func (s *CheckerService) Purchase(ctx context.Context, userID int64, phoneNumber, checkerType string) (*domain.CheckerPurchase, error) {
	price, ok := checkerPricing[checkerType]
	if !ok {
		return nil, ErrUnknownCheckerType
	}
	phone, err := NormalizeGhanaPhone(phoneNumber)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.IsDisabled {
		return nil, &AccountDisabledError{Reason: user.DisableReason}
	}

	reference := NewCheckerReference(checkerType)
	purchase := &domain.CheckerPurchase{
		UserID:      userID,
		PhoneNumber: phone,
		CheckerType: checkerType,
		Price:       price,
		Status:      domain.CheckerStatusPending,
		Reference:   reference,
	}

	// Debit, ledger record and purchase row commit together.
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := s.users.DebitWallet(ctx, tx, userID, price); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInsufficientFunds
		}
		return nil, err
	}

	ledgerTx := &domain.Transaction{
		UserID:    userID,
		Type:      domain.TxTypeCheckerPurchase,
		Amount:    price,
		Status:    domain.TxStatusCompleted,
		Reference: reference,
		Gateway:   domain.GatewayWallet,
		Metadata: map[string]interface{}{
			"checkerType": checkerType,
			"phoneNumber": phone,
		},
	}
	if err := s.transactions.CreateWithTx(ctx, tx, ledgerTx); err != nil {
		return nil, err
	}

	purchase.TransactionID = &ledgerTx.ID
	if err := s.checkers.CreateWithTx(ctx, tx, purchase); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	result, err := s.reseller.PurchaseChecker(ctx, datamart.CheckerRequest{
		CheckerType: checkerType,
		PhoneNumber: phone,
		Reference:   reference,
	})
	if err != nil {
		logger.Error("checker fulfilment failed, refunding",
			"reference", reference, "user_id", userID, "error", err)
		s.refund(ctx, purchase, ledgerTx.ID)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	if err := s.checkers.MarkFulfilled(ctx, purchase.ID, result.SerialNumber, result.Pin, result.Reference); err != nil {
		logger.Error("failed to record fulfilled checker", "reference", reference, "error", err)
	}
	purchase.Status = domain.CheckerStatusCompleted
	purchase.SerialNumber = result.SerialNumber
	purchase.Pin = result.Pin
	purchase.DatamartReference = result.Reference

	logger.Info("checker purchased",
		"reference", reference, "type", checkerType, "user_id", userID)
	return purchase, nil
}

func (s *CheckerService) refund(ctx context.Context, purchase *domain.CheckerPurchase, debitTxID int64) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		logger.Error("refund begin failed", "reference", purchase.Reference, "error", err)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := s.users.CreditWallet(ctx, tx, purchase.UserID, purchase.Price); err != nil {
		logger.Error("refund credit failed", "reference", purchase.Reference, "error", err)
		return
	}
	refundTx := &domain.Transaction{
		UserID:    purchase.UserID,
		Type:      domain.TxTypeRefund,
		Amount:    purchase.Price,
		Status:    domain.TxStatusCompleted,
		Reference: purchase.Reference + "-REFUND",
		Gateway:   domain.GatewaySystem,
		Metadata: map[string]interface{}{
			"refundedTransactionId": debitTxID,
			"reason":                "checker fulfilment failed",
		},
	}
	if err := s.transactions.CreateWithTx(ctx, tx, refundTx); err != nil {
		logger.Error("refund record failed", "reference", purchase.Reference, "error", err)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		logger.Error("refund commit failed", "reference", purchase.Reference, "error", err)
		return
	}

	if err := s.checkers.MarkRefunded(ctx, purchase.ID); err != nil {
		logger.Error("failed to mark purchase refunded", "reference", purchase.Reference, "error", err)
	}
}

// History returns a user's checker purchases.
func (s *CheckerService) History(ctx context.Context, userID int64, limit int) ([]domain.CheckerPurchase, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	return s.checkers.GetByUserID(ctx, userID, limit)
}

var ghanaPrefixes = map[string]bool{
	"024": true, "054": true, "055": true, "059": true, "026": true,
	"025": true, "053": true, "027": true, "057": true, "023": true,
	"020": true, "050": true, "056": true,
}

// NormalizeGhanaPhone validates a 10-digit Ghana mobile number and strips
// separators.
func NormalizeGhanaPhone(phone string) (string, error) {
	clean := strings.NewReplacer(" ", "", "-", "").Replace(phone)
	if len(clean) != 10 || !strings.HasPrefix(clean, "0") {
		return "", ErrInvalidPhoneNumber
	}
	for _, r := range clean {
		if r < '0' || r > '9' {
			return "", ErrInvalidPhoneNumber
		}
	}
	if !ghanaPrefixes[clean[:3]] {
		return "", ErrInvalidPhoneNumber
	}
	return clean, nil
}

const checkerRefAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewCheckerReference generates a per-type purchase reference.
func NewCheckerReference(checkerType string) string {
	prefix := "BEC"
	if checkerType == domain.CheckerWAEC {
		prefix = "WEC"
	}
	ts := fmt.Sprintf("%d", time.Now().UnixMilli())
	if len(ts) > 6 {
		ts = ts[len(ts)-6:]
	}
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = checkerRefAlphabet[rand.Intn(len(checkerRefAlphabet))]
	}
	return fmt.Sprintf("%s-%s-%s", prefix, ts, suffix)
}
