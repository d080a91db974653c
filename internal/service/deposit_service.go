package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"dataspot/internal/domain"
	"dataspot/internal/logger"
	"dataspot/internal/paystack"
	"dataspot/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrUserMissing means a pending transaction references a user that no
	// longer exists. That is referential corruption, not user error, and it
	// must surface as a hard failure rather than a failed transaction.
	ErrUserMissing = errors.New("user referenced by transaction is missing")

	// ErrGatewayUnavailable wraps network/API failures talking to Paystack.
	// Callers surface a generic retry message; the detail is logged.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

// AccountDisabledError blocks deposits and purchases for disabled accounts.
type AccountDisabledError struct {
	Reason string
}

func (e *AccountDisabledError) Error() string { return "account is disabled" }

// PaymentGateway is the boundary with the external payment processor.
type PaymentGateway interface {
	Initialize(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeData, error)
	Verify(ctx context.Context, reference string) (*paystack.VerifyData, error)
}

// DepositNotifier receives settlement events for connected clients.
// Implementations must not block.
type DepositNotifier interface {
	DepositSettled(userID int64, event DepositEvent)
}

// DepositEvent is pushed to websocket subscribers when reconciliation
// reaches a terminal state. Polling endpoints remain the source of truth.
type DepositEvent struct {
	Reference  string   `json:"reference"`
	Status     string   `json:"status"`
	Amount     float64  `json:"amount"`
	NewBalance float64  `json:"new_balance,omitempty"`
	FraudFlags []string `json:"fraud_flags,omitempty"`
}

// OutcomeCode classifies a reconciliation attempt.
type OutcomeCode string

const (
	OutcomeSuccess            OutcomeCode = "SUCCESS"
	OutcomeAlreadyProcessed   OutcomeCode = "ALREADY_PROCESSED"
	OutcomeVerificationFailed OutcomeCode = "PAYMENT_VERIFICATION_FAILED"
)

// ConfirmOutcome is the result of processing a gateway confirmation.
type ConfirmOutcome struct {
	Code       OutcomeCode
	Message    string
	Amount     float64
	NewBalance float64
	FraudFlags []string
}

// DepositConfig carries the injected deposit constants.
type DepositConfig struct {
	Rules       DepositRules
	CallbackURL string
	LockTTL     time.Duration
}

// DepositService owns the deposit lifecycle: initiation, and the
// reconciliation state machine that moves a transaction from pending to
// completed or failed exactly once.
type DepositService struct {
	db           *pgxpool.Pool
	gateway      PaymentGateway
	transactions *repository.TransactionRepository
	users        *repository.UserRepository
	audits       *repository.AuditRepository
	fraud        *FraudService
	notifier     DepositNotifier
	cfg          DepositConfig
}

func NewDepositService(db *pgxpool.Pool, gateway PaymentGateway, cfg DepositConfig) *DepositService {
	transactions := repository.NewTransactionRepository(db)
	users := repository.NewUserRepository(db)
	return &DepositService{
		db:           db,
		gateway:      gateway,
		transactions: transactions,
		users:        users,
		audits:       repository.NewAuditRepository(db),
		fraud:        NewFraudService(transactions, users),
		cfg:          cfg,
	}
}

// SetNotifier attaches an optional settlement notifier.
func (s *DepositService) SetNotifier(n DepositNotifier) {
	s.notifier = n
}

// NewDepositReference generates a globally unique client-facing reference.
func NewDepositReference() string {
	buf := make([]byte, 10)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("DEP-%s-%d", hex.EncodeToString(buf), time.Now().UnixMilli())
}

// InitiateResult is returned to the client to complete payment.
type InitiateResult struct {
	PaystackURL string
	Reference   string
	Amount      float64
	Total       float64
}

// InitiateDeposit validates the declared amounts, creates the pending ledger
// pair and initializes the gateway charge. Validation runs before the user
// lookup and long before the gateway call: a locally malformed request never
// costs an external API call.
func (s *DepositService) InitiateDeposit(ctx context.Context, userID int64, amountRaw, totalRaw interface{}, email string) (*InitiateResult, error) {
	amounts, err := ValidateDepositAmount(s.cfg.Rules, amountRaw, totalRaw)
	if err != nil {
		var amtErr *AmountError
		if errors.As(err, &amtErr) && amtErr.Fraud {
			logger.Error("fraud attempt at initiation",
				"user_id", userID,
				"amount", amtErr.Deposited,
				"provided_total", amtErr.Provided,
				"expected_total", amtErr.Expected)
		}
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
	if email == "" {
		email = user.Email
	}

	reference := NewDepositReference()
	expectedCharge := ExpectedGatewayCharge(s.cfg.Rules, amounts.Amount)

	tx := &domain.Transaction{
		UserID:    userID,
		Type:      domain.TxTypeDeposit,
		Amount:    amounts.Amount,
		Status:    domain.TxStatusPending,
		Reference: reference,
		Gateway:   domain.GatewayPaystack,
		Metadata: map[string]interface{}{
			"depositAmount":          amounts.Amount,
			"totalWithFee":           amounts.Total,
			"expectedPaystackAmount": expectedCharge,
			"feePercentage":          s.cfg.Rules.FeePercentage,
		},
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, err
	}

	// Audit is best-effort; a broken audit table must not block deposits.
	if err := s.audits.Create(ctx, &domain.TransactionAudit{
		UserID:            userID,
		TransactionType:   domain.TxTypeDeposit,
		Amount:            amounts.Amount,
		BalanceBefore:     user.WalletBalance,
		BalanceAfter:      user.WalletBalance,
		PaymentMethod:     domain.GatewayPaystack,
		PaystackReference: reference,
		Status:            domain.TxStatusPending,
		Description:       fmt.Sprintf("Deposit initiated: GHS %.2f", amounts.Amount),
		InitiatedBy:       domain.InitiatorUser,
	}); err != nil {
		logger.Error("failed to write initiation audit", "reference", reference, "error", err)
	}

	init, err := s.gateway.Initialize(ctx, paystack.InitializeRequest{
		Email:       email,
		Amount:      ToPesewas(amounts.Total),
		Currency:    "GHS",
		Reference:   reference,
		CallbackURL: fmt.Sprintf("%s?reference=%s", s.cfg.CallbackURL, reference),
		Metadata: map[string]interface{}{
			"depositAmount": amounts.Amount,
			"totalWithFee":  amounts.Total,
			"userId":        userID,
		},
	})
	if err != nil {
		logger.Error("paystack initialize failed", "reference", reference, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	logger.Info("deposit initiated",
		"user_id", userID, "reference", reference,
		"amount", amounts.Amount, "total", amounts.Total)

	return &InitiateResult{
		PaystackURL: init.AuthorizationURL,
		Reference:   reference,
		Amount:      amounts.Amount,
		Total:       amounts.Total,
	}, nil
}

// ProcessGatewayConfirmation is the reconciliation state machine. It is safe
// to invoke concurrently from a webhook delivery and a manual verification
// poll for the same reference: the compare-and-set lock inside the database
// transaction guarantees exactly one caller credits the wallet.
func (s *DepositService) ProcessGatewayConfirmation(ctx context.Context, reference string, gw *paystack.VerifyData) (*ConfirmOutcome, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	locked, err := s.transactions.LockForProcessing(ctx, tx, reference, s.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	if locked == nil {
		existing, err := s.transactions.GetByReference(ctx, reference)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, ErrTransactionNotFound
		}
		return &ConfirmOutcome{
			Code:    OutcomeAlreadyProcessed,
			Message: "Transaction already processed",
		}, nil
	}

	// Verify the gateway actually charged what the ledger expects, before
	// any wallet mutation. A failed check finalizes the transaction under
	// the lock so it can never be re-entered.
	if gw != nil && gw.Amount > 0 {
		expected := ExpectedGatewayCharge(s.cfg.Rules, locked.Amount)
		if vErr := ValidateGatewayCharge(s.cfg.Rules, gw.Amount, expected); vErr != nil {
			if err := s.transactions.MarkFailed(ctx, tx, locked.ID, map[string]interface{}{
				"fraudFlags":     []string{domain.FlagPaystackMismatch},
				"paystackAmount": gw.Amount,
				"expectedAmount": expected,
				"error":          vErr.Error(),
			}); err != nil {
				return nil, err
			}
			if err := tx.Commit(ctx); err != nil {
				return nil, err
			}

			logger.Error("fraud prevented: gateway amount mismatch",
				"reference", reference,
				"charged_pesewas", gw.Amount,
				"expected_pesewas", expected)

			s.auditFraudulentCharge(ctx, locked, vErr)
			s.notify(locked.UserID, DepositEvent{
				Reference:  reference,
				Status:     domain.TxStatusFailed,
				Amount:     locked.Amount,
				FraudFlags: []string{domain.FlagPaystackMismatch},
			})

			return &ConfirmOutcome{
				Code:    OutcomeVerificationFailed,
				Message: "Payment verification failed. Transaction blocked.",
			}, nil
		}
	}

	user, err := s.users.GetForUpdate(ctx, tx, locked.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserMissing
	}

	var chargedPesewas *int64
	if gw != nil && gw.Amount > 0 {
		chargedPesewas = &gw.Amount
	}
	report, err := s.fraud.ScoreDeposit(ctx, locked.UserID, locked.Amount, chargedPesewas)
	if err != nil {
		return nil, err
	}
	if len(report.Flags) > 0 {
		logger.Warn("fraud flags on deposit",
			"user_id", locked.UserID, "reference", reference, "flags", report.Flags)
	}

	balanceBefore := user.WalletBalance
	newBalance, err := s.users.CreditWallet(ctx, tx, locked.UserID, locked.Amount)
	if err != nil {
		return nil, err
	}

	completionMeta := map[string]interface{}{
		"verifiedAt": time.Now().UTC(),
	}
	if len(report.Flags) > 0 {
		completionMeta["fraudFlags"] = report.Flags
		completionMeta["fraudMetadata"] = report.Metadata
	}
	if chargedPesewas != nil {
		completionMeta["paystackAmount"] = *chargedPesewas
	}
	if err := s.transactions.MarkCompleted(ctx, tx, locked.ID, completionMeta); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	logger.Info("deposit secured",
		"reference", reference, "amount", locked.Amount, "new_balance", newBalance)

	s.auditCompletion(ctx, locked, balanceBefore, newBalance, chargedPesewas, report.Flags)
	s.notify(locked.UserID, DepositEvent{
		Reference:  reference,
		Status:     domain.TxStatusCompleted,
		Amount:     locked.Amount,
		NewBalance: newBalance,
		FraudFlags: report.Flags,
	})

	return &ConfirmOutcome{
		Code:       OutcomeSuccess,
		Message:    "Deposit successful",
		Amount:     locked.Amount,
		NewBalance: newBalance,
		FraudFlags: report.Flags,
	}, nil
}

func (s *DepositService) auditFraudulentCharge(ctx context.Context, t *domain.Transaction, vErr error) {
	if err := s.audits.Create(ctx, &domain.TransactionAudit{
		UserID:            t.UserID,
		TransactionType:   domain.TxTypeDeposit,
		Amount:            t.Amount,
		Status:            domain.TxStatusFailed,
		PaymentMethod:     domain.GatewayPaystack,
		PaystackReference: t.Reference,
		Description:       fmt.Sprintf("FRAUD: Paystack amount mismatch - %s", vErr.Error()),
		InitiatedBy:       domain.InitiatorSystem,
		FraudFlags:        []string{domain.FlagPaystackMismatch},
	}); err != nil {
		logger.Error("failed to log fraud to audit", "reference", t.Reference, "error", err)
	}
}

func (s *DepositService) auditCompletion(ctx context.Context, t *domain.Transaction, balanceBefore, balanceAfter float64, chargedPesewas *int64, flags []string) {
	description := fmt.Sprintf("Deposit completed: GHS %.2f credited", t.Amount)
	if chargedPesewas != nil {
		description = fmt.Sprintf("%s. Paystack charged: %.2f GHS", description, float64(*chargedPesewas)/100)
	}
	if err := s.audits.UpsertByReference(ctx, t.UserID, t.Reference, t.Amount, repository.CompletionUpdate{
		Status:         domain.TxStatusCompleted,
		BalanceBefore:  balanceBefore,
		BalanceAfter:   balanceAfter,
		PaystackAmount: chargedPesewas,
		Description:    description,
		FraudFlags:     flags,
	}); err != nil {
		logger.Error("failed to upsert completion audit", "reference", t.Reference, "error", err)
	}
}

func (s *DepositService) notify(userID int64, event DepositEvent) {
	if s.notifier != nil {
		s.notifier.DepositSettled(userID, event)
	}
}

// VerifyOutcome is the result of a verification check.
type VerifyOutcome struct {
	Success        bool
	Message        string
	Code           OutcomeCode
	Reference      string
	Amount         float64
	Status         string
	NewBalance     *float64
	PaystackStatus string
}

// VerifyPayment is the idempotent status check: completed transactions
// return immediately without contacting the gateway; pending ones are
// verified against the gateway and fed into reconciliation.
func (s *DepositService) VerifyPayment(ctx context.Context, reference string) (*VerifyOutcome, error) {
	t, err := s.transactions.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTransactionNotFound
	}
	return s.verifyPending(ctx, t, false)
}

// VerifyPendingTransaction is the manual re-check by internal id. Unlike the
// reference lookup it also finalizes transactions the gateway reports failed.
func (s *DepositService) VerifyPendingTransaction(ctx context.Context, transactionID int64) (*VerifyOutcome, error) {
	t, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTransactionNotFound
	}
	return s.verifyPending(ctx, t, true)
}

func (s *DepositService) verifyPending(ctx context.Context, t *domain.Transaction, finalizeFailed bool) (*VerifyOutcome, error) {
	switch t.Status {
	case domain.TxStatusCompleted:
		return &VerifyOutcome{
			Success:   true,
			Message:   "Payment verified and completed",
			Reference: t.Reference,
			Amount:    t.Amount,
			Status:    t.Status,
		}, nil

	case domain.TxStatusPending:
		gw, err := s.gateway.Verify(ctx, t.Reference)
		if err != nil {
			logger.Error("paystack verification failed", "reference", t.Reference, "error", err)
			return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}

		switch gw.Status {
		case "success":
			outcome, err := s.ProcessGatewayConfirmation(ctx, t.Reference, gw)
			if err != nil {
				return nil, err
			}
			result := &VerifyOutcome{
				Message:   outcome.Message,
				Code:      outcome.Code,
				Reference: t.Reference,
				Amount:    t.Amount,
				Status:    t.Status,
			}
			switch outcome.Code {
			case OutcomeSuccess:
				result.Success = true
				result.Message = "Payment verified and credited"
				result.Status = domain.TxStatusCompleted
				result.NewBalance = &outcome.NewBalance
			case OutcomeVerificationFailed:
				// reconciliation just finalized the transaction
				result.Status = domain.TxStatusFailed
			}
			return result, nil

		case "failed":
			if finalizeFailed {
				finalized, err := s.transactions.MarkStatus(ctx, t.ID, domain.TxStatusFailed)
				if err != nil {
					return nil, err
				}
				if !finalized {
					// Lost the race: a webhook completed (or claimed) the
					// transaction while we were talking to the gateway. Our
					// stale "failed" never moves the status backward.
					cur, err := s.transactions.GetByID(ctx, t.ID)
					if err != nil {
						return nil, err
					}
					if cur != nil && cur.Status == domain.TxStatusCompleted {
						return &VerifyOutcome{
							Success:   true,
							Message:   "Payment verified and completed",
							Reference: cur.Reference,
							Amount:    cur.Amount,
							Status:    cur.Status,
						}, nil
					}
					status := t.Status
					if cur != nil {
						status = cur.Status
					}
					return &VerifyOutcome{
						Message:        "Payment not yet verified",
						Reference:      t.Reference,
						Amount:         t.Amount,
						Status:         status,
						PaystackStatus: gw.Status,
					}, nil
				}
				return &VerifyOutcome{
					Message:   "Payment failed on Paystack",
					Reference: t.Reference,
					Amount:    t.Amount,
					Status:    domain.TxStatusFailed,
				}, nil
			}
			fallthrough

		default:
			return &VerifyOutcome{
				Message:        "Payment not yet verified",
				Reference:      t.Reference,
				Amount:         t.Amount,
				Status:         t.Status,
				PaystackStatus: gw.Status,
			}, nil
		}

	default:
		return &VerifyOutcome{
			Message:   fmt.Sprintf("Transaction status: %s", t.Status),
			Reference: t.Reference,
			Amount:    t.Amount,
			Status:    t.Status,
		}, nil
	}
}

// ListDeposits returns a page of the user's deposit transactions plus the
// total count for pagination.
func (s *DepositService) ListDeposits(ctx context.Context, userID int64, status string, page, limit int) ([]domain.Transaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	offset := (page - 1) * limit

	txs, err := s.transactions.ListDepositsByUser(ctx, userID, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.transactions.CountDepositsByUser(ctx, userID, status)
	if err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}
