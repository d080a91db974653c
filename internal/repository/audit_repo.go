package repository

import (
	"context"

	"dataspot/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepository persists the transaction audit trail. Rows are matched to
// transactions by the paystack reference, not a foreign key, so completion
// updates can be upserted idempotently. All writes here are best-effort and
// run outside the money-moving database transaction.
type AuditRepository struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create inserts a new audit entry.
func (r *AuditRepository) Create(ctx context.Context, a *domain.TransactionAudit) error {
	if a.FraudFlags == nil {
		a.FraudFlags = []string{}
	}
	return r.db.QueryRow(ctx, `
		INSERT INTO transaction_audits
			(user_id, transaction_type, amount, balance_before, balance_after,
			 payment_method, paystack_reference, paystack_amount, status,
			 description, initiated_by, fraud_flags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`, a.UserID, a.TransactionType, a.Amount, a.BalanceBefore, a.BalanceAfter,
		a.PaymentMethod, a.PaystackReference, a.PaystackAmount, a.Status,
		a.Description, a.InitiatedBy, a.FraudFlags).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

// CompletionUpdate carries the fields recorded when reconciliation finishes.
type CompletionUpdate struct {
	Status         string
	BalanceBefore  float64
	BalanceAfter   float64
	PaystackAmount *int64
	Description    string
	FraudFlags     []string
}

// UpsertByReference updates the audit row matching the reference, creating
// it if initiation never wrote one. Returns the number of rows touched only
// through its error; audit callers log failures and move on.
func (r *AuditRepository) UpsertByReference(ctx context.Context, userID int64, reference string, amount float64, upd CompletionUpdate) error {
	if upd.FraudFlags == nil {
		upd.FraudFlags = []string{}
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE transaction_audits
		SET status = $2, balance_before = $3, balance_after = $4,
		    paystack_amount = $5, description = $6, fraud_flags = $7, updated_at = now()
		WHERE paystack_reference = $1
	`, reference, upd.Status, upd.BalanceBefore, upd.BalanceAfter,
		upd.PaystackAmount, upd.Description, upd.FraudFlags)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	return r.Create(ctx, &domain.TransactionAudit{
		UserID:            userID,
		TransactionType:   domain.TxTypeDeposit,
		Amount:            amount,
		BalanceBefore:     upd.BalanceBefore,
		BalanceAfter:      upd.BalanceAfter,
		PaymentMethod:     domain.GatewayPaystack,
		PaystackReference: reference,
		PaystackAmount:    upd.PaystackAmount,
		Status:            upd.Status,
		Description:       upd.Description,
		InitiatedBy:       domain.InitiatorUser,
		FraudFlags:        upd.FraudFlags,
	})
}

// GetByReference retrieves the audit row for a gateway reference.
// Returns nil when absent.
func (r *AuditRepository) GetByReference(ctx context.Context, reference string) (*domain.TransactionAudit, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, transaction_type, amount, balance_before, balance_after,
		       payment_method, COALESCE(paystack_reference, ''), paystack_amount,
		       status, COALESCE(description, ''), initiated_by, fraud_flags,
		       created_at, updated_at
		FROM transaction_audits
		WHERE paystack_reference = $1
	`, reference)

	var a domain.TransactionAudit
	if err := row.Scan(
		&a.ID, &a.UserID, &a.TransactionType, &a.Amount, &a.BalanceBefore,
		&a.BalanceAfter, &a.PaymentMethod, &a.PaystackReference, &a.PaystackAmount,
		&a.Status, &a.Description, &a.InitiatedBy, &a.FraudFlags,
		&a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}
