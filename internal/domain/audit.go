package domain

import "time"

// Audit initiators
const (
	InitiatorUser   = "user"
	InitiatorSystem = "system"
	InitiatorAdmin  = "admin"
)

// Fraud flags attached to transactions and audit rows. Flags are advisory:
// they annotate for review and never block a deposit on their own.
const (
	FlagMultipleDeposits   = "Multiple deposits within 1 hour"
	FlagLargeAmount        = "Large amount deposit"
	FlagNewAccountLarge    = "New account making large deposit"
	FlagImmediateDeposit   = "Deposit within 10 minutes of signup"
	FlagAmountManipulation = "FRAUD ALERT: Amount manipulation attempt detected"

	// Raised when the amount the gateway actually charged does not match
	// the expected fee-inclusive total. Terminal for the transaction.
	FlagPaystackMismatch = "AMOUNT_MISMATCH_WITH_PAYSTACK"
)

// TransactionAudit is the forensic trail paired with a Transaction, matched
// by the gateway reference rather than a foreign key so it can be upserted
// idempotently. Audit writes are best-effort: a failed audit write must never
// roll back a money movement.
type TransactionAudit struct {
	ID                int64     `db:"id" json:"id"`
	UserID            int64     `db:"user_id" json:"user_id"`
	TransactionType   string    `db:"transaction_type" json:"transaction_type"`
	Amount            float64   `db:"amount" json:"amount"`
	BalanceBefore     float64   `db:"balance_before" json:"balance_before"`
	BalanceAfter      float64   `db:"balance_after" json:"balance_after"`
	PaymentMethod     string    `db:"payment_method" json:"payment_method"`
	PaystackReference string    `db:"paystack_reference" json:"paystack_reference,omitempty"`
	PaystackAmount    *int64    `db:"paystack_amount" json:"paystack_amount,omitempty"`
	Status            string    `db:"status" json:"status"`
	Description       string    `db:"description" json:"description,omitempty"`
	InitiatedBy       string    `db:"initiated_by" json:"initiated_by"`
	FraudFlags        []string  `db:"fraud_flags" json:"fraud_flags,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}
