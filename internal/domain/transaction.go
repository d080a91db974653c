package domain

import "time"

// Transaction types
const (
	TxTypeDeposit         = "deposit"
	TxTypeWithdrawal      = "withdrawal"
	TxTypeTransfer        = "transfer"
	TxTypeRefund          = "refund"
	TxTypePurchase        = "purchase"
	TxTypeCheckerPurchase = "checker-purchase"
	TxTypeAdminDeduction  = "admin-deduction"
)

// Transaction statuses. A transaction only ever moves from pending to
// completed or failed, never backwards.
const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
	TxStatusCancelled = "cancelled"
)

// Originating gateways
const (
	GatewayPaystack = "paystack"
	GatewayManual   = "manual"
	GatewaySystem   = "system"
	GatewayWallet   = "wallet"
)

// Transaction represents a single money movement attempt. Reference is the
// client-facing identifier and the join key with the payment gateway's own
// records; it is unique and immutable once created.
type Transaction struct {
	ID         int64                  `db:"id" json:"id"`
	UserID     int64                  `db:"user_id" json:"user_id"`
	Type       string                 `db:"type" json:"type"`
	Amount     float64                `db:"amount" json:"amount"`
	Status     string                 `db:"status" json:"status"`
	Reference  string                 `db:"reference" json:"reference"`
	Gateway    string                 `db:"gateway" json:"gateway"`
	Processing bool                   `db:"processing" json:"processing"`
	Metadata   map[string]interface{} `db:"metadata" json:"metadata,omitempty"`
	CreatedAt  time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time              `db:"updated_at" json:"updated_at"`
}
