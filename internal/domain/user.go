package domain

import "time"

// Account approval statuses
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// User owns a single wallet balance. The balance is a running total and is
// only mutated inside the same database transaction that completes the
// corresponding Transaction.
type User struct {
	ID             int64     `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Email          string    `db:"email" json:"email"`
	PhoneNumber    string    `db:"phone_number" json:"phone_number"`
	WalletBalance  float64   `db:"wallet_balance" json:"wallet_balance"`
	IsDisabled     bool      `db:"is_disabled" json:"is_disabled"`
	DisableReason  string    `db:"disable_reason" json:"disable_reason,omitempty"`
	ApprovalStatus string    `db:"approval_status" json:"approval_status"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
