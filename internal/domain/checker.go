package domain

import "time"

// Checker types
const (
	CheckerWAEC = "WAEC"
	CheckerBECE = "BECE"
)

// Checker purchase statuses
const (
	CheckerStatusPending   = "pending"
	CheckerStatusCompleted = "completed"
	CheckerStatusFailed    = "failed"
	CheckerStatusRefunded  = "refunded"
)

// CheckerPurchase records one examination result-checker PIN purchase
// fulfilled by the Datamart reseller.
type CheckerPurchase struct {
	ID                int64     `db:"id" json:"id"`
	UserID            int64     `db:"user_id" json:"user_id"`
	PhoneNumber       string    `db:"phone_number" json:"phone_number"`
	CheckerType       string    `db:"checker_type" json:"checker_type"`
	SerialNumber      string    `db:"serial_number" json:"serial_number,omitempty"`
	Pin               string    `db:"pin" json:"pin,omitempty"`
	Price             float64   `db:"price" json:"price"`
	Status            string    `db:"status" json:"status"`
	Reference         string    `db:"reference" json:"reference"`
	DatamartReference string    `db:"datamart_reference" json:"datamart_reference,omitempty"`
	TransactionID     *int64    `db:"transaction_id" json:"transaction_id,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// CheckerProduct is a catalogue entry for the storefront.
type CheckerProduct struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Type        string   `json:"type"`
	Features    []string `json:"features"`
}
