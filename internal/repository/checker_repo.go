package repository

import (
	"context"

	"dataspot/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const checkerColumns = `id, user_id, phone_number, checker_type, COALESCE(serial_number, ''),
	COALESCE(pin, ''), price, status, reference, COALESCE(datamart_reference, ''),
	transaction_id, created_at, updated_at`

// CheckerRepository persists result-checker purchases.
type CheckerRepository struct {
	db *pgxpool.Pool
}

func NewCheckerRepository(db *pgxpool.Pool) *CheckerRepository {
	return &CheckerRepository{db: db}
}

// CreateWithTx inserts a purchase inside the wallet-debit transaction.
func (r *CheckerRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, p *domain.CheckerPurchase) error {
	return tx.QueryRow(ctx, `
		INSERT INTO checker_purchases
			(user_id, phone_number, checker_type, price, status, reference, transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, p.UserID, p.PhoneNumber, p.CheckerType, p.Price, p.Status, p.Reference,
		p.TransactionID).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// MarkFulfilled records the credential issued by the reseller.
func (r *CheckerRepository) MarkFulfilled(ctx context.Context, id int64, serialNumber, pin, datamartRef string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE checker_purchases
		SET status = 'completed', serial_number = $2, pin = $3, datamart_reference = $4, updated_at = now()
		WHERE id = $1
	`, id, serialNumber, pin, datamartRef)
	return err
}

// MarkRefunded flags a purchase whose fulfilment failed and whose debit was
// reversed.
func (r *CheckerRepository) MarkRefunded(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE checker_purchases SET status = 'refunded', updated_at = now() WHERE id = $1
	`, id)
	return err
}

// GetByUserID returns a user's checker purchases, newest first.
func (r *CheckerRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]domain.CheckerPurchase, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+checkerColumns+`
		FROM checker_purchases
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var purchases []domain.CheckerPurchase
	for rows.Next() {
		var p domain.CheckerPurchase
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.PhoneNumber, &p.CheckerType, &p.SerialNumber,
			&p.Pin, &p.Price, &p.Status, &p.Reference, &p.DatamartReference,
			&p.TransactionID, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}
