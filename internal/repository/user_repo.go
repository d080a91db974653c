package repository

import (
	"context"

	"dataspot/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, name, email, phone_number, wallet_balance, is_disabled, COALESCE(disable_reason, ''), approval_status, created_at`

// UserRepository reads and mutates wallet-bearing users. Wallet balance is a
// running total; it is only ever changed through CreditWallet/DebitWallet
// inside the caller's database transaction.
type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user. Registration itself lives in the auth service;
// this exists for tooling and tests.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO users (name, email, phone_number, approval_status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, wallet_balance, created_at
	`, u.Name, u.Email, u.PhoneNumber, u.ApprovalStatus).Scan(&u.ID, &u.WalletBalance, &u.CreatedAt)
}

// GetByEmail retrieves a user by email. Returns nil when absent.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1
	`, email)
	return scanUser(row)
}

// GetByID retrieves a user. Returns nil when absent.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id)
	return scanUser(row)
}

// GetForUpdate loads a user inside tx with a row lock. Returns nil when the
// user does not exist, which on a reconciliation path signals referential
// corruption rather than user error.
func (r *UserRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.User, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
		FOR UPDATE
	`, id)
	return scanUser(row)
}

// CreditWallet adds amount to the wallet within tx and returns the new balance.
func (r *UserRepository) CreditWallet(ctx context.Context, tx pgx.Tx, userID int64, amount float64) (float64, error) {
	var newBalance float64
	err := tx.QueryRow(ctx, `
		UPDATE users SET wallet_balance = wallet_balance + $1 WHERE id = $2
		RETURNING wallet_balance
	`, amount, userID).Scan(&newBalance)
	return newBalance, err
}

// DebitWallet deducts amount within tx only when the balance covers it.
// The balance check and the deduction are one statement; pgx.ErrNoRows means
// insufficient funds (or a missing user, which the caller checks first).
func (r *UserRepository) DebitWallet(ctx context.Context, tx pgx.Tx, userID int64, amount float64) (float64, error) {
	var newBalance float64
	err := tx.QueryRow(ctx, `
		UPDATE users SET wallet_balance = wallet_balance - $1
		WHERE id = $2 AND wallet_balance >= $1
		RETURNING wallet_balance
	`, amount, userID).Scan(&newBalance)
	return newBalance, err
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PhoneNumber, &u.WalletBalance,
		&u.IsDisabled, &u.DisableReason, &u.ApprovalStatus, &u.CreatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
