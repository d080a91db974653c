package repository

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"dataspot/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const transactionColumns = `id, user_id, type, amount, status, reference, gateway, processing, metadata, created_at, updated_at`

// TransactionRepository is the persistent deposit ledger.
type TransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// marshalMeta encodes metadata for a jsonb column. nil maps become an empty
// object so the || merge operator always has an object to work with.
func marshalMeta(m map[string]interface{}) []byte {
	if m == nil {
		return []byte("{}")
	}
	b, err := json.Marshal(m)
	if err != nil {
		return []byte("{}")
	}
	return b
}

// Create inserts a new transaction. The caller supplies the reference; a
// duplicate reference fails on the unique index.
func (r *TransactionRepository) Create(ctx context.Context, t *domain.Transaction) error {
	metaJSON := marshalMeta(t.Metadata)

	return r.db.QueryRow(ctx, `
		INSERT INTO transactions (user_id, type, amount, status, reference, gateway, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, t.UserID, t.Type, t.Amount, t.Status, t.Reference, t.Gateway, metaJSON).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// CreateWithTx inserts a transaction inside an existing database
// transaction, for flows that pair the record with a wallet mutation.
func (r *TransactionRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	metaJSON := marshalMeta(t.Metadata)

	return tx.QueryRow(ctx, `
		INSERT INTO transactions (user_id, type, amount, status, reference, gateway, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, t.UserID, t.Type, t.Amount, t.Status, t.Reference, t.Gateway, metaJSON).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// GetByReference retrieves a transaction by its gateway reference.
// Returns nil when no row matches.
func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE reference = $1
	`, reference)
	return scanTransaction(row)
}

// GetByID retrieves a transaction by internal id. Returns nil when absent.
func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE id = $1
	`, id)
	return scanTransaction(row)
}

// LockForProcessing atomically claims a pending transaction for one
// reconciliation attempt: the status check and the flag set happen in a
// single UPDATE, so exactly one of any number of concurrent callers wins.
// A held lock older than lockTTL is treated as abandoned and reclaimable.
// Returns nil when no claimable row exists.
func (r *TransactionRepository) LockForProcessing(ctx context.Context, tx pgx.Tx, reference string, lockTTL time.Duration) (*domain.Transaction, error) {
	row := tx.QueryRow(ctx, `
		UPDATE transactions
		SET processing = true, updated_at = now()
		WHERE reference = $1
		  AND status = 'pending'
		  AND (NOT processing OR updated_at < now() - make_interval(secs => $2))
		RETURNING `+transactionColumns+`
	`, reference, lockTTL.Seconds())
	return scanTransaction(row)
}

// MarkFailed finalizes a transaction as failed within the given database
// transaction, clearing the processing lock and merging forensic detail
// into metadata. Terminal.
func (r *TransactionRepository) MarkFailed(ctx context.Context, tx pgx.Tx, id int64, detail map[string]interface{}) error {
	detailJSON := marshalMeta(detail)
	_, err := tx.Exec(ctx, `
		UPDATE transactions
		SET status = 'failed', processing = false, metadata = metadata || $2::jsonb, updated_at = now()
		WHERE id = $1
	`, id, detailJSON)
	return err
}

// MarkCompleted finalizes a transaction as completed within the given
// database transaction, clearing the processing lock. Terminal.
func (r *TransactionRepository) MarkCompleted(ctx context.Context, tx pgx.Tx, id int64, detail map[string]interface{}) error {
	detailJSON := marshalMeta(detail)
	_, err := tx.Exec(ctx, `
		UPDATE transactions
		SET status = 'completed', processing = false, metadata = metadata || $2::jsonb, updated_at = now()
		WHERE id = $1
	`, id, detailJSON)
	return err
}

// MarkStatus finalizes a still-pending, unlocked transaction. Used only for
// the gateway-reported-failed path on manual verification. The predicate
// keeps a transaction another path completed in the meantime from moving
// backward; false means it was already claimed or finalized.
func (r *TransactionRepository) MarkStatus(ctx context.Context, id int64, status string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE transactions SET status = $2, updated_at = now()
		WHERE id = $1 AND status = 'pending' AND NOT processing
	`, id, status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// CountCompletedDepositsSince counts a user's completed deposits created
// after the cutoff. Feeds the high-frequency fraud heuristic.
func (r *TransactionRepository) CountCompletedDepositsSince(ctx context.Context, userID int64, since time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM transactions
		WHERE user_id = $1 AND type = 'deposit' AND status = 'completed' AND created_at >= $2
	`, userID, since).Scan(&count)
	return count, err
}

// ListDepositsByUser returns a page of a user's deposit transactions,
// newest first, optionally filtered by status.
func (r *TransactionRepository) ListDepositsByUser(ctx context.Context, userID int64, status string, limit, offset int) ([]domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND type = 'deposit'`
	args := []interface{}{userID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// CountDepositsByUser counts a user's deposit transactions for pagination.
func (r *TransactionRepository) CountDepositsByUser(ctx context.Context, userID int64, status string) (int64, error) {
	query := `SELECT COUNT(*) FROM transactions WHERE user_id = $1 AND type = 'deposit'`
	args := []interface{}{userID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	var count int64
	err := r.db.QueryRow(ctx, query, args...).Scan(&count)
	return count, err
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	var metaJSON []byte

	if err := row.Scan(
		&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Status, &t.Reference,
		&t.Gateway, &t.Processing, &metaJSON, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(metaJSON, &t.Metadata); err != nil {
		t.Metadata = make(map[string]interface{})
	}
	return &t, nil
}

func scanTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		var metaJSON []byte
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Status, &t.Reference,
			&t.Gateway, &t.Processing, &metaJSON, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(metaJSON, &t.Metadata); err != nil {
			t.Metadata = make(map[string]interface{})
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
