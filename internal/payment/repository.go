package payment

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("transaction not found")

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const txColumns = `id, user_id, kind, asset, fiat_amount, crypto_amount, address, external_ref, tx_hash, status, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, tx *Transaction) error {
	return r.db.QueryRowxContext(ctx,
		`INSERT INTO transactions (id, user_id, kind, asset, fiat_amount, crypto_amount, address, external_ref, tx_hash, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+txColumns,
		tx.ID, tx.UserID, tx.Kind, tx.Asset, tx.FiatAmount, tx.CryptoAmount,
		tx.Address, tx.ExternalRef, tx.TxHash, tx.Status,
	).StructScan(tx)
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Transaction, error) {
	return r.getOne(ctx, `SELECT `+txColumns+` FROM transactions WHERE id = $1`, id)
}

func (r *Repository) GetByExternalRef(ctx context.Context, ref string) (*Transaction, error) {
	return r.getOne(ctx, `SELECT `+txColumns+` FROM transactions WHERE external_ref = $1`, ref)
}

func (r *Repository) GetByIDForUser(ctx context.Context, id, userID string) (*Transaction, error) {
	return r.getOne(ctx, `SELECT `+txColumns+` FROM transactions WHERE id = $1 AND user_id = $2`, id, userID)
}

func (r *Repository) GetByExternalRefForUser(ctx context.Context, ref, userID string) (*Transaction, error) {
	return r.getOne(ctx, `SELECT `+txColumns+` FROM transactions WHERE external_ref = $1 AND user_id = $2`, ref, userID)
}

func (r *Repository) getOne(ctx context.Context, query string, args ...interface{}) (*Transaction, error) {
	tx := &Transaction{}
	err := r.db.GetContext(ctx, tx, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (r *Repository) List(ctx context.Context, userID string, kind Kind, limit, offset int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + txColumns + ` FROM transactions
		 WHERE user_id = $1 AND ($2 = '' OR kind = $2)
		 ORDER BY created_at DESC LIMIT $3 OFFSET $4`

	txs := []Transaction{}
	if err := r.db.SelectContext(ctx, &txs, query, userID, kind, limit, offset); err != nil {
		return nil, err
	}
	return txs, nil
}

// Transition is the single mutation path for transaction status and the
// only way reconciliation touches a balance. The status flip and the
// balance delta commit or fail together, and the WHERE clause on the
// current status decides which concurrent caller wins.
func (r *Repository) Transition(ctx context.Context, tx *Transaction, from Status, m Mutation) (bool, error) {
	dbTx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer dbTx.Rollback()

	res, err := dbTx.ExecContext(ctx,
		`UPDATE transactions
		 SET status = $1, crypto_amount = COALESCE($2, crypto_amount), updated_at = NOW()
		 WHERE id = $3 AND status = $4`,
		m.To, m.CryptoAmount, tx.ID, from,
	)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	if !m.BalanceDelta.IsZero() {
		_, err = dbTx.ExecContext(ctx,
			`UPDATE users SET balance = balance + $1, updated_at = NOW() WHERE id = $2`,
			m.BalanceDelta, tx.UserID,
		)
		if err != nil {
			return false, err
		}
	}

	if err := dbTx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repository) HoldFunds(ctx context.Context, userID string, amount decimal.Decimal) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET balance = balance - $1, updated_at = NOW()
		 WHERE id = $2 AND balance >= $1`,
		amount, userID,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *Repository) ReleaseFunds(ctx context.Context, userID string, amount decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET balance = balance + $1, updated_at = NOW() WHERE id = $2`,
		amount, userID,
	)
	return err
}
