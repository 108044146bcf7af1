package ledgerrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"creditdesk/model"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// ApplyFunc computes the new balance from the current one. Returning an
// error aborts the mutation with no effect.
type ApplyFunc func(balance decimal.Decimal) (decimal.Decimal, error)

// Repo is the ledger store. Apply is the only write: the balance update and
// the entry append commit or abort together, and mutations on one account
// are serialized (row lock in Postgres, per-account mutex in memory).
// Mutations on different accounts proceed in parallel.
type Repo interface {
	Apply(ctx context.Context, accountID string, apply ApplyFunc, entry *model.LedgerEntry) (decimal.Decimal, error)
	GetAccount(ctx context.Context, accountID string) (*model.CreditAccount, error)
	ListEntries(ctx context.Context, accountID string, limit, offset int, typeFilter string) ([]model.LedgerEntry, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) Apply(ctx context.Context, accountID string, apply ApplyFunc, entry *model.LedgerEntry) (_ decimal.Decimal, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			err = mapPgErr(err)
		}
	}()

	// Upsert so the first credit creates the account, then lock the row for
	// the rest of the transaction.
	const qUpsert = `
INSERT INTO credit_accounts (account_id, balance)
VALUES ($1, 0)
ON CONFLICT (account_id) DO NOTHING`
	if _, err = tx.ExecContext(ctx, qUpsert, accountID); err != nil {
		return decimal.Zero, err
	}

	var balance decimal.Decimal
	const qLock = `SELECT balance FROM credit_accounts WHERE account_id=$1 FOR UPDATE`
	if err = tx.QueryRowContext(ctx, qLock, accountID).Scan(&balance); err != nil {
		return decimal.Zero, err
	}

	newBalance, err := apply(balance)
	if err != nil {
		return decimal.Zero, err
	}

	const qUp = `UPDATE credit_accounts SET balance=$2, updated_at=NOW() WHERE account_id=$1`
	if _, err = tx.ExecContext(ctx, qUp, accountID, newBalance); err != nil {
		return decimal.Zero, err
	}

	var meta []byte
	if entry.Metadata != nil {
		if meta, err = json.Marshal(entry.Metadata); err != nil {
			return decimal.Zero, err
		}
	}
	const qEntry = `
INSERT INTO ledger_entries (id, account_id, amount, type, description, metadata, reference_type, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	if _, err = tx.ExecContext(ctx, qEntry,
		entry.ID, accountID, entry.Amount, entry.Type, entry.Description, meta, entry.ReferenceType, entry.CreatedAt,
	); err != nil {
		return decimal.Zero, err
	}

	if err = tx.Commit(); err != nil {
		return decimal.Zero, err
	}
	return newBalance, nil
}

// mapPgErr names the two constraint failures that indicate a bug rather
// than infrastructure trouble: the balance check on credit_accounts and
// the primary key on ledger_entries.
func mapPgErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.CheckViolation:
			return fmt.Errorf("balance constraint violated: %w", err)
		case pgerrcode.UniqueViolation:
			return fmt.Errorf("duplicate ledger entry id: %w", err)
		}
	}
	return err
}

func (r *repo) GetAccount(ctx context.Context, accountID string) (*model.CreditAccount, error) {
	const q = `
SELECT account_id, balance, created_at, updated_at
FROM credit_accounts
WHERE account_id=$1`
	a := &model.CreditAccount{}
	err := r.db.QueryRowContext(ctx, q, accountID).Scan(&a.AccountID, &a.Balance, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *repo) ListEntries(ctx context.Context, accountID string, limit, offset int, typeFilter string) ([]model.LedgerEntry, error) {
	const q = `
SELECT id, account_id, amount, type, description, COALESCE(metadata, 'null'), COALESCE(reference_type, ''), created_at
FROM ledger_entries
WHERE account_id=$1 AND ($4 = '' OR type = $4)
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, q, accountID, limit, offset, typeFilter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		var meta []byte
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Amount, &e.Type, &e.Description, &meta, &e.ReferenceType, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &e.Metadata)
		}
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
