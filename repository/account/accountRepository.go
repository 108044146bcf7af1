package accountrepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Row is the resolved account view used by lookups: the registry row joined
// with its billing contact, if any.
type Row struct {
	AccountID string
	Email     string
	CreatedAt time.Time
}

// Repo reads the external account registry and billing-contact registry.
// Both relations are owned elsewhere; this subsystem never writes them.
type Repo interface {
	ByID(ctx context.Context, accountID string) (*Row, error)
	ByEmail(ctx context.Context, email string) (*Row, error)
	SearchByEmail(ctx context.Context, fragment string, limit int) ([]Row, error)
	LegacyBalance(ctx context.Context, accountID string) (decimal.Decimal, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) ByID(ctx context.Context, accountID string) (*Row, error) {
	const q = `
SELECT a.id, COALESCE(c.email, ''), a.created_at
FROM accounts a
LEFT JOIN billing_contacts c ON c.account_id = a.id
WHERE a.id = $1`
	row := &Row{}
	if err := r.db.QueryRowContext(ctx, q, accountID).Scan(&row.AccountID, &row.Email, &row.CreatedAt); err != nil {
		return nil, err
	}
	return row, nil
}

func (r *repo) ByEmail(ctx context.Context, email string) (*Row, error) {
	const q = `
SELECT c.account_id, c.email, a.created_at
FROM billing_contacts c
JOIN accounts a ON a.id = c.account_id
WHERE lower(c.email) = lower($1)`
	row := &Row{}
	if err := r.db.QueryRowContext(ctx, q, email).Scan(&row.AccountID, &row.Email, &row.CreatedAt); err != nil {
		return nil, err
	}
	return row, nil
}

func (r *repo) SearchByEmail(ctx context.Context, fragment string, limit int) ([]Row, error) {
	const q = `
SELECT c.account_id, c.email, a.created_at
FROM billing_contacts c
JOIN accounts a ON a.id = c.account_id
WHERE c.email ILIKE '%' || $1 || '%'
ORDER BY c.email
LIMIT $2`
	rows, err := r.db.QueryContext(ctx, q, fragment, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.AccountID, &row.Email, &row.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *repo) LegacyBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	const q = `SELECT COALESCE(legacy_balance, 0) FROM billing_contacts WHERE account_id = $1`
	var bal decimal.Decimal
	err := r.db.QueryRowContext(ctx, q, accountID).Scan(&bal)
	if err == sql.ErrNoRows {
		return decimal.Zero, nil
	}
	return bal, err
}
