package auditrepo

import (
	"context"
	"database/sql"
	"encoding/json"

	"creditdesk/model"
)

// Repo appends and reads admin_actions_log. Rows are append-only; there is
// no update or delete path on purpose.
type Repo interface {
	Insert(ctx context.Context, a *model.AdminAction) error
	List(ctx context.Context, targetAccountID string, actionType string, limit int) ([]model.AdminAction, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) Insert(ctx context.Context, a *model.AdminAction) error {
	var details []byte
	if a.Details != nil {
		b, err := json.Marshal(a.Details)
		if err != nil {
			return err
		}
		details = b
	}
	const q = `
INSERT INTO admin_actions_log (admin_account_id, action_type, target_account_id, details)
VALUES ($1,$2,$3,$4)
RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, q, a.AdminAccountID, a.ActionType, a.TargetAccountID, details).
		Scan(&a.ID, &a.CreatedAt)
}

func (r *repo) List(ctx context.Context, targetAccountID, actionType string, limit int) ([]model.AdminAction, error) {
	const q = `
SELECT id, admin_account_id, action_type, COALESCE(target_account_id, ''), COALESCE(details, 'null'), created_at
FROM admin_actions_log
WHERE ($1 = '' OR target_account_id = $1)
  AND ($2 = '' OR action_type = $2)
ORDER BY created_at DESC, id DESC
LIMIT $3`
	rows, err := r.db.QueryContext(ctx, q, targetAccountID, actionType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AdminAction
	for rows.Next() {
		var a model.AdminAction
		var details []byte
		if err := rows.Scan(&a.ID, &a.AdminAccountID, &a.ActionType, &a.TargetAccountID, &details, &a.CreatedAt); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			_ = json.Unmarshal(details, &a.Details)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
