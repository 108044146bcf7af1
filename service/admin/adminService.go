package adminsvc

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"

	"creditdesk/model"
	accountrepo "creditdesk/repository/account"
	auditrepo "creditdesk/repository/audit"
	striperepo "creditdesk/repository/stripe"
	ledgersvc "creditdesk/service/ledger"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("account not found")
	ErrMissingQuery = errors.New("provide either account_id or email")
	ErrEmptyBatch   = errors.New("no account ids given")
)

type BulkGrantResult struct {
	AccountID  string           `json:"account_id"`
	Success    bool             `json:"success"`
	NewBalance *decimal.Decimal `json:"new_balance,omitempty"`
	Error      string           `json:"error,omitempty"`
}

type BulkGrantSummary struct {
	Total      int               `json:"total_users"`
	Successful int               `json:"successful"`
	Failed     int               `json:"failed"`
	Results    []BulkGrantResult `json:"results"`
}

type RefundReq struct {
	AccountID       string
	Amount          decimal.Decimal
	Reason          string
	StripeRefund    bool
	PaymentIntentID string
}

// RefundOutcome reports the terminal refund state. The ledger credit is
// always reflected in NewBalance; GatewayRefundID is set only when the
// external reversal went through.
type RefundOutcome struct {
	NewBalance      decimal.Decimal `json:"new_balance"`
	GatewayRefundID *string         `json:"stripe_refund_id,omitempty"`
}

type SearchResult struct {
	AccountID string             `json:"id"`
	Email     string             `json:"email"`
	CreatedAt time.Time          `json:"created_at"`
	Summary   *ledgersvc.Summary `json:"credit_account,omitempty"`
}

type SearchHit struct {
	AccountID string          `json:"id"`
	Email     string          `json:"email"`
	CreatedAt time.Time       `json:"created_at"`
	Balance   decimal.Decimal `json:"credit_balance"`
}

type Service interface {
	// Adjust applies one signed balance change: positive grants, negative
	// deducts. Returns the new balance.
	Adjust(ctx context.Context, caller model.AdminIdentity, accountID string, amount decimal.Decimal, reason string) (decimal.Decimal, error)

	// GrantBulk credits each account independently. Per-account failures
	// land in the summary; the batch itself never fails part-way loudly.
	GrantBulk(ctx context.Context, caller model.AdminIdentity, accountIDs []string, amount decimal.Decimal, reason string) (*BulkGrantSummary, error)

	// Refund credits the ledger first (authoritative), then best-effort
	// reverses the charge at the gateway. Gateway failure is absorbed.
	Refund(ctx context.Context, caller model.AdminIdentity, req RefundReq) (*RefundOutcome, error)

	Search(ctx context.Context, accountID, email string) (*SearchResult, error)
	SearchByEmail(ctx context.Context, fragment string) ([]SearchHit, error)

	// BillingSummary is the ledger snapshot with recent entries, without
	// touching the account registry.
	BillingSummary(ctx context.Context, accountID string) (*ledgersvc.Summary, error)

	// Migrate converts an account into the credit ledger once. Returns
	// false when the account was already migrated.
	Migrate(ctx context.Context, caller model.AdminIdentity, accountID string) (bool, error)

	RecentTransactions(ctx context.Context, accountID string, limit, offset int, typeFilter string) ([]model.LedgerEntry, error)
	RecentActions(ctx context.Context, targetAccountID, actionType string, limit int) ([]model.AdminAction, error)
}

type service struct {
	ledger   ledgersvc.Service
	accounts accountrepo.Repo
	audit    auditrepo.Repo
	gateway  striperepo.Repo
	policy   Policy
	workers  int
	log      *slog.Logger
}

func New(ledger ledgersvc.Service, accounts accountrepo.Repo, audit auditrepo.Repo, gateway striperepo.Repo, policy Policy, workers int, log *slog.Logger) Service {
	if workers <= 0 {
		workers = 8
	}
	return &service{ledger: ledger, accounts: accounts, audit: audit, gateway: gateway, policy: policy, workers: workers, log: log}
}

func (s *service) Adjust(ctx context.Context, caller model.AdminIdentity, accountID string, amount decimal.Decimal, reason string) (decimal.Decimal, error) {
	if err := s.policy.Authorize(OpAdjust, amount, caller.Role); err != nil {
		s.recordDenied(ctx, caller, accountID, OpAdjust, map[string]any{"amount": amount, "reason": reason})
		return decimal.Zero, err
	}

	var newBalance decimal.Decimal
	var err error
	if amount.IsPositive() {
		newBalance, err = s.ledger.AddCredits(ctx, accountID, amount, model.EntryAdminGrant,
			"Admin adjustment: "+reason, map[string]any{"created_by": caller.AccountID})
	} else {
		newBalance, err = s.ledger.DeductCredits(ctx, accountID, amount.Abs(),
			"Admin deduction: "+reason, "admin_adjustment")
	}
	if err != nil {
		return decimal.Zero, err
	}

	s.record(ctx, caller, model.ActionCreditAdjustment, accountID, map[string]any{
		"amount":      amount,
		"reason":      reason,
		"new_balance": newBalance,
	})
	return newBalance, nil
}

func (s *service) GrantBulk(ctx context.Context, caller model.AdminIdentity, accountIDs []string, amount decimal.Decimal, reason string) (*BulkGrantSummary, error) {
	if len(accountIDs) == 0 {
		return nil, ErrEmptyBatch
	}
	if err := s.policy.Authorize(OpBulkGrant, amount, caller.Role); err != nil {
		s.recordDenied(ctx, caller, "", OpBulkGrant, map[string]any{"amount": amount, "accounts": len(accountIDs)})
		return nil, err
	}

	// Bounded fan-out. Same-account serialization is the store's contract,
	// so duplicate ids in one batch stay safe here.
	results := make([]BulkGrantResult, len(accountIDs))
	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	for i, accountID := range accountIDs {
		wg.Add(1)
		go func(i int, accountID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			newBalance, err := s.ledger.AddCredits(ctx, accountID, amount, model.EntryAdminGrant,
				reason, map[string]any{"created_by": caller.AccountID})
			if err != nil {
				results[i] = BulkGrantResult{AccountID: accountID, Error: err.Error()}
				return
			}
			results[i] = BulkGrantResult{AccountID: accountID, Success: true, NewBalance: &newBalance}
		}(i, accountID)
	}
	wg.Wait()

	summary := &BulkGrantSummary{Total: len(accountIDs), Results: results}
	for _, r := range results {
		if r.Success {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}

	s.record(ctx, caller, model.ActionBulkGrant, "", map[string]any{
		"amount":     amount,
		"reason":     reason,
		"total":      summary.Total,
		"successful": summary.Successful,
		"failed":     summary.Failed,
	})
	s.log.Info("bulk grant", "admin", caller.AccountID, "amount", amount, "successful", summary.Successful, "total", summary.Total)
	return summary, nil
}

func (s *service) Refund(ctx context.Context, caller model.AdminIdentity, req RefundReq) (*RefundOutcome, error) {
	if err := s.policy.Authorize(OpRefund, req.Amount, caller.Role); err != nil {
		s.recordDenied(ctx, caller, req.AccountID, OpRefund, map[string]any{"amount": req.Amount})
		return nil, err
	}

	// Phase 1: the ledger credit is the source of truth. Once it commits
	// the refund cannot be rolled back, whatever the gateway does next.
	newBalance, err := s.ledger.AddCredits(ctx, req.AccountID, req.Amount, model.EntryRefund,
		"Refund: "+req.Reason, map[string]any{"created_by": caller.AccountID})
	if err != nil {
		return nil, err
	}
	out := &RefundOutcome{NewBalance: newBalance}

	// Phase 2: best-effort reversal. A failure here leaves a known ledger /
	// gateway divergence which is flagged for reconciliation, not surfaced.
	if req.StripeRefund && req.PaymentIntentID != "" {
		refundID, gerr := s.gateway.CreateRefund(ctx, striperepo.CreateRefundReq{
			PaymentIntentID: req.PaymentIntentID,
			Amount:          req.Amount,
			Reason:          req.Reason,
			Metadata:        map[string]string{"admin_account_id": caller.AccountID, "reason": req.Reason},
		})
		if gerr != nil {
			s.log.Error("stripe refund failed", "account_id", req.AccountID, "payment_intent", req.PaymentIntentID, "err", gerr)
			s.record(ctx, caller, model.ActionRefundGatewayFailed, req.AccountID, map[string]any{
				"amount":            req.Amount,
				"payment_intent_id": req.PaymentIntentID,
				"error":             gerr.Error(),
				"status":            "pending_reconciliation",
			})
		} else {
			out.GatewayRefundID = &refundID
		}
	}

	s.record(ctx, caller, model.ActionRefund, req.AccountID, map[string]any{
		"amount":           req.Amount,
		"reason":           req.Reason,
		"new_balance":      newBalance,
		"stripe_refund_id": out.GatewayRefundID,
	})
	return out, nil
}

func (s *service) Search(ctx context.Context, accountID, email string) (*SearchResult, error) {
	var (
		row *accountrepo.Row
		err error
	)
	switch {
	case accountID != "":
		row, err = s.accounts.ByID(ctx, accountID)
	case email != "":
		row, err = s.accounts.ByEmail(ctx, email)
	default:
		return nil, ErrMissingQuery
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	res := &SearchResult{AccountID: row.AccountID, Email: row.Email, CreatedAt: row.CreatedAt}
	summary, err := s.ledger.GetSummary(ctx, row.AccountID)
	switch {
	case err == nil:
		res.Summary = summary
	case errors.Is(err, ledgersvc.ErrAccountNotFound):
		// Registered but not yet in the credit ledger.
	default:
		return nil, err
	}
	return res, nil
}

func (s *service) SearchByEmail(ctx context.Context, fragment string) ([]SearchHit, error) {
	rows, err := s.accounts.SearchByEmail(ctx, fragment, 10)
	if err != nil {
		return nil, err
	}
	hits := make([]SearchHit, 0, len(rows))
	for _, row := range rows {
		hit := SearchHit{AccountID: row.AccountID, Email: row.Email, CreatedAt: row.CreatedAt}
		if summary, err := s.ledger.GetSummary(ctx, row.AccountID); err == nil && summary.Account != nil {
			hit.Balance = summary.Account.Balance
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (s *service) Migrate(ctx context.Context, caller model.AdminIdentity, accountID string) (bool, error) {
	if err := s.policy.Authorize(OpMigrate, decimal.Zero, caller.Role); err != nil {
		s.recordDenied(ctx, caller, accountID, OpMigrate, nil)
		return false, err
	}

	if _, err := s.ledger.GetSummary(ctx, accountID); err == nil {
		return false, nil // already on the credit ledger
	} else if !errors.Is(err, ledgersvc.ErrAccountNotFound) {
		return false, err
	}

	seed, err := s.accounts.LegacyBalance(ctx, accountID)
	if err != nil {
		return false, err
	}
	newBalance, err := s.ledger.Migrate(ctx, accountID, seed)
	if err != nil {
		return false, err
	}

	s.record(ctx, caller, model.ActionMigrateUser, accountID, map[string]any{
		"legacy_balance": seed,
		"new_balance":    newBalance,
	})
	return true, nil
}

func (s *service) BillingSummary(ctx context.Context, accountID string) (*ledgersvc.Summary, error) {
	return s.ledger.GetSummary(ctx, accountID)
}

func (s *service) RecentTransactions(ctx context.Context, accountID string, limit, offset int, typeFilter string) ([]model.LedgerEntry, error) {
	return s.ledger.GetLedger(ctx, accountID, limit, offset, typeFilter)
}

func (s *service) RecentActions(ctx context.Context, targetAccountID, actionType string, limit int) ([]model.AdminAction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.audit.List(ctx, targetAccountID, actionType, limit)
}

// record writes the audit row after the mutation committed. The write is
// best-effort: a failure is logged and never turns a committed mutation
// into a reported error.
func (s *service) record(ctx context.Context, caller model.AdminIdentity, action model.ActionType, target string, details map[string]any) {
	a := &model.AdminAction{
		AdminAccountID:  caller.AccountID,
		ActionType:      action,
		TargetAccountID: target,
		Details:         details,
	}
	if err := s.audit.Insert(ctx, a); err != nil {
		s.log.Error("audit write failed", "action", action, "target", target, "err", err)
	}
}

func (s *service) recordDenied(ctx context.Context, caller model.AdminIdentity, target string, op Operation, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	details["operation"] = string(op)
	details["role"] = string(caller.Role)
	s.record(ctx, caller, model.ActionPermissionDenied, target, details)
}
