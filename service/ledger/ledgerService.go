package ledgersvc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"creditdesk/model"
	ledgerrepo "creditdesk/repository/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAccountNotFound     = errors.New("account not found")
	ErrStoreUnavailable    = errors.New("store unavailable")
)

// Summary is the account snapshot returned to inspection endpoints.
type Summary struct {
	Account *model.CreditAccount `json:"credit_account"`
	Recent  []model.LedgerEntry  `json:"recent_transactions"`
}

const recentLimit = 20

type Service interface {
	// AddCredits atomically increments the balance and appends an entry,
	// creating the account on first credit.
	AddCredits(ctx context.Context, accountID string, amount decimal.Decimal, entryType model.EntryType, description string, metadata map[string]any) (decimal.Decimal, error)

	// DeductCredits fails with ErrInsufficientBalance, mutating nothing,
	// when the balance cannot cover the amount.
	DeductCredits(ctx context.Context, accountID string, amount decimal.Decimal, description, referenceType string) (decimal.Decimal, error)

	// Migrate seeds a newly converted account with its opening balance.
	// The seed may be zero; it must not be negative.
	Migrate(ctx context.Context, accountID string, seed decimal.Decimal) (decimal.Decimal, error)

	GetLedger(ctx context.Context, accountID string, limit, offset int, typeFilter string) ([]model.LedgerEntry, error)
	GetSummary(ctx context.Context, accountID string) (*Summary, error)
}

type service struct{ r ledgerrepo.Repo }

func New(r ledgerrepo.Repo) Service { return &service{r} }

func (s *service) AddCredits(ctx context.Context, accountID string, amount decimal.Decimal, entryType model.EntryType, description string, metadata map[string]any) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	entry := &model.LedgerEntry{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Amount:      amount,
		Type:        entryType,
		Description: description,
		Metadata:    metadata,
		CreatedAt:   time.Now().UTC(),
	}
	newBalance, err := s.r.Apply(ctx, accountID, func(balance decimal.Decimal) (decimal.Decimal, error) {
		return balance.Add(amount), nil
	}, entry)
	if err != nil {
		return decimal.Zero, storeErr(err)
	}
	return newBalance, nil
}

func (s *service) DeductCredits(ctx context.Context, accountID string, amount decimal.Decimal, description, referenceType string) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	entry := &model.LedgerEntry{
		ID:            uuid.NewString(),
		AccountID:     accountID,
		Amount:        amount.Neg(),
		Type:          model.EntryAdminDeduction,
		Description:   description,
		ReferenceType: referenceType,
		CreatedAt:     time.Now().UTC(),
	}
	newBalance, err := s.r.Apply(ctx, accountID, func(balance decimal.Decimal) (decimal.Decimal, error) {
		if balance.LessThan(amount) {
			return decimal.Zero, ErrInsufficientBalance
		}
		return balance.Sub(amount), nil
	}, entry)
	if err != nil {
		return decimal.Zero, storeErr(err)
	}
	return newBalance, nil
}

func (s *service) Migrate(ctx context.Context, accountID string, seed decimal.Decimal) (decimal.Decimal, error) {
	if seed.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	entry := &model.LedgerEntry{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Amount:      seed,
		Type:        model.EntryMigration,
		Description: "Migrated to credit ledger",
		CreatedAt:   time.Now().UTC(),
	}
	newBalance, err := s.r.Apply(ctx, accountID, func(balance decimal.Decimal) (decimal.Decimal, error) {
		return balance.Add(seed), nil
	}, entry)
	if err != nil {
		return decimal.Zero, storeErr(err)
	}
	return newBalance, nil
}

func (s *service) GetLedger(ctx context.Context, accountID string, limit, offset int, typeFilter string) ([]model.LedgerEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	entries, err := s.r.ListEntries(ctx, accountID, limit, offset, typeFilter)
	if err != nil {
		return nil, storeErr(err)
	}
	return entries, nil
}

func (s *service) GetSummary(ctx context.Context, accountID string) (*Summary, error) {
	acct, err := s.r.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, storeErr(err)
	}
	recent, err := s.r.ListEntries(ctx, accountID, recentLimit, 0, "")
	if err != nil {
		return nil, storeErr(err)
	}
	return &Summary{Account: acct, Recent: recent}, nil
}

// storeErr keeps business sentinels intact and folds everything else into
// ErrStoreUnavailable so callers see one infrastructure failure mode.
func storeErr(err error) error {
	if errors.Is(err, ErrInsufficientBalance) || errors.Is(err, ErrInvalidAmount) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
