package ledgersvc_test

import (
	"context"
	"errors"
	"testing"

	"creditdesk/model"
	ledgerrepo "creditdesk/repository/ledger"
	ledgersvc "creditdesk/service/ledger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newSvc() (ledgersvc.Service, *ledgerrepo.Memory) {
	m := ledgerrepo.NewMemory()
	return ledgersvc.New(m), m
}

func d(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func TestAddCredits(t *testing.T) {
	s, m := newSvc()
	ctx := context.Background()

	bal, err := s.AddCredits(ctx, "acct-1", d(100), model.EntryAdminGrant, "Admin adjustment: welcome", map[string]any{"created_by": "admin-1"})
	require.NoError(t, err)
	require.True(t, bal.Equal(d(100)))

	// account created on first credit
	acct, err := m.GetAccount(ctx, "acct-1")
	require.NoError(t, err)
	require.True(t, acct.Balance.Equal(d(100)))

	entries, err := m.ListEntries(ctx, "acct-1", 0, 0, "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, model.EntryAdminGrant, entries[0].Type)
	require.Equal(t, "admin-1", entries[0].Metadata["created_by"])
}

func TestAddCredits_RejectsNonPositive(t *testing.T) {
	s, _ := newSvc()
	for _, amt := range []decimal.Decimal{decimal.Zero, d(-5)} {
		_, err := s.AddCredits(context.Background(), "acct-1", amt, model.EntryAdminGrant, "x", nil)
		require.ErrorIs(t, err, ledgersvc.ErrInvalidAmount)
	}
}

func TestDeductCredits(t *testing.T) {
	s, _ := newSvc()
	ctx := context.Background()

	_, err := s.AddCredits(ctx, "acct-1", d(50), model.EntryAdminGrant, "seed", nil)
	require.NoError(t, err)

	bal, err := s.DeductCredits(ctx, "acct-1", d(20), "Admin deduction: abuse", "admin_adjustment")
	require.NoError(t, err)
	require.True(t, bal.Equal(d(30)))
}

func TestDeductCredits_Insufficient(t *testing.T) {
	s, m := newSvc()
	ctx := context.Background()

	_, err := s.AddCredits(ctx, "acct-1", d(10), model.EntryAdminGrant, "seed", nil)
	require.NoError(t, err)

	_, err = s.DeductCredits(ctx, "acct-1", d(25), "too much", "admin_adjustment")
	require.ErrorIs(t, err, ledgersvc.ErrInsufficientBalance)

	// no mutation happened
	acct, err := m.GetAccount(ctx, "acct-1")
	require.NoError(t, err)
	require.True(t, acct.Balance.Equal(d(10)))
	entries, err := m.ListEntries(ctx, "acct-1", 0, 0, "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestMigrate(t *testing.T) {
	s, _ := newSvc()
	ctx := context.Background()

	bal, err := s.Migrate(ctx, "acct-1", d(75))
	require.NoError(t, err)
	require.True(t, bal.Equal(d(75)))

	// zero seed still creates the account
	bal, err = s.Migrate(ctx, "acct-2", decimal.Zero)
	require.NoError(t, err)
	require.True(t, bal.IsZero())
	summary, err := s.GetSummary(ctx, "acct-2")
	require.NoError(t, err)
	require.Len(t, summary.Recent, 1)
	require.Equal(t, model.EntryMigration, summary.Recent[0].Type)

	_, err = s.Migrate(ctx, "acct-3", d(-1))
	require.ErrorIs(t, err, ledgersvc.ErrInvalidAmount)
}

func TestGetSummary(t *testing.T) {
	s, _ := newSvc()
	ctx := context.Background()

	_, err := s.GetSummary(ctx, "missing")
	require.ErrorIs(t, err, ledgersvc.ErrAccountNotFound)

	for i := 0; i < 25; i++ {
		_, err := s.AddCredits(ctx, "acct-1", d(1), model.EntryAdminGrant, "seed", nil)
		require.NoError(t, err)
	}
	summary, err := s.GetSummary(ctx, "acct-1")
	require.NoError(t, err)
	require.True(t, summary.Account.Balance.Equal(d(25)))
	require.Len(t, summary.Recent, 20) // capped
}

type brokenRepo struct{}

func (brokenRepo) Apply(ctx context.Context, accountID string, apply ledgerrepo.ApplyFunc, entry *model.LedgerEntry) (decimal.Decimal, error) {
	return decimal.Zero, errors.New("connection refused")
}
func (brokenRepo) GetAccount(ctx context.Context, accountID string) (*model.CreditAccount, error) {
	return nil, errors.New("connection refused")
}
func (brokenRepo) ListEntries(ctx context.Context, accountID string, limit, offset int, typeFilter string) ([]model.LedgerEntry, error) {
	return nil, errors.New("connection refused")
}

func TestStoreFailureIsClassified(t *testing.T) {
	s := ledgersvc.New(brokenRepo{})
	ctx := context.Background()

	_, err := s.AddCredits(ctx, "acct-1", d(5), model.EntryAdminGrant, "x", nil)
	require.ErrorIs(t, err, ledgersvc.ErrStoreUnavailable)

	_, err = s.DeductCredits(ctx, "acct-1", d(5), "x", "admin_adjustment")
	require.ErrorIs(t, err, ledgersvc.ErrStoreUnavailable)

	_, err = s.GetSummary(ctx, "acct-1")
	require.ErrorIs(t, err, ledgersvc.ErrStoreUnavailable)
}
