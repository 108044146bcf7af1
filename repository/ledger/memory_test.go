package ledgerrepo_test

import (
	"context"
	"sync"
	"testing"

	"creditdesk/model"
	ledgerrepo "creditdesk/repository/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func credit(t *testing.T, m *ledgerrepo.Memory, accountID string, amount int64) decimal.Decimal {
	t.Helper()
	amt := decimal.NewFromInt(amount)
	bal, err := m.Apply(context.Background(), accountID, func(b decimal.Decimal) (decimal.Decimal, error) {
		return b.Add(amt), nil
	}, &model.LedgerEntry{ID: uuid.NewString(), Amount: amt, Type: model.EntryAdminGrant})
	require.NoError(t, err)
	return bal
}

func sumEntries(t *testing.T, m *ledgerrepo.Memory, accountID string) decimal.Decimal {
	t.Helper()
	entries, err := m.ListEntries(context.Background(), accountID, 0, 0, "")
	require.NoError(t, err)
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total
}

func TestApply_BalanceMatchesEntrySum(t *testing.T) {
	m := ledgerrepo.NewMemory()

	credit(t, m, "acct-1", 100)
	credit(t, m, "acct-1", 40)

	amt := decimal.NewFromInt(30)
	_, err := m.Apply(context.Background(), "acct-1", func(b decimal.Decimal) (decimal.Decimal, error) {
		return b.Sub(amt), nil
	}, &model.LedgerEntry{ID: uuid.NewString(), Amount: amt.Neg(), Type: model.EntryAdminDeduction})
	require.NoError(t, err)

	acct, err := m.GetAccount(context.Background(), "acct-1")
	require.NoError(t, err)
	require.True(t, acct.Balance.Equal(decimal.NewFromInt(110)))
	require.True(t, acct.Balance.Equal(sumEntries(t, m, "acct-1")))
}

func TestApply_CallbackErrorMutatesNothing(t *testing.T) {
	m := ledgerrepo.NewMemory()
	credit(t, m, "acct-1", 10)

	sentinel := context.DeadlineExceeded // any error will do
	_, err := m.Apply(context.Background(), "acct-1", func(b decimal.Decimal) (decimal.Decimal, error) {
		return decimal.Zero, sentinel
	}, &model.LedgerEntry{ID: uuid.NewString(), Amount: decimal.NewFromInt(-5)})
	require.ErrorIs(t, err, sentinel)

	acct, err := m.GetAccount(context.Background(), "acct-1")
	require.NoError(t, err)
	require.True(t, acct.Balance.Equal(decimal.NewFromInt(10)))

	entries, err := m.ListEntries(context.Background(), "acct-1", 0, 0, "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestGetAccount_Missing(t *testing.T) {
	m := ledgerrepo.NewMemory()
	_, err := m.GetAccount(context.Background(), "nope")
	require.Error(t, err)
}

func TestListEntries_FilterAndPaging(t *testing.T) {
	m := ledgerrepo.NewMemory()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		credit(t, m, "acct-1", 1)
	}
	amt := decimal.NewFromInt(2)
	_, err := m.Apply(ctx, "acct-1", func(b decimal.Decimal) (decimal.Decimal, error) {
		return b.Sub(amt), nil
	}, &model.LedgerEntry{ID: uuid.NewString(), Amount: amt.Neg(), Type: model.EntryAdminDeduction})
	require.NoError(t, err)

	all, err := m.ListEntries(ctx, "acct-1", 0, 0, "")
	require.NoError(t, err)
	require.Len(t, all, 6)

	deductions, err := m.ListEntries(ctx, "acct-1", 0, 0, string(model.EntryAdminDeduction))
	require.NoError(t, err)
	require.Len(t, deductions, 1)

	page, err := m.ListEntries(ctx, "acct-1", 2, 4, "")
	require.NoError(t, err)
	require.Len(t, page, 2)

	past, err := m.ListEntries(ctx, "acct-1", 2, 10, "")
	require.NoError(t, err)
	require.Empty(t, past)
}

// Concurrent credits and debits on one account must settle to some serial
// order: never a lost update, never a negative balance.
func TestApply_ConcurrentSameAccount(t *testing.T) {
	m := ledgerrepo.NewMemory()
	ctx := context.Background()
	credit(t, m, "acct-1", 10)

	const rounds = 50
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			amt := decimal.NewFromInt(10)
			_, _ = m.Apply(ctx, "acct-1", func(b decimal.Decimal) (decimal.Decimal, error) {
				return b.Add(amt), nil
			}, &model.LedgerEntry{ID: uuid.NewString(), Amount: amt, Type: model.EntryAdminGrant})
		}()
		go func() {
			defer wg.Done()
			amt := decimal.NewFromInt(10)
			_, _ = m.Apply(ctx, "acct-1", func(b decimal.Decimal) (decimal.Decimal, error) {
				if b.LessThan(amt) {
					return decimal.Zero, context.Canceled
				}
				return b.Sub(amt), nil
			}, &model.LedgerEntry{ID: uuid.NewString(), Amount: amt.Neg(), Type: model.EntryAdminDeduction})
		}()
	}
	wg.Wait()

	acct, err := m.GetAccount(ctx, "acct-1")
	require.NoError(t, err)
	require.False(t, acct.Balance.IsNegative())
	require.True(t, acct.Balance.Equal(sumEntries(t, m, "acct-1")),
		"balance %s must equal entry sum", acct.Balance)
}

// Different accounts must not serialize against each other.
func TestApply_ParallelAcrossAccounts(t *testing.T) {
	m := ledgerrepo.NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				amt := decimal.NewFromInt(2)
				_, _ = m.Apply(ctx, id, func(b decimal.Decimal) (decimal.Decimal, error) {
					return b.Add(amt), nil
				}, &model.LedgerEntry{ID: uuid.NewString(), Amount: amt, Type: model.EntryAdminGrant})
			}
		}(id)
	}
	wg.Wait()

	for _, id := range []string{"a", "b", "c", "d"} {
		acct, err := m.GetAccount(ctx, id)
		require.NoError(t, err)
		require.True(t, acct.Balance.Equal(decimal.NewFromInt(50)))
	}
}
