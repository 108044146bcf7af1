package ledgerrepo

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"creditdesk/model"

	"github.com/shopspring/decimal"
)

// Memory is an in-memory Repo used by tests and local runs. It enforces the
// same serialization contract as the Postgres implementation: one mutation
// at a time per account, full parallelism across accounts.
type Memory struct {
	mapMu sync.Mutex
	locks map[string]*sync.Mutex

	mu       sync.Mutex
	accounts map[string]*model.CreditAccount
	entries  map[string][]model.LedgerEntry
}

func NewMemory() *Memory {
	return &Memory{
		locks:    make(map[string]*sync.Mutex),
		accounts: make(map[string]*model.CreditAccount),
		entries:  make(map[string][]model.LedgerEntry),
	}
}

func (m *Memory) accountLock(accountID string) *sync.Mutex {
	m.mapMu.Lock()
	defer m.mapMu.Unlock()
	l, ok := m.locks[accountID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[accountID] = l
	}
	return l
}

func (m *Memory) Apply(ctx context.Context, accountID string, apply ApplyFunc, entry *model.LedgerEntry) (decimal.Decimal, error) {
	l := m.accountLock(accountID)
	l.Lock()
	defer l.Unlock()

	m.mu.Lock()
	acct, ok := m.accounts[accountID]
	if !ok {
		now := time.Now().UTC()
		acct = &model.CreditAccount{AccountID: accountID, Balance: decimal.Zero, CreatedAt: now, UpdatedAt: now}
		m.accounts[accountID] = acct
	}
	balance := acct.Balance
	m.mu.Unlock()

	// Held account lock makes the read-compute-write sequence atomic.
	newBalance, err := apply(balance)
	if err != nil {
		return decimal.Zero, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	acct.Balance = newBalance
	acct.UpdatedAt = time.Now().UTC()
	e := *entry
	e.AccountID = accountID
	m.entries[accountID] = append(m.entries[accountID], e)
	return newBalance, nil
}

func (m *Memory) GetAccount(ctx context.Context, accountID string) (*model.CreditAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[accountID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *acct
	return &cp, nil
}

func (m *Memory) ListEntries(ctx context.Context, accountID string, limit, offset int, typeFilter string) ([]model.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.LedgerEntry
	for _, e := range m.entries[accountID] {
		if typeFilter != "" && string(e.Type) != typeFilter {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

var _ Repo = (*Memory)(nil)
