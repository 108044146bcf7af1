// model/account.go
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditAccount is the materialized balance for one account. The balance is
// never written directly; it only moves through the ledger repository, which
// keeps it equal to the sum of the account's ledger entries.
type CreditAccount struct {
	AccountID string          `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type EntryType string

const (
	EntryAdminGrant     EntryType = "admin_grant"
	EntryAdminDeduction EntryType = "admin_deduction"
	EntryRefund         EntryType = "refund"
	EntryMigration      EntryType = "migration"
	EntryUsage          EntryType = "usage"
)

// LedgerEntry is one signed balance change. Entries are append-only:
// corrections are new offsetting entries, never edits or deletes.
type LedgerEntry struct {
	ID            string          `json:"id"`
	AccountID     string          `json:"account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Type          EntryType       `json:"type"`
	Description   string          `json:"description"`
	Metadata      map[string]any  `json:"metadata,omitempty"`
	ReferenceType string          `json:"reference_type,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// BillingContact links an account to its billing email; owned by the external
// account registry, read here only for lookups.
type BillingContact struct {
	AccountID     string          `json:"account_id"`
	Email         string          `json:"email"`
	LegacyBalance decimal.Decimal `json:"legacy_balance"`
}
