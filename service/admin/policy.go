package adminsvc

import (
	"errors"

	"creditdesk/model"

	"github.com/shopspring/decimal"
)

var ErrPermissionDenied = errors.New("permission denied")

type Operation string

const (
	OpAdjust    Operation = "adjust"
	OpBulkGrant Operation = "bulk_grant"
	OpRefund    Operation = "refund"
	OpMigrate   Operation = "migrate"
	OpInspect   Operation = "inspect"
)

// Policy is the tier table consulted before any mutation. It is the single
// place that decides which role a given operation and magnitude requires;
// call sites never hand-roll role checks.
type Policy struct {
	// A single adjustment above this absolute value needs super_admin.
	AdjustLimit decimal.Decimal
	// A bulk grant whose per-account amount exceeds this needs super_admin.
	BulkGrantLimit decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{
		AdjustLimit:    decimal.NewFromInt(1000),
		BulkGrantLimit: decimal.NewFromInt(100),
	}
}

// Authorize returns ErrPermissionDenied when the caller's role is not
// sufficient for the operation at the given magnitude. It is pure: no
// lookups, no side effects.
func (p Policy) Authorize(op Operation, amount decimal.Decimal, role model.Role) error {
	switch role {
	case model.RoleSuperAdmin:
		return nil
	case model.RoleAdmin:
	default:
		return ErrPermissionDenied
	}

	switch op {
	case OpRefund, OpMigrate:
		return ErrPermissionDenied
	case OpAdjust:
		if amount.Abs().GreaterThan(p.AdjustLimit) {
			return ErrPermissionDenied
		}
	case OpBulkGrant:
		if amount.GreaterThan(p.BulkGrantLimit) {
			return ErrPermissionDenied
		}
	case OpInspect:
	}
	return nil
}
