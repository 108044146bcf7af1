package striperepo

import (
	"context"

	"github.com/shopspring/decimal"
)

// CreateRefundReq reverses a prior charge at the gateway. Amount is in
// currency units; the wire call converts to minor units.
type CreateRefundReq struct {
	PaymentIntentID string
	Amount          decimal.Decimal
	Reason          string
	Metadata        map[string]string
}

// Repo is the payment-gateway collaborator. It is treated as unreliable:
// callers decide whether a failure is fatal.
type Repo interface {
	CreateRefund(ctx context.Context, req CreateRefundReq) (refundID string, err error)
}
