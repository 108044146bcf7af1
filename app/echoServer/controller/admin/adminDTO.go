package admin

import "github.com/shopspring/decimal"

type AdjustReq struct {
	AccountID string          `json:"account_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason" validate:"required"`
}

type GrantBulkReq struct {
	AccountIDs []string        `json:"account_ids" validate:"required,min=1,dive,required"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason" validate:"required"`
}

type RefundReq struct {
	AccountID       string          `json:"account_id" validate:"required"`
	Amount          decimal.Decimal `json:"amount"`
	Reason          string          `json:"reason" validate:"required"`
	StripeRefund    bool            `json:"stripe_refund"`
	PaymentIntentID string          `json:"payment_intent_id"`
}

type SearchReq struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email" validate:"omitempty,email"`
}
