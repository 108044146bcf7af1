package admin

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"creditdesk/app/echoServer/jwtx"
	adminsvc "creditdesk/service/admin"
	ledgersvc "creditdesk/service/ledger"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc adminsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/admin/billing/credits/adjust
func (h *Controller) Adjust(c echo.Context) error {
	var req AdjustReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil || req.Amount.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "account_id, non-zero amount and reason are required"})
	}
	caller, err := jwtx.AdminFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	newBalance, err := h.Svc.Adjust(c.Request().Context(), caller, req.AccountID, req.Amount, req.Reason)
	if err != nil {
		return h.fail(c, "adjust", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":     true,
		"new_balance": newBalance,
		"adjustment":  req.Amount,
		"reason":      req.Reason,
	})
}

// POST /v1/admin/billing/credits/grant-bulk
func (h *Controller) GrantBulk(c echo.Context) error {
	var req GrantBulkReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil || !req.Amount.IsPositive() {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "account_ids, positive amount and reason are required"})
	}
	caller, err := jwtx.AdminFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	summary, err := h.Svc.GrantBulk(c.Request().Context(), caller, req.AccountIDs, req.Amount, req.Reason)
	if err != nil {
		return h.fail(c, "grant-bulk", err)
	}
	return c.JSON(http.StatusOK, summary)
}

// POST /v1/admin/billing/refund
func (h *Controller) Refund(c echo.Context) error {
	var req RefundReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil || !req.Amount.IsPositive() {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "account_id, positive amount and reason are required"})
	}
	caller, err := jwtx.AdminFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	out, err := h.Svc.Refund(c.Request().Context(), caller, adminsvc.RefundReq{
		AccountID:       req.AccountID,
		Amount:          req.Amount,
		Reason:          req.Reason,
		StripeRefund:    req.StripeRefund,
		PaymentIntentID: req.PaymentIntentID,
	})
	if err != nil {
		return h.fail(c, "refund", err)
	}
	resp := echo.Map{
		"success":       true,
		"new_balance":   out.NewBalance,
		"refund_amount": req.Amount,
	}
	if out.GatewayRefundID != nil {
		resp["stripe_refund_id"] = *out.GatewayRefundID
	}
	return c.JSON(http.StatusOK, resp)
}

// GET /v1/admin/billing/user/:account_id/summary
func (h *Controller) Summary(c echo.Context) error {
	accountID := c.Param("account_id")
	summary, err := h.Svc.BillingSummary(c.Request().Context(), accountID)
	if err != nil {
		return h.fail(c, "summary", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"account_id":          accountID,
		"credit_account":      summary.Account,
		"recent_transactions": summary.Recent,
	})
}

// GET /v1/admin/billing/user/:account_id/transactions?limit=&offset=&type=
func (h *Controller) Transactions(c echo.Context) error {
	accountID := c.Param("account_id")
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	entries, err := h.Svc.RecentTransactions(c.Request().Context(), accountID, limit, offset, c.QueryParam("type"))
	if err != nil {
		return h.fail(c, "transactions", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"account_id":   accountID,
		"transactions": entries,
		"count":        len(entries),
	})
}

// POST /v1/admin/billing/user/search
func (h *Controller) Search(c echo.Context) error {
	var req SearchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid email"})
	}

	res, err := h.Svc.Search(c.Request().Context(), req.AccountID, req.Email)
	if err != nil {
		return h.fail(c, "search", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": res, "credit_account": res.Summary})
}

// GET /v1/admin/users/search/email?email=
func (h *Controller) SearchByEmail(c echo.Context) error {
	email := c.QueryParam("email")
	if email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "email query is required"})
	}
	hits, err := h.Svc.SearchByEmail(c.Request().Context(), email)
	if err != nil {
		return h.fail(c, "search-email", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"users": hits})
}

// POST /v1/admin/billing/migrate-user/:account_id
func (h *Controller) Migrate(c echo.Context) error {
	accountID := c.Param("account_id")
	caller, err := jwtx.AdminFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	migrated, err := h.Svc.Migrate(c.Request().Context(), caller, accountID)
	if err != nil {
		return h.fail(c, "migrate", err)
	}
	msg := "User migrated to credit system"
	if !migrated {
		msg = "User already on credit system"
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "account_id": accountID, "message": msg})
}

// GET /v1/admin/actions?account_id=&type=&limit=
func (h *Controller) Actions(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	actions, err := h.Svc.RecentActions(c.Request().Context(), c.QueryParam("account_id"), c.QueryParam("type"), limit)
	if err != nil {
		return h.fail(c, "actions", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"actions": actions, "count": len(actions)})
}

func (h *Controller) fail(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, adminsvc.ErrPermissionDenied):
		return c.JSON(http.StatusForbidden, echo.Map{"message": err.Error()})
	case errors.Is(err, ledgersvc.ErrInsufficientBalance),
		errors.Is(err, ledgersvc.ErrInvalidAmount),
		errors.Is(err, adminsvc.ErrMissingQuery),
		errors.Is(err, adminsvc.ErrEmptyBatch):
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	case errors.Is(err, adminsvc.ErrNotFound), errors.Is(err, ledgersvc.ErrAccountNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"message": "user not found"})
	default:
		h.Log.Error(op+" failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}
