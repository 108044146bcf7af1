// model/admin.go
package model

import "time"

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// AdminIdentity is the verified caller record supplied by the identity layer
// (JWT claims at the edge). The core trusts it and only applies tier policy.
type AdminIdentity struct {
	AccountID string `json:"account_id"`
	Role      Role   `json:"role"`
}

type ActionType string

const (
	ActionCreditAdjustment    ActionType = "credit_adjustment"
	ActionBulkGrant           ActionType = "bulk_grant"
	ActionRefund              ActionType = "refund"
	ActionRefundGatewayFailed ActionType = "refund_gateway_failed"
	ActionMigrateUser         ActionType = "migrate_user"
	ActionPermissionDenied    ActionType = "permission_denied"
)

// AdminAction is one audit row per privileged attempt, success or failure.
type AdminAction struct {
	ID              int64          `json:"id"`
	AdminAccountID  string         `json:"admin_account_id"`
	ActionType      ActionType     `json:"action_type"`
	TargetAccountID string         `json:"target_account_id,omitempty"`
	Details         map[string]any `json:"details,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}
