package models

// RoleName identifies a role in the registry
type RoleName string

// Built-in roles shipped with the default registry configuration
const (
	RoleSuperAdmin     RoleName = "super_admin"
	RoleAdmin          RoleName = "admin"
	RoleSupervisor     RoleName = "supervisor"
	RoleManager        RoleName = "manager"
	RoleFinanceManager RoleName = "finance_manager"
	RoleHRManager      RoleName = "hr_manager"
	RolePartnerAdmin   RoleName = "partner_admin"
	RoleAgent          RoleName = "agent"
	RoleViewer         RoleName = "viewer"
)

// Role is one entry of the role registry
type Role struct {
	Name     RoleName   `json:"name"`     // Role identifier
	Level    int        `json:"level"`    // Display/ranking only, never used for authorization
	Grants   []Grant    `json:"grants"`   // Directly granted permissions and wildcards
	Inherits []RoleName `json:"inherits"` // Roles whose grants this role also receives
}

// RoleListResponse represents the response for listing roles
type RoleListResponse struct {
	Roles []Role `json:"roles"`
	Total int    `json:"total"`
}

// PermissionListResponse represents the response for listing the permission catalog
type PermissionListResponse struct {
	Permissions []Permission `json:"permissions"`
	Total       int          `json:"total"`
}

// EffectivePermissionsResponse is what the dashboard uses to decide which affordances to show
type EffectivePermissionsResponse struct {
	UserID      string       `json:"user_id"`
	Roles       []RoleName   `json:"roles"`
	Grants      []Grant      `json:"grants"`      // Raw grants including wildcards
	Permissions []Permission `json:"permissions"` // Catalog view of the effective set
}
