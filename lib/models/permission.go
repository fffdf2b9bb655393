package models

import (
	"sort"
	"strings"
)

// Permission is an atomic capability token in the form <action>_<resource>,
// e.g. view_agents or manage_pricing.
type Permission string

// Resource is the part of a permission after the action, e.g. "pricing" for manage_pricing
type Resource string

// Permission catalog. Every permission a role or approval request refers to
// should be one of these constants.
const (
	ViewDashboard Permission = "view_dashboard"
	ViewReports   Permission = "view_reports"
	ExportReports Permission = "export_reports"

	ViewAgents    Permission = "view_agents"
	CreateAgents  Permission = "create_agents"
	EditAgents    Permission = "edit_agents"
	DeleteAgents  Permission = "delete_agents"
	OnboardAgents Permission = "onboard_agents"

	ViewServices   Permission = "view_services"
	ManageServices Permission = "manage_services"

	ViewFees   Permission = "view_fees"
	ManageFees Permission = "manage_fees"

	ViewPricing   Permission = "view_pricing"
	ManagePricing Permission = "manage_pricing"

	ViewCommissions    Permission = "view_commissions"
	RequestCommissions Permission = "request_commissions"
	ApproveCommissions Permission = "approve_commissions"

	ViewBankDetails    Permission = "view_bank_details"
	EditBankDetails    Permission = "edit_bank_details"
	ApproveBankDetails Permission = "approve_bank_details"

	ViewRoutes   Permission = "view_routes"
	AssignRoutes Permission = "assign_routes"

	ViewReimbursements    Permission = "view_reimbursements"
	SubmitReimbursements  Permission = "submit_reimbursements"
	ApproveReimbursements Permission = "approve_reimbursements"

	ViewEmployees   Permission = "view_employees"
	ManageEmployees Permission = "manage_employees"

	ViewPartners   Permission = "view_partners"
	ManagePartners Permission = "manage_partners"

	ViewApprovals  Permission = "view_approvals"
	CancelRequests Permission = "cancel_requests"

	ViewUsers   Permission = "view_users"
	ManageUsers Permission = "manage_users"
	ManageRoles Permission = "manage_roles"
)

var catalog = []Permission{
	ViewDashboard, ViewReports, ExportReports,
	ViewAgents, CreateAgents, EditAgents, DeleteAgents, OnboardAgents,
	ViewServices, ManageServices,
	ViewFees, ManageFees,
	ViewPricing, ManagePricing,
	ViewCommissions, RequestCommissions, ApproveCommissions,
	ViewBankDetails, EditBankDetails, ApproveBankDetails,
	ViewRoutes, AssignRoutes,
	ViewReimbursements, SubmitReimbursements, ApproveReimbursements,
	ViewEmployees, ManageEmployees,
	ViewPartners, ManagePartners,
	ViewApprovals, CancelRequests,
	ViewUsers, ManageUsers, ManageRoles,
}

var catalogIndex = func() map[Permission]struct{} {
	index := make(map[Permission]struct{}, len(catalog))
	for _, p := range catalog {
		index[p] = struct{}{}
	}
	return index
}()

// Catalog returns every known permission, sorted.
func Catalog() []Permission {
	out := make([]Permission, len(catalog))
	copy(out, catalog)
	SortPermissions(out)
	return out
}

// IsKnown reports whether p is part of the catalog.
func (p Permission) IsKnown() bool {
	_, ok := catalogIndex[p]
	return ok
}

// Action returns the leading verb of the token ("manage" for manage_pricing).
func (p Permission) Action() string {
	action, _, _ := strings.Cut(string(p), "_")
	return action
}

// Resource returns what the permission acts on ("bank_details" for view_bank_details).
// Tokens without an underscore are their own resource.
func (p Permission) Resource() Resource {
	_, resource, found := strings.Cut(string(p), "_")
	if !found {
		return Resource(p)
	}
	return Resource(resource)
}

// PermissionsOf returns the catalog permissions that belong to resource r.
func PermissionsOf(r Resource) []Permission {
	var out []Permission
	for _, p := range catalog {
		if p.Resource() == r {
			out = append(out, p)
		}
	}
	return out
}

// SortPermissions sorts in place by token.
func SortPermissions(perms []Permission) {
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
}

// GrantKind tags the variant held by a Grant.
type GrantKind uint8

const (
	// GrantExact grants a single permission.
	GrantExact GrantKind = iota
	// GrantAllActions grants every permission of one resource.
	GrantAllActions
	// GrantAllResources grants every permission.
	GrantAllResources
)

// Grant is one entry of a role's configured permissions.
type Grant struct {
	Kind       GrantKind
	Permission Permission // set for GrantExact
	Resource   Resource   // set for GrantAllActions
}

// Exact builds a grant for one permission.
func Exact(p Permission) Grant {
	return Grant{Kind: GrantExact, Permission: p}
}

// AllActions builds a grant for every permission on resource r.
func AllActions(r Resource) Grant {
	return Grant{Kind: GrantAllActions, Resource: r}
}

// AllResources builds the global grant.
func AllResources() Grant {
	return Grant{Kind: GrantAllResources}
}

// Covers reports whether the grant includes permission p.
func (g Grant) Covers(p Permission) bool {
	switch g.Kind {
	case GrantAllResources:
		return true
	case GrantAllActions:
		return p.Resource() == g.Resource
	default:
		return g.Permission == p
	}
}

// String renders the grant in the registry configuration syntax.
func (g Grant) String() string {
	switch g.Kind {
	case GrantAllResources:
		return "*"
	case GrantAllActions:
		return string(g.Resource) + ":*"
	default:
		return string(g.Permission)
	}
}

// MarshalText lets grants appear as plain strings in JSON responses.
func (g Grant) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// ParseGrant reads the configuration syntax: "*" for everything, "<resource>:*"
// for every action on a resource, otherwise a single permission token.
func ParseGrant(s string) Grant {
	s = strings.TrimSpace(s)
	if s == "*" {
		return AllResources()
	}
	if resource, ok := strings.CutSuffix(s, ":*"); ok {
		return AllActions(Resource(resource))
	}
	return Exact(Permission(s))
}
