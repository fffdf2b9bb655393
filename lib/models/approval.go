package models

import (
	"time"
)

// RequestType is the kind of sensitive mutation an approval request gates
type RequestType string

const (
	RequestAgentOnboarding   RequestType = "agent_onboarding"
	RequestPricingChange     RequestType = "pricing_change"
	RequestCommission        RequestType = "commission_request"
	RequestBankDetailsUpdate RequestType = "bank_details_update"
	RequestRouteAssignment   RequestType = "route_assignment"
	RequestReimbursement     RequestType = "reimbursement_request"
)

// defaultReviewerPermissions is used when a request is created without explicit required permissions
var defaultReviewerPermissions = map[RequestType]Permission{
	RequestAgentOnboarding:   OnboardAgents,
	RequestPricingChange:     ManagePricing,
	RequestCommission:        ApproveCommissions,
	RequestBankDetailsUpdate: ApproveBankDetails,
	RequestRouteAssignment:   AssignRoutes,
	RequestReimbursement:     ApproveReimbursements,
}

// IsValid reports whether t is one of the known request types
func (t RequestType) IsValid() bool {
	_, ok := defaultReviewerPermissions[t]
	return ok
}

// DefaultReviewerPermission returns the permission a reviewer needs for t when
// the requester did not specify any.
func (t RequestType) DefaultReviewerPermission() (Permission, bool) {
	p, ok := defaultReviewerPermissions[t]
	return p, ok
}

// ApprovalStatus is the lifecycle state of a request
type ApprovalStatus string

const (
	StatusPending   ApprovalStatus = "pending"
	StatusApproved  ApprovalStatus = "approved"
	StatusRejected  ApprovalStatus = "rejected"
	StatusCancelled ApprovalStatus = "cancelled"
)

// IsTerminal reports whether no further transition is allowed from s
func (s ApprovalStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

// IsValid reports whether s is a known status
func (s ApprovalStatus) IsValid() bool {
	return s == StatusPending || s.IsTerminal()
}

// Priority is informational and never affects authorization
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// IsValid reports whether p is a known priority
func (p Priority) IsValid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// ApprovalRequest is a pending action awaiting a permission-bearing reviewer's decision
type ApprovalRequest struct {
	ID                  string                 `json:"id"`                         // UUID assigned at creation
	Type                RequestType            `json:"type"`                       // Kind of gated mutation
	Title               string                 `json:"title"`                      // Short summary shown in lists
	Description         string                 `json:"description"`                // Free text, includes the justification if one was given
	RequestedBy         string                 `json:"requested_by"`               // Requester user ID
	RequestedByName     string                 `json:"requested_by_name"`          // Requester display name
	RequestedAt         time.Time              `json:"requested_at"`               // Set at creation, never changed
	Status              ApprovalStatus         `json:"status"`                     // pending until exactly one terminal transition
	Approver            string                 `json:"approver,omitempty"`         // Reviewer user ID, set on approve/reject
	ApproverName        string                 `json:"approver_name,omitempty"`    // Reviewer display name
	ApprovedAt          *time.Time             `json:"approved_at,omitempty"`      // Decision timestamp, set on approve/reject
	RejectionReason     string                 `json:"rejection_reason,omitempty"` // Set on reject only
	Metadata            map[string]interface{} `json:"metadata,omitempty"`         // Payload describing the gated action
	Priority            Priority               `json:"priority"`                   // low, medium or high
	RequiredPermissions []Permission           `json:"required_permissions"`       // Reviewer must hold all of them
	ProjectID           string                 `json:"project_id,omitempty"`       // Optional scope tag
}

// Clone returns a deep copy so callers never share the store's instance
func (r ApprovalRequest) Clone() ApprovalRequest {
	out := r
	if r.ApprovedAt != nil {
		at := *r.ApprovedAt
		out.ApprovedAt = &at
	}
	if r.Metadata != nil {
		out.Metadata = make(map[string]interface{}, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	if r.RequiredPermissions != nil {
		out.RequiredPermissions = append([]Permission(nil), r.RequiredPermissions...)
	}
	return out
}

// ApprovalActionType records which terminal transition an action describes
type ApprovalActionType string

const (
	ActionApproved  ApprovalActionType = "approved"
	ActionRejected  ApprovalActionType = "rejected"
	ActionCancelled ApprovalActionType = "cancelled"
)

// ApprovalAction is one immutable audit record, appended on every status change
type ApprovalAction struct {
	ID              string             `json:"id"`
	RequestID       string             `json:"request_id"`
	Action          ApprovalActionType `json:"action"`
	PerformedBy     string             `json:"performed_by"`
	PerformedByName string             `json:"performed_by_name"`
	Timestamp       time.Time          `json:"timestamp"`
	Reason          string             `json:"reason,omitempty"`
}

// CreateApprovalRequest represents the request payload for creating an approval request
type CreateApprovalRequest struct {
	Type                RequestType            `json:"type"`
	Title               string                 `json:"title"`
	Description         string                 `json:"description,omitempty"`
	Justification       string                 `json:"justification,omitempty"`
	Metadata            map[string]interface{} `json:"metadata,omitempty"`
	RequiredPermissions []Permission           `json:"required_permissions,omitempty"`
	Priority            Priority               `json:"priority,omitempty"`
	ProjectID           string                 `json:"project_id,omitempty"`
}

// ResolveApprovalRequest represents the payload for approve, reject and cancel
type ResolveApprovalRequest struct {
	Reason string `json:"reason,omitempty"`
}

// ApprovalListResponse represents the response for listing approval requests
type ApprovalListResponse struct {
	Requests []ApprovalRequest `json:"requests"`
	Total    int               `json:"total"`
}

// ApprovalActionListResponse represents the audit trail of one request
type ApprovalActionListResponse struct {
	Actions []ApprovalAction `json:"actions"`
	Total   int              `json:"total"`
}
