// Package workflow implements the approval request lifecycle: pending
// requests are created freely and resolved exactly once by a reviewer whose
// effective permissions cover every required permission.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"operations/lib/access"
	"operations/lib/models"
	"operations/lib/store"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Engine creates approval requests and drives their status transitions
type Engine struct {
	gate   *access.Gate
	store  *store.ApprovalStore
	logger *logrus.Logger

	now   func() time.Time
	newID func() string
}

// NewEngine wires the engine to its gate and store
func NewEngine(gate *access.Gate, approvals *store.ApprovalStore, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{
		gate:   gate,
		store:  approvals,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.New().String() },
	}
}

// Create records a new pending request on behalf of actor. No permission is
// needed to ask for an approval.
func (e *Engine) Create(ctx context.Context, actor models.Actor, input models.CreateApprovalRequest) (models.ApprovalRequest, error) {
	if err := validateCreate(actor, &input); err != nil {
		e.logger.WithFields(logrus.Fields{
			"operation": "Create",
			"actor":     actor.ID,
			"type":      input.Type,
			"error":     err.Error(),
		}).Warn("Rejected invalid approval request")
		return models.ApprovalRequest{}, err
	}

	required := dedupePermissions(input.RequiredPermissions)
	if len(required) == 0 {
		p, _ := input.Type.DefaultReviewerPermission()
		required = []models.Permission{p}
	}

	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}

	description := strings.TrimSpace(input.Description)
	if justification := strings.TrimSpace(input.Justification); justification != "" {
		if description != "" {
			description += "\n\n"
		}
		description += "Justification: " + justification
	}

	request := models.ApprovalRequest{
		ID:                  e.newID(),
		Type:                input.Type,
		Title:               strings.TrimSpace(input.Title),
		Description:         description,
		RequestedBy:         actor.ID,
		RequestedByName:     actor.Name,
		RequestedAt:         e.now(),
		Status:              models.StatusPending,
		Metadata:            input.Metadata,
		Priority:            priority,
		RequiredPermissions: required,
		ProjectID:           input.ProjectID,
	}

	if err := e.store.Insert(ctx, request); err != nil {
		e.logger.WithFields(logrus.Fields{
			"operation":  "Create",
			"request_id": request.ID,
			"error":      err.Error(),
		}).Error("Failed to store approval request")
		return models.ApprovalRequest{}, fmt.Errorf("failed to create approval request: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"operation":            "Create",
		"request_id":           request.ID,
		"type":                 request.Type,
		"requested_by":         actor.ID,
		"required_permissions": required,
	}).Info("Approval request created")

	return request.Clone(), nil
}

// Approve resolves a pending request as approved. The actor must hold every
// required permission.
func (e *Engine) Approve(ctx context.Context, actor models.Actor, id string, reason string) (models.ApprovalRequest, error) {
	if err := requireActor(actor); err != nil {
		return models.ApprovalRequest{}, err
	}
	return e.resolve(ctx, "Approve", id, func(current models.ApprovalRequest) (models.ApprovalRequest, models.ApprovalAction, error) {
		if err := e.authorizeReviewer(actor, current); err != nil {
			return current, models.ApprovalAction{}, err
		}
		return e.decide(current, actor, models.StatusApproved, models.ActionApproved, strings.TrimSpace(reason))
	})
}

// Reject resolves a pending request as rejected. A non-empty reason is
// mandatory and the actor must hold every required permission.
func (e *Engine) Reject(ctx context.Context, actor models.Actor, id string, reason string) (models.ApprovalRequest, error) {
	if err := requireActor(actor); err != nil {
		return models.ApprovalRequest{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.ApprovalRequest{}, fmt.Errorf("%w: rejection reason is required", models.ErrValidation)
	}
	return e.resolve(ctx, "Reject", id, func(current models.ApprovalRequest) (models.ApprovalRequest, models.ApprovalAction, error) {
		if err := e.authorizeReviewer(actor, current); err != nil {
			return current, models.ApprovalAction{}, err
		}
		return e.decide(current, actor, models.StatusRejected, models.ActionRejected, reason)
	})
}

// Cancel withdraws a pending request. Only the original requester or a holder
// of cancel_requests may cancel.
func (e *Engine) Cancel(ctx context.Context, actor models.Actor, id string, reason string) (models.ApprovalRequest, error) {
	if err := requireActor(actor); err != nil {
		return models.ApprovalRequest{}, err
	}
	return e.resolve(ctx, "Cancel", id, func(current models.ApprovalRequest) (models.ApprovalRequest, models.ApprovalAction, error) {
		if current.RequestedBy != actor.ID && !e.gate.HasPermission(actor, models.CancelRequests) {
			return current, models.ApprovalAction{}, fmt.Errorf("%w: user %s is neither the requester nor holds %s",
				models.ErrAccessDenied, actor.ID, models.CancelRequests)
		}
		return e.decide(current, actor, models.StatusCancelled, models.ActionCancelled, strings.TrimSpace(reason))
	})
}

// Get returns one request
func (e *Engine) Get(id string) (models.ApprovalRequest, error) {
	return e.store.Get(id)
}

// History returns the actions recorded for one request in the order they happened
func (e *Engine) History(id string) ([]models.ApprovalAction, error) {
	return e.store.Actions(id)
}

// PendingApprovals returns every pending request regardless of scope
func (e *Engine) PendingApprovals() []models.ApprovalRequest {
	return e.store.List(store.Filter{Status: models.StatusPending})
}

// ByType returns every request of the given type in any status
func (e *Engine) ByType(requestType models.RequestType) []models.ApprovalRequest {
	return e.store.List(store.Filter{Type: requestType})
}

// Find returns the requests matching both filters; empty values match everything
func (e *Engine) Find(status models.ApprovalStatus, requestType models.RequestType) []models.ApprovalRequest {
	return e.store.List(store.Filter{Status: status, Type: requestType})
}

// VisibleTo returns the pending requests actor could act on: the actor holds
// every required permission and the request is unscoped or in the actor's
// current project.
func (e *Engine) VisibleTo(actor models.Actor) []models.ApprovalRequest {
	permissions := e.gate.Permissions(actor)
	return e.store.List(store.Filter{
		Status: models.StatusPending,
		Match: func(request models.ApprovalRequest) bool {
			if request.ProjectID != "" && request.ProjectID != actor.ProjectID {
				return false
			}
			required := reviewerPermissions(request)
			return len(required) > 0 && permissions.HasAll(required)
		},
	})
}

func (e *Engine) resolve(ctx context.Context, operation string, id string, decide store.Decision) (models.ApprovalRequest, error) {
	resolved, err := e.store.Resolve(ctx, id, decide)
	if err != nil {
		entry := e.logger.WithFields(logrus.Fields{
			"operation":  operation,
			"request_id": id,
			"error":      err.Error(),
		})
		switch {
		case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrInvalidState),
			errors.Is(err, models.ErrAccessDenied), errors.Is(err, models.ErrValidation):
			entry.Warn("Approval transition refused")
		default:
			entry.Error("Approval transition failed")
		}
		return models.ApprovalRequest{}, err
	}

	e.logger.WithFields(logrus.Fields{
		"operation":  operation,
		"request_id": id,
		"status":     resolved.Status,
	}).Info("Approval request resolved")
	return resolved, nil
}

func (e *Engine) decide(current models.ApprovalRequest, actor models.Actor, status models.ApprovalStatus, actionType models.ApprovalActionType, reason string) (models.ApprovalRequest, models.ApprovalAction, error) {
	now := e.now()
	current.Status = status
	switch status {
	case models.StatusApproved, models.StatusRejected:
		current.Approver = actor.ID
		current.ApproverName = actor.Name
		current.ApprovedAt = &now
		if status == models.StatusRejected {
			current.RejectionReason = reason
		}
	}

	action := models.ApprovalAction{
		ID:              e.newID(),
		RequestID:       current.ID,
		Action:          actionType,
		PerformedBy:     actor.ID,
		PerformedByName: actor.Name,
		Timestamp:       now,
		Reason:          reason,
	}
	return current, action, nil
}

// authorizeReviewer checks actor against the permissions needed to approve or
// reject request. A request with none is approvable by nobody.
func (e *Engine) authorizeReviewer(actor models.Actor, request models.ApprovalRequest) error {
	required := reviewerPermissions(request)
	if len(required) == 0 {
		return fmt.Errorf("%w: approval request %s has no reviewer permission", models.ErrAccessDenied, request.ID)
	}
	return e.gate.Authorize(actor, required)
}

func reviewerPermissions(request models.ApprovalRequest) []models.Permission {
	if len(request.RequiredPermissions) > 0 {
		return request.RequiredPermissions
	}
	if p, ok := request.Type.DefaultReviewerPermission(); ok {
		return []models.Permission{p}
	}
	return nil
}

func requireActor(actor models.Actor) error {
	if strings.TrimSpace(actor.ID) == "" {
		return fmt.Errorf("%w: actor id is required", models.ErrValidation)
	}
	return nil
}

func validateCreate(actor models.Actor, input *models.CreateApprovalRequest) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !input.Type.IsValid() {
		return fmt.Errorf("%w: unknown request type %q", models.ErrValidation, input.Type)
	}
	if strings.TrimSpace(input.Title) == "" {
		return fmt.Errorf("%w: title is required", models.ErrValidation)
	}
	if input.Priority != "" && !input.Priority.IsValid() {
		return fmt.Errorf("%w: unknown priority %q", models.ErrValidation, input.Priority)
	}
	for _, p := range input.RequiredPermissions {
		if !p.IsKnown() {
			return fmt.Errorf("%w: unknown permission %q", models.ErrValidation, p)
		}
	}
	return nil
}

func dedupePermissions(perms []models.Permission) []models.Permission {
	seen := make(map[models.Permission]bool, len(perms))
	var out []models.Permission
	for _, p := range perms {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
