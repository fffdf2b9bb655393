// Package handlers routes API Gateway and Cognito events onto the access gate
// and the approval workflow. Each Lambda builds one handler in init() and
// passes its Handle method to lambda.Start.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"operations/lib/access"
	"operations/lib/api"
	"operations/lib/auth"
	"operations/lib/models"
	"operations/lib/store"
	"operations/lib/workflow"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"
)

// ApprovalHandler serves the /approvals routes
type ApprovalHandler struct {
	Engine *workflow.Engine
	Store  *store.ApprovalStore
	Gate   *access.Gate
	Logger *logrus.Logger
}

// Handle routes one API Gateway proxy request
func (h *ApprovalHandler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	h.Logger.WithFields(logrus.Fields{
		"operation": "Handler",
		"method":    request.HTTPMethod,
		"path":      request.Path,
	}).Debug("Approval management request received")

	if request.HTTPMethod == http.MethodOptions {
		return api.SuccessResponse(http.StatusOK, map[string]string{}, h.Logger), nil
	}

	claims, err := auth.ExtractClaimsFromRequest(request)
	if err != nil {
		h.Logger.WithError(err).Warn("Failed to extract claims")
		return api.ErrorResponse(http.StatusUnauthorized, "Unauthorized", h.Logger), nil
	}
	h.Logger.WithField("claims", claims.ToJSON()).Debug("Caller claims extracted")
	actor := claims.Actor()

	// Other containers may have resolved requests since this one last ran
	if err := h.Store.Refresh(ctx); err != nil {
		h.Logger.WithError(err).Error("Failed to refresh approval store")
		return api.ErrorResponse(http.StatusInternalServerError, "Failed to load approval requests", h.Logger), nil
	}

	pathSegments := strings.Split(strings.Trim(request.Path, "/"), "/")
	if len(pathSegments) == 0 || pathSegments[0] != "approvals" {
		return api.ErrorResponse(http.StatusNotFound, "Endpoint not found", h.Logger), nil
	}
	requestID := ""
	if len(pathSegments) >= 2 {
		requestID = pathSegments[1]
	}
	if id, ok := request.PathParameters["requestId"]; ok && id != "" {
		requestID = id
	}

	switch request.HTTPMethod {
	case http.MethodGet:
		switch {
		case len(pathSegments) == 1:
			return h.handleList(actor, request.QueryStringParameters), nil
		case len(pathSegments) == 2 && pathSegments[1] == "visible":
			return h.handleVisible(actor), nil
		case len(pathSegments) == 2:
			return h.handleGet(actor, requestID), nil
		case len(pathSegments) == 3 && pathSegments[2] == "actions":
			return h.handleHistory(actor, requestID), nil
		}

	case http.MethodPost:
		switch {
		case len(pathSegments) == 1:
			return h.handleCreate(ctx, actor, request.Body), nil
		case len(pathSegments) == 3:
			return h.handleResolve(ctx, actor, requestID, pathSegments[2], request.Body), nil
		}

	default:
		return api.ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed", h.Logger), nil
	}

	return api.ErrorResponse(http.StatusNotFound, "Endpoint not found", h.Logger), nil
}

// handleList handles GET /approvals
func (h *ApprovalHandler) handleList(actor models.Actor, query map[string]string) events.APIGatewayProxyResponse {
	if err := h.Gate.Authorize(actor, []models.Permission{models.ViewApprovals}); err != nil {
		return api.DomainErrorResponse(err, h.Logger)
	}

	status := models.ApprovalStatus(query["status"])
	requestType := models.RequestType(query["type"])
	if status != "" && !status.IsValid() {
		return api.ValidationErrorResponse("Invalid query", []string{fmt.Sprintf("unknown status %q", status)}, h.Logger)
	}
	if requestType != "" && !requestType.IsValid() {
		return api.ValidationErrorResponse("Invalid query", []string{fmt.Sprintf("unknown type %q", requestType)}, h.Logger)
	}

	var requests []models.ApprovalRequest
	switch {
	case status == "" && requestType == "":
		requests = h.Engine.PendingApprovals()
	case status == "":
		requests = h.Engine.ByType(requestType)
	default:
		requests = h.Engine.Find(status, requestType)
	}

	return api.SuccessResponse(http.StatusOK, models.ApprovalListResponse{
		Requests: requests,
		Total:    len(requests),
	}, h.Logger)
}

// handleVisible handles GET /approvals/visible
func (h *ApprovalHandler) handleVisible(actor models.Actor) events.APIGatewayProxyResponse {
	requests := h.Engine.VisibleTo(actor)
	return api.SuccessResponse(http.StatusOK, models.ApprovalListResponse{
		Requests: requests,
		Total:    len(requests),
	}, h.Logger)
}

// handleGet handles GET /approvals/{requestId}
func (h *ApprovalHandler) handleGet(actor models.Actor, requestID string) events.APIGatewayProxyResponse {
	request, err := h.Engine.Get(requestID)
	if err != nil {
		return api.DomainErrorResponse(err, h.Logger)
	}
	if err := h.authorizeView(actor, request); err != nil {
		return api.DomainErrorResponse(err, h.Logger)
	}
	return api.SuccessResponse(http.StatusOK, request, h.Logger)
}

// handleHistory handles GET /approvals/{requestId}/actions
func (h *ApprovalHandler) handleHistory(actor models.Actor, requestID string) events.APIGatewayProxyResponse {
	request, err := h.Engine.Get(requestID)
	if err != nil {
		return api.DomainErrorResponse(err, h.Logger)
	}
	if err := h.authorizeView(actor, request); err != nil {
		return api.DomainErrorResponse(err, h.Logger)
	}

	actions, err := h.Engine.History(requestID)
	if err != nil {
		return api.DomainErrorResponse(err, h.Logger)
	}
	return api.SuccessResponse(http.StatusOK, models.ApprovalActionListResponse{
		Actions: actions,
		Total:   len(actions),
	}, h.Logger)
}

// handleCreate handles POST /approvals
func (h *ApprovalHandler) handleCreate(ctx context.Context, actor models.Actor, body string) events.APIGatewayProxyResponse {
	var input models.CreateApprovalRequest
	if err := api.ParseJSONBody(body, &input); err != nil {
		return api.DomainErrorResponse(err, h.Logger)
	}

	request, err := h.Engine.Create(ctx, actor, input)
	if err != nil {
		return api.DomainErrorResponse(err, h.Logger)
	}
	return api.SuccessResponse(http.StatusCreated, request, h.Logger)
}

// handleResolve handles POST /approvals/{requestId}/approve|reject|cancel
func (h *ApprovalHandler) handleResolve(ctx context.Context, actor models.Actor, requestID, decision, body string) events.APIGatewayProxyResponse {
	var input models.ResolveApprovalRequest
	if strings.TrimSpace(body) != "" {
		if err := api.ParseJSONBody(body, &input); err != nil {
			return api.DomainErrorResponse(err, h.Logger)
		}
	}

	var request models.ApprovalRequest
	var err error
	switch decision {
	case "approve":
		request, err = h.Engine.Approve(ctx, actor, requestID, input.Reason)
	case "reject":
		request, err = h.Engine.Reject(ctx, actor, requestID, input.Reason)
	case "cancel":
		request, err = h.Engine.Cancel(ctx, actor, requestID, input.Reason)
	default:
		return api.ErrorResponse(http.StatusNotFound, "Endpoint not found", h.Logger)
	}
	if err != nil {
		return api.DomainErrorResponse(err, h.Logger)
	}
	return api.SuccessResponse(http.StatusOK, request, h.Logger)
}

// authorizeView lets requesters see their own requests and view_approvals holders see any
func (h *ApprovalHandler) authorizeView(actor models.Actor, request models.ApprovalRequest) error {
	if request.RequestedBy == actor.ID {
		return nil
	}
	return h.Gate.Authorize(actor, []models.Permission{models.ViewApprovals})
}
